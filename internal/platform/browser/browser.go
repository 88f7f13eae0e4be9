package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/sylvlondon/hotelmonitoring/internal/business/collector"
)

// Options configures the Chrome process.
type Options struct {
	Headless    bool
	ExecPath    string
	UserAgent   string
	UserDataDir string
	// NoSandbox is needed when Chrome runs as root inside a container.
	NoSandbox bool
	// Cookies are injected into every new session before navigation.
	Cookies []InjectedCookie
}

// InjectedCookie is a cookie planted in fresh sessions.
type InjectedCookie struct {
	Name   string
	Value  string
	Domain string
}

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// Launcher owns one Chrome process and hands out tabs.
type Launcher struct {
	allocCtx     context.Context
	allocCancel  context.CancelFunc
	browserCtx   context.Context
	browserClose context.CancelFunc
	cookies      []InjectedCookie
	logger       *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewLauncher starts Chrome. The process lives until Close.
func NewLauncher(opts Options, logger *slog.Logger) (*Launcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", "fr-FR"),
		chromedp.UserAgent(ua),
		chromedp.WindowSize(1366, 900),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}
	if opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserClose := chromedp.NewContext(allocCtx)

	// The first Run starts the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserClose()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	return &Launcher{
		allocCtx:     allocCtx,
		allocCancel:  allocCancel,
		browserCtx:   browserCtx,
		browserClose: browserClose,
		cookies:      opts.Cookies,
		logger:       logger.With("component", "browser"),
	}, nil
}

// NewIsolatedSession opens a tab in a fresh browser context: no cookies,
// storage or cache shared with any other session.
func (l *Launcher) NewIsolatedSession(ctx context.Context) (collector.Session, error) {
	return l.open(ctx, chromedp.WithNewBrowserContext())
}

// NewTab opens a tab in the default (profile backed) browser context.
func (l *Launcher) NewTab(ctx context.Context) (collector.Session, error) {
	return l.open(ctx)
}

func (l *Launcher) open(ctx context.Context, opts ...chromedp.ContextOption) (collector.Session, error) {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return nil, errors.New("browser launcher is closed")
	}

	tabCtx, cancel := chromedp.NewContext(l.browserCtx, opts...)
	s := &Session{ctx: tabCtx, cancel: cancel, logger: l.logger}

	setup := []chromedp.Action{network.Enable()}
	if len(l.cookies) > 0 {
		params := make([]*network.CookieParam, 0, len(l.cookies))
		for _, c := range l.cookies {
			params = append(params, &network.CookieParam{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     "/",
				HTTPOnly: true,
				Secure:   true,
				SameSite: network.CookieSameSiteLax,
			})
		}
		setup = append(setup, network.SetCookies(params))
	}

	// The first Run attaches the target and its event loop lives as long as
	// the context it was given, so it must run on tabCtx itself. The caller's
	// ctx only bounds the setup.
	stop := context.AfterFunc(ctx, cancel)
	err := chromedp.Run(tabCtx, setup...)
	if !stop() {
		cancel()
		return nil, fmt.Errorf("open tab: %w", context.Cause(ctx))
	}
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return s, nil
}

// Close terminates the browser process.
func (l *Launcher) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.browserClose()
	l.allocCancel()
}
