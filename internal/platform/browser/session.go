package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/sylvlondon/hotelmonitoring/internal/business/collector"
)

// Session is a collector.Session backed by one Chrome tab.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	closeOnce sync.Once
}

var _ collector.Session = (*Session)(nil)

// bind derives an operation context from the tab context that also ends
// when the caller's ctx does. A zero timeout means no extra deadline.
func (s *Session) bind(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var (
		opCtx  context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		opCtx, cancel = context.WithTimeout(s.ctx, timeout)
	} else {
		opCtx, cancel = context.WithCancel(s.ctx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

func (s *Session) Navigate(ctx context.Context, url string, ready collector.ReadySignal, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = collector.DefaultNavigationTimeout
	}
	opCtx, cancel := s.bind(ctx, timeout)
	defer cancel()

	if ready == collector.ReadyLoad {
		return chromedp.Run(opCtx, chromedp.Navigate(url))
	}

	// chromedp.Navigate blocks until the load event; return as soon as the
	// document is parsed instead.
	domReady := make(chan struct{}, 1)
	listenCtx, stopListening := context.WithCancel(opCtx)
	defer stopListening()
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		if _, ok := ev.(*page.EventDomContentEventFired); ok {
			select {
			case domReady <- struct{}{}:
			default:
			}
		}
	})

	navDone := make(chan error, 1)
	go func() { navDone <- chromedp.Run(opCtx, chromedp.Navigate(url)) }()

	select {
	case <-domReady:
		return chromedp.Run(opCtx, chromedp.WaitReady("body", chromedp.ByQuery))
	case err := <-navDone:
		if err != nil {
			return fmt.Errorf("navigate %s: %w", url, err)
		}
		return nil
	case <-opCtx.Done():
		return fmt.Errorf("navigate %s: %w", url, opCtx.Err())
	}
}

func (s *Session) Title(ctx context.Context) (string, error) {
	opCtx, cancel := s.bind(ctx, 10*time.Second)
	defer cancel()
	var title string
	if err := chromedp.Run(opCtx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	opCtx, cancel := s.bind(ctx, 15*time.Second)
	defer cancel()
	var html string
	if err := chromedp.Run(opCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (s *Session) Cookies(ctx context.Context, domain string) ([]collector.Cookie, error) {
	opCtx, cancel := s.bind(ctx, 10*time.Second)
	defer cancel()
	var cookies []*network.Cookie
	err := chromedp.Run(opCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("get cookies: %w", err)
	}
	domain = strings.TrimPrefix(domain, ".")
	var out []collector.Cookie
	for _, c := range cookies {
		d := strings.TrimPrefix(c.Domain, ".")
		if domain != "" && d != domain && !strings.HasSuffix(d, "."+domain) {
			continue
		}
		out = append(out, collector.Cookie{Name: c.Name, Value: c.Value, Domain: c.Domain})
	}
	return out, nil
}

func (s *Session) Eval(ctx context.Context, fn string, args any, out any) error {
	encoded, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode script args: %w", err)
	}
	expr := fmt.Sprintf("(%s)(%s)", fn, encoded)

	opCtx, cancel := s.bind(ctx, 30*time.Second)
	defer cancel()
	awaitPromise := func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}
	if out == nil {
		// A nil result lets scripts return undefined.
		if err := chromedp.Run(opCtx, chromedp.Evaluate(expr, nil, awaitPromise)); err != nil {
			return fmt.Errorf("evaluate: %w", err)
		}
		return nil
	}
	var raw []byte
	if err := chromedp.Run(opCtx, chromedp.Evaluate(expr, &raw, awaitPromise)); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode script result: %w", err)
	}
	return nil
}

func (s *Session) ObserveResponses(ctx context.Context, match collector.ResponseMatcher) (<-chan collector.Response, func()) {
	out := make(chan collector.Response, 32)
	listenCtx, cancel := s.bind(ctx, 0)

	var (
		mu      sync.Mutex
		pending = make(map[network.RequestID]collector.Response)
		wg      sync.WaitGroup
	)

	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			if e.Response == nil {
				return
			}
			meta := collector.Response{
				URL:          e.Response.URL,
				Status:       int(e.Response.Status),
				ResourceType: string(e.Type),
			}
			if match != nil && !match(meta) {
				return
			}
			mu.Lock()
			pending[e.RequestID] = meta
			mu.Unlock()
		case *network.EventLoadingFinished:
			mu.Lock()
			meta, ok := pending[e.RequestID]
			delete(pending, e.RequestID)
			mu.Unlock()
			if !ok {
				return
			}
			// Listeners must not block the event loop.
			wg.Add(1)
			go func(id network.RequestID, r collector.Response) {
				defer wg.Done()
				err := chromedp.Run(listenCtx, chromedp.ActionFunc(func(ctx context.Context) error {
					body, err := network.GetResponseBody(id).Do(ctx)
					r.Body = body
					return err
				}))
				if err != nil {
					s.logger.Debug("response body unavailable", "url", r.URL, "error", err)
					return
				}
				select {
				case out <- r:
				default:
				}
			}(e.RequestID, meta)
		}
	})

	var once sync.Once
	return out, func() {
		once.Do(func() {
			cancel()
			go func() {
				wg.Wait()
				close(out)
			}()
		})
	}
}

func (s *Session) Wait(ctx context.Context, d time.Duration) error {
	return collector.Sleep(ctx, d)
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	opCtx, cancel := s.bind(ctx, 20*time.Second)
	defer cancel()
	var buf []byte
	if err := chromedp.Run(opCtx, chromedp.FullScreenshot(&buf, 80)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Close tears down the tab and, for isolated sessions, its browser context.
func (s *Session) Close() error {
	s.closeOnce.Do(s.cancel)
	return nil
}
