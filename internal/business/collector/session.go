package collector

import (
	"context"
	"time"
)

// ReadySignal selects how far a navigation must progress before returning.
type ReadySignal int

const (
	// ReadyDOMContentLoaded returns once the document is parsed, without
	// waiting for images or third-party scripts.
	ReadyDOMContentLoaded ReadySignal = iota
	// ReadyLoad waits for the full load event.
	ReadyLoad
)

// DefaultNavigationTimeout bounds every page navigation.
const DefaultNavigationTimeout = 60 * time.Second

// Cookie is a browser cookie as seen by the session.
type Cookie struct {
	Name   string
	Value  string
	Domain string
}

// Response is a network response observed inside a session. Body is
// empty when passed to a ResponseMatcher.
type Response struct {
	URL          string
	Status       int
	ResourceType string
	Body         []byte
}

// ResponseMatcher decides whether an observed response is captured.
type ResponseMatcher func(Response) bool

// Session is one isolated browsing context: its own cookies and storage,
// discarded on Close.
type Session interface {
	Navigate(ctx context.Context, url string, ready ReadySignal, timeout time.Duration) error
	Title(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	Cookies(ctx context.Context, domain string) ([]Cookie, error)
	// Eval runs a JavaScript function expression in the page with args
	// JSON-encoded as its single parameter. Promises are awaited and the
	// JSON result is decoded into out when out is non-nil.
	Eval(ctx context.Context, fn string, args any, out any) error
	// ObserveResponses captures matching responses until stop is called.
	ObserveResponses(ctx context.Context, match ResponseMatcher) (<-chan Response, func())
	Wait(ctx context.Context, d time.Duration) error
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// SessionFactory opens fresh isolated sessions.
type SessionFactory interface {
	NewIsolatedSession(ctx context.Context) (Session, error)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
