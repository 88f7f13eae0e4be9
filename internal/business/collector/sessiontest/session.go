// Package sessiontest provides a scripted in-memory collector.Session.
package sessiontest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/sylvlondon/hotelmonitoring/internal/business/collector"
)

// EvalFunc answers one page script. The returned value is JSON round-tripped
// into the caller's out parameter.
type EvalFunc func(args any) (any, error)

// Session is a fake page. Zero values answer with empty strings and no errors.
type Session struct {
	mu sync.Mutex

	PageTitle   string
	PageHTML    string
	TitleErr    error
	HTMLErr     error
	NavigateErr error
	// HTMLAfterWait, when set, replaces PageHTML once Wait is first called.
	HTMLAfterWait string
	Scripts       map[string]EvalFunc
	Responses     []collector.Response
	CookieJar     []collector.Cookie
	Shot          []byte

	Navigated []string
	Waits     []time.Duration
	Evaluated []string
	Closed    bool
}

var _ collector.Session = (*Session)(nil)

func (s *Session) Navigate(ctx context.Context, url string, ready collector.ReadySignal, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Navigated = append(s.Navigated, url)
	return s.NavigateErr
}

func (s *Session) Title(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.PageTitle, s.TitleErr
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.PageHTML, s.HTMLErr
}

func (s *Session) Cookies(ctx context.Context, domain string) ([]collector.Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []collector.Cookie
	for _, c := range s.CookieJar {
		if domain == "" || c.Domain == domain {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Session) Eval(ctx context.Context, fn string, args any, out any) error {
	s.mu.Lock()
	s.Evaluated = append(s.Evaluated, fn)
	handler, ok := s.Scripts[fn]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	v, err := handler(args)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (s *Session) ObserveResponses(ctx context.Context, match collector.ResponseMatcher) (<-chan collector.Response, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan collector.Response, len(s.Responses))
	for _, r := range s.Responses {
		meta := r
		meta.Body = nil
		if match == nil || match(meta) {
			ch <- r
		}
	}
	return ch, func() {}
}

func (s *Session) Wait(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Waits = append(s.Waits, d)
	if s.HTMLAfterWait != "" {
		s.PageHTML = s.HTMLAfterWait
		s.HTMLAfterWait = ""
	}
	return ctx.Err()
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	if s.Shot == nil {
		return nil, errors.New("no screenshot")
	}
	return s.Shot, nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// Factory hands out sessions built by New and remembers them.
type Factory struct {
	mu       sync.Mutex
	New      func() *Session
	Err      error
	Sessions []*Session
}

func (f *Factory) NewIsolatedSession(ctx context.Context) (collector.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	s := &Session{}
	if f.New != nil {
		s = f.New()
	}
	f.Sessions = append(f.Sessions, s)
	return s, nil
}
