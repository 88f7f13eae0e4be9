package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/sylvlondon/hotelmonitoring/internal/business/collector"
)

// chromePath finds a local Chrome, skipping the test when none exists.
func chromePath(t *testing.T) string {
	t.Helper()
	if p := os.Getenv("CHROME_PATH"); p != "" {
		return p
	}
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell", "chrome"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	t.Skip("no Chrome binary found")
	return ""
}

func newTestLauncher(t *testing.T) *Launcher {
	t.Helper()
	l, err := NewLauncher(Options{
		Headless:  true,
		ExecPath:  chromePath(t),
		NoSandbox: true,
		Cookies:   []InjectedCookie{{Name: "cf_clearance", Value: "token", Domain: "127.0.0.1"}},
	}, nil)
	if err != nil {
		t.Fatalf("NewLauncher: %v", err)
	}
	t.Cleanup(l.Close)
	return l
}

func hotelPage(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><title>Maison Pavlov</title></head>
<body><div class="script-accommodation-service"><h3>Chambre 7</h3></div></body></html>`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSessionDrivesPageAfterOpen(t *testing.T) {
	l := newTestLauncher(t)
	srv := hotelPage(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// The open context ends before the session is used.
	openCtx, openCancel := context.WithCancel(ctx)
	s, err := l.NewIsolatedSession(openCtx)
	openCancel()
	if err != nil {
		t.Fatalf("NewIsolatedSession: %v", err)
	}
	defer s.Close()

	if err := s.Navigate(ctx, srv.URL, collector.ReadyDOMContentLoaded, 10*time.Second); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	title, err := s.Title(ctx)
	if err != nil || title != "Maison Pavlov" {
		t.Fatalf("Title = %q, %v", title, err)
	}
	html, err := s.HTML(ctx)
	if err != nil || !strings.Contains(html, "Chambre 7") {
		t.Fatalf("HTML = %q, %v", html, err)
	}

	var sum int
	if err := s.Eval(ctx, `({ a, b }) => a + b`, map[string]int{"a": 2, "b": 3}, &sum); err != nil || sum != 5 {
		t.Fatalf("Eval = %d, %v", sum, err)
	}
	if err := s.Eval(ctx, `() => { document.title = "done"; }`, nil, nil); err != nil {
		t.Fatalf("Eval without result: %v", err)
	}

	if _, err := s.Cookies(ctx, "127.0.0.1"); err != nil {
		t.Fatalf("Cookies: %v", err)
	}
}

func TestNewTabUsableAfterOpen(t *testing.T) {
	l := newTestLauncher(t)
	srv := hotelPage(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := l.NewTab(ctx)
	if err != nil {
		t.Fatalf("NewTab: %v", err)
	}
	defer s.Close()

	if err := s.Navigate(ctx, srv.URL, collector.ReadyLoad, 10*time.Second); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if title, err := s.Title(ctx); err != nil || title != "Maison Pavlov" {
		t.Fatalf("Title = %q, %v", title, err)
	}
}

func TestOpenHonorsCancelledContext(t *testing.T) {
	l := newTestLauncher(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.NewIsolatedSession(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
