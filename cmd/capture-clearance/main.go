// Command capture-clearance opens a visible Chrome on the secure-direct
// booking pages, waits for the operator to pass the challenge and saves the
// resulting clearance cookie for later headless runs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sylvlondon/hotelmonitoring/internal/business/collector"
	"github.com/sylvlondon/hotelmonitoring/internal/business/collector/securedirect"
	"github.com/sylvlondon/hotelmonitoring/internal/platform/browser"
	"github.com/sylvlondon/hotelmonitoring/internal/platform/config"
	"github.com/sylvlondon/hotelmonitoring/internal/platform/logging"
)

func main() {
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolve home dir: %v\n", err)
		os.Exit(1)
	}
	out := flag.String("out", config.DefaultClearanceFile(home), "file receiving the clearance value")
	profile := flag.String("profile", filepath.Join(home, ".config", "hotelmonitoring", "chrome-profile"), "persistent Chrome profile directory")
	timeout := flag.Duration("timeout", 10*time.Minute, "how long to wait for the challenge to be solved")
	flag.Parse()

	_ = godotenv.Load(".env.local", ".env")

	logger, logCloser, err := logging.New(logging.Config{Level: os.Getenv("LOG_LEVEL")})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	if err := run(logger, *out, *profile, *timeout); err != nil {
		logger.Error("capture clearance", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, out, profile string, timeout time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	urls, err := secureDirectURLs()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o700); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	launcher, err := browser.NewLauncher(browser.Options{
		Headless:    false,
		ExecPath:    os.Getenv("CHROME_PATH"),
		UserDataDir: profile,
	}, logger)
	if err != nil {
		return err
	}
	defer launcher.Close()

	var last collector.Session
	for _, u := range urls {
		tab, err := launcher.NewTab(ctx)
		if err != nil {
			return err
		}
		defer tab.Close()
		if err := tab.Navigate(ctx, u, collector.ReadyDOMContentLoaded, collector.DefaultNavigationTimeout); err != nil {
			logger.Warn("navigation did not complete", "url", u, "error", err)
		}
		last = tab
	}
	if last == nil {
		return errors.New("no secure-direct hotel configured")
	}

	logger.Info("solve the challenge in the opened Chrome window", "timeout", timeout)
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	value, err := waitForClearance(waitCtx, last, 2*time.Second)
	if err != nil {
		return fmt.Errorf("wait for %s: %w", config.ClearanceCookieName, err)
	}
	if err := os.WriteFile(out, []byte(value+"\n"), 0o600); err != nil {
		return fmt.Errorf("write clearance: %w", err)
	}
	if err := os.Chmod(out, 0o600); err != nil {
		return fmt.Errorf("chmod clearance: %w", err)
	}
	logger.Info("clearance saved", "path", out)
	return nil
}

// secureDirectURLs lists the booking pages of every secure-direct hotel.
func secureDirectURLs() ([]string, error) {
	hotels, err := config.LoadHotels(strings.TrimSpace(os.Getenv("HOTELS_FILE")), "Europe/Paris")
	if err != nil {
		return nil, err
	}
	var urls []string
	for _, h := range hotels {
		if strings.Contains(h.BookingURL, securedirect.Host) {
			urls = append(urls, h.BookingURL)
		}
	}
	return urls, nil
}

// waitForClearance polls the session cookies until the clearance cookie
// appears or ctx ends.
func waitForClearance(ctx context.Context, s collector.Session, interval time.Duration) (string, error) {
	for {
		cookies, err := s.Cookies(ctx, securedirect.Host)
		if err == nil {
			for _, c := range cookies {
				if c.Name == config.ClearanceCookieName {
					if v := strings.TrimSpace(c.Value); v != "" {
						return v, nil
					}
				}
			}
		}
		if err := s.Wait(ctx, interval); err != nil {
			return "", err
		}
	}
}
