package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// ArtifactKey names one failed attempt.
type ArtifactKey struct {
	HotelID    string
	Provider   string
	TargetDate string
	Attempt    int
	Label      string
}

func (k ArtifactKey) baseName() string {
	name := fmt.Sprintf("%s_%s_%s_a%d_%s", k.HotelID, k.Provider, k.TargetDate, k.Attempt, k.Label)
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// ArtifactWriter saves a screenshot and the HTML of a failing page.
type ArtifactWriter struct {
	Dir     string
	Enabled bool
}

// Capture writes <dir>/<key>.png and <key>.html. It is a no-op when disabled.
// It returns the base path written.
func (w *ArtifactWriter) Capture(ctx context.Context, s Session, key ArtifactKey) (string, error) {
	if w == nil || !w.Enabled {
		return "", nil
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	base := filepath.Join(w.Dir, key.baseName())

	var firstErr error
	if shot, err := s.Screenshot(ctx); err != nil {
		firstErr = fmt.Errorf("screenshot: %w", err)
	} else if err := os.WriteFile(base+".png", shot, 0o644); err != nil {
		firstErr = fmt.Errorf("write screenshot: %w", err)
	}
	if html, err := s.HTML(ctx); err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("page html: %w", err)
		}
	} else if err := os.WriteFile(base+".html", []byte(html), 0o644); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("write html: %w", err)
	}
	return base, firstErr
}
