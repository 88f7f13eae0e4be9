package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// ClearanceCookieName is the anti-bot clearance cookie set by the edge proxy.
const ClearanceCookieName = "cf_clearance"

// ClearanceDomains receive the cookie in every new browsing session.
var ClearanceDomains = []string{
	"www.secure-direct-hotel-booking.com",
	"secure-direct-hotel-booking.com",
}

// Clearance is a manually obtained clearance cookie value and where it came from.
type Clearance struct {
	Value  string
	Source string
}

// Present reports whether a value was found.
func (c Clearance) Present() bool { return c.Value != "" }

// DefaultClearanceFile is where the capture tool stores the value.
func DefaultClearanceFile(home string) string {
	return filepath.Join(home, ".config", "hotelmonitoring", "cf_clearance.txt")
}

// ResolveClearance looks up the clearance value from the environment
// variable, then the file it names, then the default file. Missing sources
// are not an error; the result is simply empty.
func ResolveClearance(getenv func(string) string, readFile func(string) ([]byte, error), home string) (Clearance, error) {
	if v := strings.TrimSpace(getenv("SECURE_DIRECT_CF_CLEARANCE")); v != "" {
		return Clearance{Value: v, Source: "env"}, nil
	}

	var candidates []string
	if p := strings.TrimSpace(getenv("SECURE_DIRECT_CF_CLEARANCE_FILE")); p != "" {
		candidates = append(candidates, p)
	}
	if home != "" {
		candidates = append(candidates, DefaultClearanceFile(home))
	}

	for _, p := range candidates {
		data, err := readFile(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Clearance{}, fmt.Errorf("read clearance file %s: %w", p, err)
		}
		if v := strings.TrimSpace(string(data)); v != "" {
			return Clearance{Value: v, Source: "file:" + p}, nil
		}
	}
	return Clearance{}, nil
}
