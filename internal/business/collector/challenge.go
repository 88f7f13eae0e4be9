package collector

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Verdict is the outcome of probing a page for an anti-bot interstitial.
type Verdict int

const (
	VerdictUnknown Verdict = iota
	VerdictClear
	VerdictChallenged
)

func (v Verdict) String() string {
	switch v {
	case VerdictClear:
		return "clear"
	case VerdictChallenged:
		return "challenged"
	default:
		return "unknown"
	}
}

// Blocked applies a call site's policy to the verdict. Unknown counts as
// blocked only when failClosed is set.
func (v Verdict) Blocked(failClosed bool) bool {
	switch v {
	case VerdictChallenged:
		return true
	case VerdictUnknown:
		return failClosed
	default:
		return false
	}
}

// PageProbe is the subset of Session the detector reads.
type PageProbe interface {
	Title(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
}

var challengeTitlePattern = regexp.MustCompile(`(?i)just a moment`)

const challengeWidgetSelector = `input[name="cf-turnstile-response"], script[src*="challenges.cloudflare.com/turnstile"]`

// DetectChallenge reports whether the page currently shows a challenge.
// Probe failures never propagate; they yield VerdictUnknown.
func DetectChallenge(ctx context.Context, page PageProbe) Verdict {
	titleKnown := false
	if title, err := page.Title(ctx); err == nil {
		titleKnown = true
		if challengeTitlePattern.MatchString(title) {
			return VerdictChallenged
		}
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return VerdictUnknown
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return VerdictUnknown
	}
	if doc.Find(challengeWidgetSelector).Length() > 0 {
		return VerdictChallenged
	}
	if !titleKnown {
		// The markup alone cannot rule out a title-only interstitial.
		if challengeTitlePattern.MatchString(doc.Find("title").First().Text()) {
			return VerdictChallenged
		}
	}
	return VerdictClear
}
