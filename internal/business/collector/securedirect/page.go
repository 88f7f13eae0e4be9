package securedirect

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sylvlondon/hotelmonitoring/internal/business/collector"
	"github.com/sylvlondon/hotelmonitoring/pkg/util"
)

// Host is the booking engine domain shared by both adapters.
const Host = "secure-direct-hotel-booking.com"

var (
	ajaxPathPattern       = regexp.MustCompile(`(?i)ajax|selection|accommodation|search`)
	noAvailabilityPattern = regexp.MustCompile(`plus de disponibilite|aucune disponibilite|no availability|no rooms available`)
)

// Waits are the settle delays used while driving the engine.
type Waits struct {
	// Settle follows the search submission.
	Settle time.Duration
	// Reveal follows each click that expands more offers.
	Reveal time.Duration
}

// DefaultWaits matches the engine's observed rendering latency.
var DefaultWaits = Waits{Settle: 3 * time.Second, Reveal: 2 * time.Second}

// Options configures both secure-direct adapters.
type Options struct {
	Waits             Waits
	NavigationTimeout time.Duration
	// FailClosed treats an inconclusive challenge probe as blocked.
	FailClosed bool
}

func (o Options) withDefaults() Options {
	if o.Waits == (Waits{}) {
		o.Waits = DefaultWaits
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = collector.DefaultNavigationTimeout
	}
	return o
}

// submitSearchScript fills the engine's hidden search form and triggers the
// in-page search. Without searchAction it falls back to the visible inputs
// and a submit control.
const submitSearchScript = `({ arrival, departure, arrivalDisplay, departureDisplay }) => {
  const setValue = (selectors, value) => {
    for (const selector of selectors) {
      const input = document.querySelector(selector);
      if (input) {
        input.value = value;
        input.dispatchEvent(new Event('input', { bubbles: true }));
        input.dispatchEvent(new Event('change', { bubbles: true }));
        return true;
      }
    }
    return false;
  };
  setValue(['#hidden_arrival_date', 'input[name="hidden_arrival_date"]'], arrival);
  setValue(['#hidden_departure_date', 'input[name="hidden_departure_date"]'], departure);
  setValue(['#hidden_nb_nuit', 'input[name="hidden_nb_nuit"]'], '1');
  if (typeof window.searchAction === 'function') {
    window.searchAction();
    return 'search_action';
  }
  setValue(['#arrival_date', 'input[name="arrival_date"]', 'input[name="date_arrivee"]'], arrivalDisplay);
  setValue(['#departure_date', 'input[name="departure_date"]', 'input[name="date_depart"]'], departureDisplay);
  const fold = (s) => (s || '').normalize('NFD').replace(/[\u0300-\u036f]/g, '').toLowerCase();
  let submit = document.querySelector('button[type="submit"], .btn-search, .search-button');
  if (!submit) {
    submit = Array.from(document.querySelectorAll('button, a, input[type="submit"]'))
      .find((el) => /rechercher|reserver|disponibilit/.test(fold(el.textContent || el.value)));
  }
  if (submit) {
    submit.click();
    return 'submit_click';
  }
  return 'none';
}`

// clickByTextScript clicks visible buttons and links whose folded text
// matches pattern. It returns the number of clicks.
const clickByTextScript = `({ pattern, all }) => {
  const fold = (s) => (s || '').normalize('NFD').replace(/[\u0300-\u036f]/g, '').toLowerCase();
  const re = new RegExp(pattern);
  const visible = (el) => !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
  const matches = Array.from(document.querySelectorAll('button, a, [role="button"]'))
    .filter((el) => visible(el) && re.test(fold(el.textContent).replace(/\s+/g, ' ')));
  const targets = all ? matches : matches.slice(0, 1);
  let clicked = 0;
  for (const el of targets) {
    try {
      el.click();
      clicked += 1;
    } catch (e) {}
  }
  return clicked;
}`

// visibleTextScript reports whether a visible text node matches pattern.
const visibleTextScript = `({ pattern }) => {
  const fold = (s) => (s || '').normalize('NFD').replace(/[\u0300-\u036f]/g, '').toLowerCase();
  const re = new RegExp(pattern);
  if (!document.body) return false;
  const walker = document.createTreeWalker(document.body, NodeFilter.SHOW_TEXT);
  while (walker.nextNode()) {
    const node = walker.currentNode;
    if (!re.test(fold(node.textContent))) continue;
    const el = node.parentElement;
    if (el && (el.offsetWidth || el.offsetHeight || el.getClientRects().length)) return true;
  }
  return false;
}`

type searchArgs struct {
	Arrival          string `json:"arrival"`
	Departure        string `json:"departure"`
	ArrivalDisplay   string `json:"arrivalDisplay"`
	DepartureDisplay string `json:"departureDisplay"`
}

type clickArgs struct {
	Pattern string `json:"pattern"`
	All     bool   `json:"all"`
}

type patternArgs struct {
	Pattern string `json:"pattern"`
}

// displayDate renders YYYY-MM-DD as the engine's dd/mm/yyyy form value.
func displayDate(date string) string {
	parts := strings.Split(date, "-")
	if len(parts) != 3 {
		return date
	}
	return parts[2] + "/" + parts[1] + "/" + parts[0]
}

func submitSearch(ctx context.Context, s collector.Session, arrival, departure string) (string, error) {
	var mode string
	err := s.Eval(ctx, submitSearchScript, searchArgs{
		Arrival:          arrival,
		Departure:        departure,
		ArrivalDisplay:   displayDate(arrival),
		DepartureDisplay: displayDate(departure),
	}, &mode)
	if err != nil {
		return "", fmt.Errorf("submit search: %w", err)
	}
	return mode, nil
}

// clickByText clicks controls whose folded label matches pattern. Script
// failures count as no click.
func clickByText(ctx context.Context, s collector.Session, pattern string, all bool) int {
	var clicked int
	if err := s.Eval(ctx, clickByTextScript, clickArgs{Pattern: pattern, All: all}, &clicked); err != nil {
		return 0
	}
	return clicked
}

// showsNoAvailability checks the live page first and the given markup second.
func showsNoAvailability(ctx context.Context, s collector.Session, html string) bool {
	var visible bool
	if err := s.Eval(ctx, visibleTextScript, patternArgs{Pattern: noAvailabilityPattern.String()}, &visible); err == nil && visible {
		return true
	}
	return html != "" && noAvailabilityPattern.MatchString(util.FoldText(util.StripToText(html)))
}

// ajaxMatcher keeps the engine's own successful data requests.
func ajaxMatcher(r collector.Response) bool {
	if r.Status >= 400 {
		return false
	}
	if r.ResourceType != "" && r.ResourceType != "XHR" && r.ResourceType != "Fetch" {
		return false
	}
	return strings.Contains(r.URL, Host) && ajaxPathPattern.MatchString(r.URL)
}

// drainResponses collects whatever arrived so far without blocking.
func drainResponses(ch <-chan collector.Response) []collector.Response {
	var out []collector.Response
	for {
		select {
		case r, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, r)
		default:
			return out
		}
	}
}

func selectTexts(html, selector string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	var texts []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		if t := strings.TrimSpace(sel.Text()); t != "" {
			texts = append(texts, t)
		}
	})
	return texts, nil
}
