package thais

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sylvlondon/hotelmonitoring/internal/business/collector"
	"github.com/sylvlondon/hotelmonitoring/pkg/model"
	"github.com/sylvlondon/hotelmonitoring/pkg/util"
)

var frenchMonths = [...]string{
	"janvier", "fevrier", "mars", "avril", "mai", "juin",
	"juillet", "aout", "septembre", "octobre", "novembre", "decembre",
}

var noResultPattern = regexp.MustCompile(`aucune disponibilite|aucun resultat|sejour minimum|duree minimum|minimum de \d+ nuits|no availability`)

const roomTitleSelector = `[class*="room-type"] [class*="title"], [class*="room"] h2, [class*="room"] h3, .room-name`

// dateFieldsScript reads what the start and end date fields display.
const dateFieldsScript = `() => {
  const read = (selector) => {
    const el = document.querySelector(selector);
    if (!el) return null;
    return (el.value || el.getAttribute('placeholder') || el.textContent || '').trim();
  };
  return {
    start: read('[data-testid*="start"], [class*="start-date"], [class*="arrival"], input[name*="arrival"], input[name="from"]'),
    end: read('[data-testid*="end"], [class*="end-date"], [class*="departure"], input[name*="departure"], input[name="to"]'),
  };
}`

// pickDateScript opens a date field's picker and clicks the enabled day
// cell of the month whose folded caption contains month.
const pickDateScript = `({ field, month, day }) => {
  const fold = (s) => (s || '').normalize('NFD').replace(/[\u0300-\u036f]/g, '').toLowerCase().replace(/\s+/g, ' ').trim();
  const selectors = {
    start: '[data-testid*="start"], [class*="start-date"], [class*="arrival"], input[name*="arrival"], input[name="from"]',
    end: '[data-testid*="end"], [class*="end-date"], [class*="departure"], input[name*="departure"], input[name="to"]',
  };
  const trigger = document.querySelector(selectors[field]);
  if (!trigger) return { opened: false, clicked: false };
  trigger.click();
  const months = Array.from(document.querySelectorAll('[class*="calendar"] [class*="month"], .month'))
    .filter((el) => fold(el.textContent).includes(month));
  for (const m of months) {
    const cells = Array.from(m.querySelectorAll('button, td, [role="gridcell"]'));
    const cell = cells.find((c) => {
      if (fold(c.textContent) !== String(day)) return false;
      const cls = String(c.className || '');
      return !c.disabled && c.getAttribute('aria-disabled') !== 'true' && !/disabled|unavailable|past/.test(cls);
    });
    if (cell) {
      cell.click();
      return { opened: true, clicked: true };
    }
  }
  return { opened: true, clicked: false };
}`

type dateFields struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

type pickArgs struct {
	Field string `json:"field"`
	Month string `json:"month"`
	Day   int    `json:"day"`
}

type pickResult struct {
	Opened  bool `json:"opened"`
	Clicked bool `json:"clicked"`
}

// UIAdapter drives the calendar widget like a visitor would and reads the
// rendered room list.
type UIAdapter struct {
	navTimeout time.Duration
	pickWait   time.Duration
	settle     time.Duration
	logger     *slog.Logger
}

func NewUIAdapter(settle time.Duration, logger *slog.Logger) *UIAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	if settle <= 0 {
		settle = 3 * time.Second
	}
	return &UIAdapter{
		navTimeout: collector.DefaultNavigationTimeout,
		pickWait:   settle / 3,
		settle:     settle,
		logger:     logger.With("adapter", string(model.ProviderThaisCalendar), "mode", "ui"),
	}
}

func (a *UIAdapter) Provider() model.Provider { return model.ProviderThaisCalendar }

func (a *UIAdapter) Collect(ctx context.Context, s collector.Session, hotel model.HotelConfig, targetDate string) (model.CollectResult, error) {
	loc, err := hotel.Location()
	if err != nil {
		return model.CollectResult{}, err
	}
	arrival, err := collector.ParseTargetDate(targetDate, loc)
	if err != nil {
		return model.CollectResult{}, err
	}
	departure := arrival.AddDate(0, 0, 1)

	if err := s.Navigate(ctx, hotel.BookingURL, collector.ReadyDOMContentLoaded, a.navTimeout); err != nil {
		return model.CollectResult{}, fmt.Errorf("navigate %s: %w", hotel.BookingURL, err)
	}

	var before dateFields
	if err := s.Eval(ctx, dateFieldsScript, nil, &before); err != nil {
		return model.CollectResult{}, fmt.Errorf("read date fields: %w", err)
	}
	if before.Start == nil || before.End == nil {
		return model.CollectResult{}, collector.NewCollectError(collector.CodeParseEmptyThais, "date picker not found on %s", hotel.BookingURL)
	}

	for _, step := range []struct {
		field string
		day   time.Time
	}{{"start", arrival}, {"end", departure}} {
		var res pickResult
		if err := s.Eval(ctx, pickDateScript, pickArgs{Field: step.field, Month: MonthLabel(step.day), Day: step.day.Day()}, &res); err != nil {
			return model.CollectResult{}, fmt.Errorf("pick %s date: %w", step.field, err)
		}
		if !res.Opened {
			return model.CollectResult{}, collector.NewCollectError(collector.CodeParseEmptyThais, "%s date picker did not open", step.field)
		}
		if err := s.Wait(ctx, a.pickWait); err != nil {
			return model.CollectResult{}, err
		}
	}
	if err := s.Wait(ctx, a.settle); err != nil {
		return model.CollectResult{}, err
	}

	var after dateFields
	if err := s.Eval(ctx, dateFieldsScript, nil, &after); err != nil {
		return model.CollectResult{}, fmt.Errorf("read date fields: %w", err)
	}
	if !changed(before.Start, after.Start) || !changed(before.End, after.End) {
		// The calendar refused the stay, typically a minimum-stay rule.
		a.logger.Debug("dates not accepted", "hotel_id", hotel.HotelID, "target_date", targetDate)
		return model.CollectResult{Status: model.StatusNoAvailability}, nil
	}

	html, err := s.HTML(ctx)
	if err != nil {
		return model.CollectResult{}, fmt.Errorf("read page: %w", err)
	}
	if noResultPattern.MatchString(util.FoldText(util.StripToText(html))) {
		return model.CollectResult{Status: model.StatusNoAvailability}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return model.CollectResult{}, fmt.Errorf("parse html: %w", err)
	}
	var titles []string
	doc.Find(roomTitleSelector).Each(func(_ int, sel *goquery.Selection) {
		titles = append(titles, strings.TrimSpace(sel.Text()))
	})
	rooms := ParseRoomTitles(titles)
	if rooms.Count == 0 {
		return model.CollectResult{}, collector.NewCollectError(collector.CodeParseEmptyThais, "no numbered room in %d titles", len(titles))
	}
	return roomsResult(rooms, hotel.TotalRooms), nil
}

// MonthLabel renders the folded French caption of t's month, e.g. "aout 2026".
func MonthLabel(t time.Time) string {
	return frenchMonths[t.Month()-1] + " " + strconv.Itoa(t.Year())
}

func changed(before, after *string) bool {
	if before == nil || after == nil {
		return false
	}
	return strings.TrimSpace(*before) != strings.TrimSpace(*after)
}
