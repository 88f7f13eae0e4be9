package securedirect

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sylvlondon/hotelmonitoring/internal/business/collector"
	"github.com/sylvlondon/hotelmonitoring/pkg/model"
	"github.com/sylvlondon/hotelmonitoring/pkg/util"
)

const numberedTitleSelector = `.script-accommodation-service h3, .script-accommodation-service .title, .script-accommodation-service [class*="title"]`

// NumberedAdapter reads individually numbered rooms ("Chambre 7") from the
// secure-direct engine.
type NumberedAdapter struct {
	opts   Options
	logger *slog.Logger
}

func NewNumberedAdapter(opts Options, logger *slog.Logger) *NumberedAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &NumberedAdapter{opts: opts.withDefaults(), logger: logger.With("adapter", string(model.ProviderSecureDirectNumbered))}
}

func (a *NumberedAdapter) Provider() model.Provider { return model.ProviderSecureDirectNumbered }

func (a *NumberedAdapter) Collect(ctx context.Context, s collector.Session, hotel model.HotelConfig, targetDate string) (model.CollectResult, error) {
	loc, err := hotel.Location()
	if err != nil {
		return model.CollectResult{}, err
	}
	departure, err := collector.AddOneNight(targetDate, loc)
	if err != nil {
		return model.CollectResult{}, err
	}

	if err := s.Navigate(ctx, hotel.BookingURL, collector.ReadyDOMContentLoaded, a.opts.NavigationTimeout); err != nil {
		return model.CollectResult{}, fmt.Errorf("navigate %s: %w", hotel.BookingURL, err)
	}
	if verdict := collector.DetectChallenge(ctx, s); verdict.Blocked(a.opts.FailClosed) {
		return model.CollectResult{}, collector.NewCollectError(collector.CodeCloudflareChallenge, "challenge page on %s (%s)", hotel.BookingURL, verdict)
	}

	responses, stop := s.ObserveResponses(ctx, ajaxMatcher)
	defer stop()

	mode, err := submitSearch(ctx, s, targetDate, departure)
	if err != nil {
		return model.CollectResult{}, err
	}
	a.logger.Debug("search submitted", "hotel_id", hotel.HotelID, "target_date", targetDate, "mode", mode)

	if err := s.Wait(ctx, a.opts.Waits.Settle); err != nil {
		return model.CollectResult{}, err
	}

	if captured := drainResponses(responses); len(captured) > 0 {
		last := captured[len(captured)-1]
		if res, ok := a.fromMarkup(ajaxMarkup(last.Body), hotel); ok {
			a.logger.Debug("resolved from engine response", "hotel_id", hotel.HotelID, "url", last.URL)
			return res, nil
		}
	}

	html, err := s.HTML(ctx)
	if err != nil {
		return model.CollectResult{}, fmt.Errorf("read page: %w", err)
	}
	if showsNoAvailability(ctx, s, html) {
		return model.CollectResult{Status: model.StatusNoAvailability}, nil
	}

	titles, err := selectTexts(html, numberedTitleSelector)
	if err != nil {
		return model.CollectResult{}, err
	}
	rooms := ParseNumberedTitles(titles)
	if rooms.Count == 0 {
		if collector.DetectChallenge(ctx, s) == collector.VerdictChallenged {
			return model.CollectResult{}, collector.NewCollectError(collector.CodeCloudflareChallenge, "challenge page after search on %s", hotel.BookingURL)
		}
		return model.CollectResult{}, collector.NewCollectError(collector.CodeParseEmptyNumbered, "no numbered room in %d titles", len(titles))
	}
	return numberedResult(rooms, hotel.TotalRooms), nil
}

// fromMarkup resolves an outcome from a captured engine response. It only
// answers when the response is conclusive.
func (a *NumberedAdapter) fromMarkup(markup string, hotel model.HotelConfig) (model.CollectResult, bool) {
	if markup == "" {
		return model.CollectResult{}, false
	}
	if noAvailabilityPattern.MatchString(util.FoldText(util.StripToText(markup))) {
		return model.CollectResult{Status: model.StatusNoAvailability}, true
	}
	titles, err := selectTexts(markup, numberedTitleSelector)
	if err != nil {
		return model.CollectResult{}, false
	}
	rooms := ParseNumberedTitles(titles)
	if rooms.Count == 0 {
		return model.CollectResult{}, false
	}
	return numberedResult(rooms, hotel.TotalRooms), true
}

func numberedResult(rooms NumberedRooms, totalRooms int) model.CollectResult {
	count := rooms.Count
	if count > totalRooms {
		count = totalRooms
	}
	return model.CollectResult{
		AvailableRoomsCount:          count,
		AvailableRoomIDsOrCategories: rooms.CSV(),
		Status:                       model.StatusOK,
	}
}

// ajaxMarkup returns the HTML carried by an engine response. JSON payloads
// have their string values concatenated.
func ajaxMarkup(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	if trimmed[0] != '{' && trimmed[0] != '[' && trimmed[0] != '"' {
		return trimmed
	}
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return trimmed
	}
	var sb strings.Builder
	collectStrings(v, &sb)
	return sb.String()
}

func collectStrings(v any, sb *strings.Builder) {
	switch t := v.(type) {
	case string:
		sb.WriteString(t)
		sb.WriteString("\n")
	case []any:
		for _, item := range t {
			collectStrings(item, sb)
		}
	case map[string]any:
		for _, item := range t {
			collectStrings(item, sb)
		}
	}
}
