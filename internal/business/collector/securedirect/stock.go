package securedirect

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sylvlondon/hotelmonitoring/internal/business/collector"
	"github.com/sylvlondon/hotelmonitoring/pkg/model"
	"github.com/sylvlondon/hotelmonitoring/pkg/util"
)

const (
	cardSelector         = `.script-accommodation-service, .accommodation-card`
	fallbackCardSelector = `[class*="accommodation"]`
	cardTitleSelector    = `h2, h3, .title, [class*="title"]`

	checkAllPattern = `verifier toutes les disponibilites`
	allRatesPattern = `voir tous les tarifs`
)

// StockAdapter reads "only N left" counters per room category from the
// secure-direct engine.
type StockAdapter struct {
	opts   Options
	logger *slog.Logger
}

func NewStockAdapter(opts Options, logger *slog.Logger) *StockAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &StockAdapter{opts: opts.withDefaults(), logger: logger.With("adapter", string(model.ProviderSecureDirectStock))}
}

func (a *StockAdapter) Provider() model.Provider { return model.ProviderSecureDirectStock }

func (a *StockAdapter) Collect(ctx context.Context, s collector.Session, hotel model.HotelConfig, targetDate string) (model.CollectResult, error) {
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
	mode, err := submitSearch(ctx, s, targetDate, departure)
	if err != nil {
		return model.CollectResult{}, err
	}
	a.logger.Debug("search submitted", "hotel_id", hotel.HotelID, "target_date", targetDate, "mode", mode)
	if err := s.Wait(ctx, a.opts.Waits.Settle); err != nil {
		return model.CollectResult{}, err
	}

	if clickByText(ctx, s, checkAllPattern, false) > 0 {
		if err := s.Wait(ctx, a.opts.Waits.Reveal); err != nil {
			return model.CollectResult{}, err
		}
	}
	if n := clickByText(ctx, s, allRatesPattern, true); n > 0 {
		a.logger.Debug("expanded rates", "hotel_id", hotel.HotelID, "clicks", n)
		if err := s.Wait(ctx, a.opts.Waits.Reveal); err != nil {
			return model.CollectResult{}, err
		}
	}

	html, err := s.HTML(ctx)
	if err != nil {
		return model.CollectResult{}, fmt.Errorf("read page: %w", err)
	}
	if showsNoAvailability(ctx, s, html) {
		return model.CollectResult{Status: model.StatusNoAvailability}, nil
	}

	blocks, err := categoryBlocks(html)
	if err != nil {
		return model.CollectResult{}, err
	}
	if len(blocks) == 0 {
		return model.CollectResult{}, collector.NewCollectError(collector.CodeParseEmptyCategory, "no accommodation category on page")
	}

	stock := ParseStockCounter(blocks, hotel.TotalRooms)
	if stock.SumBeforeCap == 0 {
		return model.CollectResult{}, collector.NewCollectError(collector.CodeMissingStockCounter, "no stock counter in %d categories", len(stock.Categories))
	}

	status := model.StatusOK
	if stock.AvailableCount == 0 {
		status = model.StatusNoAvailability
	}
	return model.CollectResult{
		AvailableRoomsCount:          stock.AvailableCount,
		AvailableRoomIDsOrCategories: stock.CSV(),
		Status:                       status,
	}, nil
}

// categoryBlocks extracts one block per accommodation card. The explicit
// card classes win over the loose class match. Pages without cards are
// segmented by heading instead, as long as they mention a counter.
func categoryBlocks(html string) ([]util.CategoryBlock, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	for _, selector := range []string{cardSelector, fallbackCardSelector} {
		if blocks := cardBlocks(doc, selector); len(blocks) > 0 {
			return blocks, nil
		}
	}

	if !stockCounterPattern.MatchString(util.StripToText(html)) {
		return nil, nil
	}
	return util.SplitIntoCategoryBlocks(html), nil
}

// cardBlocks keeps the innermost titled matches of selector, so list
// wrappers and per-rate rows never stand in for a card.
func cardBlocks(doc *goquery.Document, selector string) []util.CategoryBlock {
	titled := func(sel *goquery.Selection) bool {
		return sel.Find(cardTitleSelector).Length() > 0
	}

	var blocks []util.CategoryBlock
	doc.Find(selector).Each(func(_ int, card *goquery.Selection) {
		if card.Find(selector).FilterFunction(func(_ int, inner *goquery.Selection) bool { return titled(inner) }).Length() > 0 {
			return
		}
		if !titled(card) && card.ParentsFiltered(selector).Length() > 0 {
			return
		}
		title := strings.TrimSpace(card.Find(cardTitleSelector).First().Text())
		if title == "" {
			title = fmt.Sprintf("category_%d", len(blocks)+1)
		}
		inner, err := card.Html()
		if err != nil {
			return
		}
		blocks = append(blocks, util.CategoryBlock{Category: util.StripToText(title), Text: util.StripToText(inner)})
	})
	return blocks
}
