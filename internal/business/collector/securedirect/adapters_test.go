package securedirect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sylvlondon/hotelmonitoring/internal/business/collector"
	"github.com/sylvlondon/hotelmonitoring/internal/business/collector/sessiontest"
	"github.com/sylvlondon/hotelmonitoring/pkg/model"
)

var testHotel = model.HotelConfig{
	HotelID:    "maison_pavlov",
	HotelName:  "Maison Pavlov",
	Provider:   model.ProviderSecureDirectNumbered,
	BookingURL: "https://www.secure-direct-hotel-booking.com/module_booking_engine/index.php?id_etab=x",
	TotalRooms: 8,
	Timezone:   "UTC",
}

var fastOpts = Options{Waits: Waits{Settle: time.Millisecond, Reveal: time.Millisecond}}

func searchRecorder(got *searchArgs) sessiontest.EvalFunc {
	return func(args any) (any, error) {
		if a, ok := args.(searchArgs); ok {
			*got = a
		}
		return "search_action", nil
	}
}

const numberedResultsHTML = `<html><head><title>Maison Pavlov</title></head><body>
<div class="script-accommodation-service"><h3>Chambre 7 ou 8</h3></div>
<div class="script-accommodation-service"><h3>Chambre 3</h3></div>
<div class="script-accommodation-service"><h3>Suite non numérotée</h3></div>
</body></html>`

func TestNumberedAdapterParsesTitles(t *testing.T) {
	var search searchArgs
	s := &sessiontest.Session{
		PageTitle: "Maison Pavlov",
		PageHTML:  numberedResultsHTML,
		Scripts:   map[string]sessiontest.EvalFunc{submitSearchScript: searchRecorder(&search)},
	}

	got, err := NewNumberedAdapter(fastOpts, nil).Collect(context.Background(), s, testHotel, "2026-03-01")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got.Status != model.StatusOK || got.AvailableRoomsCount != 3 || got.AvailableRoomIDsOrCategories != "3,7,8" {
		t.Fatalf("result = %+v", got)
	}
	if search.Arrival != "2026-03-01" || search.Departure != "2026-03-02" || search.ArrivalDisplay != "01/03/2026" {
		t.Errorf("search args = %+v", search)
	}
	if len(s.Waits) != 1 || s.Waits[0] != time.Millisecond {
		t.Errorf("waits = %v", s.Waits)
	}
}

func TestNumberedAdapterChallenge(t *testing.T) {
	s := &sessiontest.Session{PageTitle: "Just a moment...", PageHTML: "<html></html>"}

	_, err := NewNumberedAdapter(fastOpts, nil).Collect(context.Background(), s, testHotel, "2026-03-01")
	if code := collector.ErrorCode(err); code != collector.CodeCloudflareChallenge {
		t.Fatalf("code = %s (%v)", code, err)
	}
	if len(s.Evaluated) != 0 {
		t.Errorf("search should not run behind a challenge")
	}
}

func TestNumberedAdapterUnknownVerdictPolicy(t *testing.T) {
	newSession := func() *sessiontest.Session {
		return &sessiontest.Session{PageTitle: "Maison Pavlov", HTMLErr: errors.New("target crashed")}
	}

	_, err := NewNumberedAdapter(fastOpts, nil).Collect(context.Background(), newSession(), testHotel, "2026-03-01")
	if code := collector.ErrorCode(err); code == collector.CodeCloudflareChallenge {
		t.Fatalf("fail-open adapter reported a challenge: %v", err)
	}

	closed := fastOpts
	closed.FailClosed = true
	_, err = NewNumberedAdapter(closed, nil).Collect(context.Background(), newSession(), testHotel, "2026-03-01")
	if code := collector.ErrorCode(err); code != collector.CodeCloudflareChallenge {
		t.Fatalf("fail-closed code = %s", code)
	}
}

func TestNumberedAdapterNoAvailability(t *testing.T) {
	s := &sessiontest.Session{
		PageTitle: "Maison Pavlov",
		PageHTML:  `<div class="alert">Il n'y a plus de disponibilités pour ces dates</div>`,
	}
	got, err := NewNumberedAdapter(fastOpts, nil).Collect(context.Background(), s, testHotel, "2026-03-01")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got.Status != model.StatusNoAvailability || got.AvailableRoomsCount != 0 {
		t.Fatalf("result = %+v", got)
	}
}

func TestNumberedAdapterEmptyParse(t *testing.T) {
	s := &sessiontest.Session{PageTitle: "Maison Pavlov", PageHTML: `<div class="loading"></div>`}
	_, err := NewNumberedAdapter(fastOpts, nil).Collect(context.Background(), s, testHotel, "2026-03-01")
	if code := collector.ErrorCode(err); code != collector.CodeParseEmptyNumbered {
		t.Fatalf("code = %s (%v)", code, err)
	}
}

func TestNumberedAdapterUsesEngineResponse(t *testing.T) {
	s := &sessiontest.Session{
		PageTitle: "Maison Pavlov",
		PageHTML:  `<div class="loading"></div>`,
		Responses: []collector.Response{
			{URL: "https://cdn.example.com/search.js", Status: 200, ResourceType: "Script", Body: []byte("ignored")},
			{
				URL:          "https://www.secure-direct-hotel-booking.com/ajax/accommodation_list.php",
				Status:       200,
				ResourceType: "XHR",
				Body:         []byte(`{"html":"<div class=\"script-accommodation-service\"><h3>Chambre 12</h3></div>"}`),
			},
		},
	}
	got, err := NewNumberedAdapter(fastOpts, nil).Collect(context.Background(), s, testHotel, "2026-03-01")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got.AvailableRoomIDsOrCategories != "12" || got.AvailableRoomsCount != 1 {
		t.Fatalf("result = %+v", got)
	}
}

const stockResultsHTML = `<html><body>
<div class="accommodation-card"><h3>Classique</h3>
  <div class="accommodation-rate">Flexible <span>Plus que 1 disponible(s)</span></div>
  <div class="accommodation-rate">Non remboursable <span>Plus que 2 disponible(s)</span></div>
</div>
<div class="accommodation-card"><h3>Appartement</h3><p>Plus que 4 disponible(s)</p></div>
<div class="accommodation-card"><h3>Deluxe</h3><p>Plus que 9 disponible(s)</p></div>
</body></html>`

func TestStockAdapterSumsAndCaps(t *testing.T) {
	var patterns []string
	s := &sessiontest.Session{
		PageHTML: stockResultsHTML,
		Scripts: map[string]sessiontest.EvalFunc{
			clickByTextScript: func(args any) (any, error) {
				a := args.(clickArgs)
				patterns = append(patterns, a.Pattern)
				if a.All {
					return 3, nil
				}
				return 1, nil
			},
		},
	}
	hotel := testHotel
	hotel.Provider = model.ProviderSecureDirectStock

	got, err := NewStockAdapter(fastOpts, nil).Collect(context.Background(), s, hotel, "2026-03-01")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got.Status != model.StatusOK || got.AvailableRoomsCount != 8 {
		t.Fatalf("result = %+v", got)
	}
	if got.AvailableRoomIDsOrCategories != "Classique:2,Appartement:4,Deluxe:9" {
		t.Errorf("categories = %q", got.AvailableRoomIDsOrCategories)
	}
	if len(patterns) != 2 || patterns[0] != checkAllPattern || patterns[1] != allRatesPattern {
		t.Errorf("click patterns = %v", patterns)
	}
	// settle, then one reveal per expanding click
	if len(s.Waits) != 3 {
		t.Errorf("waits = %v", s.Waits)
	}
}

func TestStockAdapterWrappedCardList(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{
			name: "explicit cards in list wrapper",
			html: `<div class="accommodations-list">
<div class="accommodation-card"><h3>Classique</h3><p>Plus que 2 disponible(s)</p></div>
<div class="accommodation-card"><h3>Appartement</h3><p>Plus que 4 disponible(s)</p></div>
</div>`,
		},
		{
			name: "loose cards in list wrapper",
			html: `<section class="accommodations-list">
<div class="accommodation-item"><h3>Classique</h3>
  <div class="accommodation-rate">Flexible <span>Plus que 1 disponible(s)</span></div>
  <div class="accommodation-rate">Non remboursable <span>Plus que 2 disponible(s)</span></div>
</div>
<div class="accommodation-item"><h3>Appartement</h3><p>Plus que 4 disponible(s)</p></div>
</section>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &sessiontest.Session{PageHTML: tt.html}
			got, err := NewStockAdapter(fastOpts, nil).Collect(context.Background(), s, testHotel, "2026-03-01")
			if err != nil {
				t.Fatalf("Collect: %v", err)
			}
			if got.AvailableRoomsCount != 6 || got.AvailableRoomIDsOrCategories != "Classique:2,Appartement:4" {
				t.Fatalf("result = %+v", got)
			}
		})
	}
}

func TestStockAdapterMissingCounter(t *testing.T) {
	s := &sessiontest.Session{
		PageHTML: `<div class="accommodation-card"><h3>Suite</h3><p>Réserver</p></div>`,
	}
	_, err := NewStockAdapter(fastOpts, nil).Collect(context.Background(), s, testHotel, "2026-03-01")
	if code := collector.ErrorCode(err); code != collector.CodeMissingStockCounter {
		t.Fatalf("code = %s (%v)", code, err)
	}
}

func TestStockAdapterNoCards(t *testing.T) {
	s := &sessiontest.Session{PageHTML: `<div class="loading">Chargement…</div>`}
	_, err := NewStockAdapter(fastOpts, nil).Collect(context.Background(), s, testHotel, "2026-03-01")
	if code := collector.ErrorCode(err); code != collector.CodeParseEmptyCategory {
		t.Fatalf("code = %s (%v)", code, err)
	}
}

func TestStockAdapterNoAvailabilityBanner(t *testing.T) {
	s := &sessiontest.Session{
		PageHTML: `<p>Aucune disponibilité</p>`,
		Scripts: map[string]sessiontest.EvalFunc{
			visibleTextScript: func(args any) (any, error) { return true, nil },
		},
	}
	got, err := NewStockAdapter(fastOpts, nil).Collect(context.Background(), s, testHotel, "2026-03-01")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got.Status != model.StatusNoAvailability {
		t.Fatalf("result = %+v", got)
	}
}
