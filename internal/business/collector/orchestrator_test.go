package collector_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sylvlondon/hotelmonitoring/internal/business/collector"
	"github.com/sylvlondon/hotelmonitoring/internal/business/collector/sessiontest"
	"github.com/sylvlondon/hotelmonitoring/pkg/model"
)

type stubAdapter struct {
	provider model.Provider
	collect  func(hotel model.HotelConfig, date string, calls int) (model.CollectResult, error)
	calls    int
}

func (a *stubAdapter) Provider() model.Provider { return a.provider }

func (a *stubAdapter) Collect(ctx context.Context, s collector.Session, hotel model.HotelConfig, date string) (model.CollectResult, error) {
	a.calls++
	return a.collect(hotel, date, a.calls)
}

func noSleepRetrier() *collector.Retrier {
	return &collector.Retrier{
		Backoff: collector.DefaultBackoff,
		Sleep:   func(ctx context.Context, d time.Duration) error { return nil },
	}
}

func fixedClock() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

func TestOrchestratorProducesOneRecordPerPair(t *testing.T) {
	hotels := []model.HotelConfig{
		{HotelID: "numbered", HotelName: "Numbered", Provider: model.ProviderSecureDirectNumbered, TotalRooms: 8, Timezone: "UTC"},
		{HotelID: "stock", HotelName: "Stock", Provider: model.ProviderSecureDirectStock, TotalRooms: 8, Timezone: "UTC"},
	}
	numbered := &stubAdapter{
		provider: model.ProviderSecureDirectNumbered,
		collect: func(hotel model.HotelConfig, date string, calls int) (model.CollectResult, error) {
			return model.CollectResult{AvailableRoomsCount: 2, AvailableRoomIDsOrCategories: "3,7", Status: model.StatusOK}, nil
		},
	}
	stock := &stubAdapter{
		provider: model.ProviderSecureDirectStock,
		collect: func(hotel model.HotelConfig, date string, calls int) (model.CollectResult, error) {
			return model.CollectResult{}, collector.NewCollectError(collector.CodeMissingStockCounter, "no counters")
		},
	}
	registry, err := collector.NewRegistry(numbered, stock)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	factory := &sessiontest.Factory{}

	o := collector.NewOrchestrator(hotels, registry, factory, 7,
		collector.WithRetrier(noSleepRetrier()),
		collector.WithClock(fixedClock),
	)
	runTs := fixedClock()
	records, err := o.Run(context.Background(), collector.RunContext{RunID: "run-1", RunTs: runTs})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(records) != 14 {
		t.Fatalf("got %d records, want 14", len(records))
	}
	for i, r := range records {
		if r.RunID != "run-1" || r.RunTsUTC != "2026-03-01T09:00:00.000Z" {
			t.Errorf("record %d has run identity %s/%s", i, r.RunID, r.RunTsUTC)
		}
		switch r.Status {
		case model.StatusError:
			if r.AvailableRoomsCount != 0 || r.AvailableRoomIDsOrCategories != "" || r.OccupancyRatio != 0 || r.ErrorCode == "" {
				t.Errorf("error record %d not zeroed: %+v", i, r)
			}
		case model.StatusOK:
			if r.ErrorCode != "" || r.ErrorMessage != "" {
				t.Errorf("ok record %d carries error fields: %+v", i, r)
			}
		}
	}
	if records[0].TargetDate != "2026-03-01" || records[6].TargetDate != "2026-03-07" {
		t.Errorf("unexpected date span %s..%s", records[0].TargetDate, records[6].TargetDate)
	}
	if records[0].OccupancyRatio != 0.25 {
		t.Errorf("occupancy = %v, want 0.25", records[0].OccupancyRatio)
	}
	if records[7].ErrorCode != collector.CodeMissingStockCounter {
		t.Errorf("error code = %s", records[7].ErrorCode)
	}

	// 7 single attempts plus 7 pairs retried three times.
	if len(factory.Sessions) != 7+21 {
		t.Errorf("opened %d sessions, want 28", len(factory.Sessions))
	}
	for i, s := range factory.Sessions {
		if !s.Closed {
			t.Errorf("session %d left open", i)
		}
	}
}

func TestOrchestratorUnknownProviderAndPanics(t *testing.T) {
	hotels := []model.HotelConfig{
		{HotelID: "thais", HotelName: "Thais", Provider: model.ProviderThaisCalendar, TotalRooms: 5},
		{HotelID: "flaky", HotelName: "Flaky", Provider: model.ProviderSecureDirectNumbered, TotalRooms: 3},
	}
	flaky := &stubAdapter{
		provider: model.ProviderSecureDirectNumbered,
		collect: func(hotel model.HotelConfig, date string, calls int) (model.CollectResult, error) {
			if calls%2 == 1 {
				panic("selector exploded")
			}
			return model.CollectResult{AvailableRoomsCount: 9, Status: model.StatusOK}, nil
		},
	}
	registry, err := collector.NewRegistry(flaky)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	factory := &sessiontest.Factory{}
	o := collector.NewOrchestrator(hotels, registry, factory, 1,
		collector.WithRetrier(noSleepRetrier()),
		collector.WithClock(fixedClock),
	)

	records, err := o.Run(context.Background(), collector.RunContext{RunID: "run-2", RunTs: fixedClock()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records", len(records))
	}
	if records[0].Status != model.StatusError || records[0].ErrorCode != collector.CodeUnknownProvider {
		t.Errorf("unknown provider record = %+v", records[0])
	}
	if records[1].Status != model.StatusOK || records[1].AvailableRoomsCount != 3 {
		t.Errorf("count should be capped at total rooms: %+v", records[1])
	}
	if records[1].OccupancyRatio != 1 {
		t.Errorf("occupancy = %v", records[1].OccupancyRatio)
	}
}

func TestOrchestratorSessionFailure(t *testing.T) {
	hotels := []model.HotelConfig{{HotelID: "h", HotelName: "H", Provider: model.ProviderSecureDirectNumbered, TotalRooms: 8}}
	adapter := &stubAdapter{
		provider: model.ProviderSecureDirectNumbered,
		collect: func(model.HotelConfig, string, int) (model.CollectResult, error) {
			return model.CollectResult{Status: model.StatusOK}, nil
		},
	}
	registry, _ := collector.NewRegistry(adapter)
	factory := &sessiontest.Factory{Err: errors.New("browser gone")}
	o := collector.NewOrchestrator(hotels, registry, factory, 2,
		collector.WithRetrier(noSleepRetrier()),
		collector.WithClock(fixedClock),
	)

	records, err := o.Run(context.Background(), collector.RunContext{RunID: "r", RunTs: fixedClock()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, r := range records {
		if r.Status != model.StatusError || r.ErrorCode != collector.CodeUnhandled {
			t.Errorf("record = %+v", r)
		}
	}
	if adapter.calls != 0 {
		t.Errorf("adapter should not run without a session")
	}
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	a := &stubAdapter{provider: model.ProviderThaisCalendar}
	b := &stubAdapter{provider: model.ProviderThaisCalendar}
	if _, err := collector.NewRegistry(a, b); err == nil {
		t.Fatal("expected duplicate provider error")
	}
}

func TestOrchestratorCancelledRunFillsRemainingPairs(t *testing.T) {
	hotels := []model.HotelConfig{
		{HotelID: "first", HotelName: "First", Provider: model.ProviderSecureDirectNumbered, TotalRooms: 4, Timezone: "UTC"},
		{HotelID: "second", HotelName: "Second", Provider: model.ProviderSecureDirectNumbered, TotalRooms: 4, Timezone: "UTC"},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	adapter := &stubAdapter{
		provider: model.ProviderSecureDirectNumbered,
		collect: func(hotel model.HotelConfig, date string, calls int) (model.CollectResult, error) {
			if calls == 1 {
				return model.CollectResult{AvailableRoomsCount: 1, AvailableRoomIDsOrCategories: "3", Status: model.StatusOK}, nil
			}
			// SIGTERM arrives while the second pair is being collected.
			cancel()
			return model.CollectResult{}, context.Canceled
		},
	}
	registry, err := collector.NewRegistry(adapter)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	o := collector.NewOrchestrator(hotels, registry, &sessiontest.Factory{}, 3,
		collector.WithRetrier(noSleepRetrier()),
		collector.WithClock(fixedClock),
	)

	records, err := o.Run(ctx, collector.RunContext{RunID: "run-c", RunTs: fixedClock()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(records) != 6 {
		t.Fatalf("got %d records, want 6", len(records))
	}
	if records[0].Status != model.StatusOK {
		t.Errorf("first record = %+v", records[0])
	}
	for i, r := range records[1:] {
		if r.Status != model.StatusError || r.ErrorCode != collector.CodeRunCancelled {
			t.Errorf("record %d = %s/%s, want error/%s", i+1, r.Status, r.ErrorCode, collector.CodeRunCancelled)
		}
	}
	if records[5].HotelID != "second" || records[5].TargetDate != "2026-03-03" {
		t.Errorf("last record = %s %s", records[5].HotelID, records[5].TargetDate)
	}
}
