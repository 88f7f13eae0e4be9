package thais

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sylvlondon/hotelmonitoring/internal/business/collector"
	"github.com/sylvlondon/hotelmonitoring/internal/business/collector/sessiontest"
	"github.com/sylvlondon/hotelmonitoring/pkg/model"
)

type fetchFunc func(ctx context.Context, url string) (int, []byte, error)

func (f fetchFunc) Fetch(ctx context.Context, url string) (int, []byte, error) { return f(ctx, url) }

var seraphines = model.HotelConfig{
	HotelID:    "les_seraphines",
	HotelName:  "Les Séraphines",
	Provider:   model.ProviderThaisCalendar,
	BookingURL: "https://lesseraphines.thais-hotel.com/direct-booking/calendar",
	TotalRooms: 5,
	Timezone:   "UTC",
}

const thaisConfig = `{"hotel":{"room_types":[
  {"id":11,"label":"1 - Double"},
  {"id":12,"label":"2 - Suite"},
  {"id":15,"label":"5 - Terrasse"},
  {"id":20,"label":"Dortoir"}
]}}`

func apiAdapterWith(f Fetcher) *APIAdapter {
	a := NewAPIAdapter(nil)
	a.newFetcher = func(collector.Session) Fetcher { return f }
	return a
}

func TestAPIAdapterMapsRoomTypes(t *testing.T) {
	var urls []string
	f := fetchFunc(func(ctx context.Context, url string) (int, []byte, error) {
		urls = append(urls, url)
		if strings.Contains(url, "/config") {
			return 200, []byte(thaisConfig), nil
		}
		return 200, []byte(`[
			{"date":"2026-03-01","room_type_id":15,"availability":1},
			{"date":"2026-03-01","room_type_id":11,"availability":0},
			{"date":"2026-03-01","room_type_id":11,"availability":2},
			{"date":"2026-03-01","room_type_id":20,"availability":3},
			{"date":"2026-03-02","room_type_id":12,"availability":4}
		]`), nil
	})
	s := &sessiontest.Session{}

	got, err := apiAdapterWith(f).Collect(context.Background(), s, seraphines, "2026-03-01")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got.Status != model.StatusOK || got.AvailableRoomsCount != 3 || got.AvailableRoomIDsOrCategories != "1,5,20" {
		t.Fatalf("result = %+v", got)
	}
	if len(s.Navigated) != 1 || s.Navigated[0] != seraphines.BookingURL {
		t.Errorf("navigated = %v", s.Navigated)
	}
	wantAvail := "https://lesseraphines.thais-hotel.com/hub/api/booking-engine/availabilities?&from=2026-03-01&to=2026-03-02"
	if len(urls) != 2 || urls[0] != "https://lesseraphines.thais-hotel.com/hub/api/booking-engine/config?&lang=FR" || urls[1] != wantAvail {
		t.Errorf("urls = %v", urls)
	}
}

func TestAPIAdapterCapsAndNoAvailability(t *testing.T) {
	hotel := seraphines
	hotel.TotalRooms = 1
	f := fetchFunc(func(ctx context.Context, url string) (int, []byte, error) {
		if strings.Contains(url, "/config") {
			return 200, []byte(thaisConfig), nil
		}
		return 200, []byte(`[{"date":"2026-03-01","room_type_id":11,"availability":1},{"date":"2026-03-01","room_type_id":12,"availability":1}]`), nil
	})
	got, err := apiAdapterWith(f).Collect(context.Background(), &sessiontest.Session{}, hotel, "2026-03-01")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got.AvailableRoomsCount != 1 || got.AvailableRoomIDsOrCategories != "1,2" {
		t.Fatalf("result = %+v", got)
	}

	empty := fetchFunc(func(ctx context.Context, url string) (int, []byte, error) {
		if strings.Contains(url, "/config") {
			return 200, []byte(thaisConfig), nil
		}
		return 200, []byte(`[]`), nil
	})
	got, err = apiAdapterWith(empty).Collect(context.Background(), &sessiontest.Session{}, seraphines, "2026-03-01")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got.Status != model.StatusNoAvailability || got.AvailableRoomsCount != 0 {
		t.Fatalf("result = %+v", got)
	}
}

func TestAPIAdapterErrors(t *testing.T) {
	tests := []struct {
		name  string
		fetch fetchFunc
		want  string
	}{
		{
			name: "config forbidden",
			fetch: func(ctx context.Context, url string) (int, []byte, error) {
				return 403, []byte("forbidden"), nil
			},
			want: collector.CodeThaisAPIError,
		},
		{
			name: "no room types",
			fetch: func(ctx context.Context, url string) (int, []byte, error) {
				return 200, []byte(`{"hotel":{"room_types":[]}}`), nil
			},
			want: collector.CodeThaisNoRoomTypes,
		},
		{
			name: "availability malformed",
			fetch: func(ctx context.Context, url string) (int, []byte, error) {
				if strings.Contains(url, "/config") {
					return 200, []byte(thaisConfig), nil
				}
				return 200, []byte("<html>maintenance</html>"), nil
			},
			want: collector.CodeThaisAPIError,
		},
		{
			name: "transport failure",
			fetch: func(ctx context.Context, url string) (int, []byte, error) {
				return 0, nil, errors.New("page crashed")
			},
			want: collector.CodeThaisAPIError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := apiAdapterWith(tt.fetch).Collect(context.Background(), &sessiontest.Session{}, seraphines, "2026-03-01")
			if code := collector.ErrorCode(err); code != tt.want {
				t.Fatalf("code = %s, want %s (%v)", code, tt.want, err)
			}
		})
	}
}

func TestSessionFetcher(t *testing.T) {
	s := &sessiontest.Session{Scripts: map[string]sessiontest.EvalFunc{
		fetchScript: func(args any) (any, error) {
			u := args.(map[string]string)["url"]
			return map[string]any{"status": 201, "body": "echo " + u}, nil
		},
	}}
	status, body, err := SessionFetcher{Session: s}.Fetch(context.Background(), "https://x/api")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if status != 201 || string(body) != "echo https://x/api" {
		t.Fatalf("status=%d body=%q", status, body)
	}
}

func uiSession(fieldsBefore, fieldsAfter map[string]any, html string) *sessiontest.Session {
	reads := 0
	return &sessiontest.Session{
		PageHTML: html,
		Scripts: map[string]sessiontest.EvalFunc{
			dateFieldsScript: func(args any) (any, error) {
				reads++
				if reads == 1 {
					return fieldsBefore, nil
				}
				return fieldsAfter, nil
			},
			pickDateScript: func(args any) (any, error) {
				return map[string]bool{"opened": true, "clicked": true}, nil
			},
		},
	}
}

func TestUIAdapterReadsRooms(t *testing.T) {
	s := uiSession(
		map[string]any{"start": "Arrivée", "end": "Départ"},
		map[string]any{"start": "01/03/2026", "end": "02/03/2026"},
		`<div class="room-type"><span class="room-type-title">1 - Double</span></div>
		 <div class="room-type"><span class="room-type-title">5 - Terrasse</span></div>`,
	)
	got, err := NewUIAdapter(time.Millisecond*3, nil).Collect(context.Background(), s, seraphines, "2026-03-01")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got.Status != model.StatusOK || got.AvailableRoomIDsOrCategories != "1,5" || got.AvailableRoomsCount != 2 {
		t.Fatalf("result = %+v", got)
	}
}

func TestUIAdapterRejectedDates(t *testing.T) {
	s := uiSession(
		map[string]any{"start": "Arrivée", "end": "Départ"},
		map[string]any{"start": "01/03/2026", "end": "Départ"},
		`<div class="room-type"><span class="room-type-title">1 - Double</span></div>`,
	)
	got, err := NewUIAdapter(time.Millisecond*3, nil).Collect(context.Background(), s, seraphines, "2026-03-01")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got.Status != model.StatusNoAvailability {
		t.Fatalf("minimum-stay refusal should be no_availability, got %+v", got)
	}
}

func TestUIAdapterMissingPicker(t *testing.T) {
	s := uiSession(map[string]any{"start": nil, "end": nil}, nil, "")
	_, err := NewUIAdapter(time.Millisecond*3, nil).Collect(context.Background(), s, seraphines, "2026-03-01")
	if code := collector.ErrorCode(err); code != collector.CodeParseEmptyThais {
		t.Fatalf("code = %s (%v)", code, err)
	}
}

func TestMonthLabel(t *testing.T) {
	if got := MonthLabel(time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC)); got != "aout 2026" {
		t.Fatalf("MonthLabel = %q", got)
	}
}
