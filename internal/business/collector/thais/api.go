package thais

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/sylvlondon/hotelmonitoring/internal/business/collector"
	"github.com/sylvlondon/hotelmonitoring/pkg/model"
)

// Fetcher performs GET requests with the browser's identity. The booking
// API rejects plain HTTP clients, so requests must originate from a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (status int, body []byte, err error)
}

// fetchScript issues a same-origin request carrying the page's cookies.
const fetchScript = `async ({ url }) => {
  const resp = await fetch(url, { credentials: 'include', headers: { Accept: 'application/json' } });
  return { status: resp.status, body: await resp.text() };
}`

type fetchResult struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// SessionFetcher runs requests through the page loaded in a Session.
type SessionFetcher struct {
	Session collector.Session
}

func (f SessionFetcher) Fetch(ctx context.Context, u string) (int, []byte, error) {
	var res fetchResult
	if err := f.Session.Eval(ctx, fetchScript, map[string]string{"url": u}, &res); err != nil {
		return 0, nil, fmt.Errorf("in-page fetch %s: %w", u, err)
	}
	return res.Status, []byte(res.Body), nil
}

type roomType struct {
	ID    json.Number `json:"id"`
	Label string      `json:"label"`
}

type configResponse struct {
	Hotel *struct {
		RoomTypes []roomType `json:"room_types"`
	} `json:"hotel"`
}

type availability struct {
	Date         string      `json:"date"`
	RoomTypeID   json.Number `json:"room_type_id"`
	Availability json.Number `json:"availability"`
}

// APIAdapter reads room-type stock from the booking engine's JSON API.
type APIAdapter struct {
	navTimeout time.Duration
	newFetcher func(collector.Session) Fetcher
	logger     *slog.Logger
}

func NewAPIAdapter(logger *slog.Logger) *APIAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIAdapter{
		navTimeout: collector.DefaultNavigationTimeout,
		newFetcher: func(s collector.Session) Fetcher { return SessionFetcher{Session: s} },
		logger:     logger.With("adapter", string(model.ProviderThaisCalendar), "mode", "api"),
	}
}

func (a *APIAdapter) Provider() model.Provider { return model.ProviderThaisCalendar }

func (a *APIAdapter) Collect(ctx context.Context, s collector.Session, hotel model.HotelConfig, targetDate string) (model.CollectResult, error) {
	loc, err := hotel.Location()
	if err != nil {
		return model.CollectResult{}, err
	}
	departure, err := collector.AddOneNight(targetDate, loc)
	if err != nil {
		return model.CollectResult{}, err
	}
	base, err := origin(hotel.BookingURL)
	if err != nil {
		return model.CollectResult{}, err
	}

	// Loading the booking page first gives the API calls a same-origin,
	// cookie-bearing context.
	if err := s.Navigate(ctx, hotel.BookingURL, collector.ReadyDOMContentLoaded, a.navTimeout); err != nil {
		return model.CollectResult{}, fmt.Errorf("navigate %s: %w", hotel.BookingURL, err)
	}
	fetcher := a.newFetcher(s)

	var cfg configResponse
	if err := getJSON(ctx, fetcher, base+"/hub/api/booking-engine/config?&lang=FR", "config", &cfg); err != nil {
		return model.CollectResult{}, err
	}
	if cfg.Hotel == nil || len(cfg.Hotel.RoomTypes) == 0 {
		return model.CollectResult{}, collector.NewCollectError(collector.CodeThaisNoRoomTypes, "config API returned no room types")
	}

	var avail []availability
	availURL := fmt.Sprintf("%s/hub/api/booking-engine/availabilities?&from=%s&to=%s", base, targetDate, departure)
	if err := getJSON(ctx, fetcher, availURL, "availabilities", &avail); err != nil {
		return model.CollectResult{}, err
	}

	rooms := availableRooms(cfg.Hotel.RoomTypes, avail, targetDate)
	a.logger.Debug("availability resolved", "hotel_id", hotel.HotelID, "target_date", targetDate, "room_types", len(cfg.Hotel.RoomTypes), "available", rooms.Count)
	return roomsResult(rooms, hotel.TotalRooms), nil
}

// availableRooms returns the room types with stock on targetDate, keyed by
// their label number when present.
func availableRooms(types []roomType, avail []availability, targetDate string) Rooms {
	stock := make(map[string]int64)
	for _, item := range avail {
		if item.Date != targetDate {
			continue
		}
		n, err := item.Availability.Int64()
		if err != nil {
			if f, ferr := item.Availability.Float64(); ferr == nil {
				n = int64(f)
			}
		}
		id := item.RoomTypeID.String()
		if n > stock[id] {
			stock[id] = n
		}
	}

	set := make(map[string]struct{})
	for _, rt := range types {
		if stock[rt.ID.String()] <= 0 {
			continue
		}
		if n, ok := roomNumber(rt.Label); ok {
			set[n] = struct{}{}
			continue
		}
		set[rt.ID.String()] = struct{}{}
	}
	return newRooms(set)
}

func roomsResult(rooms Rooms, totalRooms int) model.CollectResult {
	count := rooms.Count
	if count > totalRooms {
		count = totalRooms
	}
	status := model.StatusOK
	if count == 0 {
		status = model.StatusNoAvailability
	}
	return model.CollectResult{
		AvailableRoomsCount:          count,
		AvailableRoomIDsOrCategories: rooms.CSV(),
		Status:                       status,
	}
}

func getJSON(ctx context.Context, f Fetcher, u, name string, out any) error {
	status, body, err := f.Fetch(ctx, u)
	if err != nil {
		return collector.WrapCollectError(collector.CodeThaisAPIError, err, "%s API request failed", name)
	}
	if status < 200 || status >= 300 {
		return collector.NewCollectError(collector.CodeThaisAPIError, "%s API HTTP %d", name, status)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return collector.WrapCollectError(collector.CodeThaisAPIError, err, "%s API returned malformed JSON", name)
	}
	return nil
}

func origin(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("booking url %q is not absolute", raw)
	}
	return u.Scheme + "://" + u.Host, nil
}
