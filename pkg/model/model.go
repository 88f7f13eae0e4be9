package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Provider identifies which booking-engine adapter collects a hotel.
type Provider string

const (
	ProviderSecureDirectNumbered Provider = "secure_direct_numbered"
	ProviderThaisCalendar        Provider = "thais_calendar"
	ProviderSecureDirectStock    Provider = "secure_direct_stock_counter"
)

// Providers lists every supported provider tag.
var Providers = []Provider{
	ProviderSecureDirectNumbered,
	ProviderThaisCalendar,
	ProviderSecureDirectStock,
}

// ParseProvider validates a provider tag.
func ParseProvider(raw string) (Provider, error) {
	p := Provider(strings.TrimSpace(raw))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q", raw)
}

// HotelConfig is one monitored property.
type HotelConfig struct {
	HotelID    string   `json:"hotel_id" firestore:"hotelId"`
	HotelName  string   `json:"hotel_name" firestore:"hotelName"`
	Provider   Provider `json:"provider" firestore:"provider"`
	BookingURL string   `json:"booking_url" firestore:"bookingUrl"`
	TotalRooms int      `json:"total_rooms" firestore:"totalRooms"`
	Timezone   string   `json:"timezone" firestore:"timezone"`
}

// Location resolves the hotel timezone, falling back to UTC when unset.
func (h HotelConfig) Location() (*time.Location, error) {
	if h.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(h.Timezone)
	if err != nil {
		return nil, fmt.Errorf("hotel %s timezone %q: %w", h.HotelID, h.Timezone, err)
	}
	return loc, nil
}

// RecordStatus is the final state of one (hotel, date) observation.
type RecordStatus string

const (
	StatusOK             RecordStatus = "ok"
	StatusNoAvailability RecordStatus = "no_availability"
	StatusError          RecordStatus = "error"
)

// CollectResult is what an adapter returns on success.
type CollectResult struct {
	AvailableRoomsCount          int          `json:"available_rooms_count"`
	AvailableRoomIDsOrCategories string       `json:"available_room_ids_or_categories"`
	Status                       RecordStatus `json:"status"`
}

// SheetRecord is the canonical persisted row, one per (run, hotel, target date).
type SheetRecord struct {
	RunID                        string       `json:"run_id" firestore:"runId"`
	RunTsUTC                     string       `json:"run_ts_utc" firestore:"runTsUtc"`
	RunTsLocal                   string       `json:"run_ts_local" firestore:"runTsLocal"`
	HotelID                      string       `json:"hotel_id" firestore:"hotelId"`
	HotelName                    string       `json:"hotel_name" firestore:"hotelName"`
	Provider                     Provider     `json:"provider" firestore:"provider"`
	TargetDate                   string       `json:"target_date" firestore:"targetDate"`
	TotalRooms                   int          `json:"total_rooms" firestore:"totalRooms"`
	AvailableRoomsCount          int          `json:"available_rooms_count" firestore:"availableRoomsCount"`
	AvailableRoomIDsOrCategories string       `json:"available_room_ids_or_categories" firestore:"availableRoomIdsOrCategories"`
	OccupancyRatio               float64      `json:"occupancy_ratio" firestore:"occupancyRatio"`
	Status                       RecordStatus `json:"status" firestore:"status"`
	ErrorCode                    string       `json:"error_code" firestore:"errorCode"`
	ErrorMessage                 string       `json:"error_message" firestore:"errorMessage"`
}

// SheetColumns is the column order used by tabular exports.
var SheetColumns = []string{
	"run_id",
	"run_ts_utc",
	"run_ts_local",
	"hotel_id",
	"hotel_name",
	"provider",
	"target_date",
	"available_rooms_count",
	"total_rooms",
	"occupancy_ratio",
	"available_room_ids_or_categories",
	"status",
	"error_code",
	"error_message",
}

// Row renders the record in SheetColumns order.
func (r SheetRecord) Row() []string {
	return []string{
		r.RunID,
		r.RunTsUTC,
		r.RunTsLocal,
		r.HotelID,
		r.HotelName,
		string(r.Provider),
		r.TargetDate,
		fmt.Sprintf("%d", r.AvailableRoomsCount),
		fmt.Sprintf("%d", r.TotalRooms),
		fmt.Sprintf("%.4f", r.OccupancyRatio),
		r.AvailableRoomIDsOrCategories,
		string(r.Status),
		r.ErrorCode,
		r.ErrorMessage,
	}
}

// OccupancyRatio is available/total rounded to four decimals, 0 when total is 0.
func OccupancyRatio(available, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(available)/float64(total)*10000) / 10000
}

// RunStats stores per-status counters for a collection run.
type RunStats struct {
	Total          int `json:"total" firestore:"total"`
	OK             int `json:"ok" firestore:"ok"`
	NoAvailability int `json:"noAvailability" firestore:"noAvailability"`
	Errors         int `json:"errors" firestore:"errors"`
}

// RunSummary tracks the lifecycle of a collection run.
type RunSummary struct {
	RunID       string        `json:"runId,omitempty" firestore:"runId,omitempty"`
	Status      string        `json:"status,omitempty" firestore:"status,omitempty"`
	Stats       RunStats      `json:"stats" firestore:"stats"`
	StartedAt   time.Time     `json:"startedAt,omitempty" firestore:"startedAt,omitempty"`
	FinishedAt  time.Time     `json:"finishedAt,omitempty" firestore:"finishedAt,omitempty"`
	ReportPath  string        `json:"reportPath,omitempty" firestore:"reportPath,omitempty"`
	ErrorSample []ErrorSample `json:"errorsSample,omitempty" firestore:"errorsSample,omitempty"`
}

// Run status values.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusPartial = "partial"
	RunStatusFailed  = "failed"
)

// ErrorSample captures a subset of failed observations for quick inspection.
type ErrorSample struct {
	HotelID    string `json:"hotelId,omitempty" firestore:"hotelId,omitempty"`
	TargetDate string `json:"targetDate,omitempty" firestore:"targetDate,omitempty"`
	Code       string `json:"code,omitempty" firestore:"code,omitempty"`
	Reason     string `json:"reason,omitempty" firestore:"reason,omitempty"`
}
