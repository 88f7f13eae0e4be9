package collector

import (
	"time"

	"github.com/sylvlondon/hotelmonitoring/pkg/model"
)

// RunContext carries the identity shared by every record of a run.
type RunContext struct {
	RunID string
	RunTs time.Time
}

func baseRecord(rc RunContext, hotel model.HotelConfig, targetDate string) model.SheetRecord {
	loc, err := hotel.Location()
	if err != nil {
		loc = time.UTC
	}
	return model.SheetRecord{
		RunID:      rc.RunID,
		RunTsUTC:   FormatRunTsUTC(rc.RunTs),
		RunTsLocal: FormatRunTsLocal(rc.RunTs, loc),
		HotelID:    hotel.HotelID,
		HotelName:  hotel.HotelName,
		Provider:   hotel.Provider,
		TargetDate: targetDate,
		TotalRooms: hotel.TotalRooms,
	}
}

// SuccessRecord reduces a CollectResult to a persisted record.
func SuccessRecord(rc RunContext, hotel model.HotelConfig, targetDate string, res model.CollectResult) model.SheetRecord {
	rec := baseRecord(rc, hotel, targetDate)
	count := res.AvailableRoomsCount
	if count > hotel.TotalRooms {
		count = hotel.TotalRooms
	}
	if count < 0 {
		count = 0
	}
	rec.AvailableRoomsCount = count
	rec.AvailableRoomIDsOrCategories = res.AvailableRoomIDsOrCategories
	rec.OccupancyRatio = model.OccupancyRatio(count, hotel.TotalRooms)
	rec.Status = res.Status
	if rec.Status != model.StatusOK && rec.Status != model.StatusNoAvailability {
		rec.Status = model.StatusNoAvailability
	}
	return rec
}

// ErrorRecord reduces a final failure to a persisted record with zeroed
// availability fields.
func ErrorRecord(rc RunContext, hotel model.HotelConfig, targetDate string, err error) model.SheetRecord {
	rec := baseRecord(rc, hotel, targetDate)
	rec.Status = model.StatusError
	rec.ErrorCode = ErrorCode(err)
	rec.ErrorMessage = ErrorMessage(err)
	if rec.ErrorMessage == "" {
		rec.ErrorMessage = rec.ErrorCode
	}
	return rec
}
