package repository

import (
	"errors"
	"sort"

	"github.com/sylvlondon/hotelmonitoring/pkg/model"
)

// ErrRunNotFound is returned when a run id has no stored summary.
var ErrRunNotFound = errors.New("run not found")

const (
	recordsCollection = "monitoring_records"
	runsCollection    = "monitoring_runs"

	defaultListLimit = 20
)

// FirestoreCollections names the collections the Firestore repositories use.
var FirestoreCollections = []string{recordsCollection, runsCollection}

// sortRecords orders records by hotel name, then target date.
func sortRecords(records []model.SheetRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].HotelName != records[j].HotelName {
			return records[i].HotelName < records[j].HotelName
		}
		return records[i].TargetDate < records[j].TargetDate
	})
}

func listLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
