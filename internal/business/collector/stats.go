package collector

import "github.com/sylvlondon/hotelmonitoring/pkg/model"

const maxErrorSamples = 20

// AggregateRunStats reduces records into per-status counters and a bounded
// sample of failures.
func AggregateRunStats(records []model.SheetRecord) (model.RunStats, []model.ErrorSample) {
	stats := model.RunStats{Total: len(records)}
	var samples []model.ErrorSample
	for _, r := range records {
		switch r.Status {
		case model.StatusOK:
			stats.OK++
		case model.StatusNoAvailability:
			stats.NoAvailability++
		case model.StatusError:
			stats.Errors++
			if len(samples) < maxErrorSamples {
				samples = append(samples, model.ErrorSample{
					HotelID:    r.HotelID,
					TargetDate: r.TargetDate,
					Code:       r.ErrorCode,
					Reason:     r.ErrorMessage,
				})
			}
		}
	}
	return stats, samples
}
