package util

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// RecordKey derives the stable document key of one observation. A run
// observes each (hotel, date) pair once, so the key doubles as the
// write-once guard in stores that support create-if-absent.
func RecordKey(runID, hotelID, targetDate string) string {
	builder := strings.Builder{}
	builder.WriteString(strings.TrimSpace(runID))
	builder.WriteString("|")
	builder.WriteString(strings.TrimSpace(strings.ToLower(hotelID)))
	builder.WriteString("|")
	builder.WriteString(strings.TrimSpace(targetDate))
	sum := md5.Sum([]byte(builder.String()))
	return hex.EncodeToString(sum[:])
}
