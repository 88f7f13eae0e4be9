package collector

import (
	"reflect"
	"testing"
	"time"
)

func TestBuildTargetDates(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 23:30 UTC on Feb 28 is already Mar 1 in Paris.
	now := time.Date(2026, 2, 28, 23, 30, 0, 0, time.UTC)

	got := BuildTargetDates(now, 3, paris)
	want := []string{"2026-03-01", "2026-03-02", "2026-03-03"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("BuildTargetDates = %v, want %v", got, want)
	}

	if got := BuildTargetDates(now, 0, paris); got != nil {
		t.Fatalf("expected no dates, got %v", got)
	}
}

func TestAddOneNight(t *testing.T) {
	tests := map[string]string{
		"2026-02-28": "2026-03-01",
		"2026-12-31": "2027-01-01",
		"2026-03-28": "2026-03-29",
	}
	for in, want := range tests {
		got, err := AddOneNight(in, time.UTC)
		if err != nil {
			t.Fatalf("AddOneNight(%s): %v", in, err)
		}
		if got != want {
			t.Errorf("AddOneNight(%s) = %s, want %s", in, got, want)
		}
	}
	if _, err := AddOneNight("not-a-date", time.UTC); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFormatRunTs(t *testing.T) {
	ts := time.Date(2026, 2, 6, 10, 0, 0, 0, time.UTC)
	if got := FormatRunTsUTC(ts); got != "2026-02-06T10:00:00.000Z" {
		t.Errorf("FormatRunTsUTC = %s", got)
	}
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	if got := FormatRunTsLocal(ts, paris); got != "2026-02-06T11:00:00+01:00" {
		t.Errorf("FormatRunTsLocal = %s", got)
	}
}
