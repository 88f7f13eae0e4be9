package repository

import (
	"testing"

	"github.com/sylvlondon/hotelmonitoring/pkg/model"
)

func TestSortRecords(t *testing.T) {
	records := []model.SheetRecord{
		{HotelName: "Beta", TargetDate: "2026-08-02"},
		{HotelName: "Alpha", TargetDate: "2026-08-03"},
		{HotelName: "Beta", TargetDate: "2026-08-01"},
		{HotelName: "Alpha", TargetDate: "2026-08-01"},
	}
	sortRecords(records)

	want := []struct{ name, date string }{
		{"Alpha", "2026-08-01"},
		{"Alpha", "2026-08-03"},
		{"Beta", "2026-08-01"},
		{"Beta", "2026-08-02"},
	}
	for i, w := range want {
		if records[i].HotelName != w.name || records[i].TargetDate != w.date {
			t.Fatalf("records[%d] = %s %s, want %s %s", i, records[i].HotelName, records[i].TargetDate, w.name, w.date)
		}
	}
}

func TestListLimit(t *testing.T) {
	cases := map[int]int{0: defaultListLimit, -3: defaultListLimit, 5: 5}
	for in, want := range cases {
		if got := listLimit(in); got != want {
			t.Errorf("listLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
