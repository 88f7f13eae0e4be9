package util

import "testing"

func TestRecordKey(t *testing.T) {
	a := RecordKey("run-1", "Hotel_A", "2026-08-01")
	b := RecordKey(" run-1 ", "hotel_a", "2026-08-01")
	if a != b {
		t.Errorf("keys differ after normalization: %s vs %s", a, b)
	}
	if len(a) != 32 {
		t.Errorf("key length = %d, want 32", len(a))
	}
	if a == RecordKey("run-1", "hotel_a", "2026-08-02") {
		t.Error("different dates produced the same key")
	}
	if a == RecordKey("run-2", "hotel_a", "2026-08-01") {
		t.Error("different runs produced the same key")
	}
}
