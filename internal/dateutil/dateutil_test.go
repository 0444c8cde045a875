package dateutil

import (
	"math"
	"testing"
	"time"
)

func TestToTimestamp(t *testing.T) {
	tests := []struct {
		input  string
		want   float64
		wantOK bool
	}{
		{"1970-01-01", 0, true},
		{"2021-01-15", 1610668800, true},
		{"2025-01-01", 1735689600, true},
		{"1954-03-02", -499737600, true},
		{"2021-13-01", 0, false},
		{"2021-1-5", 0, false},
		{"", 0, false},
		{"2021-01-15T00:00:00Z", 0, false},
	}

	for _, tt := range tests {
		got, ok := ToTimestamp(tt.input)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ToTimestamp(%q) = %v, %v, want %v, %v", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestFromTimestamp(t *testing.T) {
	got, ok := FromTimestamp(1610668800.9)
	if !ok {
		t.Fatal("expected ok")
	}
	want := time.Date(2021, 1, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("FromTimestamp = %v, want %v", got, want)
	}
	if got.Location() != time.UTC {
		t.Errorf("expected UTC location, got %v", got.Location())
	}

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 1e300} {
		if _, ok := FromTimestamp(bad); ok {
			t.Errorf("FromTimestamp(%v) should fail", bad)
		}
	}
}
