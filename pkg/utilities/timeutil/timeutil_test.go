package timeutil

import (
	"testing"
	"time"
)

func TestDayNumber(t *testing.T) {
	cases := []struct {
		name string
		unix int64
		want int64
	}{
		{"epoch", 0, 0},
		{"one second in", 1, 0},
		{"last second of day zero", 86399, 0},
		{"first second of day one", 86400, 1},
		{"mid 2025", 1753996800, 20300},
		{"one second before epoch", -1, -1},
		{"last second of day minus one", -86400, -1},
		{"first second of day minus two", -86401, -2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := (TimeUTC{T: tc.unix}).DayNumber(); got != tc.want {
				t.Errorf("DayNumber(%d) = %d, expected %d", tc.unix, got, tc.want)
			}
		})
	}
}

func TestDayNumberAtMatchesDayNumber(t *testing.T) {
	at := time.Unix(1753996800, 0).UTC()
	if DayNumberAt(at) != (TimeUTC{T: 1753996800}).DayNumber() {
		t.Error("DayNumberAt must agree with DayNumber")
	}
}

func TestDayBoundaryIsMidnightUTC(t *testing.T) {
	beforeMidnight := time.Date(2025, 7, 31, 23, 59, 59, 0, time.UTC)
	afterMidnight := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

	if DayNumberAt(afterMidnight)-DayNumberAt(beforeMidnight) != 1 {
		t.Error("Midnight UTC must advance the day number by exactly one")
	}

	// the same instant in another zone maps to the same UTC day
	elsewhere := afterMidnight.In(time.FixedZone("UTC-7", -7*3600))
	if DayNumberAt(elsewhere) != DayNumberAt(afterMidnight) {
		t.Error("Day numbering must not depend on the zone of the time value")
	}
}

func TestAfterAndAddSeconds(t *testing.T) {
	base := TimeUTC{T: 1000}

	if !base.AddSeconds(1).After(base) {
		t.Error("t+1 must be after t")
	}
	if base.After(base) {
		t.Error("After must be strict")
	}
	if base.AddSeconds(-2000).T != -1000 {
		t.Errorf("AddSeconds must accept negative offsets, got %d", base.AddSeconds(-2000).T)
	}
}
