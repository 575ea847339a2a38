package timeutil

import (
	"time"
)

// SecondsPerDay is the length of a UTC day used for day numbering.
const SecondsPerDay = 86400

// TimeUTC is a small helper type representing Unix time (in seconds) in UTC.
// Using a dedicated type prevents confusion between local and UTC timestamps.
type TimeUTC struct{ T int64 }

func NowUTC() TimeUTC {
	return TimeUTC{T: time.Now().UTC().Unix()}
}

func (t TimeUTC) After(other TimeUTC) bool { return t.T > other.T }
func (t TimeUTC) AddSeconds(sec int64) TimeUTC {
	return TimeUTC{T: t.T + sec}
}

// DayNumber converts the timestamp to a UTC day number, floor(unix / 86400).
// Negative timestamps round toward minus infinity so pre-epoch times still
// map to the earlier day.
func (t TimeUTC) DayNumber() int64 {
	day := t.T / SecondsPerDay
	if t.T < 0 && t.T%SecondsPerDay != 0 {
		day--
	}
	return day
}

// DayNumberAt is DayNumber for an arbitrary time.Time.
func DayNumberAt(t time.Time) int64 {
	return TimeUTC{T: t.Unix()}.DayNumber()
}
