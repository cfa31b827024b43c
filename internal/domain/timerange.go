package domain

import (
	"fmt"
	"strings"
	"time"
)

// MaxRangeDays bounds historical report windows.
const MaxRangeDays = 7

const rangeInputLayout = "06-01-02 15:04"

// RangeMode tells single-day reports from multi-day ones.
type RangeMode string

const (
	RangeSingle     RangeMode = "single"
	RangeHistorical RangeMode = "historical"
)

// TimeRange is a validated report window.
type TimeRange struct {
	Start time.Time
	End   time.Time
	Mode  RangeMode
}

// ParseDateTime parses "yy-mm-dd hh:MM"; the date and time may also be joined by '_' or 'T'.
func ParseDateTime(input string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	normalized := strings.TrimSpace(input)
	if i := strings.IndexAny(normalized, " _T"); i >= 0 {
		normalized = normalized[:i] + " " + normalized[i+1:]
	}
	t, err := time.ParseInLocation(rangeInputLayout, normalized, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q, expected 'yy-mm-dd hh:MM'", ErrInvalidTimeRange, input)
	}
	return t, nil
}

// NewTimeRange validates a report window. An empty end defaults to now.
func NewTimeRange(startStr, endStr string, now time.Time, loc *time.Location) (TimeRange, error) {
	start, err := ParseDateTime(startStr, loc)
	if err != nil {
		return TimeRange{}, err
	}

	end := now
	if strings.TrimSpace(endStr) != "" {
		end, err = ParseDateTime(endStr, loc)
		if err != nil {
			return TimeRange{}, err
		}
	}

	if end.Before(start) {
		return TimeRange{}, fmt.Errorf("%w: end must be after start", ErrInvalidTimeRange)
	}
	if int(end.Sub(start).Hours()/24) > MaxRangeDays {
		return TimeRange{}, fmt.Errorf("%w: range cannot exceed %d days", ErrInvalidTimeRange, MaxRangeDays)
	}

	mode := RangeHistorical
	if DayKey(start, loc) == DayKey(end, loc) {
		mode = RangeSingle
	}
	return TimeRange{Start: start, End: end, Mode: mode}, nil
}
