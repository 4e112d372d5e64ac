package stats

import (
	"fmt"
	"strings"
	"time"

	"github.com/mrlokans/bookshelf/internal/entities"
)

type Timeframe string

const (
	TimeframeToday     Timeframe = "today"
	TimeframeThisWeek  Timeframe = "thisWeek"
	TimeframeThisMonth Timeframe = "thisMonth"
	TimeframeThisYear  Timeframe = "thisYear"
	TimeframeAllTime   Timeframe = "allTime"
)

var Timeframes = []Timeframe{TimeframeToday, TimeframeThisWeek, TimeframeThisMonth, TimeframeThisYear, TimeframeAllTime}

// ParseTimeframe is case-insensitive. An empty string selects allTime.
func ParseTimeframe(s string) (Timeframe, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TimeframeAllTime, nil
	}
	for _, tf := range Timeframes {
		if strings.EqualFold(string(tf), s) {
			return tf, nil
		}
	}
	return "", entities.NewValidationError("timeframe", fmt.Sprintf("unknown timeframe %q", s))
}

// Bounds returns the half-open day range [start, end) covered by the
// timeframe, ending tomorrow. allTime returns two zero dates, meaning
// "unbounded".
func (tf Timeframe) Bounds(now time.Time, weekStart time.Weekday) (start, end entities.Date) {
	today := entities.DateOf(now)
	end = today.AddDays(1)
	t := today.Time()

	switch tf {
	case TimeframeToday:
		return today, end
	case TimeframeThisWeek:
		offset := (int(t.Weekday()) - int(weekStart) + 7) % 7
		return today.AddDays(-offset), end
	case TimeframeThisMonth:
		return entities.NewDate(t.Year(), t.Month(), 1), end
	case TimeframeThisYear:
		return entities.NewDate(t.Year(), time.January, 1), end
	}
	return entities.Date{}, entities.Date{}
}
