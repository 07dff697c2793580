package sqlbackend

import (
	"fmt"
	"time"

	"github.com/roach88/execdef/internal/model"
)

// relativeRange returns the inclusive ISO date bounds of the periods from
// and to, counted from the period containing now. US weeks start on
// Sunday.
func relativeRange(g model.DateGranularity, from, to int, now time.Time) (string, string, error) {
	start, err := periodStart(g, now)
	if err != nil {
		return "", "", err
	}
	lo := shiftPeriod(g, start, from)
	hi := shiftPeriod(g, start, to+1).AddDate(0, 0, -1)
	return lo.Format(time.DateOnly), hi.Format(time.DateOnly), nil
}

func periodStart(g model.DateGranularity, t time.Time) (time.Time, error) {
	y, m, d := t.Date()
	switch g {
	case model.GranularityDate:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	case model.GranularityWeek:
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return day.AddDate(0, 0, -int(day.Weekday())), nil
	case model.GranularityMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC), nil
	case model.GranularityQuarter:
		first := (int(m)-1)/3*3 + 1
		return time.Date(y, time.Month(first), 1, 0, 0, 0, 0, time.UTC), nil
	case model.GranularityYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("unsupported granularity %q", g)
}

func shiftPeriod(g model.DateGranularity, start time.Time, n int) time.Time {
	switch g {
	case model.GranularityWeek:
		return start.AddDate(0, 0, 7*n)
	case model.GranularityMonth:
		return start.AddDate(0, n, 0)
	case model.GranularityQuarter:
		return start.AddDate(0, 3*n, 0)
	case model.GranularityYear:
		return start.AddDate(n, 0, 0)
	}
	return start.AddDate(0, 0, n)
}
