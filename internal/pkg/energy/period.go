package energy

import (
	"fmt"
	"strings"
	"time"
)

//Period selects the reporting window and the bucket granularity of an aggregation
type Period string

const (
	//PeriodDay covers the last 24 hours bucketed by hour of day
	PeriodDay Period = "day"
	//PeriodWeek covers the last 7 days bucketed by calendar day
	PeriodWeek Period = "week"
	//PeriodMonth covers the last 30 days bucketed by calendar day
	PeriodMonth Period = "month"
)

//DefaultPeriod is used when no period, or an unknown one, is requested
const DefaultPeriod = PeriodWeek

//ParsePeriod maps a requested period onto a known one. The second return value is false
//when the input was not recognised and DefaultPeriod was substituted.
func ParsePeriod(s string) (Period, bool) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return p, true
	case "":
		return DefaultPeriod, true
	}

	return DefaultPeriod, false
}

//Window returns the inclusive time range covered by the period ending at now
func (p Period) Window(now time.Time) (from, to time.Time) {
	switch p {
	case PeriodDay:
		return now.Add(-24 * time.Hour), now
	case PeriodMonth:
		return now.AddDate(0, 0, -30), now
	default:
		return now.AddDate(0, 0, -7), now
	}
}

//BucketKey formats t as the bucket it falls into, in the given location.
//Keys sort lexicographically in chronological order within a single day or across days.
func (p Period) BucketKey(t time.Time, loc *time.Location) string {
	local := t.In(loc)

	if p == PeriodDay {
		return fmt.Sprintf("%02d:00:00", local.Hour())
	}

	return local.Format("2006-01-02")
}
