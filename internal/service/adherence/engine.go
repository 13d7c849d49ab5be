// Package adherence scores dose-log histories against a fixed daily schedule.
// Everything here is pure arithmetic over caller-supplied data; the caller
// decides which logs to hand in and what "today" is.
package adherence

import (
	"math"
	"time"

	"github.com/jwalitptl/medtracker-api/internal/model"
	apperrors "github.com/jwalitptl/medtracker-api/pkg/errors"
)

const (
	MsgNonPositiveSchedule = "Days and schedule must be positive"
	MsgInvalidWindow       = "start_date must be before or equal to end_date"
	MsgOutOfRange          = "Expected doses exceed the supported range"
)

const secondsPerDay = 24 * 60 * 60

// Engine evaluates calendar dates in a fixed location. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	loc *time.Location
}

func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{loc: loc}
}

func (e *Engine) Location() *time.Location {
	return e.loc
}

// Period is the breakdown behind a windowed adherence rate.
type Period struct {
	Start      time.Time
	End        time.Time
	WindowDays int
	Expected   int
	Taken      int
	Rate       float64
}

// Rate is the share of logged events marked as taken, as a percentage
// rounded to two decimals. An empty history scores 0.
func (e *Engine) Rate(logs []*model.DoseLog) float64 {
	if len(logs) == 0 {
		return 0
	}
	return percent(CountTaken(logs), len(logs))
}

// ExpectedDoses is the number of doses a constant schedule calls for over
// the given number of days.
func (e *Engine) ExpectedDoses(days, perDay int) (int, error) {
	if days <= 0 || perDay <= 0 {
		return 0, apperrors.Precondition(MsgNonPositiveSchedule)
	}
	if days > math.MaxInt/perDay {
		return 0, apperrors.Precondition(MsgOutOfRange)
	}
	return perDay * days, nil
}

// RateOverPeriod scores taken doses inside the inclusive window [start, end]
// against the doses the schedule expects for that window.
func (e *Engine) RateOverPeriod(logs []*model.DoseLog, start, end time.Time, perDay int) (float64, error) {
	p, err := e.PeriodStats(logs, start, end, perDay)
	if err != nil {
		return 0, err
	}
	return p.Rate, nil
}

// PeriodStats computes the windowed adherence together with its counts.
// Only the calendar date of start and end is used. A schedule of zero or
// fewer doses per day expects nothing and scores 0.
func (e *Engine) PeriodStats(logs []*model.DoseLog, start, end time.Time, perDay int) (Period, error) {
	startDate, endDate := civil(start), civil(end)
	if startDate.After(endDate) {
		return Period{}, apperrors.Precondition(MsgInvalidWindow)
	}

	p := Period{
		Start:      startDate,
		End:        endDate,
		WindowDays: daysBetween(startDate, endDate) + 1,
	}
	if perDay > 0 {
		if p.WindowDays > math.MaxInt/perDay {
			return Period{}, apperrors.Precondition(MsgOutOfRange)
		}
		p.Expected = perDay * p.WindowDays
	}

	for _, l := range logs {
		if !l.WasTaken {
			continue
		}
		d := e.DateOf(l.TakenAt)
		if d.Before(startDate) || d.After(endDate) {
			continue
		}
		p.Taken++
	}

	if p.Expected <= 0 {
		return p, nil
	}
	p.Rate = percent(p.Taken, p.Expected)
	return p, nil
}

// DaysSince counts whole calendar days from d to today.
func (e *Engine) DaysSince(d, today time.Time) int {
	return daysBetween(civil(d), civil(today))
}

// DateOf returns the calendar date of an instant as observed in the
// engine's location.
func (e *Engine) DateOf(t time.Time) time.Time {
	return civil(t.In(e.loc))
}

// Bounds converts an inclusive date window into the half-open instant range
// [from, until) in the engine's location, for storage queries.
func (e *Engine) Bounds(start, end time.Time) (from, until time.Time) {
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	return time.Date(sy, sm, sd, 0, 0, 0, 0, e.loc), time.Date(ey, em, ed+1, 0, 0, 0, 0, e.loc)
}

// CountTaken returns how many logs record an administered dose.
func CountTaken(logs []*model.DoseLog) int {
	n := 0
	for _, l := range logs {
		if l.WasTaken {
			n++
		}
	}
	return n
}

// civil strips the clock, keeping the year, month and day t carries.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts calendar days between two civil dates. Unix seconds
// are used because a time.Duration saturates after about 292 years.
func daysBetween(from, to time.Time) int {
	return int((to.Unix() - from.Unix()) / secondsPerDay)
}

// percent rounds half to even at two decimals.
func percent(part, whole int) float64 {
	return math.RoundToEven(100*float64(part)/float64(whole)*100) / 100
}
