// Package period walks a date window one period at a time and materializes
// driver results for each step.
package period

import (
	"errors"
	"fmt"
	"time"

	"github.com/hyperengineering/driverlib/internal/types"
)

// DefaultMaxPeriods caps a single generation run when no limit is configured.
const DefaultMaxPeriods = 240

var (
	// ErrInvalidRange indicates an unusable window: bad dates, an end before
	// the start, or an unknown period type.
	ErrInvalidRange = errors.New("invalid period range")

	// ErrRangeTooLarge indicates the window spans more periods than allowed.
	ErrRangeTooLarge = errors.New("period range too large")
)

// monthsPer returns the calendar step of a period type.
func monthsPer(pt types.PeriodType) (int, bool) {
	switch pt {
	case types.PeriodMonth:
		return 1, true
	case types.PeriodQuarter:
		return 3, true
	}
	return 0, false
}

// PeriodStart returns the first day (UTC) of the month or quarter holding t.
// Unknown period types are treated as months.
func PeriodStart(t time.Time, pt types.PeriodType) time.Time {
	t = t.UTC()
	month := t.Month()
	if pt == types.PeriodQuarter {
		month = time.Month((int(month)-1)/3*3 + 1)
	}
	return time.Date(t.Year(), month, 1, 0, 0, 0, 0, time.UTC)
}

// Next advances a period start by one period.
func Next(t time.Time, pt types.PeriodType) time.Time {
	step, ok := monthsPer(pt)
	if !ok {
		step = 1
	}
	return t.AddDate(0, step, 0)
}

// monthOffset counts whole calendar months from a to b.
func monthOffset(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// Step is one period of a window.
type Step struct {
	Date time.Time
	// MonthIndex is the zero-based month offset from the first period.
	MonthIndex int
}

// Periods lists the steps of [start, end]: the first begins at the start of
// the period holding start, and steps continue while they do not pass end.
func Periods(start, end time.Time, pt types.PeriodType, maxPeriods int) ([]Step, error) {
	step, ok := monthsPer(pt)
	if !ok {
		return nil, fmt.Errorf("%w: unknown period type %q", ErrInvalidRange, pt)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s is before start %s",
			ErrInvalidRange, end.Format(types.DateLayout), start.Format(types.DateLayout))
	}
	if maxPeriods <= 0 {
		maxPeriods = DefaultMaxPeriods
	}

	first := PeriodStart(start, pt)
	count := monthOffset(first, PeriodStart(end, pt))/step + 1
	if count > maxPeriods {
		return nil, fmt.Errorf("%w: %d periods exceeds limit of %d", ErrRangeTooLarge, count, maxPeriods)
	}

	steps := make([]Step, 0, count)
	for current := first; !current.After(end); current = Next(current, pt) {
		steps = append(steps, Step{Date: current, MonthIndex: monthOffset(first, current)})
	}
	return steps, nil
}

// Window selects the dates to generate. Empty fields fall back to the
// instance configuration.
type Window struct {
	Start      string           `json:"start,omitempty"`
	End        string           `json:"end,omitempty"`
	PeriodType types.PeriodType `json:"period_type,omitempty"`
}

// resolve fills the window from cfg and parses its dates.
func (w Window) resolve(cfg types.Configuration) (time.Time, time.Time, types.PeriodType, error) {
	if w.Start == "" {
		w.Start = cfg.PeriodStart
	}
	if w.End == "" {
		w.End = cfg.PeriodEnd
	}
	if w.PeriodType == "" {
		w.PeriodType = cfg.PeriodType
	}

	start, err := time.Parse(types.DateLayout, w.Start)
	if err != nil {
		return time.Time{}, time.Time{}, "", fmt.Errorf("%w: start %q is not a YYYY-MM-DD date", ErrInvalidRange, w.Start)
	}
	end, err := time.Parse(types.DateLayout, w.End)
	if err != nil {
		return time.Time{}, time.Time{}, "", fmt.Errorf("%w: end %q is not a YYYY-MM-DD date", ErrInvalidRange, w.End)
	}
	return start, end, w.PeriodType, nil
}
