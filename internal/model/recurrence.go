package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// Frequency is an iCalendar FREQ value. The numeric values match
// rrule.Frequency; rules convert without a lookup table.
type Frequency int

const (
	Yearly   = Frequency(rrule.YEARLY)
	Monthly  = Frequency(rrule.MONTHLY)
	Weekly   = Frequency(rrule.WEEKLY)
	Daily    = Frequency(rrule.DAILY)
	Hourly   = Frequency(rrule.HOURLY)
	Minutely = Frequency(rrule.MINUTELY)
	Secondly = Frequency(rrule.SECONDLY)
)

func (f Frequency) String() string {
	return rrule.Frequency(f).String()
}

func (f Frequency) MarshalText() ([]byte, error) {
	if f < Yearly || f > Secondly {
		return nil, fmt.Errorf("unknown frequency %d", int(f))
	}
	return []byte(strings.ToLower(f.String())), nil
}

func (f *Frequency) UnmarshalText(b []byte) error {
	freq, err := rrule.StrToFreq(strings.ToUpper(string(b)))
	if err != nil {
		return err
	}
	*f = Frequency(freq)
	return nil
}

func (r RecurringRule) interval() int {
	if r.Interval < 1 {
		return 1
	}
	return r.Interval
}

// step returns Begin advanced by n intervals, and whether that instant is
// an instance of the rule. Monthly and yearly steps that overflow the
// month (the 31st, February 29) are not.
func (r RecurringRule) step(n int) (time.Time, bool) {
	k := n * r.interval()
	switch r.Frequency {
	case Yearly:
		t := r.Begin.AddDate(k, 0, 0)
		return t, t.Day() == r.Begin.Day()
	case Monthly:
		t := r.Begin.AddDate(0, k, 0)
		return t, t.Day() == r.Begin.Day()
	case Weekly:
		return r.Begin.AddDate(0, 0, 7*k), true
	case Daily:
		return r.Begin.AddDate(0, 0, k), true
	case Hourly:
		return r.Begin.Add(time.Duration(k) * time.Hour), true
	case Minutely:
		return r.Begin.Add(time.Duration(k) * time.Minute), true
	default:
		return r.Begin.Add(time.Duration(k) * time.Second), true
	}
}

// period is the length of one step, exact below a day and a slight
// underestimate for months and years.
func (r RecurringRule) period() time.Duration {
	unit := time.Second
	switch r.Frequency {
	case Yearly:
		unit = 365 * 24 * time.Hour
	case Monthly:
		unit = 28 * 24 * time.Hour
	case Weekly:
		unit = 7 * 24 * time.Hour
	case Daily:
		unit = 24 * time.Hour
	case Hourly:
		unit = time.Hour
	case Minutely:
		unit = time.Minute
	}
	return unit * time.Duration(r.interval())
}

// anchor is the latest instance of the rule at least one step before
// min(t, Finish), or Begin. Expanding from it instead of Begin makes a
// lookup cost a few steps however old the rule is.
func (r RecurringRule) anchor(t time.Time) time.Time {
	if r.Finish.Before(t) {
		t = r.Finish
	}
	if !t.After(r.Begin) {
		return r.Begin
	}

	n := int(t.Sub(r.Begin) / r.period())
	for n > 0 {
		if s, _ := r.step(n); !s.After(t) {
			break
		}
		n--
	}
	for {
		if s, _ := r.step(n + 1); s.After(t) {
			break
		}
		n++
	}

	for n--; n > 0; n-- {
		if s, ok := r.step(n); ok {
			return s
		}
	}
	return r.Begin
}

// toRRule expands the rule from the anchor for t.
func (r RecurringRule) toRRule(t time.Time) (*rrule.RRule, error) {
	return rrule.NewRRule(rrule.ROption{
		Freq:     rrule.Frequency(r.Frequency),
		Interval: r.interval(),
		Dtstart:  r.anchor(t),
		Until:    r.Finish,
	})
}

func (r RecurringRule) occurrenceAt(start time.Time) Occurrence {
	return Occurrence{Start: start, End: start.Add(r.Duration), AllDay: r.AllDay}
}

// After returns the first occurrence starting strictly after t.
func (r RecurringRule) After(t time.Time) (Occurrence, bool) {
	rr, err := r.toRRule(t)
	if err != nil {
		return Occurrence{}, false
	}
	start := rr.After(t, false)
	if start.IsZero() {
		return Occurrence{}, false
	}
	return r.occurrenceAt(start), true
}

// LastEndedBefore returns the latest occurrence that ended strictly
// before t.
func (r RecurringRule) LastEndedBefore(t time.Time) (Occurrence, bool) {
	latest := t.Add(-r.Duration)
	rr, err := r.toRRule(latest)
	if err != nil {
		return Occurrence{}, false
	}
	start := rr.Before(latest, false)
	if start.IsZero() {
		return Occurrence{}, false
	}
	return r.occurrenceAt(start), true
}

// NextTime is the earliest upcoming occurrence: the occurring rule if it
// starts after now, and the next instant of each recurring rule that has
// not finished.
func (e Event) NextTime(now time.Time) (Occurrence, bool) {
	var candidates []Occurrence
	if o := e.OccurringRule; o != nil && o.DtStart.After(now) {
		candidates = append(candidates, o.Occurrence())
	}
	for _, rr := range e.RecurringRules {
		if !rr.Finish.After(now) {
			continue
		}
		if occ, ok := rr.After(now); ok {
			candidates = append(candidates, occ)
		}
	}
	if len(candidates) == 0 {
		return Occurrence{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Start.Before(candidates[j].Start)
	})
	return candidates[0], true
}

// PreviousTime is the most recent occurrence that has already ended.
func (e Event) PreviousTime(now time.Time) (Occurrence, bool) {
	var candidates []Occurrence
	if o := e.OccurringRule; o != nil && o.DtEnd.Before(now) {
		candidates = append(candidates, o.Occurrence())
	}
	for _, rr := range e.RecurringRules {
		if !rr.Begin.Before(now) {
			continue
		}
		if occ, ok := rr.LastEndedBefore(now); ok {
			candidates = append(candidates, occ)
		}
	}
	if len(candidates) == 0 {
		return Occurrence{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].End.After(candidates[j].End)
	})
	return candidates[0], true
}

func (e Event) NextOrPreviousTime(now time.Time) (Occurrence, bool) {
	if occ, ok := e.NextTime(now); ok {
		return occ, true
	}
	return e.PreviousTime(now)
}

// IsPast reports whether the event has no upcoming occurrence.
func (e Event) IsPast(now time.Time) bool {
	_, ok := e.NextTime(now)
	return !ok
}
