package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

// ParsedEvent is the normalized representation of a VEVENT.
type ParsedEvent struct {
	UID string
	Seq int

	Summary     string
	Description string
	Location    string
	Categories  []string

	Start time.Time
	// End is exclusive, as in the feed. For all-day events it is the day
	// after the last day.
	End    time.Time
	AllDay bool

	RawRRule string
}

// ParseResult is the outcome of parsing one feed.
type ParseResult struct {
	Events []ParsedEvent
	// Errors holds one entry per VEVENT that could not be parsed.
	Errors []error
	// Overrides counts VEVENTs with a RECURRENCE-ID. They describe a single
	// changed instance of a series and are not imported.
	Overrides int
}

// ParseICS parses a feed. Floating times (no TZID, no trailing Z) are read
// in loc. When a UID appears more than once the highest SEQUENCE wins.
func ParseICS(body []byte, loc *time.Location) (ParseResult, error) {
	var res ParseResult
	if len(bytes.TrimSpace(body)) == 0 {
		return res, errors.New("empty ICS body")
	}
	if loc == nil {
		loc = time.UTC
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return res, fmt.Errorf("parse calendar: %w", err)
	}

	index := make(map[string]int)
	for _, ve := range cal.Events() {
		if ve.GetProperty(ical.ComponentPropertyRecurrenceId) != nil {
			res.Overrides++
			continue
		}
		ev, err := parseVEvent(ve, loc)
		if err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		if i, ok := index[ev.UID]; ok {
			if ev.Seq >= res.Events[i].Seq {
				res.Events[i] = ev
			}
			continue
		}
		index[ev.UID] = len(res.Events)
		res.Events = append(res.Events, ev)
	}
	return res, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (ParsedEvent, error) {
	var out ParsedEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || strings.TrimSpace(uidProp.Value) == "" {
		return out, errors.New("vevent: missing UID")
	}
	out.UID = strings.TrimSpace(uidProp.Value)

	if p := ve.GetProperty(ical.ComponentPropertySequence); p != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil {
			out.Seq = n
		}
	}

	out.Summary = propValue(ve, ical.ComponentPropertySummary)
	out.Description = propValue(ve, ical.ComponentPropertyDescription)
	out.Location = propValue(ve, ical.ComponentPropertyLocation)
	out.RawRRule = propValue(ve, ical.ComponentPropertyRrule)

	for _, p := range ve.GetProperties(ical.ComponentPropertyCategories) {
		for _, name := range strings.Split(p.Value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out.Categories = append(out.Categories, name)
			}
		}
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, fmt.Errorf("vevent %s: missing DTSTART", out.UID)
	}
	out.AllDay = isDate(dtStart)

	start, err := propTime(ve, dtStart, ical.ComponentPropertyDtStart, out.AllDay, loc)
	if err != nil {
		return out, fmt.Errorf("vevent %s: DTSTART: %w", out.UID, err)
	}
	out.Start = start

	switch dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); {
	case dtEnd != nil:
		end, err := propTime(ve, dtEnd, ical.ComponentPropertyDtEnd, out.AllDay, loc)
		if err != nil {
			return out, fmt.Errorf("vevent %s: DTEND: %w", out.UID, err)
		}
		out.End = end
	case out.AllDay:
		out.End = start.AddDate(0, 0, 1)
	default:
		out.End = start
	}
	if out.End.Before(out.Start) {
		return out, fmt.Errorf("vevent %s: DTEND before DTSTART", out.UID)
	}
	return out, nil
}

func propValue(ve *ical.VEvent, prop ical.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return strings.TrimSpace(p.Value)
	}
	return ""
}

// isDate reports whether a DTSTART is a DATE (VALUE=DATE or no time part).
func isDate(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func propTime(ve *ical.VEvent, p *ical.IANAProperty, prop ical.ComponentProperty, allDay bool, loc *time.Location) (time.Time, error) {
	var (
		t   time.Time
		err error
	)
	switch {
	case allDay && prop == ical.ComponentPropertyDtStart:
		t, err = ve.GetAllDayStartAt()
	case allDay:
		t, err = ve.GetAllDayEndAt()
	case prop == ical.ComponentPropertyDtStart:
		t, err = ve.GetStartAt()
	default:
		t, err = ve.GetEndAt()
	}
	if err != nil {
		return time.Time{}, err
	}

	// The library reads floating times in time.Local.
	if _, ok := p.ICalParameters["TZID"]; !ok && !strings.HasSuffix(p.Value, "Z") {
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
	}
	return t, nil
}
