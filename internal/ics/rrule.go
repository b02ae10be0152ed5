package ics

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	appLog "eventcal/internal/log"
	"eventcal/internal/model"
)

// recurringRule converts the RRULE of ev into a stored rule. The rule
// keeps frequency and interval; Finish is UNTIL, else the last instance
// allowed by COUNT, else Begin plus horizon.
func recurringRule(ev ParsedEvent, horizon time.Duration) (model.RecurringRule, error) {
	opt, err := rrule.StrToROptionInLocation(ev.RawRRule, ev.Start.Location())
	if err != nil {
		return model.RecurringRule{}, fmt.Errorf("RRULE %q: %w", ev.RawRRule, err)
	}
	opt.Dtstart = ev.Start

	rule := model.RecurringRule{
		Begin:     ev.Start,
		Duration:  ev.End.Sub(ev.Start),
		Interval:  max(opt.Interval, 1),
		Frequency: model.Frequency(opt.Freq),
		AllDay:    ev.AllDay,
	}

	switch {
	case !opt.Until.IsZero():
		rule.Finish = opt.Until
	case opt.Count > 0:
		rr, err := rrule.NewRRule(*opt)
		if err != nil {
			return model.RecurringRule{}, fmt.Errorf("RRULE %q: %w", ev.RawRRule, err)
		}
		rule.Finish = ev.Start
		if all := rr.All(); len(all) > 0 {
			rule.Finish = all[len(all)-1]
		}
	default:
		rule.Finish = ev.Start.Add(horizon)
	}

	if hasByParts(opt) {
		appLog.Debug("rrule BY* parts are not stored", "uid", ev.UID, "rrule", ev.RawRRule)
	}
	return rule, nil
}

func hasByParts(opt *rrule.ROption) bool {
	return len(opt.Bysetpos) > 0 || len(opt.Bymonth) > 0 || len(opt.Bymonthday) > 0 ||
		len(opt.Byyearday) > 0 || len(opt.Byweekno) > 0 || len(opt.Byweekday) > 0 ||
		len(opt.Byhour) > 0 || len(opt.Byminute) > 0 || len(opt.Bysecond) > 0 || len(opt.Byeaster) > 0
}
