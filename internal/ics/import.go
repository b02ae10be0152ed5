// Package ics imports calendar feeds into the store: fetch with an on-disk
// conditional GET cache, parse VEVENTs, and upsert events by UID.
package ics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventcal/internal/config"
	appLog "eventcal/internal/log"
	"eventcal/internal/metrics"
	"eventcal/internal/model"
	"eventcal/internal/store"
)

// Result summarizes the import of one calendar.
type Result struct {
	Calendar  string
	Saved     int
	Failed    int
	Overrides int
	FromCache bool
}

// Importer pulls calendar feeds into the store.
type Importer struct {
	store   *store.Store
	fetcher *Fetcher
	metrics *metrics.Metrics
	loc     *time.Location
	horizon time.Duration
}

// NewImporter builds an importer. loc interprets floating feed times; m may
// be a disabled metrics instance.
func NewImporter(s *store.Store, cfg config.ImportConfig, loc *time.Location, m *metrics.Metrics) *Importer {
	if loc == nil {
		loc = time.UTC
	}
	return &Importer{
		store:   s,
		fetcher: NewFetcher(cfg.CacheDir, cfg.Timeout()),
		metrics: m,
		loc:     loc,
		horizon: time.Duration(cfg.HorizonDays) * 24 * time.Hour,
	}
}

// ImportAll imports every calendar that has a feed URL. A failing calendar
// does not stop the others; the returned error joins every failure.
func (im *Importer) ImportAll(ctx context.Context) error {
	cals, err := im.store.Calendars().WithFeed().All(ctx)
	if err != nil {
		return fmt.Errorf("list calendars: %w", err)
	}

	var errs []error
	for i := range cals {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := im.ImportCalendar(ctx, &cals[i]); err != nil {
			errs = append(errs, fmt.Errorf("calendar %s: %w", cals[i].Slug, err))
		}
	}
	return errors.Join(errs...)
}

// ImportSlug imports the single calendar with the given slug.
func (im *Importer) ImportSlug(ctx context.Context, slug string) (Result, error) {
	cal, err := im.store.Calendars().BySlug(slug).Get(ctx)
	if err != nil {
		return Result{Calendar: slug}, fmt.Errorf("calendar %s: %w", slug, err)
	}
	return im.ImportCalendar(ctx, cal)
}

// ImportCalendar fetches and imports the feed of cal.
func (im *Importer) ImportCalendar(ctx context.Context, cal *model.Calendar) (Result, error) {
	start := time.Now()
	res, err := im.importCalendar(ctx, cal)
	elapsed := time.Since(start)
	im.metrics.RecordImport(cal.Slug, res.Saved, res.Failed, elapsed, err)

	kv := []any{
		"calendar", cal.Slug,
		"saved", res.Saved,
		"failed", res.Failed,
		"overrides_skipped", res.Overrides,
		"from_cache", res.FromCache,
		"duration_ms", elapsed.Milliseconds(),
	}
	if err != nil {
		appLog.Error("ics import finished with errors", err, kv...)
	} else {
		appLog.Info("ics import finished", kv...)
	}
	return res, err
}

func (im *Importer) importCalendar(ctx context.Context, cal *model.Calendar) (Result, error) {
	if cal.URL == "" {
		return Result{Calendar: cal.Slug}, errors.New("calendar has no feed URL")
	}
	fetched, err := im.fetcher.Fetch(ctx, Source{Slug: cal.Slug, URL: cal.URL})
	if err != nil {
		return Result{Calendar: cal.Slug}, err
	}
	res, err := im.ImportText(ctx, cal, fetched.Body)
	res.FromCache = fetched.FromCache
	return res, err
}

// ImportText imports an already fetched feed body into cal. Every event is
// attempted; the error joins the per-event failures.
func (im *Importer) ImportText(ctx context.Context, cal *model.Calendar, body []byte) (Result, error) {
	res := Result{Calendar: cal.Slug}

	parsed, err := ParseICS(body, im.loc)
	if err != nil {
		return res, err
	}
	res.Overrides = parsed.Overrides

	errs := append([]error(nil), parsed.Errors...)
	for _, ev := range parsed.Events {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := im.saveEvent(ctx, cal, ev); err != nil {
			errs = append(errs, fmt.Errorf("event %s: %w", ev.UID, err))
			continue
		}
		res.Saved++
	}
	res.Failed = len(errs)
	return res, errors.Join(errs...)
}

// toEvent maps a parsed VEVENT onto an event without its venue and
// categories, which need the store.
func (im *Importer) toEvent(cal *model.Calendar, pe ParsedEvent) (*model.Event, error) {
	occ := &model.OccurringRule{DtStart: pe.Start, DtEnd: pe.End, AllDay: pe.AllDay}
	if pe.AllDay {
		// Stored all-day ends are inclusive: the last day, not the day after.
		occ.DtEnd = pe.End.AddDate(0, 0, -1)
		if occ.DtEnd.Before(occ.DtStart) {
			occ.DtEnd = occ.DtStart
		}
	}

	ev := &model.Event{
		UID:           pe.UID,
		Title:         pe.Summary,
		Description:   pe.Description,
		CalendarID:    cal.ID,
		OccurringRule: occ,
	}
	if pe.RawRRule != "" {
		rule, err := recurringRule(pe, im.horizon)
		if err != nil {
			return nil, err
		}
		ev.RecurringRules = []model.RecurringRule{rule}
	}
	return ev, nil
}

func (im *Importer) saveEvent(ctx context.Context, cal *model.Calendar, pe ParsedEvent) error {
	ev, err := im.toEvent(cal, pe)
	if err != nil {
		return err
	}

	return im.store.Transaction(ctx, func(tx *store.Store) error {
		if pe.Location != "" {
			loc, err := tx.EnsureLocation(ctx, cal.ID, pe.Location)
			if err != nil {
				return err
			}
			ev.VenueID = &loc.ID
		}

		seen := make(map[string]bool, len(pe.Categories))
		for _, name := range pe.Categories {
			slug := Slugify(name)
			if seen[slug] {
				continue
			}
			seen[slug] = true
			cat, err := tx.EnsureCategory(ctx, cal.ID, name, slug)
			if err != nil {
				return err
			}
			ev.Categories = append(ev.Categories, *cat)
		}

		return tx.SaveEvent(ctx, ev)
	})
}
