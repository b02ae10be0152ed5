// Package storetest provides an in-memory store and fixture builders for
// tests across packages.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"eventcal/internal/config"
	"eventcal/internal/model"
	"eventcal/internal/store"
)

// New returns a migrated store over a private in-memory SQLite database,
// closed automatically when the test ends.
func New(t *testing.T) *store.Store {
	t.Helper()

	db, err := store.Open(config.DatabaseConfig{Driver: store.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err, "open sqlite")
	t.Cleanup(func() { _ = store.Close(db) })

	require.NoError(t, store.Migrate(db), "migrate schema")
	return store.New(db)
}

// Calendar creates a calendar with the given slug.
func Calendar(t *testing.T, s *store.Store, slug string) *model.Calendar {
	t.Helper()
	cal := &model.Calendar{Name: slug + " calendar", Slug: slug}
	require.NoError(t, s.DB().Create(cal).Error)
	return cal
}

func Category(t *testing.T, s *store.Store, cal *model.Calendar, name, slug string) *model.EventCategory {
	t.Helper()
	cat, err := s.EnsureCategory(context.Background(), cal.ID, name, slug)
	require.NoError(t, err)
	return cat
}

func Location(t *testing.T, s *store.Store, cal *model.Calendar, name string) *model.EventLocation {
	t.Helper()
	loc, err := s.EnsureLocation(context.Background(), cal.ID, name)
	require.NoError(t, err)
	return loc
}

// EventOption tweaks an event before it is saved.
type EventOption func(*model.Event)

func Featured() EventOption {
	return func(ev *model.Event) { ev.Featured = true }
}

func AtVenue(loc *model.EventLocation) EventOption {
	return func(ev *model.Event) { ev.VenueID = &loc.ID }
}

func InCategories(cats ...*model.EventCategory) EventOption {
	return func(ev *model.Event) {
		for _, c := range cats {
			ev.Categories = append(ev.Categories, *c)
		}
	}
}

// Recurring adds a recurring rule.
func Recurring(freq model.Frequency, begin, finish time.Time, d time.Duration) EventOption {
	return func(ev *model.Event) {
		ev.RecurringRules = append(ev.RecurringRules, model.RecurringRule{
			Begin:     begin,
			Finish:    finish,
			Duration:  d,
			Interval:  1,
			Frequency: freq,
		})
	}
}

// NoOccurrence drops the default occurring rule.
func NoOccurrence() EventOption {
	return func(ev *model.Event) { ev.OccurringRule = nil }
}

// Event creates an event in cal with a one-off occurrence at start lasting
// one hour, then applies opts.
func Event(t *testing.T, s *store.Store, cal *model.Calendar, title string, start time.Time, opts ...EventOption) *model.Event {
	t.Helper()
	ev := &model.Event{
		UID:        uuid.NewString(),
		Title:      title,
		CalendarID: cal.ID,
		OccurringRule: &model.OccurringRule{
			DtStart: start,
			DtEnd:   start.Add(time.Hour),
		},
	}
	for _, opt := range opts {
		opt(ev)
	}

	ctx := context.Background()
	require.NoError(t, s.Transaction(ctx, func(tx *store.Store) error {
		return tx.SaveEvent(ctx, ev)
	}))
	return ev
}
