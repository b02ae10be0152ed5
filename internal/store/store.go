package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"eventcal/internal/model"
)

// Store is the read/write entry point over the calendar tables.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn against a Store bound to a single transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

// Calendars, ordered by name.
type CalendarQuery struct{ Query[model.Calendar] }

func (s *Store) Calendars() CalendarQuery {
	return CalendarQuery{newQuery[model.Calendar](s.db).OrderBy("calendars.name").OrderBy("calendars.id")}
}

func (q CalendarQuery) BySlug(slug string) CalendarQuery {
	return CalendarQuery{q.Filter(func(db *gorm.DB) *gorm.DB {
		return db.Where("calendars.slug = ?", slug)
	})}
}

// WithFeed keeps calendars that have an ICS URL.
func (q CalendarQuery) WithFeed() CalendarQuery {
	return CalendarQuery{q.Filter(func(db *gorm.DB) *gorm.DB {
		return db.Where("calendars.url <> ''")
	})}
}

// Categories, ordered by name.
type CategoryQuery struct{ Query[model.EventCategory] }

func (s *Store) Categories() CategoryQuery {
	return CategoryQuery{newQuery[model.EventCategory](s.db).OrderBy("event_categories.name").OrderBy("event_categories.id")}
}

func (q CategoryQuery) InCalendar(slug string) CategoryQuery {
	return CategoryQuery{q.Filter(inCalendar("event_categories", slug))}
}

func (q CategoryQuery) BySlug(slug string) CategoryQuery {
	return CategoryQuery{q.Filter(func(db *gorm.DB) *gorm.DB {
		return db.Where("event_categories.slug = ?", slug)
	})}
}

// Locations, ordered by name.
type LocationQuery struct{ Query[model.EventLocation] }

func (s *Store) Locations() LocationQuery {
	return LocationQuery{newQuery[model.EventLocation](s.db).OrderBy("event_locations.name").OrderBy("event_locations.id")}
}

func (q LocationQuery) InCalendar(slug string) LocationQuery {
	return LocationQuery{q.Filter(inCalendar("event_locations", slug))}
}

func (q LocationQuery) ByID(id uint) LocationQuery {
	return LocationQuery{q.Filter(func(db *gorm.DB) *gorm.DB {
		return db.Where("event_locations.id = ?", id)
	})}
}

func inCalendar(table, slug string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(table+".calendar_id IN (SELECT id FROM calendars WHERE slug = ?)", slug)
	}
}

// firstStartSQL is an event's earliest scheduled start across its
// occurring rule and recurring rules.
const firstStartSQL = "COALESCE(" +
	"(SELECT o.dt_start FROM occurring_rules o WHERE o.event_id = events.id), " +
	"(SELECT MIN(r.begin_at) FROM recurring_rules r WHERE r.event_id = events.id))"

// EventQuery always preloads venue, categories and rules; next/previous
// times need no further queries.
type EventQuery struct{ Query[model.Event] }

func (s *Store) Events() EventQuery {
	return EventQuery{newQuery[model.Event](s.db).Preload("Venue", "Categories", "OccurringRule", "RecurringRules")}
}

// ForDatetime keeps events with an occurrence starting at or after t, or a
// recurring rule that has not finished by t. Soonest first.
func (q EventQuery) ForDatetime(t time.Time) EventQuery {
	t = t.UTC()
	return EventQuery{q.Filter(func(db *gorm.DB) *gorm.DB {
		return db.Where("(EXISTS (SELECT 1 FROM occurring_rules o WHERE o.event_id = events.id AND o.dt_start >= ?)"+
			" OR EXISTS (SELECT 1 FROM recurring_rules r WHERE r.event_id = events.id AND r.finish_at >= ?))", t, t)
	}).OrderBy(firstStartSQL + " ASC").OrderBy("events.id ASC")}
}

// UntilDatetime keeps events whose occurrence ended before t, or whose
// recurring rule finished before t. Most recent first.
func (q EventQuery) UntilDatetime(t time.Time) EventQuery {
	t = t.UTC()
	return EventQuery{q.Filter(func(db *gorm.DB) *gorm.DB {
		return db.Where("(EXISTS (SELECT 1 FROM occurring_rules o WHERE o.event_id = events.id AND o.dt_end < ?)"+
			" OR EXISTS (SELECT 1 FROM recurring_rules r WHERE r.event_id = events.id AND r.finish_at < ?))", t, t)
	}).OrderBy(firstStartSQL + " DESC").OrderBy("events.id DESC")}
}

func (q EventQuery) InCalendar(slug string) EventQuery {
	return EventQuery{q.Filter(inCalendar("events", slug))}
}

func (q EventQuery) InCategory(slug string) EventQuery {
	return EventQuery{q.Filter(func(db *gorm.DB) *gorm.DB {
		return db.Where("events.id IN (SELECT l.event_id FROM event_category_links l"+
			" JOIN event_categories c ON c.id = l.event_category_id WHERE c.slug = ?)", slug)
	})}
}

func (q EventQuery) AtVenue(id uint) EventQuery {
	return EventQuery{q.Filter(func(db *gorm.DB) *gorm.DB {
		return db.Where("events.venue_id = ?", id)
	})}
}

func (q EventQuery) Featured() EventQuery {
	return EventQuery{q.Filter(func(db *gorm.DB) *gorm.DB {
		return db.Where("events.featured = ?", true)
	})}
}

func (q EventQuery) ByID(id uint) EventQuery {
	return EventQuery{q.Filter(func(db *gorm.DB) *gorm.DB {
		return db.Where("events.id = ?", id)
	})}
}

// WithCalendar also preloads the owning calendar.
func (q EventQuery) WithCalendar() EventQuery {
	return EventQuery{q.Preload("Calendar")}
}
