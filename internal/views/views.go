// Package views assembles the context handed to the renderer for each
// calendar page: calendar index, event listings (upcoming, past, by date,
// by category, by location), category and location indexes, and event
// detail.
package views

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventcal/internal/model"
	"eventcal/internal/store"
)

// ErrNotFound marks a missing calendar, event, category or location, and
// an invalid page or date.
var ErrNotFound = errors.New("not found")

// Clock supplies the current time.
type Clock func() time.Time

const (
	sidebarLimit     = 10
	eventsTodayLimit = 2
)

// detailOffsets are the day offsets exposed on the event detail page as
// next_7, next_30, next_90 and next_365.
var detailOffsets = [...]int{7, 30, 90, 365}

type Options struct {
	EventsPerPage     int
	CategoriesPerPage int
	LocationsPerPage  int

	// Location interprets the year/month/day of the by-date listing.
	Location *time.Location
	Clock    Clock
}

type Views struct {
	store *store.Store
	opts  Options
}

func New(s *store.Store, opts Options) *Views {
	if opts.EventsPerPage <= 0 {
		opts.EventsPerPage = 6
	}
	if opts.CategoriesPerPage <= 0 {
		opts.CategoriesPerPage = 30
	}
	if opts.LocationsPerPage <= 0 {
		opts.LocationsPerPage = 30
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Views{store: s, opts: opts}
}

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

type CalendarListContext struct {
	List[model.Calendar]
}

// CalendarList lists every calendar.
func (v *Views) CalendarList(ctx context.Context) (*CalendarListContext, error) {
	list, err := paginate[model.Calendar](ctx, v.store.Calendars(), 0, "")
	if err != nil {
		return nil, err
	}
	return &CalendarListContext{List: list}, nil
}

type EventDetailContext struct {
	Object *model.Event `json:"object"`
	IsPast bool         `json:"is_past"`
	// NextTime is the occurrence the offsets are computed from: the next
	// one, or the most recent one for an event that is over.
	NextTime *model.Occurrence `json:"next_time,omitempty"`
	Next7    *time.Time        `json:"next_7,omitempty"`
	Next30   *time.Time        `json:"next_30,omitempty"`
	Next90   *time.Time        `json:"next_90,omitempty"`
	Next365  *time.Time        `json:"next_365,omitempty"`
}

// EventDetail loads one event of a calendar with its related records.
func (v *Views) EventDetail(ctx context.Context, calendarSlug string, id uint) (*EventDetailContext, error) {
	ev, err := v.store.Events().WithCalendar().InCalendar(calendarSlug).ByID(id).Get(ctx)
	if err != nil {
		return nil, notFound(err)
	}

	now := v.opts.Clock()
	data := &EventDetailContext{Object: ev, IsPast: ev.IsPast(now)}
	occ, ok := ev.NextOrPreviousTime(now)
	if !ok {
		return data, nil
	}
	data.NextTime = &occ

	offsets := make([]time.Time, len(detailOffsets))
	for i, days := range detailOffsets {
		offsets[i] = occ.Start.Add(time.Duration(days) * 24 * time.Hour)
	}
	data.Next7, data.Next30, data.Next90, data.Next365 = &offsets[0], &offsets[1], &offsets[2], &offsets[3]
	return data, nil
}

type EventListContext struct {
	List[model.Event]
	Calendar *model.Calendar `json:"calendar"`
	// Object is what the listing is narrowed by: nil, a date, a category
	// or a location.
	Object          any                   `json:"object"`
	Featured        *model.Event          `json:"featured,omitempty"`
	EventCategories []model.EventCategory `json:"event_categories"`
	EventLocations  []model.EventLocation `json:"event_locations"`
	EventsToday     []model.Event         `json:"events_today"`
}

// upcoming is the base listing: events of the calendar from now on.
func (v *Views) upcoming(calendarSlug string, now time.Time) store.EventQuery {
	return v.store.Events().ForDatetime(now).InCalendar(calendarSlug)
}

// EventList lists upcoming events of a calendar.
func (v *Views) EventList(ctx context.Context, calendarSlug, page string) (*EventListContext, error) {
	now := v.opts.Clock()
	return v.eventList(ctx, now, calendarSlug, page, nil, v.upcoming(calendarSlug, now))
}

// PastEventList lists events of a calendar that have ended.
func (v *Views) PastEventList(ctx context.Context, calendarSlug, page string) (*EventListContext, error) {
	now := v.opts.Clock()
	q := v.store.Events().UntilDatetime(now).InCalendar(calendarSlug)
	return v.eventList(ctx, now, calendarSlug, page, nil, q)
}

// EventListByDate lists events of a calendar from the start of the given
// day on.
func (v *Views) EventListByDate(ctx context.Context, calendarSlug string, year, month, day int, page string) (*EventListContext, error) {
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, v.opts.Location)
	if year < 1 || year > 9999 || date.Year() != year || int(date.Month()) != month || date.Day() != day {
		return nil, fmt.Errorf("%w: invalid date %04d-%02d-%02d", ErrNotFound, year, month, day)
	}
	q := v.store.Events().ForDatetime(date).InCalendar(calendarSlug)
	return v.eventList(ctx, v.opts.Clock(), calendarSlug, page, date, q)
}

// EventListByCategory lists upcoming events of a calendar in one category.
func (v *Views) EventListByCategory(ctx context.Context, calendarSlug, categorySlug, page string) (*EventListContext, error) {
	cat, err := v.store.Categories().InCalendar(calendarSlug).BySlug(categorySlug).Get(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	now := v.opts.Clock()
	q := v.upcoming(calendarSlug, now).InCategory(categorySlug)
	return v.eventList(ctx, now, calendarSlug, page, cat, q)
}

// EventListByLocation lists upcoming events of a calendar at one venue.
func (v *Views) EventListByLocation(ctx context.Context, calendarSlug string, locationID uint, page string) (*EventListContext, error) {
	loc, err := v.store.Locations().InCalendar(calendarSlug).ByID(locationID).Get(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	now := v.opts.Clock()
	q := v.upcoming(calendarSlug, now).AtVenue(locationID)
	return v.eventList(ctx, now, calendarSlug, page, loc, q)
}

// eventList assembles the shared list context. now is read once per
// request so the list and events_today agree.
func (v *Views) eventList(ctx context.Context, now time.Time, calendarSlug, page string, object any, q store.EventQuery) (*EventListContext, error) {
	cal, err := v.store.Calendars().BySlug(calendarSlug).Get(ctx)
	if err != nil {
		return nil, notFound(err)
	}

	list, err := paginate[model.Event](ctx, q, v.opts.EventsPerPage, page)
	if err != nil {
		return nil, err
	}

	data := &EventListContext{List: list, Calendar: cal, Object: object}

	featured, err := q.Featured().First(ctx)
	switch {
	case err == nil:
		data.Featured = featured
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	if data.EventCategories, err = v.store.Categories().Find(ctx, 0, sidebarLimit); err != nil {
		return nil, err
	}
	if data.EventLocations, err = v.store.Locations().Find(ctx, 0, sidebarLimit); err != nil {
		return nil, err
	}

	past := v.store.Events().UntilDatetime(now).InCalendar(calendarSlug)
	if data.EventsToday, err = past.Find(ctx, 0, eventsTodayLimit); err != nil {
		return nil, err
	}
	return data, nil
}

type EventCategoryListContext struct {
	List[model.EventCategory]
	EventCategories []model.EventCategory `json:"event_categories"`
}

// EventCategoryList lists the categories of a calendar.
func (v *Views) EventCategoryList(ctx context.Context, calendarSlug, page string) (*EventCategoryListContext, error) {
	q := v.store.Categories().InCalendar(calendarSlug)
	list, err := paginate[model.EventCategory](ctx, q, v.opts.CategoriesPerPage, page)
	if err != nil {
		return nil, err
	}
	sidebar, err := q.Find(ctx, 0, sidebarLimit)
	if err != nil {
		return nil, err
	}
	return &EventCategoryListContext{List: list, EventCategories: sidebar}, nil
}

type EventLocationListContext struct {
	List[model.EventLocation]
}

// EventLocationList lists the locations of a calendar.
func (v *Views) EventLocationList(ctx context.Context, calendarSlug, page string) (*EventLocationListContext, error) {
	q := v.store.Locations().InCalendar(calendarSlug)
	list, err := paginate[model.EventLocation](ctx, q, v.opts.LocationsPerPage, page)
	if err != nil {
		return nil, err
	}
	return &EventLocationListContext{List: list}, nil
}
