package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcal/internal/model"
	"eventcal/internal/store"
	"eventcal/internal/store/storetest"
)

var now = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func titles(events []model.Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Title)
	}
	return out
}

func TestForDatetimeAndUntilDatetime(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	cal := storetest.Calendar(t, s, "python-events")

	storetest.Event(t, s, cal, "later", now.Add(72*time.Hour))
	storetest.Event(t, s, cal, "sooner", now.Add(24*time.Hour))
	storetest.Event(t, s, cal, "yesterday", now.Add(-24*time.Hour))
	storetest.Event(t, s, cal, "last week", now.Add(-7*24*time.Hour))
	storetest.Event(t, s, cal, "weekly sprint", now.Add(-30*24*time.Hour),
		storetest.NoOccurrence(),
		storetest.Recurring(model.Weekly, now.Add(-30*24*time.Hour), now.Add(60*24*time.Hour), time.Hour))

	upcoming, err := s.Events().ForDatetime(now).All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"weekly sprint", "sooner", "later"}, titles(upcoming))

	past, err := s.Events().UntilDatetime(now).All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"yesterday", "last week"}, titles(past))

	n, err := s.Events().ForDatetime(now).Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestEventFiltersChain(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	py := storetest.Calendar(t, s, "python-events")
	other := storetest.Calendar(t, s, "user-groups")

	sprints := storetest.Category(t, s, py, "Sprints", "sprints")
	hall := storetest.Location(t, s, py, "Main Hall")

	storetest.Event(t, s, py, "sprint", now.Add(time.Hour), storetest.InCategories(sprints))
	storetest.Event(t, s, py, "talk", now.Add(2*time.Hour), storetest.AtVenue(hall), storetest.Featured())
	storetest.Event(t, s, other, "meetup", now.Add(3*time.Hour))

	base := s.Events().ForDatetime(now).InCalendar("python-events")

	all, err := base.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sprint", "talk"}, titles(all))

	byCat, err := base.InCategory("sprints").All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sprint"}, titles(byCat))
	require.Len(t, byCat[0].Categories, 1)
	assert.Equal(t, "sprints", byCat[0].Categories[0].Slug)

	byVenue, err := base.AtVenue(hall.ID).All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"talk"}, titles(byVenue))
	require.NotNil(t, byVenue[0].Venue)
	assert.Equal(t, "Main Hall", byVenue[0].Venue.Name)

	featured, err := base.Featured().First(ctx)
	require.NoError(t, err)
	assert.Equal(t, "talk", featured.Title)

	// The base query is unchanged by the chained calls above.
	again, err := base.All(ctx)
	require.NoError(t, err)
	assert.Len(t, again, 2)
}

func TestFindPaginates(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	cal := storetest.Calendar(t, s, "python-events")
	for i := 0; i < 5; i++ {
		storetest.Event(t, s, cal, string(rune('a'+i)), now.Add(time.Duration(i+1)*time.Hour))
	}

	page, err := s.Events().ForDatetime(now).Find(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, titles(page))

	empty, err := s.Events().ForDatetime(now).Find(ctx, 10, 2)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestGetAndFirstNotFound(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	storetest.Calendar(t, s, "a")
	storetest.Calendar(t, s, "b")

	_, err := s.Calendars().BySlug("missing").Get(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Events().ByID(42).First(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Calendars().Get(ctx)
	assert.ErrorIs(t, err, store.ErrMultiple)

	cal, err := s.Calendars().BySlug("b").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", cal.Slug)
}

func TestCategoryAndLocationQueries(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	py := storetest.Calendar(t, s, "python-events")
	other := storetest.Calendar(t, s, "user-groups")

	storetest.Category(t, s, py, "Sprints", "sprints")
	storetest.Category(t, s, py, "Conferences", "conferences")
	storetest.Category(t, s, other, "Sprints", "sprints")
	hall := storetest.Location(t, s, py, "Main Hall")
	storetest.Location(t, s, other, "Pub")

	cats, err := s.Categories().InCalendar("python-events").All(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "conferences", cats[0].Slug)

	cat, err := s.Categories().InCalendar("user-groups").BySlug("sprints").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, other.ID, cat.CalendarID)

	loc, err := s.Locations().InCalendar("python-events").ByID(hall.ID).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Main Hall", loc.Name)

	_, err = s.Locations().InCalendar("user-groups").ByID(hall.ID).Get(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSaveEventUpsertsByUID(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	cal := storetest.Calendar(t, s, "python-events")
	sprints := storetest.Category(t, s, cal, "Sprints", "sprints")

	ev := storetest.Event(t, s, cal, "draft", now.Add(time.Hour), storetest.InCategories(sprints), storetest.Featured())

	update := &model.Event{
		UID:        ev.UID,
		Title:      "final",
		CalendarID: cal.ID,
		RecurringRules: []model.RecurringRule{{
			Begin: now, Finish: now.Add(30 * 24 * time.Hour), Frequency: model.Daily, Duration: time.Hour,
		}},
	}
	require.NoError(t, s.Transaction(ctx, func(tx *store.Store) error {
		return tx.SaveEvent(ctx, update)
	}))
	assert.Equal(t, ev.ID, update.ID)

	got, err := s.Events().ByID(ev.ID).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Title)
	assert.True(t, got.Featured, "featured survives re-save")
	assert.Nil(t, got.OccurringRule)
	assert.Empty(t, got.Categories)
	require.Len(t, got.RecurringRules, 1)
	assert.Equal(t, 1, got.RecurringRules[0].Interval)

	n, err := s.Events().Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestSaveEventRequiresUID(t *testing.T) {
	s := storetest.New(t)
	assert.Error(t, s.SaveEvent(context.Background(), &model.Event{Title: "x"}))
}

func TestSyncCalendarsUpsertsBySlug(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	require.NoError(t, s.SyncCalendars(ctx, []model.Calendar{
		{Slug: "python-events", Name: "Python Events"},
		{Slug: "user-groups", Name: "User Groups", URL: "https://example.com/ug.ics"},
	}))
	require.NoError(t, s.SyncCalendars(ctx, []model.Calendar{
		{Slug: "python-events", Name: "Python Events Calendar", URL: "https://example.com/py.ics"},
	}))

	cals, err := s.Calendars().All(ctx)
	require.NoError(t, err)
	require.Len(t, cals, 2)
	assert.Equal(t, "Python Events Calendar", cals[0].Name)

	feeds, err := s.Calendars().WithFeed().All(ctx)
	require.NoError(t, err)
	assert.Len(t, feeds, 2)
}

func TestEnsureIsIdempotent(t *testing.T) {
	s := storetest.New(t)
	cal := storetest.Calendar(t, s, "python-events")

	a := storetest.Location(t, s, cal, "Main Hall")
	b := storetest.Location(t, s, cal, "Main Hall")
	assert.Equal(t, a.ID, b.ID)

	c := storetest.Category(t, s, cal, "Sprints", "sprints")
	d := storetest.Category(t, s, cal, "Renamed", "sprints")
	assert.Equal(t, c.ID, d.ID)
	assert.Equal(t, "Sprints", d.Name)
}
