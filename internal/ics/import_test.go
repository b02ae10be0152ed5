package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcal/internal/config"
	"eventcal/internal/metrics"
	"eventcal/internal/model"
	"eventcal/internal/store"
	"eventcal/internal/store/storetest"
)

func sampleFeed(sprintTitle string) []byte {
	return feed(
		"BEGIN:VEVENT",
		"UID:sprint@example.com",
		"DTSTART:20250610T170000Z",
		"DTEND:20250610T190000Z",
		"SUMMARY:"+sprintTitle,
		"LOCATION:Main Hall",
		"CATEGORIES:Sprints,Beginner Friendly,sprints",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:conf@example.com",
		"DTSTART;VALUE=DATE:20250901",
		"DTEND;VALUE=DATE:20250904",
		"SUMMARY:Conference",
		"LOCATION:Main Hall",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:meetup@example.com",
		"DTSTART:20250106T180000Z",
		"DTEND:20250106T200000Z",
		"RRULE:FREQ=WEEKLY",
		"SUMMARY:Weekly meetup",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:broken@example.com",
		"SUMMARY:Missing start",
		"END:VEVENT",
	)
}

func newImporter(t *testing.T, m *metrics.Metrics) (*Importer, *store.Store) {
	t.Helper()
	s := storetest.New(t)
	cfg := config.ImportConfig{CacheDir: t.TempDir(), HorizonDays: 30, TimeoutSeconds: 2}
	if m == nil {
		m = metrics.New(config.MetricsConfig{})
	}
	return NewImporter(s, cfg, time.UTC, m), s
}

func TestImportText(t *testing.T) {
	im, s := newImporter(t, nil)
	ctx := context.Background()
	cal := storetest.Calendar(t, s, "python-events")

	res, err := im.ImportText(ctx, cal, sampleFeed("Sprint night"))
	require.Error(t, err, "the broken event is reported")
	assert.Equal(t, 3, res.Saved)
	assert.Equal(t, 1, res.Failed)

	events, err := s.Events().InCalendar("python-events").All(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)

	byUID := make(map[string]model.Event, len(events))
	for _, ev := range events {
		byUID[ev.UID] = ev
	}

	sprint := byUID["sprint@example.com"]
	assert.Equal(t, "Sprint night", sprint.Title)
	require.NotNil(t, sprint.Venue)
	assert.Equal(t, "Main Hall", sprint.Venue.Name)
	slugs := make([]string, 0, len(sprint.Categories))
	for _, c := range sprint.Categories {
		slugs = append(slugs, c.Slug)
	}
	assert.ElementsMatch(t, []string{"sprints", "beginner-friendly"}, slugs)

	conf := byUID["conf@example.com"]
	require.NotNil(t, conf.OccurringRule)
	assert.True(t, conf.OccurringRule.AllDay)
	assert.True(t, time.Date(2025, 9, 3, 0, 0, 0, 0, time.UTC).Equal(conf.OccurringRule.DtEnd), "all-day end is the last day")
	require.NotNil(t, conf.Venue)
	assert.Equal(t, sprint.Venue.ID, conf.Venue.ID, "venues are shared by name")

	meetup := byUID["meetup@example.com"]
	require.Len(t, meetup.RecurringRules, 1)
	rule := meetup.RecurringRules[0]
	assert.Equal(t, model.Weekly, rule.Frequency)
	assert.True(t, rule.Begin.AddDate(0, 0, 30).Equal(rule.Finish))
}

func TestImportTextUpsertsByUID(t *testing.T) {
	im, s := newImporter(t, nil)
	ctx := context.Background()
	cal := storetest.Calendar(t, s, "python-events")

	_, _ = im.ImportText(ctx, cal, sampleFeed("Sprint night"))
	_, _ = im.ImportText(ctx, cal, sampleFeed("Sprint night (moved)"))

	n, err := s.Events().Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	locs, err := s.Locations().All(ctx)
	require.NoError(t, err)
	assert.Len(t, locs, 1)

	ev, err := s.Events().InCalendar("python-events").InCategory("sprints").First(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Sprint night (moved)", ev.Title)
}

func TestImportAllOverHTTP(t *testing.T) {
	body := feed(
		"BEGIN:VEVENT",
		"UID:a",
		"DTSTART:20250610T170000Z",
		"SUMMARY:A",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:b",
		"DTSTART:20250611T170000Z",
		"SUMMARY:B",
		"END:VEVENT",
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	m := metrics.New(config.MetricsConfig{Enabled: true, Namespace: "eventcal"})
	im, s := newImporter(t, m)
	ctx := context.Background()
	require.NoError(t, s.SyncCalendars(ctx, []model.Calendar{
		{Slug: "python-events", Name: "Python Events", URL: srv.URL + "/python.ics"},
		{Slug: "no-feed", Name: "No feed"},
	}))

	require.NoError(t, im.ImportAll(ctx))

	n, err := s.Events().InCalendar("python-events").Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `eventcal_imported_events_total{calendar="python-events"} 2`)
	assert.Contains(t, rec.Body.String(), `eventcal_import_runs_total{calendar="python-events",status="success"} 1`)
}

func TestImportAllContinuesPastFailingCalendar(t *testing.T) {
	body := feed(
		"BEGIN:VEVENT",
		"UID:a",
		"DTSTART:20250610T170000Z",
		"SUMMARY:A",
		"END:VEVENT",
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/broken.ics", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/python.ics", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	m := metrics.New(config.MetricsConfig{Enabled: true, Namespace: "eventcal"})
	im, s := newImporter(t, m)
	ctx := context.Background()
	// Calendars import in name order, so the broken feed goes first.
	require.NoError(t, s.SyncCalendars(ctx, []model.Calendar{
		{Slug: "broken", Name: "A broken feed", URL: srv.URL + "/broken.ics"},
		{Slug: "python-events", Name: "Python Events", URL: srv.URL + "/python.ics"},
	}))

	err := im.ImportAll(ctx)
	require.Error(t, err)
	assert.ErrorContains(t, err, "calendar broken:")
	assert.NotContains(t, err.Error(), "calendar python-events")

	n, err := s.Events().InCalendar("python-events").Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `eventcal_import_runs_total{calendar="broken",status="error"} 1`)
	assert.Contains(t, rec.Body.String(), `eventcal_import_runs_total{calendar="python-events",status="success"} 1`)
}

func TestImportSlugErrors(t *testing.T) {
	im, s := newImporter(t, nil)
	ctx := context.Background()
	storetest.Calendar(t, s, "no-feed")

	_, err := im.ImportSlug(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = im.ImportSlug(ctx, "no-feed")
	assert.Error(t, err)
}
