package ics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcal/internal/model"
)

func weeklyEvent(rule string) ParsedEvent {
	start := time.Date(2025, time.January, 6, 18, 0, 0, 0, time.UTC)
	return ParsedEvent{
		UID:      "weekly",
		Start:    start,
		End:      start.Add(2 * time.Hour),
		RawRRule: rule,
	}
}

func TestRecurringRuleUntil(t *testing.T) {
	rule, err := recurringRule(weeklyEvent("FREQ=WEEKLY;INTERVAL=2;UNTIL=20250331T180000Z"), 30*24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, model.Weekly, rule.Frequency)
	assert.Equal(t, 2, rule.Interval)
	assert.Equal(t, 2*time.Hour, rule.Duration)
	assert.True(t, time.Date(2025, time.January, 6, 18, 0, 0, 0, time.UTC).Equal(rule.Begin))
	assert.True(t, time.Date(2025, time.March, 31, 18, 0, 0, 0, time.UTC).Equal(rule.Finish))
}

func TestRecurringRuleCount(t *testing.T) {
	rule, err := recurringRule(weeklyEvent("FREQ=WEEKLY;COUNT=3"), 30*24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 1, rule.Interval)
	assert.True(t, time.Date(2025, time.January, 20, 18, 0, 0, 0, time.UTC).Equal(rule.Finish), "got %s", rule.Finish)
}

func TestRecurringRuleOpenEndedUsesHorizon(t *testing.T) {
	ev := weeklyEvent("FREQ=DAILY")
	rule, err := recurringRule(ev, 30*24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, model.Daily, rule.Frequency)
	assert.True(t, ev.Start.AddDate(0, 0, 30).Equal(rule.Finish))
}

func TestRecurringRuleInvalid(t *testing.T) {
	_, err := recurringRule(weeklyEvent("FREQ=SOMETIMES"), time.Hour)
	assert.Error(t, err)
}
