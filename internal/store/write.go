package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"eventcal/internal/model"
)

// SyncCalendars upserts calendars by slug. Calendars missing from the list
// are left alone.
func (s *Store) SyncCalendars(ctx context.Context, cals []model.Calendar) error {
	if len(cals) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "url", "updated_at"}),
	}).Create(&cals).Error
	if err != nil {
		return fmt.Errorf("sync calendars: %w", err)
	}
	return nil
}

// EnsureLocation returns the calendar's location with this name, creating
// it when missing.
func (s *Store) EnsureLocation(ctx context.Context, calendarID uint, name string) (*model.EventLocation, error) {
	loc := model.EventLocation{CalendarID: calendarID, Name: name}
	err := s.db.WithContext(ctx).
		Where("calendar_id = ? AND name = ?", calendarID, name).
		FirstOrCreate(&loc).Error
	if err != nil {
		return nil, fmt.Errorf("ensure location %q: %w", name, err)
	}
	return &loc, nil
}

// EnsureCategory returns the calendar's category with this slug, creating
// it with the given name when missing.
func (s *Store) EnsureCategory(ctx context.Context, calendarID uint, name, slug string) (*model.EventCategory, error) {
	cat := model.EventCategory{CalendarID: calendarID, Slug: slug}
	err := s.db.WithContext(ctx).
		Where("calendar_id = ? AND slug = ?", calendarID, slug).
		Attrs(model.EventCategory{Name: name}).
		FirstOrCreate(&cat).Error
	if err != nil {
		return nil, fmt.Errorf("ensure category %q: %w", slug, err)
	}
	return &cat, nil
}

// SaveEvent inserts or updates ev by UID. The occurring rule, recurring
// rules and categories on ev replace whatever was stored. Featured is
// owned by editors and survives re-imports. Call inside Transaction to keep
// the replacement atomic.
func (s *Store) SaveEvent(ctx context.Context, ev *model.Event) error {
	if ev.UID == "" {
		return errors.New("save event: empty UID")
	}
	db := s.db.WithContext(ctx)

	var existing model.Event
	err := db.Where("uid = ?", ev.UID).Take(&existing).Error
	switch {
	case err == nil:
		ev.ID = existing.ID
		ev.Featured = existing.Featured
		err = db.Model(&existing).Updates(map[string]any{
			"title":       ev.Title,
			"description": ev.Description,
			"calendar_id": ev.CalendarID,
			"venue_id":    ev.VenueID,
		}).Error
		if err != nil {
			return fmt.Errorf("update event %s: %w", ev.UID, err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := db.Omit(clause.Associations).Create(ev).Error; err != nil {
			return fmt.Errorf("create event %s: %w", ev.UID, err)
		}
	default:
		return fmt.Errorf("load event %s: %w", ev.UID, err)
	}

	if err := db.Where("event_id = ?", ev.ID).Delete(&model.OccurringRule{}).Error; err != nil {
		return fmt.Errorf("clear occurring rule %s: %w", ev.UID, err)
	}
	if ev.OccurringRule != nil {
		ev.OccurringRule.ID = 0
		ev.OccurringRule.EventID = ev.ID
		if err := db.Create(ev.OccurringRule).Error; err != nil {
			return fmt.Errorf("create occurring rule %s: %w", ev.UID, err)
		}
	}

	if err := db.Where("event_id = ?", ev.ID).Delete(&model.RecurringRule{}).Error; err != nil {
		return fmt.Errorf("clear recurring rules %s: %w", ev.UID, err)
	}
	for i := range ev.RecurringRules {
		ev.RecurringRules[i].ID = 0
		ev.RecurringRules[i].EventID = ev.ID
	}
	if len(ev.RecurringRules) > 0 {
		if err := db.Create(&ev.RecurringRules).Error; err != nil {
			return fmt.Errorf("create recurring rules %s: %w", ev.UID, err)
		}
	}

	assoc := db.Model(ev).Association("Categories")
	if len(ev.Categories) == 0 {
		err = assoc.Clear()
	} else {
		err = assoc.Replace(ev.Categories)
	}
	if err != nil {
		return fmt.Errorf("replace categories %s: %w", ev.UID, err)
	}
	return nil
}
