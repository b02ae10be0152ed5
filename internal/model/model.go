package model

import (
	"time"

	"gorm.io/gorm"
)

// Calendar is a named collection of events, addressed by Slug.
type Calendar struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:200;not null" json:"name"`
	Slug        string `gorm:"size:200;not null;uniqueIndex" json:"slug"`
	Description string `json:"description"`
	// URL is the ICS feed events are imported from, if any.
	URL string `gorm:"size:500" json:"url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type EventCategory struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CalendarID uint      `gorm:"not null;uniqueIndex:idx_category_calendar_slug" json:"calendar_id"`
	Calendar   *Calendar `json:"calendar,omitempty"`
	Name       string    `gorm:"size:200;not null" json:"name"`
	Slug       string    `gorm:"size:200;not null;uniqueIndex:idx_category_calendar_slug" json:"slug"`
}

type EventLocation struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CalendarID uint      `gorm:"not null;index" json:"calendar_id"`
	Calendar   *Calendar `json:"calendar,omitempty"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	Address    string    `gorm:"size:255" json:"address,omitempty"`
	URL        string    `gorm:"size:500" json:"url,omitempty"`
}

// Event is a scheduled occurrence. Its times live in OccurringRule (a one
// off) and/or RecurringRules.
type Event struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	UID         string `gorm:"size:200;uniqueIndex" json:"uid"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Description string `json:"description"`
	Featured    bool   `gorm:"not null;default:false;index" json:"featured"`

	CalendarID uint      `gorm:"not null;index" json:"calendar_id"`
	Calendar   *Calendar `json:"calendar,omitempty"`

	VenueID *uint          `gorm:"index" json:"venue_id,omitempty"`
	Venue   *EventLocation `gorm:"foreignKey:VenueID" json:"venue,omitempty"`

	Categories     []EventCategory `gorm:"many2many:event_category_links;" json:"categories"`
	OccurringRule  *OccurringRule  `gorm:"constraint:OnDelete:CASCADE;" json:"occurring_rule,omitempty"`
	RecurringRules []RecurringRule `gorm:"constraint:OnDelete:CASCADE;" json:"recurring_rules,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OccurringRule is a single [DtStart, DtEnd] occurrence of an event.
type OccurringRule struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	EventID uint      `gorm:"not null;uniqueIndex" json:"event_id"`
	DtStart time.Time `gorm:"not null;index" json:"dt_start"`
	DtEnd   time.Time `gorm:"not null;index" json:"dt_end"`
	AllDay  bool      `gorm:"not null;default:false" json:"all_day"`
}

func (o *OccurringRule) BeforeSave(*gorm.DB) error {
	o.DtStart = o.DtStart.UTC()
	o.DtEnd = o.DtEnd.UTC()
	return nil
}

// Occurrence returns the rule's single occurrence.
func (o OccurringRule) Occurrence() Occurrence {
	return Occurrence{Start: o.DtStart, End: o.DtEnd, AllDay: o.AllDay}
}

// RecurringRule repeats an event every Interval units of Frequency from
// Begin until Finish. Each occurrence lasts Duration.
type RecurringRule struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	EventID   uint          `gorm:"not null;index" json:"event_id"`
	Begin     time.Time     `gorm:"column:begin_at;not null" json:"begin"`
	Finish    time.Time     `gorm:"column:finish_at;not null;index" json:"finish"`
	Duration  time.Duration `gorm:"not null;default:0" json:"duration"`
	Interval  int           `gorm:"not null;default:1" json:"interval"`
	Frequency Frequency     `gorm:"not null" json:"frequency"`
	AllDay    bool          `gorm:"not null;default:false" json:"all_day"`
}

func (r *RecurringRule) BeforeSave(*gorm.DB) error {
	r.Begin = r.Begin.UTC()
	r.Finish = r.Finish.UTC()
	if r.Interval < 1 {
		r.Interval = 1
	}
	return nil
}

// Occurrence is one concrete start/end of an event.
type Occurrence struct {
	Start  time.Time `json:"dt_start"`
	End    time.Time `json:"dt_end"`
	AllDay bool      `json:"all_day"`
}
