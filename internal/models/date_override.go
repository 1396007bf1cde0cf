package models

import "time"

// DateOverride replaces the weekly rules of an event type for a single
// calendar date. An unavailable override yields zero slots for that date.
type DateOverride struct {
	ID uint `gorm:"primaryKey" json:"id"`

	EventTypeID uint      `gorm:"index:idx_override_type_date,unique" json:"event_type_id"`
	EventType   EventType `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	Date string `gorm:"size:10;index:idx_override_type_date,unique" json:"date"`

	IsAvailable bool `json:"is_available"`

	// Optional; when empty the weekly window times still apply.
	StartTime string `gorm:"size:5" json:"start_time"`
	EndTime   string `gorm:"size:5" json:"end_time"`

	Reason string `gorm:"size:255" json:"reason"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
