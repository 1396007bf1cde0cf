package models

import (
	"strconv"
	"strings"
	"time"
)

type EventType struct {
	ID uint `gorm:"primaryKey" json:"id"`

	HostID uint `json:"host_id"`
	Host   User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`

	Title       string `gorm:"size:100;not null" json:"title"`
	Slug        string `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Description string `gorm:"size:500" json:"description"`

	DurationMin     int `gorm:"not null" json:"duration_min"`
	BufferBeforeMin int `gorm:"default:0" json:"buffer_before_min"`
	BufferAfterMin  int `gorm:"default:0" json:"buffer_after_min"`
	MinNoticeHours  int `gorm:"default:4" json:"min_notice_hours"`
	MaxDaysInFuture int `gorm:"default:60" json:"max_days_in_future"`

	RequiresConfirmation bool `json:"requires_confirmation"`

	// Minute offsets before start at which reminders go out, ascending, CSV.
	ReminderOffsetsMin string `gorm:"size:100;default:'60,1440'" json:"reminder_offsets_min"`

	LocationKind string `gorm:"size:20;default:'google_meet'" json:"location_kind"`

	// Nil means the type carries its own WeeklyRule rows directly.
	ScheduleID *uint                 `json:"schedule_id"`
	Schedule   *AvailabilitySchedule `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	LocationInPerson   = "in_person"
	LocationPhone      = "phone"
	LocationGoogleMeet = "google_meet"
)

func (et *EventType) ReminderOffsets() []int {
	return parseOffsetCSV(et.ReminderOffsetsMin)
}

func parseOffsetCSV(s string) []int {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if v, err := strconv.Atoi(part); err == nil && v >= 0 {
			out = append(out, v)
		}
	}
	return out
}

func joinOffsetCSV(offsets []int) string {
	parts := make([]string, 0, len(offsets))
	for _, o := range offsets {
		parts = append(parts, strconv.Itoa(o))
	}
	return strings.Join(parts, ",")
}
