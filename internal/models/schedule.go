package models

import "time"

type AvailabilitySchedule struct {
	ID uint `gorm:"primaryKey" json:"id"`

	HostID uint `gorm:"index" json:"host_id"`

	Name      string `gorm:"size:100;not null" json:"name"`
	Timezone  string `gorm:"size:50" json:"timezone"`
	IsDefault bool   `json:"is_default"`

	Rules []WeeklyRule `gorm:"foreignKey:ScheduleID" json:"rules"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WeeklyRule is one recurring availability window. It belongs either to a
// reusable schedule or directly to an event type, never both.
type WeeklyRule struct {
	ID uint `gorm:"primaryKey" json:"id"`

	ScheduleID  *uint `gorm:"index" json:"schedule_id"`
	EventTypeID *uint `gorm:"index" json:"event_type_id"`

	Weekday     int    `json:"weekday"`
	StartTime   string `gorm:"size:5" json:"start_time"`
	EndTime     string `gorm:"size:5" json:"end_time"`
	IsAvailable bool   `gorm:"default:true" json:"is_available"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
