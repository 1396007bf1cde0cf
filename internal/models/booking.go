package models

import "time"

type Booking struct {
	ID uint `gorm:"primaryKey" json:"id"`

	EventTypeID uint      `json:"event_type_id"`
	EventType   EventType `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"event_type"`

	HostID uint `gorm:"index" json:"host_id"`
	Host   User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`

	GuestName   string `gorm:"size:100;not null" json:"guest_name"`
	GuestEmail  string `gorm:"size:100;not null" json:"guest_email"`
	GuestUserID *uint  `json:"guest_user_id"`

	StartTime time.Time `json:"start_time"`
	// Always StartTime plus the event type duration, never set on its own.
	EndTime time.Time `json:"end_time"`

	Status string `gorm:"size:20;default:'pending'" json:"status"`

	MeetingLink string `gorm:"size:255" json:"meeting_link"`
	Notes       string `gorm:"size:500" json:"notes"`

	// Reminder offsets (minutes) already notified, CSV.
	RemindersSentMin string `gorm:"size:100" json:"reminders_sent_min"`

	CancelReason string     `gorm:"size:255" json:"cancel_reason"`
	CancelledAt  *time.Time `json:"cancelled_at"`
	ConfirmedAt  *time.Time `json:"confirmed_at"`

	// Opaque token letting the guest cancel without an account.
	CancelToken string `gorm:"size:40;uniqueIndex" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Booking) RemindersSent() []int {
	return parseOffsetCSV(b.RemindersSentMin)
}

func (b *Booking) ReminderSent(offset int) bool {
	for _, o := range b.RemindersSent() {
		if o == offset {
			return true
		}
	}
	return false
}

func (b *Booking) MarkReminderSent(offset int) {
	if b.ReminderSent(offset) {
		return
	}
	b.RemindersSentMin = joinOffsetCSV(append(b.RemindersSent(), offset))
}
