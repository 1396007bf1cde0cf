package models

import "time"

// Notification is the durable record behind the notify(...) capability.
// Actual delivery (email/push) is handled outside this service.
type Notification struct {
	ID uint `gorm:"primaryKey" json:"id"`

	UserID *uint  `json:"user_id"`
	Email  string `gorm:"size:100" json:"email"`

	Template string `gorm:"size:50;not null" json:"template"`
	Payload  string `gorm:"type:text" json:"payload"`

	CreatedAt time.Time `json:"created_at"`
}
