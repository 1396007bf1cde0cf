package models

import "time"

// CalendarConnection holds the Google Calendar link of one host. Created on
// the OAuth callback, destroyed on disconnect.
type CalendarConnection struct {
	ID uint `gorm:"primaryKey" json:"id"`

	HostID uint `gorm:"uniqueIndex" json:"host_id"`

	AccessToken    string    `gorm:"size:2048" json:"-"`
	RefreshToken   string    `gorm:"size:512" json:"-"`
	TokenExpiresAt time.Time `json:"token_expires_at"`

	GoogleEmail string `gorm:"size:100" json:"google_email"`
	CalendarID  string `gorm:"size:255;default:'primary'" json:"calendar_id"`

	SyncEnabled bool `gorm:"default:true" json:"sync_enabled"`

	// Opaque incremental-sync cursor issued by the Google API.
	SyncToken string `gorm:"size:512" json:"-"`

	LastSyncAt     *time.Time `json:"last_sync_at"`
	LastSyncStatus string     `gorm:"size:20" json:"last_sync_status"`
	LastSyncError  string     `gorm:"size:500" json:"last_sync_error"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CalendarEvent is a local mirror of a non-booking calendar entry, mostly
// rows imported from the host's Google calendar.
type CalendarEvent struct {
	ID uint `gorm:"primaryKey" json:"id"`

	HostID uint `gorm:"index" json:"host_id"`

	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"size:1000" json:"description"`
	Location    string `gorm:"size:255" json:"location"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	IsAllDay  bool      `json:"is_all_day"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	SyncDirectionImport = "import"
	SyncDirectionExport = "export"

	LocalKindBooking = "booking"
	LocalKindEvent   = "event"
)

// SyncMapping joins one local booking or event to one remote Google event.
// The unique indexes are what keep retried syncs from duplicating rows.
type SyncMapping struct {
	ID uint `gorm:"primaryKey" json:"id"`

	ConnectionID uint               `gorm:"index:idx_mapping_local,unique;index:idx_mapping_remote,unique" json:"connection_id"`
	Connection   CalendarConnection `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	LocalKind string `gorm:"size:10;index:idx_mapping_local,unique" json:"local_kind"`
	LocalID   uint   `gorm:"index:idx_mapping_local,unique" json:"local_id"`

	GoogleEventID string `gorm:"size:255;index:idx_mapping_remote,unique" json:"google_event_id"`

	Direction    string    `gorm:"size:10" json:"direction"`
	LastSyncedAt time.Time `json:"last_synced_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
