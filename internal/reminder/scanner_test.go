package reminder

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	dbpkg "github.com/BruksfildServices01/portal-scheduler/internal/db"
	"github.com/BruksfildServices01/portal-scheduler/internal/models"
	"github.com/BruksfildServices01/portal-scheduler/internal/notify"
)

type recordingSender struct {
	mu     sync.Mutex
	events []notify.Event
}

func (s *recordingSender) Send(ev notify.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

var dbSeq int

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dbSeq++
	dsn := fmt.Sprintf("file:reminder_%d?mode=memory&cache=shared", dbSeq)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, dbpkg.Migrate(db))
	return db
}

func seedBooking(t *testing.T, db *gorm.DB, offsets string, start time.Time) *models.Booking {
	t.Helper()

	host := models.User{Name: "Host", Email: fmt.Sprintf("host%d@example.com", dbSeq), Role: "host"}
	require.NoError(t, db.Create(&host).Error)

	et := models.EventType{
		HostID:             host.ID,
		Title:              "Check-in",
		Slug:               fmt.Sprintf("check-in-%d", dbSeq),
		DurationMin:        30,
		ReminderOffsetsMin: offsets,
	}
	require.NoError(t, db.Create(&et).Error)

	b := models.Booking{
		EventTypeID: et.ID,
		HostID:      host.ID,
		GuestName:   "Guest",
		GuestEmail:  "guest@example.com",
		StartTime:   start,
		EndTime:     start.Add(30 * time.Minute),
		Status:      "confirmed",
		CancelToken: fmt.Sprintf("token-%d", dbSeq),
	}
	require.NoError(t, db.Create(&b).Error)
	return &b
}

func TestScanOnce_SendsDueReminderOnce(t *testing.T) {
	db := testDB(t)
	sender := &recordingSender{}

	now := time.Now()
	seedBooking(t, db, "60", now.Add(59*time.Minute))

	s := NewScanner(db, sender, time.Minute, true, true)
	s.now = func() time.Time { return now }

	sent, err := s.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 2, sender.count()) // guest and host

	// a second scan finds the offset already marked
	sent, err = s.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Equal(t, 2, sender.count())
}

func TestScanOnce_NotDueYet(t *testing.T) {
	db := testDB(t)
	sender := &recordingSender{}

	now := time.Now()
	seedBooking(t, db, "60", now.Add(3*time.Hour))

	s := NewScanner(db, sender, time.Minute, true, true)
	s.now = func() time.Time { return now }

	sent, err := s.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}

func TestScanOnce_StaleReminderSkipped(t *testing.T) {
	db := testDB(t)
	sender := &recordingSender{}

	now := time.Now()
	// due moment was 30 minutes ago, well past the lateness cutoff
	seedBooking(t, db, "60", now.Add(30*time.Minute))

	s := NewScanner(db, sender, time.Minute, true, true)
	s.now = func() time.Time { return now }

	sent, err := s.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}

func TestScanOnce_MultipleOffsetsFireIndependently(t *testing.T) {
	db := testDB(t)
	sender := &recordingSender{}

	start := time.Now().Add(24 * time.Hour)
	b := seedBooking(t, db, "60,1440", start)

	s := NewScanner(db, sender, time.Minute, true, false)

	// the 1440 offset is due now, the 60 one is not
	s.now = func() time.Time { return start.Add(-1440 * time.Minute) }
	sent, err := s.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	// an hour before start only the 60 offset remains
	s.now = func() time.Time { return start.Add(-59 * time.Minute) }
	sent, err = s.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	var reloaded models.Booking
	require.NoError(t, db.First(&reloaded, b.ID).Error)
	assert.ElementsMatch(t, []int{60, 1440}, reloaded.RemindersSent())
}

func TestScanOnce_CancelledBookingIgnored(t *testing.T) {
	db := testDB(t)
	sender := &recordingSender{}

	now := time.Now()
	b := seedBooking(t, db, "60", now.Add(59*time.Minute))
	require.NoError(t, db.Model(b).Update("status", "cancelled").Error)

	s := NewScanner(db, sender, time.Minute, true, true)
	s.now = func() time.Time { return now }

	sent, err := s.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}

func TestScanOnce_GuestToggleOff(t *testing.T) {
	db := testDB(t)
	sender := &recordingSender{}

	now := time.Now()
	seedBooking(t, db, "60", now.Add(59*time.Minute))

	s := NewScanner(db, sender, time.Minute, false, true)
	s.now = func() time.Time { return now }

	sent, err := s.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Equal(t, 1, sender.count())
	assert.Equal(t, "booking_reminder_host", sender.events[0].Template)
}

func TestStartStop(t *testing.T) {
	db := testDB(t)
	s := NewScanner(db, &recordingSender{}, time.Hour, true, true)

	s.Start(context.Background())
	s.Start(context.Background()) // idempotent
	s.Stop()
	s.Stop() // idempotent
}
