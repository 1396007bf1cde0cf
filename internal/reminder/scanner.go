// Package reminder periodically scans upcoming bookings and emits one
// notification per configured offset. Marking offsets on the booking row is
// what keeps repeated scans from re-sending.
package reminder

import (
	"context"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	domain "github.com/BruksfildServices01/portal-scheduler/internal/domain/booking"
	"github.com/BruksfildServices01/portal-scheduler/internal/models"
	"github.com/BruksfildServices01/portal-scheduler/internal/notify"
)

const (
	// A reminder whose due moment slid more than this far into the past is
	// stale and gets skipped instead of sent late.
	lateness = 10 * time.Minute

	// How far ahead bookings are loaded per scan. Has to cover the largest
	// reminder offset anyone configures.
	scanHorizon = 7 * 24 * time.Hour
)

type Scanner struct {
	db       *gorm.DB
	sender   notify.Sender
	interval time.Duration

	remindGuest bool
	remindHost  bool

	// swapped out in tests
	now func() time.Time

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

func NewScanner(db *gorm.DB, sender notify.Sender, interval time.Duration, remindGuest, remindHost bool) *Scanner {
	return &Scanner{
		db:          db,
		sender:      sender,
		interval:    interval,
		remindGuest: remindGuest,
		remindHost:  remindHost,
		now:         time.Now,
	}
}

func (s *Scanner) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})

	s.wg.Add(1)
	go s.loop(ctx)
}

func (s *Scanner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scanner) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			if n, err := s.ScanOnce(ctx); err != nil {
				log.Println("[reminder] scan failed:", err)
			} else if n > 0 {
				log.Printf("[reminder] sent %d reminder(s)", n)
			}
		}
	}
}

// ScanOnce walks bookings starting inside the horizon and sends every
// reminder whose due moment has arrived. Returns how many offsets fired.
func (s *Scanner) ScanOnce(ctx context.Context) (int, error) {
	now := s.now()

	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Preload("EventType").
		Preload("Host").
		Where("status IN ?", []string{
			string(domain.StatusPending),
			string(domain.StatusConfirmed),
		}).
		Where("start_time > ? AND start_time <= ?", now, now.Add(scanHorizon)).
		Order("start_time ASC").
		Find(&bookings).Error
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range bookings {
		if ctx.Err() != nil {
			return sent, nil
		}
		sent += s.processBooking(ctx, &bookings[i], now)
	}
	return sent, nil
}

func (s *Scanner) processBooking(ctx context.Context, b *models.Booking, now time.Time) int {
	sent := 0

	for _, offset := range b.EventType.ReminderOffsets() {
		due := b.StartTime.Add(-time.Duration(offset) * time.Minute)

		if due.After(now) {
			continue
		}
		if now.Sub(due) > lateness {
			continue
		}
		if b.ReminderSent(offset) {
			continue
		}

		s.send(b, offset)

		// mark before anything else can rescan this row
		b.MarkReminderSent(offset)
		if err := s.db.WithContext(ctx).Model(b).
			Update("reminders_sent_min", b.RemindersSentMin).Error; err != nil {
			log.Printf("[reminder] mark booking %d offset %d: %v", b.ID, offset, err)
		}
		sent++
	}

	return sent
}

func (s *Scanner) send(b *models.Booking, offset int) {
	payload := map[string]any{
		"booking_id":  b.ID,
		"event_title": b.EventType.Title,
		"start_time":  b.StartTime,
		"offset_min":  offset,
	}

	if s.remindGuest {
		s.sender.Send(notify.Event{
			UserID:   b.GuestUserID,
			Email:    b.GuestEmail,
			Template: "booking_reminder_guest",
			Payload:  payload,
		})
	}

	if s.remindHost {
		hostID := b.HostID
		s.sender.Send(notify.Event{
			UserID:   &hostID,
			Email:    b.Host.Email,
			Template: "booking_reminder_host",
			Payload:  payload,
		})
	}
}
