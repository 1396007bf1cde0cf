package booking

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BruksfildServices01/portal-scheduler/internal/audit"
	domain "github.com/BruksfildServices01/portal-scheduler/internal/domain/booking"
	"github.com/BruksfildServices01/portal-scheduler/internal/httperr"
	"github.com/BruksfildServices01/portal-scheduler/internal/models"
	"github.com/BruksfildServices01/portal-scheduler/internal/notify"
)

// ======================================================
// INPUT
// ======================================================

type CreateBookingInput struct {
	EventTypeID uint

	GuestName   string
	GuestEmail  string
	GuestUserID *uint

	Date  string
	Time  string
	Notes string
}

// MeetLinker pushes a fresh booking to the host's calendar and returns the
// generated meeting link. Both sides are best-effort for booking creation.
type MeetLinker interface {
	ExportBooking(ctx context.Context, b *models.Booking) (string, error)
}

// ======================================================
// USE CASE
// ======================================================

type CreateBooking struct {
	repo   domain.Repository
	audit  *audit.Dispatcher
	notify notify.Sender
	meet   MeetLinker
}

func NewCreateBooking(
	repo domain.Repository,
	auditor *audit.Dispatcher,
	sender notify.Sender,
	meet MeetLinker,
) *CreateBooking {
	return &CreateBooking{
		repo:   repo,
		audit:  auditor,
		notify: sender,
		meet:   meet,
	}
}

// ======================================================
// EXECUTE
// ======================================================

func (uc *CreateBooking) Execute(
	ctx context.Context,
	in CreateBookingInput,
) (*models.Booking, error) {

	if strings.TrimSpace(in.GuestName) == "" || strings.TrimSpace(in.GuestEmail) == "" {
		return nil, httperr.ErrBusiness("invalid_guest")
	}

	et, err := uc.repo.GetEventTypeByID(ctx, in.EventTypeID)
	if err != nil {
		return nil, httperr.ErrBusiness("event_type_not_found")
	}
	if et.DurationMin <= 0 {
		return nil, httperr.ErrBusiness("invalid_duration")
	}

	host, err := uc.repo.GetHostByID(ctx, et.HostID)
	if err != nil {
		return nil, err
	}

	loc := hostLocation(et, host)

	start, err := time.ParseInLocation(
		"2006-01-02 15:04",
		in.Date+" "+in.Time,
		loc,
	)
	if err != nil {
		return nil, httperr.ErrBusiness("invalid_date_or_time")
	}

	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	duration := time.Duration(et.DurationMin) * time.Minute

	booking := &models.Booking{
		EventTypeID: et.ID,
		HostID:      et.HostID,
		GuestName:   strings.TrimSpace(in.GuestName),
		GuestEmail:  strings.ToLower(strings.TrimSpace(in.GuestEmail)),
		GuestUserID: in.GuestUserID,
		StartTime:   start,
		EndTime:     start.Add(duration),
		Status:      string(domain.InitialStatus(et.RequiresConfirmation)),
		Notes:       in.Notes,
		CancelToken: uuid.NewString(),
	}

	// Slots shown to the caller earlier may be stale: re-check against data
	// read in the same transaction as the insert, so two overlapping
	// bookings cannot both commit.
	err = uc.repo.Transaction(ctx, func(tx domain.Repository) error {
		if err := tx.LockHost(ctx, et.HostID); err != nil {
			return err
		}

		rules, err := tx.ListWeeklyRules(ctx, et)
		if err != nil {
			return err
		}

		override, err := tx.GetDateOverride(ctx, et.ID, day.Format(domain.DateLayout))
		if err != nil {
			return err
		}

		dayStart, dayEnd := dayBounds(day)
		busy, err := tx.ListBusyIntervals(ctx, et.HostID, dayStart, dayEnd)
		if err != nil {
			return err
		}

		windows := domain.ResolveDayWindows(rules, override, day)
		now := time.Now().In(loc)

		if !domain.SlotAvailable(et, windows, busy, start, now) {
			return httperr.ErrBusiness("slot_conflict")
		}

		return tx.CreateBooking(ctx, booking)
	})

	if err != nil {
		if httperr.IsExclusionConflict(err) {
			return nil, httperr.ErrBusiness("slot_conflict")
		}
		return nil, err
	}

	// Meeting link after commit: the booking stands even when the calendar
	// push fails; the next sync run exports it. The export reads the event
	// type off the booking, so attach the association loaded above.
	booking.EventType = *et

	if uc.meet != nil && et.LocationKind == models.LocationGoogleMeet {
		if link, err := uc.meet.ExportBooking(ctx, booking); err != nil {
			log.Printf("[booking] meet link for booking %d: %v", booking.ID, err)
		} else if link != "" {
			booking.MeetingLink = link
			if err := uc.repo.UpdateBooking(ctx, booking); err != nil {
				log.Printf("[booking] persist meet link for booking %d: %v", booking.ID, err)
			}
		}
	}

	uc.notify.Send(notify.Event{
		Email:    booking.GuestEmail,
		UserID:   booking.GuestUserID,
		Template: "booking_guest_confirmation",
		Payload: map[string]any{
			"booking_id": booking.ID,
			"title":      et.Title,
			"start":      booking.StartTime,
			"status":     booking.Status,
		},
	})

	uc.notify.Send(notify.Event{
		UserID:   &et.HostID,
		Email:    host.Email,
		Template: "booking_host_notification",
		Payload: map[string]any{
			"booking_id": booking.ID,
			"title":      et.Title,
			"guest":      booking.GuestName,
			"start":      booking.StartTime,
		},
	})

	uc.audit.Dispatch(audit.Event{
		UserID:   &et.HostID,
		Action:   "booking_created",
		Entity:   "booking",
		EntityID: &booking.ID,
	})

	return booking, nil
}
