package booking

import (
	"context"
	"time"

	"github.com/BruksfildServices01/portal-scheduler/internal/audit"
	domain "github.com/BruksfildServices01/portal-scheduler/internal/domain/booking"
	"github.com/BruksfildServices01/portal-scheduler/internal/httperr"
	"github.com/BruksfildServices01/portal-scheduler/internal/models"
	"github.com/BruksfildServices01/portal-scheduler/internal/notify"
)

type ConfirmBooking struct {
	repo   domain.Repository
	audit  *audit.Dispatcher
	notify notify.Sender
}

func NewConfirmBooking(
	repo domain.Repository,
	auditor *audit.Dispatcher,
	sender notify.Sender,
) *ConfirmBooking {
	return &ConfirmBooking{
		repo:   repo,
		audit:  auditor,
		notify: sender,
	}
}

// Execute confirms a pending booking. Host only.
func (uc *ConfirmBooking) Execute(
	ctx context.Context,
	hostID uint,
	bookingID uint,
) (*models.Booking, error) {

	b, err := uc.repo.GetBookingByID(ctx, bookingID)
	if err != nil || b.HostID != hostID {
		return nil, httperr.ErrBusiness("booking_not_found")
	}

	if err := domain.Confirm(b, time.Now()); err != nil {
		return nil, err
	}

	if err := uc.repo.UpdateBooking(ctx, b); err != nil {
		return nil, err
	}

	uc.notify.Send(notify.Event{
		Email:    b.GuestEmail,
		UserID:   b.GuestUserID,
		Template: "booking_confirmed",
		Payload: map[string]any{
			"booking_id": b.ID,
			"start":      b.StartTime,
		},
	})

	uc.audit.Dispatch(audit.Event{
		UserID:   &hostID,
		Action:   "booking_confirmed",
		Entity:   "booking",
		EntityID: &b.ID,
	})

	return b, nil
}
