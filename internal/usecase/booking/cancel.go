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

type CancelBooking struct {
	repo   domain.Repository
	audit  *audit.Dispatcher
	notify notify.Sender
}

func NewCancelBooking(
	repo domain.Repository,
	auditor *audit.Dispatcher,
	sender notify.Sender,
) *CancelBooking {
	return &CancelBooking{
		repo:   repo,
		audit:  auditor,
		notify: sender,
	}
}

type CancelBookingInput struct {
	BookingID   uint
	ActorUserID uint
	ActorRole   string
	Reason      string
}

// Execute cancels on behalf of the host, an admin, or the guest's own
// account. Cancellation is a status change, never a delete.
func (uc *CancelBooking) Execute(
	ctx context.Context,
	in CancelBookingInput,
) (*models.Booking, error) {

	b, err := uc.repo.GetBookingByID(ctx, in.BookingID)
	if err != nil {
		return nil, httperr.ErrBusiness("booking_not_found")
	}

	allowed := b.HostID == in.ActorUserID ||
		in.ActorRole == "admin" ||
		(b.GuestUserID != nil && *b.GuestUserID == in.ActorUserID)
	if !allowed {
		return nil, httperr.ErrBusiness("not_allowed")
	}

	return uc.cancel(ctx, b, in.Reason, &in.ActorUserID)
}

// ExecuteByToken cancels through the guest's cancel token; no account needed.
func (uc *CancelBooking) ExecuteByToken(
	ctx context.Context,
	token string,
	reason string,
) (*models.Booking, error) {

	b, err := uc.repo.GetBookingByCancelToken(ctx, token)
	if err != nil {
		return nil, httperr.ErrBusiness("booking_not_found")
	}

	return uc.cancel(ctx, b, reason, nil)
}

func (uc *CancelBooking) cancel(
	ctx context.Context,
	b *models.Booking,
	reason string,
	actorID *uint,
) (*models.Booking, error) {

	if err := domain.Cancel(b, reason, time.Now()); err != nil {
		return nil, err
	}

	if err := uc.repo.UpdateBooking(ctx, b); err != nil {
		return nil, err
	}

	uc.notify.Send(notify.Event{
		Email:    b.GuestEmail,
		UserID:   b.GuestUserID,
		Template: "booking_cancelled_guest",
		Payload: map[string]any{
			"booking_id": b.ID,
			"reason":     b.CancelReason,
		},
	})

	uc.notify.Send(notify.Event{
		UserID:   &b.HostID,
		Template: "booking_cancelled_host",
		Payload: map[string]any{
			"booking_id": b.ID,
			"guest":      b.GuestName,
			"reason":     b.CancelReason,
		},
	})

	uc.audit.Dispatch(audit.Event{
		UserID:   actorID,
		Action:   "booking_cancelled",
		Entity:   "booking",
		EntityID: &b.ID,
	})

	return b, nil
}
