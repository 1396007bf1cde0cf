package booking

import (
	"context"
	"time"

	"github.com/BruksfildServices01/portal-scheduler/internal/models"
)

type Repository interface {
	// -------- Transaction scope --------
	// Transaction runs fn against a repository bound to one database
	// transaction. The slot re-check and the insert of CreateBooking must
	// share this scope.
	Transaction(ctx context.Context, fn func(tx Repository) error) error

	// -------- Event types --------
	GetEventTypeByID(
		ctx context.Context,
		id uint,
	) (*models.EventType, error)

	GetEventTypeBySlug(
		ctx context.Context,
		slug string,
	) (*models.EventType, error)

	// LockHost serializes concurrent booking creation for one host. It
	// must run inside a Transaction, before the availability reads; the
	// lock is released with the transaction. Row locks alone cannot cover
	// buffer conflicts between bookings whose raw intervals are disjoint.
	LockHost(ctx context.Context, hostID uint) error

	// -------- Availability --------
	// ListWeeklyRules resolves the rules of the type's schedule, or the
	// type's own rules when it has no schedule.
	ListWeeklyRules(
		ctx context.Context,
		et *models.EventType,
	) ([]models.WeeklyRule, error)

	GetDateOverride(
		ctx context.Context,
		eventTypeID uint,
		date string,
	) (*models.DateOverride, error)

	ListDateOverrides(
		ctx context.Context,
		eventTypeID uint,
	) ([]models.DateOverride, error)

	// ListBusyIntervals returns the host's non-cancelled bookings touching
	// [from, to], each widened by its own event type's buffers. Inside a
	// Transaction the rows are locked for update.
	ListBusyIntervals(
		ctx context.Context,
		hostID uint,
		from time.Time,
		to time.Time,
	) ([]Busy, error)

	// -------- Bookings --------
	CreateBooking(
		ctx context.Context,
		b *models.Booking,
	) error

	GetBookingByID(
		ctx context.Context,
		id uint,
	) (*models.Booking, error)

	GetBookingByCancelToken(
		ctx context.Context,
		token string,
	) (*models.Booking, error)

	UpdateBooking(
		ctx context.Context,
		b *models.Booking,
	) error

	// -------- Hosts --------
	GetHostByID(
		ctx context.Context,
		id uint,
	) (*models.User, error)
}
