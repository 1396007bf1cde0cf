package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/BruksfildServices01/portal-scheduler/internal/domain/booking"
	"github.com/BruksfildServices01/portal-scheduler/internal/models"
)

type BookingGormRepository struct {
	db   *gorm.DB
	inTx bool
}

func NewBookingGormRepository(db *gorm.DB) *BookingGormRepository {
	return &BookingGormRepository{db: db}
}

// --------------------------------------------------
// Transaction
// --------------------------------------------------

func (r *BookingGormRepository) Transaction(
	ctx context.Context,
	fn func(tx domain.Repository) error,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&BookingGormRepository{db: tx, inTx: true})
	})
}

// LockHost takes a transaction-scoped advisory lock keyed by host. Covers
// the window where two concurrent creates for adjacent slots see no rows to
// lock but their buffered intervals overlap. sqlite (tests) serializes
// writers on its own.
func (r *BookingGormRepository) LockHost(ctx context.Context, hostID uint) error {
	if !r.inTx || r.db.Dialector.Name() != "postgres" {
		return nil
	}
	return r.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(?)", int64(hostID)).Error
}

// --------------------------------------------------
// Event types
// --------------------------------------------------

func (r *BookingGormRepository) GetEventTypeByID(
	ctx context.Context,
	id uint,
) (*models.EventType, error) {

	var et models.EventType
	if err := r.db.WithContext(ctx).
		Preload("Schedule").
		First(&et, id).Error; err != nil {
		return nil, err
	}
	return &et, nil
}

func (r *BookingGormRepository) GetEventTypeBySlug(
	ctx context.Context,
	slug string,
) (*models.EventType, error) {

	var et models.EventType
	if err := r.db.WithContext(ctx).
		Preload("Schedule").
		Where("slug = ?", slug).
		First(&et).Error; err != nil {
		return nil, err
	}
	return &et, nil
}

// --------------------------------------------------
// Availability
// --------------------------------------------------

func (r *BookingGormRepository) ListWeeklyRules(
	ctx context.Context,
	et *models.EventType,
) ([]models.WeeklyRule, error) {

	q := r.db.WithContext(ctx).Order("weekday ASC, start_time ASC")

	if et.ScheduleID != nil {
		q = q.Where("schedule_id = ?", *et.ScheduleID)
	} else {
		q = q.Where("event_type_id = ?", et.ID)
	}

	var rules []models.WeeklyRule
	if err := q.Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *BookingGormRepository) GetDateOverride(
	ctx context.Context,
	eventTypeID uint,
	date string,
) (*models.DateOverride, error) {

	var ov models.DateOverride
	err := r.db.WithContext(ctx).
		Where("event_type_id = ? AND date = ?", eventTypeID, date).
		First(&ov).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ov, nil
}

func (r *BookingGormRepository) ListDateOverrides(
	ctx context.Context,
	eventTypeID uint,
) ([]models.DateOverride, error) {

	var overrides []models.DateOverride
	if err := r.db.WithContext(ctx).
		Where("event_type_id = ?", eventTypeID).
		Order("date ASC").
		Find(&overrides).Error; err != nil {
		return nil, err
	}
	return overrides, nil
}

// busyMargin widens the query range so bookings whose buffers spill across
// the requested bounds are still picked up.
const busyMargin = 24 * time.Hour

func (r *BookingGormRepository) ListBusyIntervals(
	ctx context.Context,
	hostID uint,
	from time.Time,
	to time.Time,
) ([]domain.Busy, error) {

	q := r.db.WithContext(ctx).
		Preload("EventType").
		Where(
			"host_id = ? AND status IN ? AND start_time < ? AND end_time > ?",
			hostID,
			[]string{string(domain.StatusPending), string(domain.StatusConfirmed)},
			to.Add(busyMargin),
			from.Add(-busyMargin),
		).
		Order("start_time ASC")

	// sqlite (tests) has no row locks; its writers serialize anyway
	if r.inTx && r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var bookings []models.Booking
	if err := q.Find(&bookings).Error; err != nil {
		return nil, err
	}

	busy := make([]domain.Busy, 0, len(bookings))
	for _, b := range bookings {
		busy = append(busy, domain.Busy{
			Start: b.StartTime.Add(-time.Duration(b.EventType.BufferBeforeMin) * time.Minute),
			End:   b.EndTime.Add(time.Duration(b.EventType.BufferAfterMin) * time.Minute),
		})
	}
	return busy, nil
}

// --------------------------------------------------
// Bookings
// --------------------------------------------------

func (r *BookingGormRepository) CreateBooking(
	ctx context.Context,
	b *models.Booking,
) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *BookingGormRepository) GetBookingByID(
	ctx context.Context,
	id uint,
) (*models.Booking, error) {

	var b models.Booking
	if err := r.db.WithContext(ctx).
		Preload("EventType").
		First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingGormRepository) GetBookingByCancelToken(
	ctx context.Context,
	token string,
) (*models.Booking, error) {

	var b models.Booking
	if err := r.db.WithContext(ctx).
		Preload("EventType").
		Where("cancel_token = ?", token).
		First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingGormRepository) UpdateBooking(
	ctx context.Context,
	b *models.Booking,
) error {
	return r.db.WithContext(ctx).Save(b).Error
}

// --------------------------------------------------
// Hosts
// --------------------------------------------------

func (r *BookingGormRepository) GetHostByID(
	ctx context.Context,
	id uint,
) (*models.User, error) {

	var u models.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// Compile-time check
var _ domain.Repository = (*BookingGormRepository)(nil)
