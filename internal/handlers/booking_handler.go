package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/portal-scheduler/internal/httperr"
	"github.com/BruksfildServices01/portal-scheduler/internal/httpresp"
	"github.com/BruksfildServices01/portal-scheduler/internal/middleware"
	"github.com/BruksfildServices01/portal-scheduler/internal/models"
	"github.com/BruksfildServices01/portal-scheduler/internal/timezone"
	usecase "github.com/BruksfildServices01/portal-scheduler/internal/usecase/booking"
)

// ======================================================
// HANDLER
// ======================================================

type BookingHandler struct {
	db      *gorm.DB
	confirm *usecase.ConfirmBooking
	cancel  *usecase.CancelBooking
}

func NewBookingHandler(
	db *gorm.DB,
	confirm *usecase.ConfirmBooking,
	cancel *usecase.CancelBooking,
) *BookingHandler {
	return &BookingHandler{
		db:      db,
		confirm: confirm,
		cancel:  cancel,
	}
}

// ======================================================
// REQUESTS
// ======================================================

type CancelRequest struct {
	Reason string `json:"reason"`
}

// ======================================================
// LIST
// ======================================================

// List returns the host's bookings for one date or a date range. With no
// filter it returns the upcoming two weeks.
func (h *BookingHandler) List(c *gin.Context) {
	hostID := c.MustGet(middleware.ContextUserID).(uint)

	var host models.User
	if err := h.db.First(&host, hostID).Error; err != nil {
		httperr.Internal(c, "host_not_found", "Account not found.")
		return
	}

	loc := timezone.Location(host.Timezone)

	var from, to time.Time
	switch {
	case c.Query("date") != "":
		day, err := parseDateIn(loc, c.Query("date"))
		if err != nil {
			httperr.BadRequest(c, "invalid_date", "Date must be YYYY-MM-DD.")
			return
		}
		from, to = day, day.AddDate(0, 0, 1)

	case c.Query("from") != "" && c.Query("to") != "":
		var err error
		from, err = parseDateIn(loc, c.Query("from"))
		if err == nil {
			to, err = parseDateIn(loc, c.Query("to"))
		}
		if err != nil || to.Before(from) {
			httperr.BadRequest(c, "invalid_range", "Range must be two YYYY-MM-DD dates.")
			return
		}
		to = to.AddDate(0, 0, 1)

	default:
		now := time.Now().In(loc)
		from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		to = from.AddDate(0, 0, 14)
	}

	q := h.db.
		Preload("EventType").
		Where("host_id = ? AND start_time >= ? AND start_time < ?", hostID, from, to)

	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var bookings []models.Booking
	if err := q.Order("start_time ASC").Find(&bookings).Error; err != nil {
		httperr.Internal(c, "booking_list_failed", "Could not list bookings.")
		return
	}

	httpresp.List(c, bookings)
}

func (h *BookingHandler) Get(c *gin.Context) {
	hostID := c.MustGet(middleware.ContextUserID).(uint)
	id, _ := strconv.Atoi(c.Param("id"))

	var b models.Booking
	if err := h.db.
		Preload("EventType").
		Where("id = ? AND host_id = ?", id, hostID).
		First(&b).Error; err != nil {

		httperr.NotFound(c, "booking_not_found", "Booking not found.")
		return
	}

	c.JSON(200, b)
}

// ======================================================
// STATE CHANGES
// ======================================================

func (h *BookingHandler) Confirm(c *gin.Context) {
	hostID := c.MustGet(middleware.ContextUserID).(uint)
	id, _ := strconv.Atoi(c.Param("id"))

	b, err := h.confirm.Execute(c.Request.Context(), hostID, uint(id))
	if err != nil {
		writeBusinessError(c, err)
		return
	}

	c.JSON(200, b)
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	hostID := c.MustGet(middleware.ContextUserID).(uint)
	role, _ := c.MustGet(middleware.ContextUserRole).(string)
	id, _ := strconv.Atoi(c.Param("id"))

	var req CancelRequest
	_ = c.ShouldBindJSON(&req)

	b, err := h.cancel.Execute(c.Request.Context(), usecase.CancelBookingInput{
		BookingID:   uint(id),
		ActorUserID: hostID,
		ActorRole:   role,
		Reason:      req.Reason,
	})
	if err != nil {
		writeBusinessError(c, err)
		return
	}

	c.JSON(200, b)
}

// ======================================================
// ERROR MAPPING
// ======================================================

// writeBusinessError maps use case errors onto HTTP statuses; anything
// without a business code is a 500.
func writeBusinessError(c *gin.Context, err error) {
	var be httperr.BusinessError
	if !errors.As(err, &be) {
		httperr.Internal(c, "internal_error", "Something went wrong.")
		return
	}

	switch be.Code {
	case "booking_not_found", "event_type_not_found", "override_not_found":
		httperr.NotFound(c, be.Code, "Not found.")
	case "slot_conflict":
		httperr.Conflict(c, be.Code, "The slot is no longer available.")
	case "not_allowed":
		httperr.Forbidden(c, be.Code, "Not allowed.")
	case "sync_in_progress":
		httperr.Conflict(c, be.Code, "A sync is already running.")
	default:
		httperr.BadRequest(c, be.Code, "Request rejected.")
	}
}
