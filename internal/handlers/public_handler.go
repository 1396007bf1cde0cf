package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	domain "github.com/BruksfildServices01/portal-scheduler/internal/domain/booking"
	"github.com/BruksfildServices01/portal-scheduler/internal/httperr"
	"github.com/BruksfildServices01/portal-scheduler/internal/models"
	usecase "github.com/BruksfildServices01/portal-scheduler/internal/usecase/booking"
)

// ======================================================
// HANDLER
// ======================================================

// PublicHandler serves the guest-facing booking pages: no auth, event types
// addressed by slug.
type PublicHandler struct {
	repo   domain.Repository
	dates  *usecase.ListDates
	slots  *usecase.ListSlots
	create *usecase.CreateBooking
	cancel *usecase.CancelBooking
}

func NewPublicHandler(
	repo domain.Repository,
	dates *usecase.ListDates,
	slots *usecase.ListSlots,
	create *usecase.CreateBooking,
	cancel *usecase.CancelBooking,
) *PublicHandler {
	return &PublicHandler{
		repo:   repo,
		dates:  dates,
		slots:  slots,
		create: create,
		cancel: cancel,
	}
}

// ======================================================
// REQUESTS
// ======================================================

type PublicBookingRequest struct {
	GuestName  string `json:"guest_name" binding:"required"`
	GuestEmail string `json:"guest_email" binding:"required,email"`
	Date       string `json:"date" binding:"required"`
	Time       string `json:"time" binding:"required"`
	Notes      string `json:"notes"`
}

// ======================================================
// HANDLERS
// ======================================================

func (h *PublicHandler) GetEventType(c *gin.Context) {
	et, ok := h.bySlug(c)
	if !ok {
		return
	}

	host, err := h.repo.GetHostByID(c.Request.Context(), et.HostID)
	if err != nil {
		httperr.Internal(c, "host_not_found", "Host not found.")
		return
	}

	// public projection only: no buffers, no reminder settings
	c.JSON(200, gin.H{
		"title":              et.Title,
		"slug":               et.Slug,
		"description":        et.Description,
		"duration_min":       et.DurationMin,
		"location_kind":      et.LocationKind,
		"max_days_in_future": et.MaxDaysInFuture,
		"host_name":          host.Name,
	})
}

func (h *PublicHandler) ListDates(c *gin.Context) {
	et, ok := h.bySlug(c)
	if !ok {
		return
	}

	year, _ := strconv.Atoi(c.Query("year"))
	month, _ := strconv.Atoi(c.Query("month"))

	dates, err := h.dates.Execute(c.Request.Context(), et.ID, year, month)
	if err != nil {
		writeBusinessError(c, err)
		return
	}

	c.JSON(200, gin.H{"dates": dates})
}

func (h *PublicHandler) ListSlots(c *gin.Context) {
	et, ok := h.bySlug(c)
	if !ok {
		return
	}

	date := c.Query("date")
	if date == "" {
		httperr.BadRequest(c, "missing_date", "Query parameter date is required.")
		return
	}

	slots, err := h.slots.Execute(c.Request.Context(), et.ID, date)
	if err != nil {
		writeBusinessError(c, err)
		return
	}

	c.JSON(200, gin.H{"slots": slots})
}

func (h *PublicHandler) CreateBooking(c *gin.Context) {
	et, ok := h.bySlug(c)
	if !ok {
		return
	}

	var req PublicBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid booking data.")
		return
	}

	b, err := h.create.Execute(c.Request.Context(), usecase.CreateBookingInput{
		EventTypeID: et.ID,
		GuestName:   req.GuestName,
		GuestEmail:  req.GuestEmail,
		Date:        req.Date,
		Time:        req.Time,
		Notes:       req.Notes,
	})
	if err != nil {
		writeBusinessError(c, err)
		return
	}

	c.JSON(201, gin.H{
		"booking": gin.H{
			"id":           b.ID,
			"start_time":   b.StartTime,
			"end_time":     b.EndTime,
			"status":       b.Status,
			"meeting_link": b.MeetingLink,
		},
		// lets the guest cancel without an account
		"cancel_token": b.CancelToken,
	})
}

func (h *PublicHandler) CancelByToken(c *gin.Context) {
	token := c.Param("token")

	var req CancelRequest
	_ = c.ShouldBindJSON(&req)

	b, err := h.cancel.ExecuteByToken(c.Request.Context(), token, req.Reason)
	if err != nil {
		writeBusinessError(c, err)
		return
	}

	c.JSON(200, gin.H{
		"id":     b.ID,
		"status": b.Status,
	})
}

// ======================================================
// HELPERS
// ======================================================

func (h *PublicHandler) bySlug(c *gin.Context) (*models.EventType, bool) {
	et, err := h.repo.GetEventTypeBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		httperr.NotFound(c, "event_type_not_found", "Event type not found.")
		return nil, false
	}
	return et, true
}
