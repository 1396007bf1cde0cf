package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BruksfildServices01/portal-scheduler/internal/httperr"
	"github.com/BruksfildServices01/portal-scheduler/internal/httpresp"
	"github.com/BruksfildServices01/portal-scheduler/internal/middleware"
	"github.com/BruksfildServices01/portal-scheduler/internal/models"
)

// ======================================================
// HANDLER
// ======================================================

type OverrideHandler struct {
	db *gorm.DB
}

func NewOverrideHandler(db *gorm.DB) *OverrideHandler {
	return &OverrideHandler{db: db}
}

// ======================================================
// REQUESTS
// ======================================================

type OverrideRequest struct {
	Date        string `json:"date" binding:"required"`
	IsAvailable bool   `json:"is_available"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Reason      string `json:"reason"`
}

// ======================================================
// HANDLERS
// ======================================================

func (h *OverrideHandler) List(c *gin.Context) {
	hostID := c.MustGet(middleware.ContextUserID).(uint)
	etID, _ := strconv.Atoi(c.Param("id"))

	if !h.ownsEventType(hostID, uint(etID)) {
		httperr.NotFound(c, "event_type_not_found", "Event type not found.")
		return
	}

	var overrides []models.DateOverride
	if err := h.db.
		Where("event_type_id = ?", etID).
		Order("date ASC").
		Find(&overrides).Error; err != nil {

		httperr.Internal(c, "override_list_failed", "Could not list overrides.")
		return
	}

	httpresp.List(c, overrides)
}

// Set upserts the override for one date; a second call for the same date
// replaces the first.
func (h *OverrideHandler) Set(c *gin.Context) {
	hostID := c.MustGet(middleware.ContextUserID).(uint)
	etID, _ := strconv.Atoi(c.Param("id"))

	if !h.ownsEventType(hostID, uint(etID)) {
		httperr.NotFound(c, "event_type_not_found", "Event type not found.")
		return
	}

	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid override data.")
		return
	}

	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		httperr.BadRequest(c, "invalid_date", "Date must be YYYY-MM-DD.")
		return
	}

	if req.StartTime != "" || req.EndTime != "" {
		if !isValidHM(req.StartTime) || !isValidHM(req.EndTime) || req.StartTime >= req.EndTime {
			httperr.BadRequest(c, "invalid_override_window", "Override times are invalid.")
			return
		}
	}

	override := models.DateOverride{
		EventTypeID: uint(etID),
		Date:        req.Date,
		IsAvailable: req.IsAvailable,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Reason:      req.Reason,
	}

	err := h.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "event_type_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"is_available", "start_time", "end_time", "reason", "updated_at",
		}),
	}).Create(&override).Error
	if err != nil {
		httperr.Internal(c, "override_save_failed", "Could not save override.")
		return
	}

	c.JSON(200, override)
}

func (h *OverrideHandler) Delete(c *gin.Context) {
	hostID := c.MustGet(middleware.ContextUserID).(uint)
	etID, _ := strconv.Atoi(c.Param("id"))
	date := c.Param("date")

	if !h.ownsEventType(hostID, uint(etID)) {
		httperr.NotFound(c, "event_type_not_found", "Event type not found.")
		return
	}

	res := h.db.
		Where("event_type_id = ? AND date = ?", etID, date).
		Delete(&models.DateOverride{})
	if res.Error != nil {
		httperr.Internal(c, "override_delete_failed", "Could not delete override.")
		return
	}
	if res.RowsAffected == 0 {
		httperr.NotFound(c, "override_not_found", "No override on that date.")
		return
	}

	c.JSON(200, gin.H{"status": "ok"})
}

// ======================================================
// HELPERS
// ======================================================

func (h *OverrideHandler) ownsEventType(hostID, eventTypeID uint) bool {
	var count int64
	h.db.Model(&models.EventType{}).
		Where("id = ? AND host_id = ?", eventTypeID, hostID).
		Count(&count)
	return count > 0
}
