package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/portal-scheduler/internal/audit"
	"github.com/BruksfildServices01/portal-scheduler/internal/httperr"
	"github.com/BruksfildServices01/portal-scheduler/internal/httpresp"
	"github.com/BruksfildServices01/portal-scheduler/internal/middleware"
	"github.com/BruksfildServices01/portal-scheduler/internal/models"
)

// ======================================================
// HANDLER
// ======================================================

type EventTypeHandler struct {
	db    *gorm.DB
	audit *audit.Dispatcher
}

func NewEventTypeHandler(db *gorm.DB, auditor *audit.Dispatcher) *EventTypeHandler {
	return &EventTypeHandler{db: db, audit: auditor}
}

// ======================================================
// REQUESTS
// ======================================================

type EventTypeRequest struct {
	Title       string `json:"title" binding:"required"`
	Slug        string `json:"slug" binding:"required"`
	Description string `json:"description"`

	DurationMin     int `json:"duration_min" binding:"required,min=5,max=480"`
	BufferBeforeMin int `json:"buffer_before_min" binding:"min=0,max=120"`
	BufferAfterMin  int `json:"buffer_after_min" binding:"min=0,max=120"`
	MinNoticeHours  int `json:"min_notice_hours" binding:"min=0,max=720"`
	MaxDaysInFuture int `json:"max_days_in_future" binding:"min=1,max=365"`

	RequiresConfirmation bool `json:"requires_confirmation"`

	ReminderOffsetsMin string `json:"reminder_offsets_min"`
	LocationKind       string `json:"location_kind"`

	ScheduleID *uint `json:"schedule_id"`
}

func validLocationKind(kind string) bool {
	switch kind {
	case models.LocationInPerson, models.LocationPhone, models.LocationGoogleMeet:
		return true
	}
	return false
}

// ======================================================
// CRUD
// ======================================================

func (h *EventTypeHandler) List(c *gin.Context) {
	hostID := c.MustGet(middleware.ContextUserID).(uint)

	var types []models.EventType
	if err := h.db.
		Where("host_id = ?", hostID).
		Order("title ASC").
		Find(&types).Error; err != nil {

		httperr.Internal(c, "event_type_list_failed", "Could not list event types.")
		return
	}

	httpresp.List(c, types)
}

func (h *EventTypeHandler) Get(c *gin.Context) {
	hostID := c.MustGet(middleware.ContextUserID).(uint)
	id, _ := strconv.Atoi(c.Param("id"))

	var et models.EventType
	if err := h.db.
		Where("id = ? AND host_id = ?", id, hostID).
		First(&et).Error; err != nil {

		httperr.NotFound(c, "event_type_not_found", "Event type not found.")
		return
	}

	c.JSON(200, et)
}

func (h *EventTypeHandler) Create(c *gin.Context) {
	hostID := c.MustGet(middleware.ContextUserID).(uint)

	var req EventTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid event type data.")
		return
	}

	slug := strings.ToLower(strings.TrimSpace(req.Slug))

	var count int64
	h.db.Model(&models.EventType{}).Where("slug = ?", slug).Count(&count)
	if count > 0 {
		httperr.BadRequest(c, "slug_already_exists", "Slug already in use.")
		return
	}

	if req.LocationKind != "" && !validLocationKind(req.LocationKind) {
		httperr.BadRequest(c, "invalid_location_kind", "Unknown location kind.")
		return
	}

	if req.ScheduleID != nil && !h.ownsSchedule(hostID, *req.ScheduleID) {
		httperr.BadRequest(c, "schedule_not_found", "Schedule not found.")
		return
	}

	et := models.EventType{
		HostID:               hostID,
		Title:                req.Title,
		Slug:                 slug,
		Description:          req.Description,
		DurationMin:          req.DurationMin,
		BufferBeforeMin:      req.BufferBeforeMin,
		BufferAfterMin:       req.BufferAfterMin,
		MinNoticeHours:       req.MinNoticeHours,
		MaxDaysInFuture:      req.MaxDaysInFuture,
		RequiresConfirmation: req.RequiresConfirmation,
		LocationKind:         req.LocationKind,
		ScheduleID:           req.ScheduleID,
	}
	if req.ReminderOffsetsMin != "" {
		et.ReminderOffsetsMin = req.ReminderOffsetsMin
	}

	if err := h.db.Create(&et).Error; err != nil {
		httperr.Internal(c, "event_type_create_failed", "Could not create event type.")
		return
	}

	h.audit.Dispatch(audit.Event{
		UserID:   &hostID,
		Action:   "event_type_created",
		Entity:   "event_type",
		EntityID: &et.ID,
	})

	c.JSON(201, et)
}

func (h *EventTypeHandler) Update(c *gin.Context) {
	hostID := c.MustGet(middleware.ContextUserID).(uint)
	id, _ := strconv.Atoi(c.Param("id"))

	var et models.EventType
	if err := h.db.
		Where("id = ? AND host_id = ?", id, hostID).
		First(&et).Error; err != nil {

		httperr.NotFound(c, "event_type_not_found", "Event type not found.")
		return
	}

	var req EventTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid event type data.")
		return
	}

	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if slug != et.Slug {
		var count int64
		h.db.Model(&models.EventType{}).Where("slug = ? AND id <> ?", slug, et.ID).Count(&count)
		if count > 0 {
			httperr.BadRequest(c, "slug_already_exists", "Slug already in use.")
			return
		}
	}

	if req.LocationKind != "" && !validLocationKind(req.LocationKind) {
		httperr.BadRequest(c, "invalid_location_kind", "Unknown location kind.")
		return
	}

	if req.ScheduleID != nil && !h.ownsSchedule(hostID, *req.ScheduleID) {
		httperr.BadRequest(c, "schedule_not_found", "Schedule not found.")
		return
	}

	et.Title = req.Title
	et.Slug = slug
	et.Description = req.Description
	et.DurationMin = req.DurationMin
	et.BufferBeforeMin = req.BufferBeforeMin
	et.BufferAfterMin = req.BufferAfterMin
	et.MinNoticeHours = req.MinNoticeHours
	et.MaxDaysInFuture = req.MaxDaysInFuture
	et.RequiresConfirmation = req.RequiresConfirmation
	et.ScheduleID = req.ScheduleID
	if req.LocationKind != "" {
		et.LocationKind = req.LocationKind
	}
	if req.ReminderOffsetsMin != "" {
		et.ReminderOffsetsMin = req.ReminderOffsetsMin
	}

	if err := h.db.Save(&et).Error; err != nil {
		httperr.Internal(c, "event_type_update_failed", "Could not update event type.")
		return
	}

	h.audit.Dispatch(audit.Event{
		UserID:   &hostID,
		Action:   "event_type_updated",
		Entity:   "event_type",
		EntityID: &et.ID,
	})

	c.JSON(200, et)
}

func (h *EventTypeHandler) Delete(c *gin.Context) {
	hostID := c.MustGet(middleware.ContextUserID).(uint)
	id, _ := strconv.Atoi(c.Param("id"))

	var et models.EventType
	if err := h.db.
		Where("id = ? AND host_id = ?", id, hostID).
		First(&et).Error; err != nil {

		httperr.NotFound(c, "event_type_not_found", "Event type not found.")
		return
	}

	// Existing bookings keep their history; only future booking via this
	// type stops.
	if err := h.db.Delete(&et).Error; err != nil {
		httperr.Internal(c, "event_type_delete_failed", "Could not delete event type.")
		return
	}

	h.audit.Dispatch(audit.Event{
		UserID:   &hostID,
		Action:   "event_type_deleted",
		Entity:   "event_type",
		EntityID: &et.ID,
	})

	c.JSON(200, gin.H{"status": "ok"})
}

// ======================================================
// WEEKLY RULES (type-owned)
// ======================================================

type WeeklyRuleConfig struct {
	Weekday     int    `json:"weekday" binding:"min=0,max=6"`
	StartTime   string `json:"start_time" binding:"required"`
	EndTime     string `json:"end_time" binding:"required"`
	IsAvailable bool   `json:"is_available"`
}

type WeeklyRulesUpdateRequest struct {
	Rules []WeeklyRuleConfig `json:"rules" binding:"required"`
}

func (h *EventTypeHandler) GetRules(c *gin.Context) {
	hostID := c.MustGet(middleware.ContextUserID).(uint)
	id, _ := strconv.Atoi(c.Param("id"))

	var et models.EventType
	if err := h.db.
		Where("id = ? AND host_id = ?", id, hostID).
		First(&et).Error; err != nil {

		httperr.NotFound(c, "event_type_not_found", "Event type not found.")
		return
	}

	var rules []models.WeeklyRule
	if err := h.db.
		Where("event_type_id = ?", et.ID).
		Order("weekday ASC, start_time ASC").
		Find(&rules).Error; err != nil {

		httperr.Internal(c, "rules_list_failed", "Could not list rules.")
		return
	}

	c.JSON(200, rules)
}

// UpdateRules replaces all type-owned rules at once.
func (h *EventTypeHandler) UpdateRules(c *gin.Context) {
	hostID := c.MustGet(middleware.ContextUserID).(uint)
	id, _ := strconv.Atoi(c.Param("id"))

	var et models.EventType
	if err := h.db.
		Where("id = ? AND host_id = ?", id, hostID).
		First(&et).Error; err != nil {

		httperr.NotFound(c, "event_type_not_found", "Event type not found.")
		return
	}

	var req WeeklyRulesUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid rules data.")
		return
	}

	for _, r := range req.Rules {
		if !isValidHM(r.StartTime) || !isValidHM(r.EndTime) || r.StartTime >= r.EndTime {
			httperr.BadRequest(c, "invalid_rule_window", "Rule window times are invalid.")
			return
		}
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_type_id = ?", et.ID).
			Delete(&models.WeeklyRule{}).Error; err != nil {
			return err
		}

		var toCreate []models.WeeklyRule
		for _, r := range req.Rules {
			etID := et.ID
			toCreate = append(toCreate, models.WeeklyRule{
				EventTypeID: &etID,
				Weekday:     r.Weekday,
				StartTime:   r.StartTime,
				EndTime:     r.EndTime,
				IsAvailable: r.IsAvailable,
			})
		}

		if len(toCreate) > 0 {
			return tx.Create(&toCreate).Error
		}
		return nil
	})
	if err != nil {
		httperr.Internal(c, "rules_update_failed", "Could not save rules.")
		return
	}

	c.JSON(200, gin.H{"status": "ok"})
}

// ======================================================
// HELPERS
// ======================================================

func (h *EventTypeHandler) ownsSchedule(hostID, scheduleID uint) bool {
	var count int64
	h.db.Model(&models.AvailabilitySchedule{}).
		Where("id = ? AND host_id = ?", scheduleID, hostID).
		Count(&count)
	return count > 0
}
