package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/portal-scheduler/internal/httperr"
	"github.com/BruksfildServices01/portal-scheduler/internal/httpresp"
	"github.com/BruksfildServices01/portal-scheduler/internal/middleware"
	"github.com/BruksfildServices01/portal-scheduler/internal/models"
	"github.com/BruksfildServices01/portal-scheduler/internal/timezone"
)

// ======================================================
// HANDLER
// ======================================================

type ScheduleHandler struct {
	db *gorm.DB
}

func NewScheduleHandler(db *gorm.DB) *ScheduleHandler {
	return &ScheduleHandler{db: db}
}

// ======================================================
// REQUESTS
// ======================================================

type ScheduleRequest struct {
	Name     string `json:"name" binding:"required"`
	Timezone string `json:"timezone"`
}

type ScheduleRulesUpdateRequest struct {
	Rules []WeeklyRuleConfig `json:"rules" binding:"required"`
}

// ======================================================
// CRUD
// ======================================================

func (h *ScheduleHandler) List(c *gin.Context) {
	hostID := c.MustGet(middleware.ContextUserID).(uint)

	var schedules []models.AvailabilitySchedule
	if err := h.db.
		Preload("Rules").
		Where("host_id = ?", hostID).
		Order("name ASC").
		Find(&schedules).Error; err != nil {

		httperr.Internal(c, "schedule_list_failed", "Could not list schedules.")
		return
	}

	httpresp.List(c, schedules)
}

func (h *ScheduleHandler) Create(c *gin.Context) {
	hostID := c.MustGet(middleware.ContextUserID).(uint)

	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid schedule data.")
		return
	}

	if req.Timezone != "" && !timezone.IsValid(req.Timezone) {
		httperr.BadRequest(c, "invalid_timezone", "Unknown timezone.")
		return
	}

	var count int64
	h.db.Model(&models.AvailabilitySchedule{}).Where("host_id = ?", hostID).Count(&count)

	s := models.AvailabilitySchedule{
		HostID:   hostID,
		Name:     req.Name,
		Timezone: req.Timezone,
		// the host's first schedule is the default one
		IsDefault: count == 0,
	}

	if err := h.db.Create(&s).Error; err != nil {
		httperr.Internal(c, "schedule_create_failed", "Could not create schedule.")
		return
	}

	c.JSON(201, s)
}

func (h *ScheduleHandler) Update(c *gin.Context) {
	hostID := c.MustGet(middleware.ContextUserID).(uint)
	id, _ := strconv.Atoi(c.Param("id"))

	var s models.AvailabilitySchedule
	if err := h.db.
		Where("id = ? AND host_id = ?", id, hostID).
		First(&s).Error; err != nil {

		httperr.NotFound(c, "schedule_not_found", "Schedule not found.")
		return
	}

	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid schedule data.")
		return
	}

	if req.Timezone != "" && !timezone.IsValid(req.Timezone) {
		httperr.BadRequest(c, "invalid_timezone", "Unknown timezone.")
		return
	}

	s.Name = req.Name
	s.Timezone = req.Timezone

	if err := h.db.Save(&s).Error; err != nil {
		httperr.Internal(c, "schedule_update_failed", "Could not update schedule.")
		return
	}

	c.JSON(200, s)
}

func (h *ScheduleHandler) Delete(c *gin.Context) {
	hostID := c.MustGet(middleware.ContextUserID).(uint)
	id, _ := strconv.Atoi(c.Param("id"))

	var s models.AvailabilitySchedule
	if err := h.db.
		Where("id = ? AND host_id = ?", id, hostID).
		First(&s).Error; err != nil {

		httperr.NotFound(c, "schedule_not_found", "Schedule not found.")
		return
	}

	var inUse int64
	h.db.Model(&models.EventType{}).Where("schedule_id = ?", s.ID).Count(&inUse)
	if inUse > 0 {
		httperr.BadRequest(c, "schedule_in_use", "Event types still use this schedule.")
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("schedule_id = ?", s.ID).
			Delete(&models.WeeklyRule{}).Error; err != nil {
			return err
		}
		return tx.Delete(&s).Error
	})
	if err != nil {
		httperr.Internal(c, "schedule_delete_failed", "Could not delete schedule.")
		return
	}

	c.JSON(200, gin.H{"status": "ok"})
}

// SetDefault flips the default flag to one schedule; every other schedule of
// the host loses it in the same transaction.
func (h *ScheduleHandler) SetDefault(c *gin.Context) {
	hostID := c.MustGet(middleware.ContextUserID).(uint)
	id, _ := strconv.Atoi(c.Param("id"))

	var s models.AvailabilitySchedule
	if err := h.db.
		Where("id = ? AND host_id = ?", id, hostID).
		First(&s).Error; err != nil {

		httperr.NotFound(c, "schedule_not_found", "Schedule not found.")
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.AvailabilitySchedule{}).
			Where("host_id = ?", hostID).
			Update("is_default", false).Error; err != nil {
			return err
		}
		return tx.Model(&s).Update("is_default", true).Error
	})
	if err != nil {
		httperr.Internal(c, "schedule_default_failed", "Could not set default schedule.")
		return
	}

	c.JSON(200, gin.H{"status": "ok"})
}

// ======================================================
// WEEKLY RULES (schedule-owned)
// ======================================================

// UpdateRules replaces all rules of the schedule at once.
func (h *ScheduleHandler) UpdateRules(c *gin.Context) {
	hostID := c.MustGet(middleware.ContextUserID).(uint)
	id, _ := strconv.Atoi(c.Param("id"))

	var s models.AvailabilitySchedule
	if err := h.db.
		Where("id = ? AND host_id = ?", id, hostID).
		First(&s).Error; err != nil {

		httperr.NotFound(c, "schedule_not_found", "Schedule not found.")
		return
	}

	var req ScheduleRulesUpdateRequest
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
		if err := tx.Where("schedule_id = ?", s.ID).
			Delete(&models.WeeklyRule{}).Error; err != nil {
			return err
		}

		var toCreate []models.WeeklyRule
		for _, r := range req.Rules {
			sID := s.ID
			toCreate = append(toCreate, models.WeeklyRule{
				ScheduleID:  &sID,
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
