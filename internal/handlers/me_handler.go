package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/portal-scheduler/internal/httperr"
	"github.com/BruksfildServices01/portal-scheduler/internal/middleware"
	"github.com/BruksfildServices01/portal-scheduler/internal/models"
	"github.com/BruksfildServices01/portal-scheduler/internal/timezone"
)

type MeHandler struct {
	db *gorm.DB
}

func NewMeHandler(db *gorm.DB) *MeHandler {
	return &MeHandler{db: db}
}

type UpdateMeRequest struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

func (h *MeHandler) Get(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uint)

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		httperr.NotFound(c, "user_not_found", "Account not found.")
		return
	}

	c.JSON(200, user)
}

func (h *MeHandler) Update(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uint)

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		httperr.NotFound(c, "user_not_found", "Account not found.")
		return
	}

	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid profile data.")
		return
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Timezone != "" {
		if !timezone.IsValid(req.Timezone) {
			httperr.BadRequest(c, "invalid_timezone", "Unknown timezone.")
			return
		}
		// slot math follows the profile timezone unless a schedule pins one
		user.Timezone = req.Timezone
	}

	if err := h.db.Save(&user).Error; err != nil {
		httperr.Internal(c, "profile_update_failed", "Could not update profile.")
		return
	}

	c.JSON(200, user)
}
