package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"github.com/BruksfildServices01/portal-scheduler/internal/audit"
	"github.com/BruksfildServices01/portal-scheduler/internal/config"
	"github.com/BruksfildServices01/portal-scheduler/internal/gcal"
	"github.com/BruksfildServices01/portal-scheduler/internal/httperr"
	"github.com/BruksfildServices01/portal-scheduler/internal/middleware"
)

// ======================================================
// HANDLER
// ======================================================

type CalendarHandler struct {
	config *config.Config
	oauth  *oauth2.Config
	sync   *gcal.Service
	audit  *audit.Dispatcher
}

func NewCalendarHandler(
	cfg *config.Config,
	oauth *oauth2.Config,
	sync *gcal.Service,
	auditor *audit.Dispatcher,
) *CalendarHandler {
	return &CalendarHandler{
		config: cfg,
		oauth:  oauth,
		sync:   sync,
		audit:  auditor,
	}
}

// ======================================================
// OAUTH FLOW
// ======================================================

// Connect hands out the Google consent URL carrying a signed state.
func (h *CalendarHandler) Connect(c *gin.Context) {
	if h.oauth == nil {
		httperr.BadRequest(c, "integration_not_configured", "Calendar integration is not configured.")
		return
	}

	hostID := c.MustGet(middleware.ContextUserID).(uint)

	state, err := gcal.SignState(h.config.StateSecret, hostID, time.Now())
	if err != nil {
		httperr.Internal(c, "state_sign_failed", "Could not start the connect flow.")
		return
	}

	c.JSON(200, gin.H{"auth_url": gcal.AuthURL(h.oauth, state)})
}

// Callback finishes the flow. It is unauthenticated; the signed state is
// what ties the code back to a host.
func (h *CalendarHandler) Callback(c *gin.Context) {
	if h.oauth == nil {
		httperr.BadRequest(c, "integration_not_configured", "Calendar integration is not configured.")
		return
	}

	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		httperr.BadRequest(c, "invalid_callback", "Missing code or state.")
		return
	}

	hostID, err := gcal.VerifyState(h.config.StateSecret, state)
	if err != nil {
		writeBusinessError(c, err)
		return
	}

	conn, err := h.sync.Connect(c.Request.Context(), hostID, code)
	if err != nil {
		writeBusinessError(c, err)
		return
	}

	h.audit.Dispatch(audit.Event{
		UserID:   &hostID,
		Action:   "calendar_connected",
		Entity:   "calendar_connection",
		EntityID: &conn.ID,
	})

	c.JSON(200, gin.H{
		"status":       "connected",
		"google_email": conn.GoogleEmail,
	})
}

func (h *CalendarHandler) Disconnect(c *gin.Context) {
	hostID := c.MustGet(middleware.ContextUserID).(uint)

	if err := h.sync.Disconnect(c.Request.Context(), hostID); err != nil {
		writeBusinessError(c, err)
		return
	}

	h.audit.Dispatch(audit.Event{
		UserID: &hostID,
		Action: "calendar_disconnected",
		Entity: "calendar_connection",
	})

	c.JSON(200, gin.H{"status": "disconnected"})
}

// ======================================================
// SYNC
// ======================================================

func (h *CalendarHandler) Status(c *gin.Context) {
	hostID := c.MustGet(middleware.ContextUserID).(uint)

	conn, err := h.sync.GetConnection(c.Request.Context(), hostID)
	if err != nil {
		if httperr.IsBusiness(err, "integration_not_configured") {
			c.JSON(200, gin.H{"connected": false})
			return
		}
		httperr.Internal(c, "status_failed", "Could not load calendar status.")
		return
	}

	c.JSON(200, gin.H{
		"connected":        true,
		"google_email":     conn.GoogleEmail,
		"sync_enabled":     conn.SyncEnabled,
		"last_sync_at":     conn.LastSyncAt,
		"last_sync_status": conn.LastSyncStatus,
		"last_sync_error":  conn.LastSyncError,
	})
}

func (h *CalendarHandler) SyncNow(c *gin.Context) {
	hostID := c.MustGet(middleware.ContextUserID).(uint)

	result, err := h.sync.FullSync(c.Request.Context(), hostID)
	if err != nil {
		writeBusinessError(c, err)
		return
	}

	h.audit.Dispatch(audit.Event{
		UserID: &hostID,
		Action: "calendar_synced",
		Entity: "calendar_connection",
	})

	c.JSON(200, result)
}
