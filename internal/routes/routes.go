package routes

import (
	"log"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/portal-scheduler/internal/audit"
	"github.com/BruksfildServices01/portal-scheduler/internal/config"
	"github.com/BruksfildServices01/portal-scheduler/internal/gcal"
	"github.com/BruksfildServices01/portal-scheduler/internal/handlers"
	infraRepo "github.com/BruksfildServices01/portal-scheduler/internal/infra/repository"
	"github.com/BruksfildServices01/portal-scheduler/internal/middleware"
	"github.com/BruksfildServices01/portal-scheduler/internal/notify"
	"github.com/BruksfildServices01/portal-scheduler/internal/synclock"
	ucBooking "github.com/BruksfildServices01/portal-scheduler/internal/usecase/booking"
)

func RegisterRoutes(
	r *gin.Engine,
	db *gorm.DB,
	cfg *config.Config,
	notifier notify.Sender,
) {

	// ======================================================
	// INFRA (SINGLETONS)
	// ======================================================
	bookingRepo := infraRepo.NewBookingGormRepository(db)

	auditLogger := audit.New(db)
	auditDispatcher := audit.NewDispatcher(auditLogger)

	var locker synclock.Locker
	if cfg.RedisURL != "" {
		redisLocker, err := synclock.NewRedisLocker(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis locker: %v", err)
		}
		locker = redisLocker
	} else {
		locker = synclock.NewMemoryLocker()
	}

	oauthCfg := gcal.OAuthConfig(cfg)
	remoteFactory := gcal.NewGoogleFactory(db, oauthCfg)
	syncService := gcal.NewService(db, oauthCfg, remoteFactory, locker)

	// only event types with a meet location hit the calendar at create time
	var meetLinker ucBooking.MeetLinker
	if cfg.GoogleConfigured() {
		meetLinker = syncService
	}

	// ======================================================
	// USE CASES — BOOKINGS
	// ======================================================
	createBookingUC := ucBooking.NewCreateBooking(
		bookingRepo,
		auditDispatcher,
		notifier,
		meetLinker,
	)

	confirmBookingUC := ucBooking.NewConfirmBooking(
		bookingRepo,
		auditDispatcher,
		notifier,
	)

	cancelBookingUC := ucBooking.NewCancelBooking(
		bookingRepo,
		auditDispatcher,
		notifier,
	)

	listSlotsUC := ucBooking.NewListSlots(bookingRepo)
	listDatesUC := ucBooking.NewListDates(bookingRepo)

	// ======================================================
	// HANDLERS
	// ======================================================
	authHandler := handlers.NewAuthHandler(db, cfg)
	meHandler := handlers.NewMeHandler(db)

	eventTypeHandler := handlers.NewEventTypeHandler(db, auditDispatcher)
	scheduleHandler := handlers.NewScheduleHandler(db)
	overrideHandler := handlers.NewOverrideHandler(db)

	bookingHandler := handlers.NewBookingHandler(db, confirmBookingUC, cancelBookingUC)

	publicHandler := handlers.NewPublicHandler(
		bookingRepo,
		listDatesUC,
		listSlotsUC,
		createBookingUC,
		cancelBookingUC,
	)

	calendarHandler := handlers.NewCalendarHandler(cfg, oauthCfg, syncService, auditDispatcher)
	auditLogsHandler := handlers.NewAuditLogsHandler(db)

	// ======================================================
	// API (JSON)
	// ======================================================
	api := r.Group("/api")
	{
		// ------------------------------
		// PUBLIC API
		// ------------------------------
		publicAPI := api.Group("/public")
		{
			publicAPI.GET("/:slug", publicHandler.GetEventType)
			publicAPI.GET("/:slug/dates", publicHandler.ListDates)
			publicAPI.GET("/:slug/slots", publicHandler.ListSlots)
			publicAPI.POST("/:slug/bookings", publicHandler.CreateBooking)

			publicAPI.POST("/bookings/cancel/:token", publicHandler.CancelByToken)
		}

		// the OAuth callback arrives from Google without a bearer token
		api.GET("/calendar/callback", calendarHandler.Callback)

		// ------------------------------
		// AUTH
		// ------------------------------
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)

		// ------------------------------
		// PRIVATE API
		// ------------------------------
		secured := api.Group("/")
		secured.Use(middleware.AuthMiddleware(cfg))
		{
			secured.GET("/me", meHandler.Get)
			secured.PATCH("/me", meHandler.Update)

			// ------------------------------
			// EVENT TYPES
			// ------------------------------
			secured.GET("/me/event-types", eventTypeHandler.List)
			secured.POST("/me/event-types", eventTypeHandler.Create)
			secured.GET("/me/event-types/:id", eventTypeHandler.Get)
			secured.PATCH("/me/event-types/:id", eventTypeHandler.Update)
			secured.DELETE("/me/event-types/:id", eventTypeHandler.Delete)

			secured.GET("/me/event-types/:id/rules", eventTypeHandler.GetRules)
			secured.PUT("/me/event-types/:id/rules", eventTypeHandler.UpdateRules)

			secured.GET("/me/event-types/:id/overrides", overrideHandler.List)
			secured.PUT("/me/event-types/:id/overrides", overrideHandler.Set)
			secured.DELETE("/me/event-types/:id/overrides/:date", overrideHandler.Delete)

			// ------------------------------
			// SCHEDULES
			// ------------------------------
			secured.GET("/me/schedules", scheduleHandler.List)
			secured.POST("/me/schedules", scheduleHandler.Create)
			secured.PATCH("/me/schedules/:id", scheduleHandler.Update)
			secured.DELETE("/me/schedules/:id", scheduleHandler.Delete)
			secured.PATCH("/me/schedules/:id/default", scheduleHandler.SetDefault)
			secured.PUT("/me/schedules/:id/rules", scheduleHandler.UpdateRules)

			// ------------------------------
			// BOOKINGS
			// ------------------------------
			secured.GET("/me/bookings", bookingHandler.List)
			secured.GET("/me/bookings/:id", bookingHandler.Get)
			secured.PATCH("/me/bookings/:id/confirm", bookingHandler.Confirm)
			secured.PATCH("/me/bookings/:id/cancel", bookingHandler.Cancel)

			// ------------------------------
			// CALENDAR
			// ------------------------------
			secured.POST("/me/calendar/connect", calendarHandler.Connect)
			secured.DELETE("/me/calendar", calendarHandler.Disconnect)
			secured.GET("/me/calendar/status", calendarHandler.Status)
			secured.POST("/me/calendar/sync", calendarHandler.SyncNow)

			secured.GET("/me/audit-logs", middleware.RequireRole("admin"), auditLogsHandler.List)
		}
	}
}
