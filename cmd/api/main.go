package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/BruksfildServices01/portal-scheduler/internal/config"
	dbpkg "github.com/BruksfildServices01/portal-scheduler/internal/db"
	"github.com/BruksfildServices01/portal-scheduler/internal/middleware"
	"github.com/BruksfildServices01/portal-scheduler/internal/notify"
	"github.com/BruksfildServices01/portal-scheduler/internal/reminder"
	"github.com/BruksfildServices01/portal-scheduler/internal/routes"
)

func main() {

	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Load()
	db := dbpkg.NewDB(cfg)

	notifier := notify.NewDispatcher(db)

	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	routes.RegisterRoutes(r, db, cfg, notifier)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scanner := reminder.NewScanner(
		db,
		notifier,
		time.Duration(cfg.ReminderIntervalMin)*time.Minute,
		cfg.RemindGuest,
		cfg.RemindHost,
	)
	scanner.Start(ctx)
	defer scanner.Stop()

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: r,
	}

	go func() {
		log.Printf("Server running on %s", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}
