package db

import (
	"log"
	"time"

	"github.com/BruksfildServices01/portal-scheduler/internal/config"
	"github.com/BruksfildServices01/portal-scheduler/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func NewDB(cfg *config.Config) *gorm.DB {
	db, err := gorm.Open(postgres.Open(cfg.DBUrl), &gorm.Config{
		PrepareStmt: true,
	})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := Migrate(db); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	// Backstop for raw interval overlap: two active bookings with
	// intersecting [start, end) for one host can never both commit.
	// Buffer-widened conflicts are serialized by the per-host advisory
	// lock taken in the create transaction.
	db.Exec(`CREATE EXTENSION IF NOT EXISTS btree_gist`)
	db.Exec(`
        ALTER TABLE bookings
        ADD CONSTRAINT bookings_no_overlap
        EXCLUDE USING gist (
            host_id WITH =,
            tsrange(start_time, end_time) WITH &&
        )
        WHERE (status IN ('pending', 'confirmed'))
    `)

	return db
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.AvailabilitySchedule{},
		&models.WeeklyRule{},
		&models.EventType{},
		&models.DateOverride{},
		&models.Booking{},
		&models.CalendarConnection{},
		&models.CalendarEvent{},
		&models.SyncMapping{},
		&models.AuditLog{},
		&models.Notification{},
	)
}
