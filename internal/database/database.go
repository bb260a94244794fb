package database

import (
	"log"
	"os"
	"time"

	"github.com/mitch8020/guess-who-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the database connection and runs migrations.
func Connect(dsn string) *gorm.DB {
	// Configure GORM logger
	customLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: customLogger,
		// Duplicate-key races (membership, active-match index) must
		// surface as gorm.ErrDuplicatedKey, not raw driver errors.
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Database connection established.")

	if err := Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Println("Database migrated successfully.")
	return db
}

// Migrate creates or updates the schema for all record types.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Room{},
		&models.RoomMember{},
		&models.Invite{},
		&models.RoomImage{},
		&models.Match{},
		&models.MatchParticipant{},
		&models.MatchAction{},
	)
}
