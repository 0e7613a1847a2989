package storage

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/teragrab/teragrab/models"
)

// GormStore persists user records in MySQL. Chosen over the file store
// when a DSN is configured, e.g. when several bot workers share state.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore connects to MySQL with the given DSN and migrates the
// user_records table.
func NewGormStore(dsn string, logLevel string) (*GormStore, error) {
	gLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  toGormLogLevel(logLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: gLogger})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&models.UserRecord{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func toGormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.Info
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}

func (s *GormStore) Ensure(ctx context.Context, userID int64) error {
	rec := models.UserRecord{UserID: userID}
	// Insert-if-absent; an existing row is left untouched.
	res := s.db.WithContext(ctx).
		Where(models.UserRecord{UserID: userID}).
		FirstOrCreate(&rec)
	return res.Error
}

func (s *GormStore) Get(ctx context.Context, userID int64) (*models.UserRecord, error) {
	var rec models.UserRecord
	err := s.db.WithContext(ctx).First(&rec, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *GormStore) SetToken(ctx context.Context, userID int64, token string, expiry time.Time) error {
	if err := s.Ensure(ctx, userID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Model(&models.UserRecord{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{"token": token, "token_expiry": expiry, "updated_at": time.Now()}).
		Error
}

func (s *GormStore) ReserveSlot(ctx context.Context, userID int64, now time.Time, window time.Duration) (time.Duration, bool, error) {
	if err := s.Ensure(ctx, userID); err != nil {
		return 0, false, err
	}

	// Single conditional UPDATE carries the compare-and-set; the row
	// count tells us whether this request won the slot.
	cutoff := now.Add(-window)
	res := s.db.WithContext(ctx).
		Model(&models.UserRecord{}).
		Where("user_id = ? AND (last_request_at IS NULL OR last_request_at <= ?)", userID, cutoff).
		Updates(map[string]any{"last_request_at": now, "updated_at": now})
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected > 0 {
		return 0, true, nil
	}

	rec, err := s.Get(ctx, userID)
	if err != nil {
		return 0, false, err
	}
	if rec.LastRequestAt == nil {
		// Lost a race against a concurrent writer; treat as a full window.
		return window, false, nil
	}
	remaining := window - now.Sub(*rec.LastRequestAt)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, false, nil
}

func (s *GormStore) ListUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).
		Model(&models.UserRecord{}).
		Order("user_id").
		Pluck("user_id", &ids).
		Error
	return ids, err
}

func (s *GormStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.UserRecord{}).Count(&n).Error
	return n, err
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
