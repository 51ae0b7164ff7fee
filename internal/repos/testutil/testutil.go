package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yungbote/banditserve-backend/internal/types"
)

// NewTestDB opens a fresh in-memory SQLite database with all tables
// migrated. Each call gets its own database, so tests stay independent.
func NewTestDB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		tb.Fatalf("failed to open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("failed to get sql db: %v", err)
	}
	// Keep the shared in-memory database alive for the whole test.
	sqlDB.SetMaxIdleConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&types.User{},
		&types.ModelParameters{},
		&types.Action{},
		&types.StudyData{},
		&types.UpdateRequest{},
	); err != nil {
		tb.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

func SeedUser(tb testing.TB, ctx context.Context, db *gorm.DB, userID string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedModelParameters(tb testing.TB, ctx context.Context, db *gorm.DB, probability float64, createdAt time.Time) *types.ModelParameters {
	tb.Helper()
	mp := &types.ModelParameters{
		ID:                  uuid.New(),
		ProbabilityOfAction: probability,
		CreatedAt:           createdAt,
	}
	if err := db.WithContext(ctx).Create(mp).Error; err != nil {
		tb.Fatalf("seed model parameters: %v", err)
	}
	return mp
}
