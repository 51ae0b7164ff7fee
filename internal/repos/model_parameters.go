package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/banditserve-backend/internal/logger"
	"github.com/yungbote/banditserve-backend/internal/types"
)

type ModelParametersRepo interface {
	// Append adds a new immutable parameter snapshot. Rows are never
	// mutated or deleted.
	Append(ctx context.Context, tx *gorm.DB, params *types.ModelParameters) error
	// Latest returns the row with the maximum created_at, or nil when the
	// table is empty (system not yet initialized).
	Latest(ctx context.Context, tx *gorm.DB) (*types.ModelParameters, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.ModelParameters, error)
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
}

type modelParametersRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModelParametersRepo(db *gorm.DB, baseLog *logger.Logger) ModelParametersRepo {
	repoLog := baseLog.With("repo", "ModelParametersRepo")
	return &modelParametersRepo{db: db, log: repoLog}
}

func (mr *modelParametersRepo) Append(ctx context.Context, tx *gorm.DB, params *types.ModelParameters) error {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	return transaction.WithContext(ctx).Create(params).Error
}

func (mr *modelParametersRepo) Latest(ctx context.Context, tx *gorm.DB) (*types.ModelParameters, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var result types.ModelParameters
	err := transaction.WithContext(ctx).
		Order("created_at DESC").
		First(&result).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (mr *modelParametersRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.ModelParameters, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var results []*types.ModelParameters
	if err := transaction.WithContext(ctx).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (mr *modelParametersRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ModelParameters{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
