package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/banditserve-backend/internal/logger"
	"github.com/yungbote/banditserve-backend/internal/types"
)

type UpdateRequestRepo interface {
	Create(ctx context.Context, tx *gorm.DB, req *types.UpdateRequest) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.UpdateRequest, error)
	// MarkCompleted and MarkFailed only fire while the row is still in
	// processing, so a terminal status can never be overwritten. They
	// return false when the guard rejected the transition.
	MarkCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID, completedAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, completedAt time.Time, errorMessage string) (bool, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.UpdateRequest, error)
}

type updateRequestRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUpdateRequestRepo(db *gorm.DB, baseLog *logger.Logger) UpdateRequestRepo {
	repoLog := baseLog.With("repo", "UpdateRequestRepo")
	return &updateRequestRepo{db: db, log: repoLog}
}

func (rr *updateRequestRepo) Create(ctx context.Context, tx *gorm.DB, req *types.UpdateRequest) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	return transaction.WithContext(ctx).Create(req).Error
}

func (rr *updateRequestRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.UpdateRequest, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var result types.UpdateRequest
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (rr *updateRequestRepo) MarkCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID, completedAt time.Time) (bool, error) {
	return rr.markTerminal(ctx, tx, id, map[string]any{
		"status":       types.UpdateStatusCompleted,
		"completed_at": completedAt,
	})
}

func (rr *updateRequestRepo) MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, completedAt time.Time, errorMessage string) (bool, error) {
	return rr.markTerminal(ctx, tx, id, map[string]any{
		"status":        types.UpdateStatusFailed,
		"completed_at":  completedAt,
		"error_message": errorMessage,
	})
}

func (rr *updateRequestRepo) markTerminal(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.UpdateRequest{}).
		Where("id = ? AND status = ?", id, types.UpdateStatusProcessing).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (rr *updateRequestRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.UpdateRequest, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var results []*types.UpdateRequest
	if err := transaction.WithContext(ctx).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
