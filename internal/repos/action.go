package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/banditserve-backend/internal/logger"
	"github.com/yungbote/banditserve-backend/internal/types"
)

type ActionRepo interface {
	// Insert persists the decision record with insert-if-absent semantics
	// on (user_id, decision_idx). Returns false when a row already held the
	// key, in which case nothing was written.
	Insert(ctx context.Context, tx *gorm.DB, action *types.Action) (bool, error)
	Exists(ctx context.Context, tx *gorm.DB, userID string, decisionIdx int) (bool, error)
	GetByKey(ctx context.Context, tx *gorm.DB, userID string, decisionIdx int) (*types.Action, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Action, error)
}

type actionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActionRepo(db *gorm.DB, baseLog *logger.Logger) ActionRepo {
	repoLog := baseLog.With("repo", "ActionRepo")
	return &actionRepo{db: db, log: repoLog}
}

func (ar *actionRepo) Insert(ctx context.Context, tx *gorm.DB, action *types.Action) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	res := transaction.WithContext(ctx).
		Clauses(onConflictDoNothing("user_id", "decision_idx")).
		Create(action)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (ar *actionRepo) Exists(ctx context.Context, tx *gorm.DB, userID string, decisionIdx int) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Action{}).
		Where("user_id = ? AND decision_idx = ?", userID, decisionIdx).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (ar *actionRepo) GetByKey(ctx context.Context, tx *gorm.DB, userID string, decisionIdx int) (*types.Action, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var result types.Action
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND decision_idx = ?", userID, decisionIdx).
		First(&result).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (ar *actionRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Action, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var results []*types.Action
	if err := transaction.WithContext(ctx).
		Order("timestamp ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
