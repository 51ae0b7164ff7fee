package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/banditserve-backend/internal/logger"
	"github.com/yungbote/banditserve-backend/internal/types"
)

type StudyDataRepo interface {
	// Insert persists the outcome record with insert-if-absent semantics on
	// (user_id, decision_idx). Returns false when the decision index was
	// already reported.
	Insert(ctx context.Context, tx *gorm.DB, row *types.StudyData) (bool, error)
	Exists(ctx context.Context, tx *gorm.DB, userID string, decisionIdx int) (bool, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.StudyData, error)
}

type studyDataRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudyDataRepo(db *gorm.DB, baseLog *logger.Logger) StudyDataRepo {
	repoLog := baseLog.With("repo", "StudyDataRepo")
	return &studyDataRepo{db: db, log: repoLog}
}

func (sr *studyDataRepo) Insert(ctx context.Context, tx *gorm.DB, row *types.StudyData) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	res := transaction.WithContext(ctx).
		Clauses(onConflictDoNothing("user_id", "decision_idx")).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (sr *studyDataRepo) Exists(ctx context.Context, tx *gorm.DB, userID string, decisionIdx int) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.StudyData{}).
		Where("user_id = ? AND decision_idx = ?", userID, decisionIdx).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (sr *studyDataRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.StudyData, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []*types.StudyData
	if err := transaction.WithContext(ctx).
		Order("timestamp ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
