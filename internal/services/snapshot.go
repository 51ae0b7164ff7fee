package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/banditserve-backend/internal/logger"
	"github.com/yungbote/banditserve-backend/internal/repos"
)

// SnapshotService archives every table as one timestamped JSON document
// before a model update runs. Snapshots are best-effort: the orchestrator
// logs failures and carries on.
type SnapshotService interface {
	Snapshot(ctx context.Context) (string, error)
}

type snapshotService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	actionRepo    repos.ActionRepo
	studyDataRepo repos.StudyDataRepo
	paramsRepo    repos.ModelParametersRepo
	updateRepo    repos.UpdateRequestRepo
	bucket        BucketService
	localDir      string
}

// NewSnapshotService writes to the bucket when one is configured, otherwise
// to localDir.
func NewSnapshotService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	actionRepo repos.ActionRepo,
	studyDataRepo repos.StudyDataRepo,
	paramsRepo repos.ModelParametersRepo,
	updateRepo repos.UpdateRequestRepo,
	bucket BucketService,
	localDir string,
) SnapshotService {
	serviceLog := baseLog.With("service", "SnapshotService")
	return &snapshotService{
		db:            db,
		log:           serviceLog,
		userRepo:      userRepo,
		actionRepo:    actionRepo,
		studyDataRepo: studyDataRepo,
		paramsRepo:    paramsRepo,
		updateRepo:    updateRepo,
		bucket:        bucket,
		localDir:      localDir,
	}
}

func (ss *snapshotService) Snapshot(ctx context.Context) (string, error) {
	var export struct {
		TakenAt         time.Time `json:"taken_at"`
		Users           any       `json:"users"`
		Actions         any       `json:"actions"`
		StudyData       any       `json:"study_data"`
		ModelParameters any       `json:"model_parameters"`
		UpdateRequests  any       `json:"update_requests"`
	}
	export.TakenAt = time.Now().UTC()

	// One transaction so all tables come from the same committed view.
	err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users, err := ss.userRepo.ListAll(ctx, tx)
		if err != nil {
			return fmt.Errorf("failed to export users: %w", err)
		}
		actions, err := ss.actionRepo.ListAll(ctx, tx)
		if err != nil {
			return fmt.Errorf("failed to export actions: %w", err)
		}
		studyData, err := ss.studyDataRepo.ListAll(ctx, tx)
		if err != nil {
			return fmt.Errorf("failed to export study data: %w", err)
		}
		params, err := ss.paramsRepo.ListAll(ctx, tx)
		if err != nil {
			return fmt.Errorf("failed to export model parameters: %w", err)
		}
		updates, err := ss.updateRepo.ListAll(ctx, tx)
		if err != nil {
			return fmt.Errorf("failed to export update requests: %w", err)
		}
		export.Users = users
		export.Actions = actions
		export.StudyData = studyData
		export.ModelParameters = params
		export.UpdateRequests = updates
		return nil
	})
	if err != nil {
		return "", err
	}

	doc, err := json.Marshal(export)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	key := fmt.Sprintf("snapshots/%s.json", export.TakenAt.Format("20060102T150405.000000000Z"))
	if ss.bucket != nil {
		if err := ss.bucket.UploadFile(ctx, key, bytes.NewReader(doc)); err != nil {
			return "", err
		}
		ss.log.Info("Snapshot uploaded", "key", key, "bytes", len(doc))
		return key, nil
	}

	if err := os.MkdirAll(ss.localDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	path := filepath.Join(ss.localDir, filepath.Base(key))
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot file: %w", err)
	}
	ss.log.Info("Snapshot written", "path", path, "bytes", len(doc))
	return path, nil
}
