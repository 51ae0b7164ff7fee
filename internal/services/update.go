package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"

	"github.com/yungbote/banditserve-backend/internal/algorithm"
	"github.com/yungbote/banditserve-backend/internal/apierr"
	"github.com/yungbote/banditserve-backend/internal/logger"
	"github.com/yungbote/banditserve-backend/internal/repos"
	"github.com/yungbote/banditserve-backend/internal/types"
	"github.com/yungbote/banditserve-backend/internal/utils"
)

type UpdateRequestInput struct {
	Timestamp   *string `json:"timestamp"`
	CallbackURL *string `json:"callback_url"`
}

type UpdateService interface {
	// Request accepts the refit synchronously: it persists the request in
	// processing state, hands the work to the background pool and returns
	// the identifier without waiting.
	Request(ctx context.Context, req UpdateRequestInput) (*types.UpdateRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*types.UpdateRequest, error)
	// Wait blocks until every in-flight update has reached a terminal
	// state. Used on shutdown and by tests.
	Wait()
}

type updateService struct {
	db              *gorm.DB
	log             *logger.Logger
	paramsRepo      repos.ModelParametersRepo
	studyDataRepo   repos.StudyDataRepo
	updateRepo      repos.UpdateRequestRepo
	alg             algorithm.Algorithm
	snapshot        SnapshotService
	notifier        UpdateNotifier
	clock           *utils.MonotonicClock
	pool            *semaphore.Weighted
	wg              sync.WaitGroup
	snapshotEnabled bool
}

func NewUpdateService(
	db *gorm.DB,
	baseLog *logger.Logger,
	paramsRepo repos.ModelParametersRepo,
	studyDataRepo repos.StudyDataRepo,
	updateRepo repos.UpdateRequestRepo,
	alg algorithm.Algorithm,
	snapshot SnapshotService,
	notifier UpdateNotifier,
	clock *utils.MonotonicClock,
	workers int64,
	snapshotEnabled bool,
) UpdateService {
	serviceLog := baseLog.With("service", "UpdateService")
	if workers < 1 {
		workers = 1
	}
	return &updateService{
		db:              db,
		log:             serviceLog,
		paramsRepo:      paramsRepo,
		studyDataRepo:   studyDataRepo,
		updateRepo:      updateRepo,
		alg:             alg,
		snapshot:        snapshot,
		notifier:        notifier,
		clock:           clock,
		pool:            semaphore.NewWeighted(workers),
		snapshotEnabled: snapshotEnabled,
	}
}

func (us *updateService) validate(req UpdateRequestInput) (string, string, error) {
	if req.Timestamp == nil || *req.Timestamp == "" {
		return "", "", apierr.Validation("timestamp is required.")
	}
	if req.CallbackURL == nil || *req.CallbackURL == "" {
		return "", "", apierr.Validation("callback_url is required.")
	}
	parsed, err := url.Parse(*req.CallbackURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", "", apierr.Validation("callback_url must be a valid http or https URL.")
	}
	return *req.Timestamp, *req.CallbackURL, nil
}

func (us *updateService) Request(ctx context.Context, req UpdateRequestInput) (*types.UpdateRequest, error) {
	timestamp, callbackURL, err := us.validate(req)
	if err != nil {
		return nil, err
	}

	row := &types.UpdateRequest{
		ID:               uuid.New(),
		CallbackURL:      callbackURL,
		Status:           types.UpdateStatusProcessing,
		RequestTimestamp: timestamp,
		CreatedAt:        time.Now().UTC(),
	}
	if err := us.updateRepo.Create(ctx, nil, row); err != nil {
		us.log.Error("Failed to create update request", "error", err)
		return nil, apierr.Internal(err)
	}
	us.log.Info("Update requested", "update_id", row.ID)

	// The refit runs detached from the request: the caller gets the id
	// back immediately while a pool slot is awaited in the background.
	us.wg.Add(1)
	go func() {
		defer us.wg.Done()
		bg := context.Background()
		if err := us.pool.Acquire(bg, 1); err != nil {
			us.log.Error("Failed to acquire update worker slot", "update_id", row.ID, "error", err)
			return
		}
		defer us.pool.Release(1)
		us.process(bg, row)
	}()

	return row, nil
}

func (us *updateService) Get(ctx context.Context, id uuid.UUID) (*types.UpdateRequest, error) {
	row, err := us.updateRepo.GetByID(ctx, nil, id)
	if err != nil {
		us.log.Error("Failed to load update request", "update_id", id, "error", err)
		return nil, apierr.Internal(err)
	}
	if row == nil {
		return nil, apierr.NotFound("Update request not found.")
	}
	return row, nil
}

func (us *updateService) Wait() {
	us.wg.Wait()
}

// process is the background task for one update request. It owns its error
// boundary: every exit path leaves the row terminal and attempts the
// callback exactly once per terminal transition.
func (us *updateService) process(ctx context.Context, row *types.UpdateRequest) {
	defer func() {
		if r := recover(); r != nil {
			us.log.Error("Update panicked", "update_id", row.ID, "panic", r)
			us.fail(ctx, row, fmt.Sprintf("update panicked: %v", r))
		}
	}()

	if us.snapshotEnabled && us.snapshot != nil {
		if key, err := us.snapshot.Snapshot(ctx); err != nil {
			us.log.Warn("Pre-update snapshot failed, continuing", "update_id", row.ID, "error", err)
		} else {
			us.log.Info("Pre-update snapshot archived", "update_id", row.ID, "key", key)
		}
	}

	current, err := us.paramsRepo.Latest(ctx, nil)
	if err != nil {
		us.fail(ctx, row, fmt.Sprintf("failed to load model parameters: %v", err))
		return
	}
	if current == nil {
		us.fail(ctx, row, "Model parameters not found.")
		return
	}

	dataset, err := us.loadDataset(ctx)
	if err != nil {
		us.fail(ctx, row, fmt.Sprintf("failed to load study data: %v", err))
		return
	}

	newParams, err := us.alg.Update(algorithm.Parameters{
		ProbabilityOfAction: current.ProbabilityOfAction,
	}, dataset)
	if err != nil {
		us.fail(ctx, row, err.Error())
		return
	}

	completedAt := time.Now().UTC()
	var transitioned bool
	err = us.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := us.paramsRepo.Append(ctx, tx, &types.ModelParameters{
			ID:                  uuid.New(),
			ProbabilityOfAction: newParams.ProbabilityOfAction,
			CreatedAt:           us.clock.Now(),
		}); err != nil {
			return err
		}
		ok, err := us.updateRepo.MarkCompleted(ctx, tx, row.ID, completedAt)
		if err != nil {
			return err
		}
		transitioned = ok
		return nil
	})
	if err != nil {
		us.fail(ctx, row, fmt.Sprintf("failed to persist new parameters: %v", err))
		return
	}
	if !transitioned {
		us.log.Warn("Update request already terminal, skipping callback", "update_id", row.ID)
		return
	}

	us.log.Info("Update completed", "update_id", row.ID, "probability_of_action", newParams.ProbabilityOfAction)
	us.notifier.UpdateCompleted(ctx, row.CallbackURL, row.ID, completedAt)
}

func (us *updateService) fail(ctx context.Context, row *types.UpdateRequest, message string) {
	us.log.Error("Update failed", "update_id", row.ID, "error", message)
	transitioned, err := us.updateRepo.MarkFailed(ctx, nil, row.ID, time.Now().UTC(), message)
	if err != nil {
		us.log.Error("Failed to mark update request failed", "update_id", row.ID, "error", err)
		return
	}
	if !transitioned {
		us.log.Warn("Update request already terminal, skipping failure callback", "update_id", row.ID)
		return
	}
	us.notifier.UpdateFailed(ctx, row.CallbackURL, row.ID, message)
}

// loadDataset flattens the full outcome history into the aggregate the
// algorithm refits from: one temperature (from the stored state) and one
// reward per study_data row.
func (us *updateService) loadDataset(ctx context.Context) (algorithm.Dataset, error) {
	rows, err := us.studyDataRepo.ListAll(ctx, nil)
	if err != nil {
		return algorithm.Dataset{}, err
	}

	dataset := algorithm.Dataset{
		Temperatures: make([]float64, 0, len(rows)),
		Rewards:      make([]float64, 0, len(rows)),
	}
	for _, row := range rows {
		var state map[string]any
		if len(row.State) > 0 {
			if err := json.Unmarshal(row.State, &state); err != nil {
				return algorithm.Dataset{}, fmt.Errorf("corrupt state for user %s decision %d: %w", row.UserID, row.DecisionIdx, err)
			}
		}
		temperature, ok := algorithm.NumericField(state, "temperature")
		if !ok {
			// Fall back to the raw context for rows whose state predates
			// the temperature field.
			var rawContext map[string]any
			if len(row.RawContext) > 0 {
				if err := json.Unmarshal(row.RawContext, &rawContext); err != nil {
					return algorithm.Dataset{}, fmt.Errorf("corrupt context for user %s decision %d: %w", row.UserID, row.DecisionIdx, err)
				}
			}
			temperature, ok = algorithm.NumericField(rawContext, "temperature")
			if !ok {
				continue
			}
		}
		dataset.Temperatures = append(dataset.Temperatures, temperature)
		dataset.Rewards = append(dataset.Rewards, row.Reward)
	}
	return dataset, nil
}
