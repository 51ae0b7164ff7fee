package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/banditserve-backend/internal/algorithm"
	"github.com/yungbote/banditserve-backend/internal/apierr"
	"github.com/yungbote/banditserve-backend/internal/logger"
	"github.com/yungbote/banditserve-backend/internal/repos"
	"github.com/yungbote/banditserve-backend/internal/types"
)

// OutcomePayload is the nested data block of an outcome report. The echoed
// action, probability and state are stored as submitted; the ingestion path
// does not cross-check them against the original Action row.
type OutcomePayload struct {
	Context    map[string]any `json:"context"`
	Action     *int           `json:"action"`
	ActionProb *float64       `json:"action_prob"`
	State      map[string]any `json:"state"`
	Outcome    map[string]any `json:"outcome"`
}

type OutcomeRequest struct {
	UserID      *string         `json:"user_id"`
	DecisionIdx *int            `json:"decision_idx"`
	Timestamp   *string         `json:"timestamp"`
	Data        *OutcomePayload `json:"data"`
}

type OutcomeService interface {
	UploadData(ctx context.Context, req OutcomeRequest) (*types.StudyData, error)
}

type outcomeService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	studyDataRepo repos.StudyDataRepo
	alg           algorithm.Algorithm
}

func NewOutcomeService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	studyDataRepo repos.StudyDataRepo,
	alg algorithm.Algorithm,
) OutcomeService {
	serviceLog := baseLog.With("service", "OutcomeService")
	return &outcomeService{
		db:            db,
		log:           serviceLog,
		userRepo:      userRepo,
		studyDataRepo: studyDataRepo,
		alg:           alg,
	}
}

func (os *outcomeService) validate(req OutcomeRequest) error {
	if req.UserID == nil || *req.UserID == "" {
		return apierr.Validation("user_id is required.")
	}
	if req.Timestamp == nil || *req.Timestamp == "" {
		return apierr.Validation("timestamp is required.")
	}
	if req.DecisionIdx == nil {
		return apierr.Validation("decision_idx is required.")
	}
	if *req.DecisionIdx < 0 {
		return apierr.Validation("decision_idx must be a non-negative integer.")
	}
	if req.Data == nil {
		return apierr.Validation("data is required.")
	}
	if req.Data.Context == nil {
		return apierr.Validation("data.context is required.")
	}
	if req.Data.Action == nil {
		return apierr.Validation("data.action is required.")
	}
	if req.Data.ActionProb == nil {
		return apierr.Validation("data.action_prob is required.")
	}
	if req.Data.State == nil {
		return apierr.Validation("data.state is required.")
	}
	if req.Data.Outcome == nil {
		return apierr.Validation("data.outcome is required.")
	}
	return nil
}

func (os *outcomeService) UploadData(ctx context.Context, req OutcomeRequest) (*types.StudyData, error) {
	if err := os.validate(req); err != nil {
		return nil, err
	}
	userID := *req.UserID
	decisionIdx := *req.DecisionIdx
	receivedAt := time.Now().UTC()

	exists, err := os.userRepo.Exists(ctx, nil, userID)
	if err != nil {
		os.log.Error("Failed to look up user", "user_id", userID, "error", err)
		return nil, apierr.Internal(err)
	}
	if !exists {
		return nil, apierr.NotFound("User not found.")
	}

	reported, err := os.studyDataRepo.Exists(ctx, nil, userID, decisionIdx)
	if err != nil {
		os.log.Error("Failed to look up study data", "user_id", userID, "decision_idx", decisionIdx, "error", err)
		return nil, apierr.Internal(err)
	}
	if reported {
		return nil, apierr.Conflict("Data already exists for this decision index.")
	}

	reward, err := os.alg.MakeReward(userID, req.Data.State, *req.Data.Action, req.Data.Outcome)
	if err != nil {
		return nil, err
	}

	contextJSON, err := json.Marshal(req.Data.Context)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	stateJSON, err := json.Marshal(req.Data.State)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	outcomeJSON, err := json.Marshal(req.Data.Outcome)
	if err != nil {
		return nil, apierr.Internal(err)
	}

	row := &types.StudyData{
		ID:               uuid.New(),
		UserID:           userID,
		DecisionIdx:      decisionIdx,
		RawContext:       datatypes.JSON(contextJSON),
		Action:           *req.Data.Action,
		ActionProb:       *req.Data.ActionProb,
		State:            datatypes.JSON(stateJSON),
		Outcome:          datatypes.JSON(outcomeJSON),
		Reward:           reward,
		RequestTimestamp: *req.Timestamp,
		Timestamp:        receivedAt,
	}

	inserted, err := os.studyDataRepo.Insert(ctx, nil, row)
	if err != nil {
		os.log.Error("Failed to persist study data", "user_id", userID, "decision_idx", decisionIdx, "error", err)
		return nil, apierr.Internal(err)
	}
	if !inserted {
		return nil, apierr.Conflict("Data already exists for this decision index.")
	}

	return row, nil
}
