package services

import (
	"context"
	"encoding/base64"
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

// ActionRequest is the decision request body. Pointer fields distinguish
// "absent" from zero values so validation can name the missing field.
type ActionRequest struct {
	UserID      *string        `json:"user_id"`
	DecisionIdx *int           `json:"decision_idx"`
	Timestamp   *string        `json:"timestamp"`
	Context     map[string]any `json:"context"`
}

type ActionResponse struct {
	Status     string         `json:"status"`
	UserID     string         `json:"user_id"`
	State      map[string]any `json:"state"`
	Action     int            `json:"action"`
	ActionProb float64        `json:"action_prob"`
	Timestamp  time.Time      `json:"timestamp"`
}

type ActionService interface {
	RequestAction(ctx context.Context, req ActionRequest) (*ActionResponse, error)
}

type actionService struct {
	db         *gorm.DB
	log        *logger.Logger
	userRepo   repos.UserRepo
	actionRepo repos.ActionRepo
	paramsRepo repos.ModelParametersRepo
	alg        algorithm.Algorithm
}

func NewActionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	actionRepo repos.ActionRepo,
	paramsRepo repos.ModelParametersRepo,
	alg algorithm.Algorithm,
) ActionService {
	serviceLog := baseLog.With("service", "ActionService")
	return &actionService{
		db:         db,
		log:        serviceLog,
		userRepo:   userRepo,
		actionRepo: actionRepo,
		paramsRepo: paramsRepo,
		alg:        alg,
	}
}

func (as *actionService) validate(req ActionRequest) error {
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
	if req.Context == nil {
		return apierr.Validation("context is required.")
	}
	return nil
}

func (as *actionService) RequestAction(ctx context.Context, req ActionRequest) (*ActionResponse, error) {
	if err := as.validate(req); err != nil {
		return nil, err
	}
	userID := *req.UserID
	decisionIdx := *req.DecisionIdx
	receivedAt := time.Now().UTC()

	exists, err := as.userRepo.Exists(ctx, nil, userID)
	if err != nil {
		as.log.Error("Failed to look up user", "user_id", userID, "error", err)
		return nil, apierr.Internal(err)
	}
	if !exists {
		return nil, apierr.NotFound("User not found.")
	}

	taken, err := as.actionRepo.Exists(ctx, nil, userID, decisionIdx)
	if err != nil {
		as.log.Error("Failed to look up action", "user_id", userID, "decision_idx", decisionIdx, "error", err)
		return nil, apierr.Internal(err)
	}
	if taken {
		return nil, apierr.Conflict("Action already exists for this decision index.")
	}

	params, err := as.paramsRepo.Latest(ctx, nil)
	if err != nil {
		as.log.Error("Failed to load model parameters", "error", err)
		return nil, apierr.Internal(err)
	}
	if params == nil {
		return nil, apierr.NotFound("Model parameters not found.")
	}

	state, err := as.alg.MakeState(req.Context)
	if err != nil {
		return nil, err
	}

	decision, err := as.alg.GetAction(userID, state, algorithm.Parameters{
		ProbabilityOfAction: params.ProbabilityOfAction,
	})
	if err != nil {
		as.log.Error("Action selection failed", "user_id", userID, "error", err)
		return nil, apierr.Internal(err)
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	contextJSON, err := json.Marshal(req.Context)
	if err != nil {
		return nil, apierr.Internal(err)
	}

	row := &types.Action{
		ID:               uuid.New(),
		UserID:           userID,
		DecisionIdx:      decisionIdx,
		State:            datatypes.JSON(stateJSON),
		RawContext:       datatypes.JSON(contextJSON),
		Action:           decision.Action,
		ActionProb:       decision.ActionProb,
		RandomState:      base64.StdEncoding.EncodeToString(decision.RandomState),
		ModelParamsID:    params.ID,
		RequestTimestamp: *req.Timestamp,
		Timestamp:        receivedAt,
	}

	// The store's insert-if-absent is the real idempotency barrier: a row
	// that appeared since the pre-check loses here and nothing is written,
	// so the decision is never both returned and unpersisted.
	inserted, err := as.actionRepo.Insert(ctx, nil, row)
	if err != nil {
		as.log.Error("Failed to persist action", "user_id", userID, "decision_idx", decisionIdx, "error", err)
		return nil, apierr.Internal(err)
	}
	if !inserted {
		return nil, apierr.Conflict("Action already exists for this decision index.")
	}

	return &ActionResponse{
		Status:     "success",
		UserID:     userID,
		State:      state,
		Action:     decision.Action,
		ActionProb: decision.ActionProb,
		Timestamp:  receivedAt,
	}, nil
}
