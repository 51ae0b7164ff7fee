package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Action is the decision record: exactly one row per (user_id, decision_idx).
// RandomState holds the sampler's serialized internal state captured before
// the draw, so the exact draw can be replayed for audit.
type Action struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           string         `gorm:"not null;uniqueIndex:idx_action_user_decision;column:user_id" json:"user_id"`
	DecisionIdx      int            `gorm:"not null;uniqueIndex:idx_action_user_decision;column:decision_idx" json:"decision_idx"`
	State            datatypes.JSON `gorm:"column:state" json:"state"`
	RawContext       datatypes.JSON `gorm:"column:raw_context" json:"raw_context"`
	Action           int            `gorm:"not null;column:action" json:"action"`
	ActionProb       float64        `gorm:"not null;column:action_prob" json:"action_prob"`
	RandomState      string         `gorm:"not null;column:random_state" json:"random_state"`
	ModelParamsID    uuid.UUID      `gorm:"type:uuid;column:model_params_id" json:"model_params_id"`
	RequestTimestamp string         `gorm:"column:request_timestamp" json:"request_timestamp"`
	Timestamp        time.Time      `gorm:"not null;column:timestamp" json:"timestamp"`
}

func (Action) TableName() string {
	return "action"
}
