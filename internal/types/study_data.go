package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// StudyData is the outcome record, keyed like Action and logically linked
// 1:1 to it. Action, ActionProb and State are the caller's echoed values;
// they are stored verbatim and not cross-checked against the Action row.
type StudyData struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           string         `gorm:"not null;uniqueIndex:idx_study_data_user_decision;column:user_id" json:"user_id"`
	DecisionIdx      int            `gorm:"not null;uniqueIndex:idx_study_data_user_decision;column:decision_idx" json:"decision_idx"`
	RawContext       datatypes.JSON `gorm:"column:raw_context" json:"raw_context"`
	Action           int            `gorm:"not null;column:action" json:"action"`
	ActionProb       float64        `gorm:"not null;column:action_prob" json:"action_prob"`
	State            datatypes.JSON `gorm:"column:state" json:"state"`
	Outcome          datatypes.JSON `gorm:"column:outcome" json:"outcome"`
	Reward           float64        `gorm:"not null;column:reward" json:"reward"`
	RequestTimestamp string         `gorm:"column:request_timestamp" json:"request_timestamp"`
	Timestamp        time.Time      `gorm:"not null;column:timestamp" json:"timestamp"`
}

func (StudyData) TableName() string {
	return "study_data"
}
