package types

import (
	"time"

	"github.com/google/uuid"
)

// ModelParameters is an append-only snapshot of policy parameters. The
// current parameters are always the row with the maximum CreatedAt; the
// service layer guarantees CreatedAt is strictly increasing per insert.
type ModelParameters struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProbabilityOfAction float64   `gorm:"not null;column:probability_of_action" json:"probability_of_action"`
	CreatedAt           time.Time `gorm:"not null;uniqueIndex;column:created_at" json:"created_at"`
}

func (ModelParameters) TableName() string {
	return "model_parameters"
}
