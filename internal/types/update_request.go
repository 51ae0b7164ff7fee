package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	UpdateStatusProcessing = "processing"
	UpdateStatusCompleted  = "completed"
	UpdateStatusFailed     = "failed"
)

// UpdateRequest tracks one asynchronous model refit. Status only moves
// processing -> completed or processing -> failed; the repo enforces the
// transition in SQL so a terminal row can never be rewritten.
type UpdateRequest struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"update_id"`
	CallbackURL      string     `gorm:"not null;column:callback_url" json:"callback_url"`
	Status           string     `gorm:"not null;column:status" json:"status"`
	RequestTimestamp string     `gorm:"column:request_timestamp" json:"request_timestamp"`
	CreatedAt        time.Time  `gorm:"not null" json:"created_at"`
	CompletedAt      *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	ErrorMessage     string     `gorm:"column:error_message" json:"error_message,omitempty"`
}

func (UpdateRequest) TableName() string {
	return "update_request"
}
