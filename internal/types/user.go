package types

import (
	"time"

	"github.com/google/uuid"
)

// User is immutable once created: registered explicitly, never updated,
// never deleted in normal operation.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"uniqueIndex;not null;column:user_id" json:"user_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (User) TableName() string {
	return "user"
}
