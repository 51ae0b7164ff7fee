package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/banditserve-backend/internal/apierr"
	"github.com/yungbote/banditserve-backend/internal/logger"
	"github.com/yungbote/banditserve-backend/internal/repos"
	"github.com/yungbote/banditserve-backend/internal/types"
)

type UserService interface {
	Register(ctx context.Context, userID string) (*types.User, error)
}

type userService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(db *gorm.DB, baseLog *logger.Logger, userRepo repos.UserRepo) UserService {
	serviceLog := baseLog.With("service", "UserService")
	return &userService{db: db, log: serviceLog, userRepo: userRepo}
}

func (us *userService) Register(ctx context.Context, userID string) (*types.User, error) {
	if userID == "" {
		return nil, apierr.Validation("user_id is required.")
	}

	user := &types.User{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	inserted, err := us.userRepo.Create(ctx, nil, user)
	if err != nil {
		us.log.Error("Failed to create user", "user_id", userID, "error", err)
		return nil, apierr.Internal(err)
	}
	if !inserted {
		return nil, apierr.Conflict("User already exists.")
	}

	us.log.Info("User added", "user_id", userID)
	return user, nil
}
