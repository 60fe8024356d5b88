package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/repository"
)

// OwnerAccessor resolves the current user from the configured owner's
// Telegram account. The owner row appears on their first /start, so
// operations before that fail with ErrNoCurrentUser.
type OwnerAccessor struct {
	users   *repository.UserRepository
	ownerID int64
}

func NewOwnerAccessor(users *repository.UserRepository, ownerTelegramID int64) *OwnerAccessor {
	return &OwnerAccessor{users: users, ownerID: ownerTelegramID}
}

func (a *OwnerAccessor) CurrentUserID(ctx context.Context) (uint, error) {
	user, err := a.users.FindByTelegramID(ctx, a.ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNoCurrentUser
		}
		return 0, err
	}
	return user.ID, nil
}
