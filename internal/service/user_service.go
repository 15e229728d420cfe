package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/parrotlabs/voiceforge/internal/models"
	"github.com/parrotlabs/voiceforge/internal/repository"
)

type UserService struct {
	users       *repository.UserRepository
	signupBonus int
}

func NewUserService(users *repository.UserRepository, signupBonus int) *UserService {
	return &UserService{users: users, signupBonus: signupBonus}
}

// Ensure provisions the user row on first authenticated access, granting the
// signup bonus once.
func (s *UserService) Ensure(ctx context.Context, whopUserID, whopExperienceID string) (*models.User, error) {
	user, _, err := s.users.Ensure(ctx, whopUserID, whopExperienceID, s.signupBonus)
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return user, nil
}

func (s *UserService) Credits(ctx context.Context, userID int64) (int, error) {
	credits, err := s.users.Credits(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		return 0, err
	}
	return credits, nil
}
