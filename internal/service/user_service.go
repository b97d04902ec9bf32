package service

import (
	"context"

	"github.com/google/uuid"

	"taskboard/internal/model"
)

type UserService struct {
	users UserStore
}

func NewUserService(users UserStore) *UserService {
	return &UserService{users: users}
}

// UpdateProfileInput uses nil pointers for "leave unchanged". An empty
// AvatarURL clears the avatar.
type UpdateProfileInput struct {
	DisplayName *string
	AvatarURL   *string
}

func (s *UserService) Get(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr("user", err)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr("user", err)
	}

	if in.DisplayName != nil {
		user.DisplayName = *in.DisplayName
	}
	if in.AvatarURL != nil {
		if *in.AvatarURL == "" {
			user.AvatarURL = nil
		} else {
			user.AvatarURL = in.AvatarURL
		}
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, storeErr("user", err)
	}
	return user, nil
}

// Delete removes the account; tasks, tags and associations go with it via
// the schema's cascades.
func (s *UserService) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return storeErr("user", err)
	}
	return nil
}
