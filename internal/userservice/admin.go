package userservice

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sushihentaime/blogsphere/internal/common"
)

// ListUsers returns a filtered page of accounts with their post and comment counts.
func (s *UserService) ListUsers(ctx context.Context, f UserFilter) ([]*UserSummary, *common.Pagination, error) {
	v := common.NewValidator()
	if f.Role != "" {
		validateRole(v, Role(f.Role))
	}
	if !v.Valid() {
		return nil, nil, v.ValidationError()
	}

	users, total, err := s.m.listUsers(ctx, f)
	if err != nil {
		return nil, nil, err
	}

	return users, common.NewPagination(total, f.Page), nil
}

func (s *UserService) GetUserStats(ctx context.Context, id uuid.UUID) (*UserStats, error) {
	return s.m.getUserStats(ctx, id)
}

// AdminUpdateUser applies the non-nil fields of req to any account.
func (s *UserService) AdminUpdateUser(ctx context.Context, id uuid.UUID, req *AdminUpdateUserRequest) (*User, error) {
	u, err := s.m.getUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	v := common.NewValidator()
	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
		validateName(v, u.Name)
	}
	if req.Username != nil {
		u.Username = strings.TrimSpace(*req.Username)
		validateUsername(v, u.Username)
	}
	if req.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*req.Email))
		validateEmail(v, u.Email)
	}
	if req.Role != nil {
		u.Role = *req.Role
		validateRole(v, u.Role)
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if err := s.m.updateUser(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

// DeleteUser removes an account and soft-deletes its posts. An admin cannot delete their own account.
func (s *UserService) DeleteUser(ctx context.Context, actor *User, id uuid.UUID) error {
	if actor.ID == id {
		return ErrSelfDeletion
	}

	return s.m.deleteUser(ctx, id)
}
