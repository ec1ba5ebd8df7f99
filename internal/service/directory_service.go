package service

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// DirectoryService exposes the set of users eligible for assignment.
type DirectoryService struct {
	users repository.UserRepository
}

// NewDirectoryService constructs the service.
func NewDirectoryService(users repository.UserRepository) *DirectoryService {
	return &DirectoryService{users: users}
}

// Assignable returns supervisors and admins. Admin only.
func (s *DirectoryService) Assignable(ctx context.Context, actor domain.Actor) ([]domain.User, error) {
	if !auth.Authorize(actor.Role, auth.ActionViewDirectory) {
		return nil, apperrors.NewForbidden("only admins may view the directory")
	}
	list, err := s.users.ListAssignable(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}
