package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"beam/internal/models"
	"beam/internal/repository"
)

// Mention autocomplete bounds.
const (
	MentionLimit       = 20
	maxMentionQueryLen = 50
)

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// Me returns the caller's own record.
func (s *UserService) Me(ctx context.Context, caller models.Caller) (*models.User, error) {
	var user *models.User
	err := procedure(ctx, "user_me", caller, func(ctx context.Context) error {
		u, err := s.userRepo.GetByID(ctx, caller.ID)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	return user, err
}

// Profile returns the public projection of any user.
func (s *UserService) Profile(ctx context.Context, caller models.Caller, id uint) (*models.UserSummary, error) {
	var summary *models.UserSummary
	err := procedure(ctx, "user_profile", caller, func(ctx context.Context) error {
		u, err := s.userRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		summary = &models.UserSummary{ID: u.ID, Name: u.Name, Image: u.Image}
		return nil
	})
	return summary, err
}

// MentionList feeds @-mention autocomplete. A leading "@" in query is ignored.
func (s *UserService) MentionList(ctx context.Context, caller models.Caller, query string) ([]models.UserSummary, error) {
	var users []models.UserSummary
	err := procedure(ctx, "user_mentions", caller, func(ctx context.Context) error {
		q := strings.TrimPrefix(strings.TrimSpace(query), "@")
		if utf8.RuneCountInString(q) > maxMentionQueryLen {
			return models.NewValidationError("Mention query too long (max 50 characters)")
		}
		found, err := s.userRepo.ListForMention(ctx, q, MentionLimit)
		if err != nil {
			return err
		}
		users = found
		return nil
	})
	return users, err
}

// ResolveCaller maps a token subject to a caller. Unknown users yield nil without error.
func (s *UserService) ResolveCaller(ctx context.Context, userID uint) (*models.Caller, error) {
	caller, err := s.userRepo.GetCaller(ctx, userID)
	if models.ErrorCode(err) == models.CodeNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return caller, nil
}

// SetAdmin grants or revokes the admin capability. Used by the admin CLI.
func (s *UserService) SetAdmin(ctx context.Context, id uint, isAdmin bool) (*models.User, error) {
	if err := s.userRepo.SetAdmin(ctx, id, isAdmin); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, id)
}

// ListAdmins returns every user holding the admin capability.
func (s *UserService) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.userRepo.ListAdmins(ctx)
}
