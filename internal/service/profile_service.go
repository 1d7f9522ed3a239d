package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/google/uuid"

	"evently/internal/auth"
	apperrors "evently/internal/errors"
	"evently/internal/model"
	"evently/internal/repository"
)

// Profile is a user together with their bookmark set.
type Profile struct {
	User            *model.User
	BookmarkedEvent []uuid.UUID
}

// EditProfileInput carries the editable profile fields.
type EditProfileInput struct {
	Username string
	Email    string
}

// ProfileService reads and edits the caller's own account.
type ProfileService interface {
	Me(ctx context.Context, userID uuid.UUID) (*Profile, error)
	// Edit updates username and email. A changed email resets verification
	// and mails a new link.
	Edit(ctx context.Context, userID uuid.UUID, in EditProfileInput) (*Profile, error)
}

type profileService struct {
	users     repository.UserRepository
	bookmarks repository.BookmarkRepository
	tokens    *auth.VerificationTokens
	notifier  Notifier
	logger    *slog.Logger
}

// NewProfileService creates a new profile service.
func NewProfileService(
	users repository.UserRepository,
	bookmarks repository.BookmarkRepository,
	tokens *auth.VerificationTokens,
	notifier Notifier,
	logger *slog.Logger,
) ProfileService {
	return &profileService{
		users:     users,
		bookmarks: bookmarks,
		tokens:    tokens,
		notifier:  notifier,
		logger:    logger,
	}
}

func (s *profileService) Me(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.withBookmarks(ctx, user)
}

func (s *profileService) Edit(ctx context.Context, userID uuid.UUID, in EditProfileInput) (*Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	username := sanitizeText(in.Username)
	if utf8.RuneCountInString(username) < minUsernameLength {
		return nil, apperrors.NewValidationError("username", "Username must be at least 4 characters")
	}
	if username != user.Username {
		if err := s.ensureFree(ctx, s.users.FindByUsername, username, user.ID, apperrors.ErrUsernameTaken); err != nil {
			return nil, err
		}
		user.Username = username
	}

	var token *auth.VerificationToken
	email := model.NormalizeEmail(in.Email)
	if email != "" && email != user.Email {
		if err := s.ensureFree(ctx, s.users.FindByEmail, email, user.ID, apperrors.ErrEmailTaken); err != nil {
			return nil, err
		}
		issued, err := s.tokens.Issue()
		if err != nil {
			return nil, err
		}
		token = &issued
		user.Email = email
		user.IsVerified = false
		user.SetVerifyToken(issued.Hash, issued.ExpiresAt)
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if token != nil {
		s.notifier.SendEmailChanged(ctx, user.Email, user.Username, token.Raw, token.ExpiresAt)
		s.logger.InfoContext(ctx, "email changed", "user_id", user.ID)
	}
	return s.withBookmarks(ctx, user)
}

func (s *profileService) ensureFree(
	ctx context.Context,
	find func(context.Context, string) (*model.User, error),
	value string,
	self uuid.UUID,
	taken error,
) error {
	other, err := find(ctx, value)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if other.ID != self {
		return taken
	}
	return nil
}

func (s *profileService) withBookmarks(ctx context.Context, user *model.User) (*Profile, error) {
	ids, err := s.bookmarks.ListEventIDs(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	return &Profile{User: user, BookmarkedEvent: ids}, nil
}
