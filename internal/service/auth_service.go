package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"evently/internal/auth"
	apperrors "evently/internal/errors"
	"evently/internal/model"
	"evently/internal/repository"
)

const (
	minUsernameLength = 4
	maxUsernameLength = 64
	minPasswordLength = 8

	// "-" plus six hex characters appended on a username collision.
	usernameSuffixLength = 7
)

// Notifier sends account mails. Implementations must not block on delivery.
type Notifier interface {
	SendVerification(ctx context.Context, to, username, rawToken string, expiresAt time.Time)
	SendEmailChanged(ctx context.Context, to, username, rawToken string, expiresAt time.Time)
}

// RegisterInput is the data needed to open a local account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AuthService handles registration, verification and login.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	VerifyEmail(ctx context.Context, rawToken string) (*model.User, error)
	ResendVerification(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (string, *model.User, error)
	// DelegatedAuthURL returns the identity provider's consent URL.
	DelegatedAuthURL(state string) (string, error)
	// LoginWithDelegatedIdentity completes the provider flow for code.
	LoginWithDelegatedIdentity(ctx context.Context, code string) (string, *model.User, error)
}

type authService struct {
	users    repository.UserRepository
	tokens   *auth.VerificationTokens
	jwt      *auth.JWTService
	notifier Notifier
	identity auth.IdentityProvider
	logger   *slog.Logger
}

// NewAuthService creates a new authentication service. identity may be nil
// when delegated sign-in is not configured.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.VerificationTokens,
	jwtService *auth.JWTService,
	notifier Notifier,
	identity auth.IdentityProvider,
	logger *slog.Logger,
) AuthService {
	return &authService{
		users:    users,
		tokens:   tokens,
		jwt:      jwtService,
		notifier: notifier,
		identity: identity,
		logger:   logger,
	}
}

// Register creates an unverified local account and mails the verification link.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	username := sanitizeText(in.Username)
	email := model.NormalizeEmail(in.Email)

	if utf8.RuneCountInString(username) < minUsernameLength {
		return nil, apperrors.NewValidationError("username", "Username must be at least 4 characters")
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperrors.NewValidationError("password", "Password must be at least 8 characters")
	}

	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil, apperrors.ErrEmailTaken
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := model.NewLocalUser(username, email, hash)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue()
	if err != nil {
		return nil, err
	}
	user.SetVerifyToken(token.Hash, token.ExpiresAt)

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.notifier.SendVerification(ctx, user.Email, user.Username, token.Raw, token.ExpiresAt)
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// VerifyEmail consumes a verification secret. A wrong secret and an already
// verified account both yield ErrVerificationNotFound.
func (s *authService) VerifyEmail(ctx context.Context, rawToken string) (*model.User, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, apperrors.ErrMissingVerifyToken
	}

	hash := auth.HashVerificationToken(rawToken)
	user, err := s.users.FindPendingByVerifyToken(ctx, hash)
	if err != nil {
		return nil, err
	}
	if user.VerifyToken == nil || user.VerifyTokenExpires == nil {
		return nil, apperrors.ErrVerificationNotFound
	}

	switch s.tokens.Validate(rawToken, *user.VerifyToken, *user.VerifyTokenExpires) {
	case auth.TokenExpired:
		return nil, apperrors.ErrVerificationExpired
	case auth.TokenValid:
	default:
		return nil, apperrors.ErrVerificationNotFound
	}

	if err := s.users.MarkVerified(ctx, user.ID, hash); err != nil {
		return nil, err
	}
	user.IsVerified = true
	user.ClearVerifyToken()

	s.logger.InfoContext(ctx, "email verified", "user_id", user.ID)
	return user, nil
}

// ResendVerification issues a fresh secret for a local, unverified account
// whose previous secret has expired. Every refusal looks the same.
func (s *authService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return apperrors.ErrResendNotEligible
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}

	if user.AuthType != model.AuthTypeLocal || user.IsVerified {
		return apperrors.ErrResendNotEligible
	}
	if user.VerifyTokenExpires != nil && !s.tokens.Expired(*user.VerifyTokenExpires) {
		return apperrors.ErrResendNotEligible
	}

	token, err := s.tokens.Issue()
	if err != nil {
		return err
	}
	user.SetVerifyToken(token.Hash, token.ExpiresAt)
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	s.notifier.SendVerification(ctx, user.Email, user.Username, token.Raw, token.ExpiresAt)
	return nil
}

// Login checks a local password and mints a bearer token.
func (s *authService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return "", nil, apperrors.ErrCredentialMismatch
	}
	if err != nil {
		return "", nil, fmt.Errorf("find user: %w", err)
	}

	if user.AuthType != model.AuthTypeLocal || user.PasswordHash == nil {
		s.logger.DebugContext(ctx, "password login for delegated account", "user_id", user.ID)
		return "", nil, apperrors.ErrCredentialMismatch
	}
	if !auth.CheckPassword(*user.PasswordHash, password) {
		s.logger.DebugContext(ctx, "password mismatch", "user_id", user.ID)
		return "", nil, apperrors.ErrCredentialMismatch
	}
	// Only reported once the password matched, so it reveals nothing new.
	if !user.IsVerified {
		return "", nil, apperrors.ErrNotVerified
	}

	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *authService) DelegatedAuthURL(state string) (string, error) {
	if s.identity == nil {
		return "", apperrors.ErrDelegatedAuthDisabled
	}
	return s.identity.AuthCodeURL(state), nil
}

func (s *authService) LoginWithDelegatedIdentity(ctx context.Context, code string) (string, *model.User, error) {
	if s.identity == nil {
		return "", nil, apperrors.ErrDelegatedAuthDisabled
	}

	identity, err := s.identity.Exchange(ctx, code)
	if err != nil {
		return "", nil, fmt.Errorf("delegated identity: %w", err)
	}

	user, err := s.findOrCreateDelegated(ctx, identity)
	if err != nil {
		return "", nil, err
	}

	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *authService) findOrCreateDelegated(ctx context.Context, identity *auth.ExternalIdentity) (*model.User, error) {
	email := model.NormalizeEmail(identity.Email)

	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	base := delegatedUsername(identity.DisplayName, email)

	username := base
	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		username = withSuffix(base)
	}

	// A concurrent signup may still win the username; one retry with a new suffix.
	for attempt := 0; attempt < 2; attempt++ {
		user, err := model.NewDelegatedUser(username, email)
		if err != nil {
			return nil, err
		}
		err = s.users.Create(ctx, user)
		switch {
		case err == nil:
			s.logger.InfoContext(ctx, "delegated user created", "user_id", user.ID)
			return user, nil
		case errors.Is(err, apperrors.ErrUsernameTaken):
			username = withSuffix(base)
		case errors.Is(err, apperrors.ErrEmailTaken):
			return s.users.FindByEmail(ctx, email)
		default:
			return nil, fmt.Errorf("create user: %w", err)
		}
	}
	return nil, apperrors.ErrUsernameTaken
}

// delegatedUsername derives a username from the provider's display name,
// falling back to the email local part. The result always fits the column
// with a collision suffix appended.
func delegatedUsername(displayName, email string) string {
	base := sanitizeText(displayName)
	if utf8.RuneCountInString(base) < minUsernameLength {
		base, _, _ = strings.Cut(email, "@")
	}
	if utf8.RuneCountInString(base) < minUsernameLength {
		base = "user-" + base
	}
	if runes := []rune(base); len(runes) > maxUsernameLength-usernameSuffixLength {
		base = strings.TrimSpace(string(runes[:maxUsernameLength-usernameSuffixLength]))
	}
	return base
}

func withSuffix(base string) string {
	return base + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}
