package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "evently/internal/errors"
	"evently/internal/model"
)

// UserRepository defines user persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	// FindPendingByVerifyToken returns the unverified user holding tokenHash.
	FindPendingByVerifyToken(ctx context.Context, tokenHash string) (*model.User, error)
	// MarkVerified flips the user to verified and clears the token, but only
	// while tokenHash is still the pending one.
	MarkVerified(ctx context.Context, id uuid.UUID, tokenHash string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return r.duplicateCause(ctx, user)
	}
	return err
}

// Update saves every column, so cleared token fields are written as NULL.
func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).Save(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return r.duplicateCause(ctx, user)
	}
	return err
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "email = ?", model.NormalizeEmail(email))
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *userRepository) FindPendingByVerifyToken(ctx context.Context, tokenHash string) (*model.User, error) {
	user, err := r.findOne(ctx, "verify_token = ? AND is_verified = ?", tokenHash, false)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, apperrors.ErrVerificationNotFound
	}
	return user, err
}

func (r *userRepository) MarkVerified(ctx context.Context, id uuid.UUID, tokenHash string) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND verify_token = ? AND is_verified = ?", id, tokenHash, false).
		Updates(map[string]any{
			"is_verified":          true,
			"verify_token":         nil,
			"verify_token_expires": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	// Someone else consumed the token between lookup and update.
	if res.RowsAffected == 0 {
		return apperrors.ErrVerificationNotFound
	}
	return nil
}

func (r *userRepository) findOne(ctx context.Context, query string, args ...any) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// duplicateCause works out which unique column a rejected write collided on.
func (r *userRepository) duplicateCause(ctx context.Context, user *model.User) error {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("email = ? AND id <> ?", user.Email, user.ID).
		Count(&count).Error
	if err == nil && count > 0 {
		return apperrors.ErrEmailTaken
	}
	return apperrors.ErrUsernameTaken
}
