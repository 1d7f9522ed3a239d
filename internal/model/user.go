package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuthType identifies how a user authenticates.
type AuthType string

const (
	AuthTypeLocal  AuthType = "local"
	AuthTypeGoogle AuthType = "google"
)

// Role is the authorization level consumed by the access guard.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

var (
	ErrUsernameRequired = errors.New("username is required")
	ErrEmailRequired    = errors.New("email is required")
	ErrInvalidAuthType  = errors.New("invalid auth type")
	ErrInvalidRole      = errors.New("invalid role")
	ErrPasswordRequired = errors.New("password is required for local accounts")
)

// User is a registered account. Secret fields are never serialized.
type User struct {
	ID                 uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	Username           string     `json:"username" gorm:"size:64;uniqueIndex;not null"`
	Email              string     `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash       *string    `json:"-" gorm:"size:255"`
	IsVerified         bool       `json:"isVerified" gorm:"not null;default:false"`
	VerifyToken        *string    `json:"-" gorm:"size:64;index"`
	VerifyTokenExpires *time.Time `json:"-"`
	AuthType           AuthType   `json:"authType" gorm:"type:varchar(16);not null;default:'local'"`
	Role               Role       `json:"role" gorm:"type:varchar(16);not null;default:'user'"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewLocalUser builds an unverified password account.
func NewLocalUser(username, email, passwordHash string) (*User, error) {
	u := &User{
		ID:           uuid.New(),
		Username:     strings.TrimSpace(username),
		Email:        NormalizeEmail(email),
		PasswordHash: &passwordHash,
		AuthType:     AuthTypeLocal,
		Role:         RoleUser,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// NewDelegatedUser builds an account asserted by an external identity
// provider. Such accounts are created verified and carry no password.
func NewDelegatedUser(username, email string) (*User, error) {
	u := &User{
		ID:         uuid.New(),
		Username:   strings.TrimSpace(username),
		Email:      NormalizeEmail(email),
		IsVerified: true,
		AuthType:   AuthTypeGoogle,
		Role:       RoleUser,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// Validate checks the invariants every persisted user must satisfy.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return ErrUsernameRequired
	}
	if u.Email == "" || u.Email != NormalizeEmail(u.Email) {
		return ErrEmailRequired
	}
	switch u.AuthType {
	case AuthTypeLocal:
		if u.PasswordHash == nil || *u.PasswordHash == "" {
			return ErrPasswordRequired
		}
	case AuthTypeGoogle:
	default:
		return ErrInvalidAuthType
	}
	switch u.Role {
	case RoleUser, RoleAdmin:
	default:
		return ErrInvalidRole
	}
	return nil
}

// SetVerifyToken stores a pending verification hash, replacing any previous one.
func (u *User) SetVerifyToken(hash string, expiresAt time.Time) {
	u.VerifyToken = &hash
	u.VerifyTokenExpires = &expiresAt
}

// ClearVerifyToken drops the pending verification.
func (u *User) ClearVerifyToken() {
	u.VerifyToken = nil
	u.VerifyTokenExpires = nil
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return u.Validate()
}
