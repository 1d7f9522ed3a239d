package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"evently/internal/auth"
	"evently/internal/model"
	"evently/internal/repository"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindPendingByVerifyToken(ctx context.Context, tokenHash string) (*model.User, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) MarkVerified(ctx context.Context, id uuid.UUID, tokenHash string) error {
	args := m.Called(ctx, id, tokenHash)
	return args.Error(0)
}

// MockEventRepository is a mock implementation of EventRepository.
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Create(ctx context.Context, event *model.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) Update(ctx context.Context, event *model.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *MockEventRepository) List(ctx context.Context, filter repository.EventFilter) ([]model.Event, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.Event), args.Get(1).(int64), args.Error(2)
}

// MockBookmarkRepository is a mock implementation of BookmarkRepository.
type MockBookmarkRepository struct {
	mock.Mock
}

func (m *MockBookmarkRepository) Toggle(ctx context.Context, userID, eventID uuid.UUID) (*repository.ToggleResult, error) {
	args := m.Called(ctx, userID, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.ToggleResult), args.Error(1)
}

func (m *MockBookmarkRepository) ListEventIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// MockNotifier is a mock implementation of Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendVerification(ctx context.Context, to, username, rawToken string, expiresAt time.Time) {
	m.Called(ctx, to, username, rawToken, expiresAt)
}

func (m *MockNotifier) SendEmailChanged(ctx context.Context, to, username, rawToken string, expiresAt time.Time) {
	m.Called(ctx, to, username, rawToken, expiresAt)
}

// MockIdentityProvider is a mock implementation of auth.IdentityProvider.
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) AuthCodeURL(state string) string {
	return m.Called(state).String(0)
}

func (m *MockIdentityProvider) Exchange(ctx context.Context, code string) (*auth.ExternalIdentity, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.ExternalIdentity), args.Error(1)
}

// MockEventCache is a mock implementation of EventCache.
type MockEventCache struct {
	mock.Mock
}

func (m *MockEventCache) GetJSON(ctx context.Context, key string, dst any) bool {
	return m.Called(ctx, key, dst).Bool(0)
}

func (m *MockEventCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	m.Called(ctx, key, value, ttl)
}

func (m *MockEventCache) Delete(ctx context.Context, keys ...string) error {
	return m.Called(ctx, keys).Error(0)
}

// MockBannerUploader is a mock implementation of BannerUploader.
type MockBannerUploader struct {
	mock.Mock
}

func (m *MockBannerUploader) Upload(ctx context.Context, body io.Reader, size int64) (string, error) {
	args := m.Called(ctx, body, size)
	return args.String(0), args.Error(1)
}

// countingRecorder records bookmark toggles.
type countingRecorder struct {
	added, removed int
}

func (r *countingRecorder) BookmarkToggled(added bool) {
	if added {
		r.added++
	} else {
		r.removed++
	}
}
