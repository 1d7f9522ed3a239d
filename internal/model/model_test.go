package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalUser(t *testing.T) {
	u, err := NewLocalUser("  alice123 ", " A@X.com ", "$2a$10$hash")
	require.NoError(t, err)

	assert.Equal(t, "alice123", u.Username)
	assert.Equal(t, "a@x.com", u.Email)
	assert.False(t, u.IsVerified)
	assert.Equal(t, AuthTypeLocal, u.AuthType)
	assert.Equal(t, RoleUser, u.Role)
}

func TestNewLocalUser_RequiresPassword(t *testing.T) {
	_, err := NewLocalUser("alice123", "a@x.com", "")
	assert.ErrorIs(t, err, ErrPasswordRequired)
}

func TestNewDelegatedUser(t *testing.T) {
	u, err := NewDelegatedUser("Alice", "Alice@Gmail.com")
	require.NoError(t, err)

	assert.True(t, u.IsVerified)
	assert.Nil(t, u.PasswordHash)
	assert.Equal(t, AuthTypeGoogle, u.AuthType)
	assert.Equal(t, "alice@gmail.com", u.Email)
}

func TestUser_Validate(t *testing.T) {
	hash := "hash"
	tests := []struct {
		name string
		user User
		want error
	}{
		{"blank username", User{Username: "  ", Email: "a@x.com", AuthType: AuthTypeGoogle, Role: RoleUser}, ErrUsernameRequired},
		{"uppercase email", User{Username: "bob", Email: "A@x.com", AuthType: AuthTypeGoogle, Role: RoleUser}, ErrEmailRequired},
		{"unknown auth type", User{Username: "bob", Email: "a@x.com", AuthType: "github", Role: RoleUser}, ErrInvalidAuthType},
		{"unknown role", User{Username: "bob", Email: "a@x.com", PasswordHash: &hash, AuthType: AuthTypeLocal, Role: "root"}, ErrInvalidRole},
		{"valid admin", User{Username: "bob", Email: "a@x.com", PasswordHash: &hash, AuthType: AuthTypeLocal, Role: RoleAdmin}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUser_VerifyTokenLifecycle(t *testing.T) {
	u := &User{}
	exp := time.Now().Add(time.Hour)
	u.SetVerifyToken("abc", exp)
	require.NotNil(t, u.VerifyToken)
	assert.Equal(t, "abc", *u.VerifyToken)
	assert.Equal(t, exp, *u.VerifyTokenExpires)

	u.ClearVerifyToken()
	assert.Nil(t, u.VerifyToken)
	assert.Nil(t, u.VerifyTokenExpires)
}

func validEvent() *Event {
	return &Event{
		Name:        "Go Meetup",
		Description: "Monthly gophers",
		Location:    "Jakarta",
		StartDate:   time.Date(2026, 1, 10, 18, 0, 0, 0, time.UTC),
		TicketPrice: decimal.Zero,
		Category:    CategoryMeetup,
	}
}

func TestEvent_Validate(t *testing.T) {
	before := time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC)
	same := time.Date(2026, 1, 10, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(e *Event)
		want   error
	}{
		{"valid", func(e *Event) {}, nil},
		{"blank name", func(e *Event) { e.Name = " " }, ErrEventNameRequired},
		{"blank description", func(e *Event) { e.Description = "" }, ErrEventDescriptionRequired},
		{"blank location", func(e *Event) { e.Location = "\t" }, ErrEventLocationRequired},
		{"negative price", func(e *Event) { e.TicketPrice = decimal.NewFromInt(-1) }, ErrNegativeTicketPrice},
		{"unknown category", func(e *Event) { e.Category = "party" }, ErrInvalidCategory},
		{"end before start", func(e *Event) { e.EndDate = &before }, ErrEndBeforeStart},
		{"end equals start", func(e *Event) { e.EndDate = &same }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEvent()
			tt.mutate(e)
			err := e.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEvent_Normalize(t *testing.T) {
	now := time.Now()
	e := &Event{Name: "  Expo ", Description: " d ", Location: " l "}
	e.Normalize(now)

	assert.Equal(t, "Expo", e.Name)
	assert.Equal(t, CategoryOthers, e.Category)
	assert.Equal(t, now, e.StartDate)
}

func TestEvent_Status(t *testing.T) {
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(4 * time.Hour)
	e := &Event{StartDate: start, EndDate: &end}

	assert.Equal(t, EventStatusUpcoming, e.Status(start.Add(-time.Minute)))
	assert.Equal(t, EventStatusOngoing, e.Status(start.Add(time.Hour)))
	assert.Equal(t, EventStatusEnded, e.Status(end.Add(time.Minute)))

	open := &Event{StartDate: start}
	assert.Equal(t, EventStatusOngoing, open.Status(start.Add(48*time.Hour)))
}

func TestCategories(t *testing.T) {
	assert.Len(t, Categories, 12)
	assert.True(t, CategoryCharity.Valid())
	assert.False(t, Category("rave").Valid())
}
