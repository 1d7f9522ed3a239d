package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evently/internal/auth"
	apperrors "evently/internal/errors"
	"evently/internal/logger"
	"evently/internal/model"
)

const secret = "guard-secret"

func newUser(role model.Role) *model.User {
	return &model.User{ID: uuid.New(), Email: "u@x.com", AuthType: model.AuthTypeLocal, Role: role}
}

func bearer(t *testing.T, user *model.User) string {
	t.Helper()
	token, err := auth.NewJWTService(secret).GenerateToken(user)
	require.NoError(t, err)
	return "Bearer " + token
}

func newEcho(lookup OwnerLookup) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = apperrors.HTTPErrorHandler(logger.Discard())
	jwtService := auth.NewJWTService(secret)

	protected := e.Group("", Authenticate(jwtService))
	protected.GET("/me", func(c echo.Context) error {
		claims, ok := ClaimsFrom(c)
		if !ok {
			return apperrors.ErrUnauthorized
		}
		return c.String(http.StatusOK, claims.UserID.String())
	})
	protected.PUT("/events/:id/edit", func(c echo.Context) error {
		return c.String(http.StatusOK, "edited")
	}, RequireOwnership(lookup))
	return e
}

func do(e *echo.Echo, method, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body.Message
}

func TestAuthenticate(t *testing.T) {
	user := newUser(model.RoleUser)
	wrongKey, err := auth.NewJWTService("other-secret").GenerateToken(user)
	require.NoError(t, err)

	tests := []struct {
		name        string
		header      string
		wantStatus  int
		wantMessage string
	}{
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized, wantMessage: apperrors.ErrMissingBearer.Error()},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", wantStatus: http.StatusUnauthorized, wantMessage: apperrors.ErrMissingBearer.Error()},
		{name: "empty bearer", header: "Bearer ", wantStatus: http.StatusUnauthorized, wantMessage: apperrors.ErrMissingBearer.Error()},
		{name: "garbage token", header: "Bearer not.a.jwt", wantStatus: http.StatusUnauthorized, wantMessage: apperrors.ErrUnauthorized.Error()},
		{name: "wrong signature", header: "Bearer " + wrongKey, wantStatus: http.StatusUnauthorized, wantMessage: apperrors.ErrUnauthorized.Error()},
		{name: "valid", header: bearer(t, user), wantStatus: http.StatusOK},
	}

	e := newEcho(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodGet, "/me", tt.header)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, message(t, rec))
			} else {
				assert.Equal(t, user.ID.String(), rec.Body.String())
			}
		})
	}
}

func TestRequireOwnership(t *testing.T) {
	author := newUser(model.RoleUser)
	stranger := newUser(model.RoleUser)
	admin := newUser(model.RoleAdmin)
	eventID := uuid.New()

	lookup := func(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
		if id != eventID {
			return uuid.Nil, apperrors.ErrEventNotFound
		}
		return author.ID, nil
	}
	e := newEcho(lookup)

	tests := []struct {
		name       string
		path       string
		user       *model.User
		wantStatus int
	}{
		{name: "author", path: "/events/" + eventID.String() + "/edit", user: author, wantStatus: http.StatusOK},
		{name: "admin", path: "/events/" + eventID.String() + "/edit", user: admin, wantStatus: http.StatusOK},
		{name: "stranger", path: "/events/" + eventID.String() + "/edit", user: stranger, wantStatus: http.StatusForbidden},
		{name: "malformed id", path: "/events/123/edit", user: author, wantStatus: http.StatusBadRequest},
		{name: "unknown event", path: "/events/" + uuid.NewString() + "/edit", user: author, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodPut, tt.path, bearer(t, tt.user))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	// Authentication runs first, so an anonymous request never reaches the lookup.
	rec := do(e, http.MethodPut, "/events/123/edit", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))

	e := echo.New()
	e.HTTPErrorHandler = apperrors.HTTPErrorHandler(logger.Discard())
	e.Use(RequestLogger(l))
	e.GET("/events/:id/detail", func(c echo.Context) error {
		return apperrors.ErrEventNotFound
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/abc/detail", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "request", record["msg"])
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, float64(http.StatusNotFound), record["status"])
	assert.Equal(t, "/events/abc/detail", record["uri"])
}
