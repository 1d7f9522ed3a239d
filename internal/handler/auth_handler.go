package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"evently/internal/auth"
	apperrors "evently/internal/errors"
	"evently/internal/model"
	"evently/internal/service"
)

const (
	stateCookieName = "evently_oauth_state"
	stateCookieTTL  = 10 * time.Minute
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
	clientURL   string
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler. clientURL is the front-end
// origin that delegated sign-in redirects back to.
func NewAuthHandler(authService service.AuthService, clientURL string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		clientURL:   strings.TrimRight(clientURL, "/"),
		logger:      logger,
	}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

// ResendRequest represents a verification resend request.
type ResendRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserData wraps a user in the response data.
type UserData struct {
	User *model.User `json:"user"`
}

// LoginData is the payload of a successful login.
type LoginData struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} Response{data=UserData}
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return respond(c, http.StatusCreated,
		"User registration was successful. Check email for confirmation",
		UserData{User: user},
	)
}

// ResendVerification godoc
// @Summary Resend the verification mail
// @Description Only an unverified local account whose previous link has expired is eligible.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ResendRequest true "Account email"
// @Success 200 {object} Response
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/resend-verification [post]
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	var req ResendRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.authService.ResendVerification(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Verification mail was resent. Check email for confirmation", nil)
}

// VerifyEmail godoc
// @Summary Verify an email address
// @Tags auth
// @Produce json
// @Param token query string true "Verification token from the mail"
// @Success 201 {object} Response{data=UserData}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/verify-email [get]
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	token := strings.TrimSpace(c.QueryParam("token"))
	if token == "" {
		return apperrors.ErrMissingVerifyToken
	}

	user, err := h.authService.VerifyEmail(c.Request().Context(), token)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "User verification was successful", UserData{User: user})
}

// Login godoc
// @Summary Login with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} Response{data=LoginData}
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	token, user, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Login success", LoginData{Token: token, User: user})
}

// Google godoc
// @Summary Start Google sign-in
// @Tags auth
// @Success 302
// @Failure 404 {object} ErrorResponse
// @Router /auth/google [get]
func (h *AuthHandler) Google(c echo.Context) error {
	state, err := auth.NewOAuthState()
	if err != nil {
		return err
	}
	consentURL, err := h.authService.DelegatedAuthURL(state)
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, consentURL)
}

// GoogleCallback godoc
// @Summary Complete Google sign-in
// @Description Redirects to the client with a bearer token, or to the login page on failure.
// @Tags auth
// @Param state query string true "State issued by /auth/google"
// @Param code query string true "Authorization code"
// @Success 302
// @Router /auth/google/callback [get]
func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	cookie, err := c.Cookie(stateCookieName)
	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Path:     "/auth/google",
		MaxAge:   -1,
		HttpOnly: true,
	})

	if err != nil || cookie.Value == "" || cookie.Value != c.QueryParam("state") {
		h.logger.WarnContext(c.Request().Context(), "google callback state mismatch")
		return h.failDelegated(c)
	}

	code := c.QueryParam("code")
	if code == "" {
		h.logger.WarnContext(c.Request().Context(), "google callback without code", "error", c.QueryParam("error"))
		return h.failDelegated(c)
	}

	token, _, err := h.authService.LoginWithDelegatedIdentity(c.Request().Context(), code)
	if err != nil {
		h.logger.WarnContext(c.Request().Context(), "google sign-in failed", "error", err)
		return h.failDelegated(c)
	}

	return c.Redirect(http.StatusFound, h.clientURL+"/auth/success?token="+url.QueryEscape(token))
}

func (h *AuthHandler) failDelegated(c echo.Context) error {
	return c.Redirect(http.StatusFound, h.clientURL+"/login?error=google_auth_failed")
}
