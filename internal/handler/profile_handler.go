package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "evently/internal/errors"
	"evently/internal/middleware"
	"evently/internal/model"
	"evently/internal/service"
)

// ProfileHandler serves the caller's own account.
type ProfileHandler struct {
	profileService service.ProfileService
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(profileService service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// EditProfileRequest represents a profile update.
type EditProfileRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email,max=255"`
}

// ProfileUser is a user with their bookmarked event ids.
type ProfileUser struct {
	*model.User
	BookmarkedEvent []uuid.UUID `json:"bookmarkedEvent"`
}

// ProfileData wraps a profile in the response data.
type ProfileData struct {
	User ProfileUser `json:"user"`
}

func newProfileData(p *service.Profile) ProfileData {
	ids := p.BookmarkedEvent
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ProfileData{User: ProfileUser{User: p.User, BookmarkedEvent: ids}}
}

// Me godoc
// @Summary Current user
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=ProfileData}
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /me [get]
func (h *ProfileHandler) Me(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return apperrors.ErrUnauthorized
	}

	profile, err := h.profileService.Me(c.Request().Context(), claims.UserID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "User found", newProfileData(profile))
}

// Edit godoc
// @Summary Edit the current user
// @Description Changing the email resets verification and mails a new link.
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body EditProfileRequest true "Profile fields"
// @Success 200 {object} Response{data=ProfileData}
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /me/edit [post]
func (h *ProfileHandler) Edit(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return apperrors.ErrUnauthorized
	}

	var req EditProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	profile, err := h.profileService.Edit(c.Request().Context(), claims.UserID, service.EditProfileInput{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Profile updated", newProfileData(profile))
}
