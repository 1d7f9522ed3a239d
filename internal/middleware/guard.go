package middleware

import (
	"context"
	"errors"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"evently/internal/auth"
	apperrors "evently/internal/errors"
)

const claimsContextKey = "claims"

// Authenticate requires a valid "Authorization: Bearer <token>" header and
// stores the decoded claims in the request context.
func Authenticate(jwtService *auth.JWTService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ContextKey:  claimsContextKey,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return jwtService.ValidateToken(token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			var parseErr *echojwt.TokenParsingError
			if errors.As(err, &parseErr) {
				return apperrors.ErrUnauthorized
			}
			return apperrors.ErrMissingBearer
		},
	})
}

// ClaimsFrom returns the claims stored by Authenticate.
func ClaimsFrom(c echo.Context) (*auth.Claims, bool) {
	claims, ok := c.Get(claimsContextKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// ParseID reads the ":id" route parameter as a UUID.
func ParseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperrors.ErrInvalidID
	}
	return id, nil
}

// OwnerLookup returns the author of the resource with the given id.
type OwnerLookup func(ctx context.Context, id uuid.UUID) (uuid.UUID, error)

// RequireOwnership lets the request through only for the resource's author
// or an admin. It must run after Authenticate.
func RequireOwnership(lookup OwnerLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFrom(c)
			if !ok {
				return apperrors.ErrUnauthorized
			}

			id, err := ParseID(c)
			if err != nil {
				return err
			}

			owner, err := lookup(c.Request().Context(), id)
			if err != nil {
				return err
			}

			if !claims.IsAdmin() && owner != claims.UserID {
				return apperrors.ErrForbidden
			}
			return next(c)
		}
	}
}
