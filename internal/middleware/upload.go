package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	apperrors "evently/internal/errors"
)

// UploadLimit caps the body of a banner upload route. A body over the limit
// is reported as a too-large file rather than a bare 413.
func UploadLimit(limit string) echo.MiddlewareFunc {
	bodyLimit := echomw.BodyLimit(limit)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		limited := bodyLimit(next)
		return func(c echo.Context) error {
			err := limited(c)
			var he *echo.HTTPError
			if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
				return apperrors.ErrFileTooLarge
			}
			return err
		}
	}
}

// SkipUploadRoutes reports whether the matched route is one of paths. Global
// body limits use it to leave upload routes to UploadLimit.
func SkipUploadRoutes(paths ...string) func(echo.Context) bool {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return func(c echo.Context) bool {
		_, ok := set[c.Path()]
		return ok
	}
}
