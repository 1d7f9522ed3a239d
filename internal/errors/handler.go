package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HTTPErrorHandler is the final stage for every error returned by a handler
// or middleware. It renders the JSON error envelope and never leaks the
// underlying cause of an internal error.
func HTTPErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		httpErr := toHTTPError(err)
		if httpErr.StatusCode >= http.StatusInternalServerError {
			logger.ErrorContext(c.Request().Context(), "request failed",
				"method", c.Request().Method,
				"path", c.Path(),
				"error", err,
			)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(httpErr.StatusCode)
		} else {
			writeErr = c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
		}
		if writeErr != nil {
			logger.Error("write error response", "error", writeErr)
		}
	}
}

func toHTTPError(err error) *HTTPError {
	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		if echoErr.Internal != nil {
			if mapped := MapErrorToHTTP(echoErr.Internal); mapped.StatusCode != http.StatusInternalServerError {
				return mapped
			}
		}
		return fromEchoError(echoErr)
	}
	return MapErrorToHTTP(err)
}

func fromEchoError(he *echo.HTTPError) *HTTPError {
	if he.Code >= http.StatusInternalServerError {
		return NewHTTPError(he.Code, "Internal server error", "INTERNAL_ERROR")
	}

	message := http.StatusText(he.Code)
	switch m := he.Message.(type) {
	case string:
		message = m
	case ErrorResponse:
		return &HTTPError{StatusCode: he.Code, Message: m.Message, Code: m.Code, Fields: m.Errors}
	case error:
		message = m.Error()
	case nil:
	default:
		message = fmt.Sprint(m)
	}

	code := "HTTP_ERROR"
	switch he.Code {
	case http.StatusNotFound:
		code = "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		code = "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		code = "PAYLOAD_TOO_LARGE"
	case http.StatusUnauthorized:
		code = "UNAUTHORIZED"
	case http.StatusBadRequest:
		code = "BAD_REQUEST"
	}
	return NewHTTPError(he.Code, message, code)
}
