package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apperrors "evently/internal/errors"
	"evently/internal/model"
)

// Response is the envelope shared by every successful response.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respond(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, Response{Success: true, Message: message, Data: data})
}

// bind decodes the request into req and runs the registered validator.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
			return err
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	return c.Validate(req)
}

// EventResponse is an event with its derived status.
type EventResponse struct {
	model.Event
	Status model.EventStatus `json:"status"`
}

func newEventResponse(event *model.Event, now time.Time) EventResponse {
	return EventResponse{Event: *event, Status: event.Status(now)}
}

func newEventResponses(events []model.Event, now time.Time) []EventResponse {
	out := make([]EventResponse, len(events))
	for i := range events {
		out[i] = newEventResponse(&events[i], now)
	}
	return out
}

// ErrorResponse is the error envelope written by the HTTP error handler.
type ErrorResponse = apperrors.ErrorResponse
