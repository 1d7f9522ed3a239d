package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	apperrors "evently/internal/errors"
	"evently/internal/middleware"
	"evently/internal/model"
	"evently/internal/repository"
	"evently/internal/service"
)

// Accepted date layouts, most specific first. The short forms are what
// HTML date inputs submit.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02",
}

// EventHandler handles event and bookmark endpoints.
type EventHandler struct {
	eventService service.EventService
	now          func() time.Time
}

// NewEventHandler creates a new event handler.
func NewEventHandler(eventService service.EventService) *EventHandler {
	return &EventHandler{eventService: eventService, now: time.Now}
}

// EventRequest carries the writable event fields, as JSON or multipart form.
type EventRequest struct {
	Name        string      `json:"name" form:"name" validate:"required,max=255"`
	Description string      `json:"description" form:"description" validate:"required"`
	Location    string      `json:"location" form:"location" validate:"required,max=255"`
	StartDate   string      `json:"startDate" form:"startDate"`
	EndDate     string      `json:"endDate" form:"endDate"`
	TicketPrice json.Number `json:"ticketPrice" form:"ticketPrice" swaggertype:"number"`
	Category    string      `json:"category" form:"category"`
}

// Pagination describes a listing page.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// EventListData is the payload of an event listing.
type EventListData struct {
	Events     []EventResponse `json:"events"`
	Pagination Pagination      `json:"pagination"`
}

// EventData wraps a single event.
type EventData struct {
	Event EventResponse `json:"event"`
}

// BookmarkData is the caller's bookmark set after a toggle.
type BookmarkData struct {
	Bookmarked      bool        `json:"bookmarked"`
	BookmarkedEvent []uuid.UUID `json:"bookmarkedEvent"`
	TotalBookmark   uint        `json:"totalBookmark"`
}

// List godoc
// @Summary List events
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(10)
// @Param category query string false "Category filter"
// @Param search query string false "Search over name, description and location"
// @Success 200 {object} Response{data=EventListData}
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /events [get]
func (h *EventHandler) List(c echo.Context) error {
	var filter repository.EventFilter
	var category string
	err := echo.QueryParamsBinder(c).
		Int("page", &filter.Page).
		Int("limit", &filter.Limit).
		String("category", &category).
		String("search", &filter.Search).
		BindError()
	if err != nil {
		var be *echo.BindingError
		if errors.As(err, &be) {
			return apperrors.NewValidationError(be.Field, be.Field+" must be a number")
		}
		return err
	}
	filter.Category = model.Category(strings.ToLower(strings.TrimSpace(category)))

	page, err := h.eventService.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, "Get all events success", EventListData{
		Events: newEventResponses(page.Events, h.now()),
		Pagination: Pagination{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      page.Total,
			TotalPages: page.TotalPages,
		},
	})
}

// Detail godoc
// @Summary Event detail
// @Tags events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} Response{data=EventData}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /events/{id}/detail [get]
func (h *EventHandler) Detail(c echo.Context) error {
	id, err := middleware.ParseID(c)
	if err != nil {
		return err
	}

	event, err := h.eventService.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Get event success", EventData{Event: newEventResponse(event, h.now())})
}

// Create godoc
// @Summary Create an event
// @Description Accepts JSON or multipart form data with an optional "banner" image (jpg or png, max 2MB).
// @Tags events
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param request body EventRequest true "Event fields"
// @Param banner formData file false "Banner image"
// @Success 201 {object} Response{data=EventData}
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /events/create [post]
func (h *EventHandler) Create(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return apperrors.ErrUnauthorized
	}

	in, cleanup, err := h.readEventInput(c)
	if err != nil {
		return err
	}
	defer cleanup()

	event, err := h.eventService.Create(c.Request().Context(), claims.UserID, in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Event created", EventData{Event: newEventResponse(event, h.now())})
}

// Edit godoc
// @Summary Edit an event
// @Description Only the author or an admin may edit. Same body as create.
// @Tags events
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param request body EventRequest true "Event fields"
// @Param banner formData file false "Banner image"
// @Success 200 {object} Response{data=EventData}
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /events/{id}/edit [put]
func (h *EventHandler) Edit(c echo.Context) error {
	id, err := middleware.ParseID(c)
	if err != nil {
		return err
	}

	in, cleanup, err := h.readEventInput(c)
	if err != nil {
		return err
	}
	defer cleanup()

	event, err := h.eventService.Update(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Event updated", EventData{Event: newEventResponse(event, h.now())})
}

// Delete godoc
// @Summary Delete an event
// @Description Only the author or an admin may delete.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 200 {object} Response{data=EventData}
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /events/{id} [delete]
func (h *EventHandler) Delete(c echo.Context) error {
	id, err := middleware.ParseID(c)
	if err != nil {
		return err
	}

	event, err := h.eventService.Delete(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Event deleted", EventData{Event: newEventResponse(event, h.now())})
}

// ToggleBookmark godoc
// @Summary Toggle a bookmark
// @Description Adds the event to the caller's bookmarks, or removes it when already present.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 200 {object} Response{data=BookmarkData}
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /events/{id} [patch]
func (h *EventHandler) ToggleBookmark(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return apperrors.ErrUnauthorized
	}
	id, err := middleware.ParseID(c)
	if err != nil {
		return err
	}

	result, err := h.eventService.ToggleBookmark(c.Request().Context(), claims.UserID, id)
	if err != nil {
		return err
	}

	message := "Bookmark removed"
	if result.Added {
		message = "Bookmark added"
	}
	ids := result.EventIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return respond(c, http.StatusOK, message, BookmarkData{
		Bookmarked:      result.Added,
		BookmarkedEvent: ids,
		TotalBookmark:   result.TotalBookmark,
	})
}

// readEventInput binds the event fields and opens the optional banner. The
// returned cleanup closes the banner file and is always non-nil.
func (h *EventHandler) readEventInput(c echo.Context) (service.EventInput, func(), error) {
	noop := func() {}

	var req EventRequest
	if err := bind(c, &req); err != nil {
		return service.EventInput{}, noop, err
	}

	in := service.EventInput{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		Category:    model.Category(strings.ToLower(strings.TrimSpace(req.Category))),
	}

	var err error
	if in.StartDate, err = parseDate("startDate", req.StartDate); err != nil {
		return service.EventInput{}, noop, err
	}
	if in.EndDate, err = parseDate("endDate", req.EndDate); err != nil {
		return service.EventInput{}, noop, err
	}
	if price := strings.TrimSpace(req.TicketPrice.String()); price != "" {
		d, err := decimal.NewFromString(price)
		if err != nil {
			return service.EventInput{}, noop, apperrors.NewValidationError("ticketPrice", "ticketPrice must be a number")
		}
		in.TicketPrice = &d
	}

	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return in, noop, nil
	}

	fh, err := c.FormFile("banner")
	if errors.Is(err, http.ErrMissingFile) {
		return in, noop, nil
	}
	if err != nil {
		return service.EventInput{}, noop, echo.NewHTTPError(http.StatusBadRequest, "Invalid banner upload")
	}
	file, err := fh.Open()
	if err != nil {
		return service.EventInput{}, noop, echo.NewHTTPError(http.StatusBadRequest, "Invalid banner upload")
	}
	in.Banner = &service.BannerFile{Body: file, Size: fh.Size}
	return in, func() { _ = file.Close() }, nil
}

func parseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, apperrors.NewValidationError(field, field+" must be a valid date")
}
