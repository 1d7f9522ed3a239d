package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "evently/internal/errors"
	"evently/internal/model"
	"evently/internal/repository"
)

const eventCacheTTL = 5 * time.Minute

// EventCache is the read-through cache for event details. Misses and
// failures are indistinguishable.
type EventCache interface {
	GetJSON(ctx context.Context, key string, dst any) bool
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration)
	Delete(ctx context.Context, keys ...string) error
}

// BannerUploader stores a banner image and returns its URL.
type BannerUploader interface {
	Upload(ctx context.Context, body io.Reader, size int64) (string, error)
}

// BookmarkRecorder observes bookmark toggles.
type BookmarkRecorder interface {
	BookmarkToggled(added bool)
}

// BannerFile is an uploaded banner awaiting storage.
type BannerFile struct {
	Body io.Reader
	Size int64
}

// EventInput carries the writable event fields. Nil pointers mean "not
// supplied": defaults on create, unchanged on edit.
type EventInput struct {
	Name        string
	Description string
	Location    string
	StartDate   *time.Time
	EndDate     *time.Time
	TicketPrice *decimal.Decimal
	Category    model.Category
	Banner      *BannerFile
}

// EventPage is one page of an event listing.
type EventPage struct {
	Events     []model.Event
	Page       int
	Limit      int
	Total      int64
	TotalPages int
}

// EventService manages events and bookmarks.
type EventService interface {
	List(ctx context.Context, filter repository.EventFilter) (*EventPage, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Event, error)
	Create(ctx context.Context, authorID uuid.UUID, in EventInput) (*model.Event, error)
	Update(ctx context.Context, id uuid.UUID, in EventInput) (*model.Event, error)
	Delete(ctx context.Context, id uuid.UUID) (*model.Event, error)
	ToggleBookmark(ctx context.Context, userID, eventID uuid.UUID) (*repository.ToggleResult, error)
	// AuthorOf returns the owner of an event, for the ownership check.
	AuthorOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

type eventService struct {
	events    repository.EventRepository
	bookmarks repository.BookmarkRepository
	cache     EventCache
	banners   BannerUploader
	recorder  BookmarkRecorder
	logger    *slog.Logger
	now       func() time.Time
}

// NewEventService creates a new event service.
func NewEventService(
	events repository.EventRepository,
	bookmarks repository.BookmarkRepository,
	cache EventCache,
	banners BannerUploader,
	recorder BookmarkRecorder,
	logger *slog.Logger,
) EventService {
	return &eventService{
		events:    events,
		bookmarks: bookmarks,
		cache:     cache,
		banners:   banners,
		recorder:  recorder,
		logger:    logger,
		now:       time.Now,
	}
}

func eventCacheKey(id uuid.UUID) string {
	return "event:" + id.String()
}

func (s *eventService) List(ctx context.Context, filter repository.EventFilter) (*EventPage, error) {
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, apperrors.NewValidationError("category", model.ErrInvalidCategory.Error())
	}
	filter.Normalize()

	events, total, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	totalPages := int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	return &EventPage{
		Events:     events,
		Page:       filter.Page,
		Limit:      filter.Limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

func (s *eventService) Get(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	key := eventCacheKey(id)

	var cached model.Event
	if s.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetJSON(ctx, key, event, eventCacheTTL)
	return event, nil
}

func (s *eventService) Create(ctx context.Context, authorID uuid.UUID, in EventInput) (*model.Event, error) {
	event := &model.Event{AuthorID: authorID}
	s.apply(event, in)
	event.Normalize(s.now())
	if err := event.Validate(); err != nil {
		return nil, err
	}

	if err := s.attachBanner(ctx, event, in.Banner); err != nil {
		return nil, err
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.logger.InfoContext(ctx, "event created", "event_id", event.ID, "author_id", authorID)
	return event, nil
}

func (s *eventService) Update(ctx context.Context, id uuid.UUID, in EventInput) (*model.Event, error) {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.apply(event, in)
	event.Normalize(s.now())
	if err := event.Validate(); err != nil {
		return nil, err
	}

	if err := s.attachBanner(ctx, event, in.Banner); err != nil {
		return nil, err
	}

	if err := s.events.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	_ = s.cache.Delete(ctx, eventCacheKey(id))
	return event, nil
}

func (s *eventService) Delete(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.events.Delete(ctx, id); err != nil {
		return nil, err
	}
	_ = s.cache.Delete(ctx, eventCacheKey(id))
	s.logger.InfoContext(ctx, "event deleted", "event_id", id)
	return event, nil
}

func (s *eventService) ToggleBookmark(ctx context.Context, userID, eventID uuid.UUID) (*repository.ToggleResult, error) {
	result, err := s.bookmarks.Toggle(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Delete(ctx, eventCacheKey(eventID))
	if s.recorder != nil {
		s.recorder.BookmarkToggled(result.Added)
	}
	return result, nil
}

func (s *eventService) AuthorOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	event, err := s.Get(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}
	return event.AuthorID, nil
}

func (s *eventService) apply(event *model.Event, in EventInput) {
	event.Name = sanitizeText(in.Name)
	event.Description = sanitizeText(in.Description)
	event.Location = sanitizeText(in.Location)
	if in.Category != "" {
		event.Category = in.Category
	}
	if in.StartDate != nil {
		event.StartDate = in.StartDate.UTC()
	}
	if in.EndDate != nil {
		end := in.EndDate.UTC()
		event.EndDate = &end
	}
	if in.TicketPrice != nil {
		event.TicketPrice = *in.TicketPrice
	}
}

func (s *eventService) attachBanner(ctx context.Context, event *model.Event, banner *BannerFile) error {
	if banner == nil {
		return nil
	}
	if s.banners == nil {
		return apperrors.ErrUploadsDisabled
	}
	url, err := s.banners.Upload(ctx, banner.Body, banner.Size)
	if err != nil {
		return err
	}
	event.BannerURL = &url
	return nil
}
