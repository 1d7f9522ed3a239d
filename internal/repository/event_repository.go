package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "evently/internal/errors"
	"evently/internal/model"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// EventFilter narrows and pages an event listing.
type EventFilter struct {
	Page     int
	Limit    int
	Category model.Category
	Search   string
}

// Normalize clamps paging to sane bounds.
func (f *EventFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	f.Search = strings.TrimSpace(f.Search)
}

// EventRepository defines event persistence operations.
type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	// Update writes the editable columns and reloads event. The bookmark
	// counter and author are never overwritten.
	Update(ctx context.Context, event *model.Event) error
	// Delete removes the event and every bookmark pointing at it.
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error)
	List(ctx context.Context, filter EventFilter) ([]model.Event, int64, error)
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Omit("Author").Create(event).Error
}

var editableEventColumns = []string{
	"name", "description", "location", "banner_url",
	"start_date", "end_date", "ticket_price", "category",
}

func (r *eventRepository) Update(ctx context.Context, event *model.Event) error {
	res := r.db.WithContext(ctx).Model(&model.Event{ID: event.ID}).
		Select(editableEventColumns).
		Updates(event)
	if res.Error != nil {
		return res.Error
	}
	return r.reload(ctx, event)
}

func (r *eventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).Delete(&model.Bookmark{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Event{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrEventNotFound
		}
		return nil
	})
}

func (r *eventRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	var event model.Event
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) List(ctx context.Context, filter EventFilter) ([]model.Event, int64, error) {
	filter.Normalize()

	query := r.db.WithContext(ctx).Model(&model.Event{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(filter.Search)) + "%"
		query = query.Where(
			"LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(location) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []model.Event
	err := query.
		Order("created_at DESC").
		Limit(filter.Limit).
		Offset((filter.Page - 1) * filter.Limit).
		Find(&events).Error
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *eventRepository) reload(ctx context.Context, event *model.Event) error {
	err := r.db.WithContext(ctx).Where("id = ?", event.ID).First(event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrEventNotFound
	}
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
