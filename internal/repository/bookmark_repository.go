package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "evently/internal/errors"
	"evently/internal/model"
)

// ToggleResult is the state after a bookmark toggle.
type ToggleResult struct {
	Added         bool
	EventIDs      []uuid.UUID
	TotalBookmark uint
}

// BookmarkRepository manages the user-event bookmark relation.
type BookmarkRepository interface {
	// Toggle flips membership of eventID in the user's bookmark set and
	// adjusts the event counter in the same transaction.
	Toggle(ctx context.Context, userID, eventID uuid.UUID) (*ToggleResult, error)
	ListEventIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type bookmarkRepository struct {
	db *gorm.DB
}

// NewBookmarkRepository creates a new bookmark repository.
func NewBookmarkRepository(db *gorm.DB) BookmarkRepository {
	return &bookmarkRepository{db: db}
}

func (r *bookmarkRepository) Toggle(ctx context.Context, userID, eventID uuid.UUID) (*ToggleResult, error) {
	result := &ToggleResult{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock order is always user then event.
		var user model.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").Where("id = ?", userID).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUserNotFound
		}
		if err != nil {
			return err
		}

		var event model.Event
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").Where("id = ?", eventID).First(&event).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrEventNotFound
		}
		if err != nil {
			return err
		}

		removed := tx.Where("user_id = ? AND event_id = ?", userID, eventID).Delete(&model.Bookmark{})
		if removed.Error != nil {
			return removed.Error
		}

		counter := gorm.Expr("GREATEST(total_bookmark, 1) - 1")
		if removed.RowsAffected == 0 {
			if err := tx.Omit(clause.Associations).Create(&model.Bookmark{UserID: userID, EventID: eventID}).Error; err != nil {
				return err
			}
			counter = gorm.Expr("total_bookmark + 1")
			result.Added = true
		}

		if err := tx.Model(&model.Event{}).Where("id = ?", eventID).
			UpdateColumn("total_bookmark", counter).Error; err != nil {
			return err
		}

		if err := tx.Model(&model.Event{}).Select("total_bookmark").
			Where("id = ?", eventID).Scan(&result.TotalBookmark).Error; err != nil {
			return err
		}

		ids, err := listEventIDs(tx, userID)
		if err != nil {
			return err
		}
		result.EventIDs = ids
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *bookmarkRepository) ListEventIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return listEventIDs(r.db.WithContext(ctx), userID)
}

func listEventIDs(db *gorm.DB, userID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := db.Model(&model.Bookmark{}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Pluck("event_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
