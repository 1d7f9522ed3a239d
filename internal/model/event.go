package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category is one of a closed set of event kinds.
type Category string

const (
	CategorySeminar     Category = "seminar"
	CategoryWorkshop    Category = "workshop"
	CategoryWebinar     Category = "webinar"
	CategoryConcert     Category = "concert"
	CategoryFestival    Category = "festival"
	CategoryConference  Category = "conference"
	CategoryCompetition Category = "competition"
	CategoryMeetup      Category = "meetup"
	CategorySports      Category = "sports"
	CategoryExhibition  Category = "exhibition"
	CategoryCharity     Category = "charity"
	CategoryOthers      Category = "others"
)

// Categories lists every accepted category.
var Categories = []Category{
	CategorySeminar, CategoryWorkshop, CategoryWebinar, CategoryConcert,
	CategoryFestival, CategoryConference, CategoryCompetition, CategoryMeetup,
	CategorySports, CategoryExhibition, CategoryCharity, CategoryOthers,
}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// EventStatus is derived from the event dates at read time.
type EventStatus string

const (
	EventStatusUpcoming EventStatus = "upcoming"
	EventStatusOngoing  EventStatus = "ongoing"
	EventStatusEnded    EventStatus = "ended"
)

var (
	ErrEventNameRequired        = errors.New("name is required")
	ErrEventDescriptionRequired = errors.New("description is required")
	ErrEventLocationRequired    = errors.New("location is required")
	ErrNegativeTicketPrice      = errors.New("ticket price must not be negative")
	ErrInvalidCategory          = errors.New("invalid category")
	ErrEndBeforeStart           = errors.New("end date must be greater than the start date")
)

// Event is a listed event owned by its author.
type Event struct {
	ID            uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	Name          string          `json:"name" gorm:"size:255;not null"`
	Description   string          `json:"description" gorm:"type:text;not null"`
	Location      string          `json:"location" gorm:"size:255;not null"`
	BannerURL     *string         `json:"bannerUrl,omitempty" gorm:"size:512"`
	StartDate     time.Time       `json:"startDate" gorm:"not null;index"`
	EndDate       *time.Time      `json:"endDate,omitempty"`
	TicketPrice   decimal.Decimal `json:"ticketPrice" gorm:"type:decimal(12,2);not null;default:0"`
	Category      Category        `json:"category" gorm:"type:varchar(32);not null;default:'others';index"`
	TotalBookmark uint            `json:"totalBookmark" gorm:"not null;default:0"`
	AuthorID      uuid.UUID       `json:"author" gorm:"type:char(36);not null;index"`
	CreatedAt     time.Time       `json:"createdAt" gorm:"index"`
	UpdatedAt     time.Time       `json:"updatedAt"`

	// Relations
	Author User `json:"-" gorm:"foreignKey:AuthorID"`
}

// Normalize trims descriptive fields and fills defaults.
func (e *Event) Normalize(now time.Time) {
	e.Name = strings.TrimSpace(e.Name)
	e.Description = strings.TrimSpace(e.Description)
	e.Location = strings.TrimSpace(e.Location)
	if e.Category == "" {
		e.Category = CategoryOthers
	}
	if e.StartDate.IsZero() {
		e.StartDate = now
	}
}

// Validate checks the event invariants.
func (e *Event) Validate() error {
	switch {
	case strings.TrimSpace(e.Name) == "":
		return ErrEventNameRequired
	case strings.TrimSpace(e.Description) == "":
		return ErrEventDescriptionRequired
	case strings.TrimSpace(e.Location) == "":
		return ErrEventLocationRequired
	case e.TicketPrice.IsNegative():
		return ErrNegativeTicketPrice
	case !e.Category.Valid():
		return ErrInvalidCategory
	case e.EndDate != nil && e.EndDate.Before(e.StartDate):
		return ErrEndBeforeStart
	}
	return nil
}

// Status derives the lifecycle state of the event at now.
func (e *Event) Status(now time.Time) EventStatus {
	if now.Before(e.StartDate) {
		return EventStatusUpcoming
	}
	if e.EndDate != nil && now.After(*e.EndDate) {
		return EventStatusEnded
	}
	return EventStatusOngoing
}

// BeforeCreate sets UUID before creating the record.
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
