package model

import (
	"time"

	"github.com/google/uuid"
)

// Bookmark is one membership of an event in a user's bookmark set.
type Bookmark struct {
	UserID    uuid.UUID `json:"userId" gorm:"type:char(36);primaryKey"`
	EventID   uuid.UUID `json:"eventId" gorm:"type:char(36);primaryKey;index"`
	CreatedAt time.Time `json:"createdAt"`

	// Relations
	User  User  `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Event Event `json:"-" gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
}
