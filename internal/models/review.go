package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is event feedback from an attendee. One row per (event, user);
// only users with a "going" RSVP may leave one.
type Review struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	EventID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reviews_event_user;index:idx_reviews_event_rating"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reviews_event_user"`
	Rating    int       `gorm:"not null;index:idx_reviews_event_rating"`
	Comment   string
	Event     *Event `gorm:"foreignKey:EventID"`
	User      *User  `gorm:"foreignKey:UserID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (review *Review) BeforeCreate(tx *gorm.DB) (err error) {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	return
}
