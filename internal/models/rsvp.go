package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RSVPStatusGoing    = "going"
	RSVPStatusMaybe    = "maybe"
	RSVPStatusNotGoing = "not_going"
)

// ValidRSVPStatus reports whether status is one of the three allowed values.
func ValidRSVPStatus(status string) bool {
	switch status {
	case RSVPStatusGoing, RSVPStatusMaybe, RSVPStatusNotGoing:
		return true
	}
	return false
}

// RSVP is a user's response to an event. One row per (event, user); repeated
// submissions update the status in place.
type RSVP struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	EventID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rsvps_event_user;index:idx_rsvps_event_status"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rsvps_event_user"`
	Status    string    `gorm:"not null;default:'going';index:idx_rsvps_event_status"`
	Event     *Event    `gorm:"foreignKey:EventID"`
	User      *User     `gorm:"foreignKey:UserID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (rsvp *RSVP) BeforeCreate(tx *gorm.DB) (err error) {
	if rsvp.ID == uuid.Nil {
		rsvp.ID = uuid.New()
	}
	return
}
