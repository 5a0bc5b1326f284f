package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Event struct {
	gorm.Model
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	Title       string    `gorm:"not null;index"`
	Description string    `gorm:"not null"`
	Location    string    `gorm:"not null;index"`
	StartTime   time.Time `gorm:"not null;index"`
	EndTime     time.Time `gorm:"not null"`
	IsPublic    bool      `gorm:"not null;default:true;index"`
	OrganizerID uuid.UUID `gorm:"type:uuid;not null;index"`
	Organizer   *User     `gorm:"foreignKey:OrganizerID"`
	RSVPs       []RSVP    `gorm:"foreignKey:EventID"`
	Reviews     []Review  `gorm:"foreignKey:EventID"`
}

func (event *Event) BeforeCreate(tx *gorm.DB) (err error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return
}

// IsUpcoming reports whether the event has not started yet.
func (event *Event) IsUpcoming(now time.Time) bool {
	return event.StartTime.After(now)
}

// IsOngoing reports whether the event is currently happening.
func (event *Event) IsOngoing(now time.Time) bool {
	return !event.StartTime.After(now) && !event.EndTime.Before(now)
}
