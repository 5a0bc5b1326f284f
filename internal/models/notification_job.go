package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	NotificationKindEventCreated  = "event_created"
	NotificationKindEventUpdated  = "event_updated"
	NotificationKindRSVPSubmitted = "rsvp_submitted"
	NotificationKindReviewCreated = "review_created"
)

const (
	JobStatusPending    = "pending"
	JobStatusRetrying   = "retrying"
	JobStatusDelivered  = "delivered"
	JobStatusDeadLetter = "dead_letter"
)

// NotificationJob is a durable outbox row connecting the request tier to the
// notification workers. Rows are written in the same transaction as the
// mutation that caused them and consumed by polling.
type NotificationJob struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	Kind          string    `gorm:"not null;index"`
	EventID       uuid.UUID `gorm:"type:uuid;not null;index"`
	SubjectID     uuid.UUID `gorm:"type:uuid"`
	ChangedFields string
	Status        string    `gorm:"not null;default:'pending';index:idx_jobs_status_due"`
	Attempts      int       `gorm:"not null;default:0"`
	NextAttemptAt time.Time `gorm:"not null;index:idx_jobs_status_due"`
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (job *NotificationJob) BeforeCreate(tx *gorm.DB) (err error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	return
}
