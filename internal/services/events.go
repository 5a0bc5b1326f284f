package services

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatherly/api/internal/models"
)

// DomainEvent is a completed state transition announced by the lifecycle
// service. Events are consumed asynchronously by the notification workers.
type DomainEvent interface {
	notificationJob() models.NotificationJob
}

// EventCreated is emitted once per successful event creation.
type EventCreated struct {
	EventID     uuid.UUID
	OrganizerID uuid.UUID
}

func (e EventCreated) notificationJob() models.NotificationJob {
	return models.NotificationJob{
		Kind:      models.NotificationKindEventCreated,
		EventID:   e.EventID,
		SubjectID: e.OrganizerID,
	}
}

// EventUpdated is emitted once per successful event update with the names of
// the fields that changed.
type EventUpdated struct {
	EventID       uuid.UUID
	ChangedFields []string
}

func (e EventUpdated) notificationJob() models.NotificationJob {
	return models.NotificationJob{
		Kind:          models.NotificationKindEventUpdated,
		EventID:       e.EventID,
		ChangedFields: strings.Join(e.ChangedFields, ","),
	}
}

// RSVPSubmitted is emitted on every RSVP upsert, both first creation and
// status change. Delivery is at-least-once by design.
type RSVPSubmitted struct {
	EventID uuid.UUID
	RSVPID  uuid.UUID
}

func (e RSVPSubmitted) notificationJob() models.NotificationJob {
	return models.NotificationJob{
		Kind:      models.NotificationKindRSVPSubmitted,
		EventID:   e.EventID,
		SubjectID: e.RSVPID,
	}
}

// ReviewCreated is emitted once per new review.
type ReviewCreated struct {
	EventID  uuid.UUID
	ReviewID uuid.UUID
}

func (e ReviewCreated) notificationJob() models.NotificationJob {
	return models.NotificationJob{
		Kind:      models.NotificationKindReviewCreated,
		EventID:   e.EventID,
		SubjectID: e.ReviewID,
	}
}

// EventSink receives domain events inside the emitting transaction. If the
// transaction rolls back, the emission rolls back with it.
type EventSink interface {
	Emit(tx *gorm.DB, event DomainEvent) error
}

// OutboxSink persists each domain event as a pending notification job in the
// same transaction as the mutation, to be picked up by the dispatcher.
type OutboxSink struct{}

func (OutboxSink) Emit(tx *gorm.DB, event DomainEvent) error {
	job := event.notificationJob()
	job.Status = models.JobStatusPending
	job.NextAttemptAt = time.Now().UTC()
	return tx.Create(&job).Error
}
