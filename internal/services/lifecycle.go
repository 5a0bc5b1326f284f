package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gatherly/api/internal/models"
	"github.com/gatherly/api/internal/policy"
)

// Lifecycle orchestrates event, RSVP and review transitions. Every mutating
// operation runs in a single transaction: policy check, invariant checks,
// persistence and domain-event emission commit or roll back together.
type Lifecycle struct {
	db   *gorm.DB
	sink EventSink
}

func NewLifecycle(db *gorm.DB, sink EventSink) *Lifecycle {
	return &Lifecycle{db: db, sink: sink}
}

type EventInput struct {
	Title       string
	Description string
	Location    string
	StartTime   time.Time
	EndTime     time.Time
	IsPublic    bool
}

// EventPatch carries a partial update; nil fields are left untouched.
type EventPatch struct {
	Title       *string
	Description *string
	Location    *string
	StartTime   *time.Time
	EndTime     *time.Time
	IsPublic    *bool
}

type EventFilter struct {
	Location    string
	IsPublic    *bool
	OrganizerID uuid.UUID
	Page        int
	Limit       int
}

func validateEventTimes(start, end time.Time) map[string]string {
	fields := map[string]string{}
	if !end.After(start) {
		fields["end_time"] = "End time must be after start time."
	}
	return fields
}

// CreateEvent validates and persists a new event owned by the actor. The
// organizer is always the authenticated caller, never client-supplied.
func (l *Lifecycle) CreateEvent(actor policy.Actor, input EventInput) (*models.Event, error) {
	if !actor.Authenticated {
		return nil, &AuthenticationError{Reason: "Authentication required."}
	}

	fields := validateEventTimes(input.StartTime, input.EndTime)
	if input.Title == "" {
		fields["title"] = "Title is required."
	}
	if input.Description == "" {
		fields["description"] = "Description is required."
	}
	if input.Location == "" {
		fields["location"] = "Location is required."
	}
	// Past start times are rejected on create only; updates may keep an
	// event that has since started.
	if input.StartTime.Before(time.Now()) {
		fields["start_time"] = "Start time cannot be in the past."
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	event := models.Event{
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		IsPublic:    input.IsPublic,
		OrganizerID: actor.ID,
	}

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&event).Error; err != nil {
			return err
		}
		return l.sink.Emit(tx, EventCreated{EventID: event.ID, OrganizerID: actor.ID})
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// UpdateEvent applies a partial update after re-validating the merged time
// window. Only the organizer may update.
func (l *Lifecycle) UpdateEvent(actor policy.Actor, eventID uuid.UUID, patch EventPatch) (*models.Event, error) {
	var event models.Event

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", eventID).First(&event).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "Event"}
			}
			return err
		}

		if d := policy.CanWriteEvent(actor, eventSnapshot(event, false)); !d.Allowed {
			return &PermissionError{Reason: d.Reason}
		}

		var changed []string
		if patch.Title != nil && *patch.Title != event.Title {
			event.Title = *patch.Title
			changed = append(changed, "title")
		}
		if patch.Description != nil && *patch.Description != event.Description {
			event.Description = *patch.Description
			changed = append(changed, "description")
		}
		if patch.Location != nil && *patch.Location != event.Location {
			event.Location = *patch.Location
			changed = append(changed, "location")
		}
		if patch.StartTime != nil && !patch.StartTime.Equal(event.StartTime) {
			event.StartTime = *patch.StartTime
			changed = append(changed, "start_time")
		}
		if patch.EndTime != nil && !patch.EndTime.Equal(event.EndTime) {
			event.EndTime = *patch.EndTime
			changed = append(changed, "end_time")
		}
		if patch.IsPublic != nil && *patch.IsPublic != event.IsPublic {
			event.IsPublic = *patch.IsPublic
			changed = append(changed, "is_public")
		}

		fields := validateEventTimes(event.StartTime, event.EndTime)
		if event.Title == "" {
			fields["title"] = "Title is required."
		}
		if len(fields) > 0 {
			return &ValidationError{Fields: fields}
		}

		if err := tx.Save(&event).Error; err != nil {
			return err
		}
		return l.sink.Emit(tx, EventUpdated{EventID: event.ID, ChangedFields: changed})
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// DeleteEvent removes an event together with its RSVPs and reviews. No
// notification is emitted.
func (l *Lifecycle) DeleteEvent(actor policy.Actor, eventID uuid.UUID) error {
	return l.db.Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.Where("id = ?", eventID).First(&event).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "Event"}
			}
			return err
		}

		if d := policy.CanWriteEvent(actor, eventSnapshot(event, false)); !d.Allowed {
			return &PermissionError{Reason: d.Reason}
		}

		if err := tx.Where("event_id = ?", eventID).Delete(&models.RSVP{}).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", eventID).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		return tx.Delete(&event).Error
	})
}

// GetEvent loads a single event with its RSVPs and reviews, applying the
// visibility rule for private events.
func (l *Lifecycle) GetEvent(actor policy.Actor, eventID uuid.UUID) (*models.Event, error) {
	var event models.Event
	err := l.db.
		Preload("Organizer").
		Preload("RSVPs.User").
		Preload("Reviews.User").
		Where("id = ?", eventID).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "Event"}
		}
		return nil, err
	}

	hasRSVP, err := l.actorHasRSVP(l.db, eventID, actor)
	if err != nil {
		return nil, err
	}
	if d := policy.CanReadEvent(actor, eventSnapshot(event, hasRSVP)); !d.Allowed {
		return nil, &PermissionError{Reason: d.Reason}
	}
	return &event, nil
}

// ListEvents returns the events visible to the actor: public events for
// anonymous callers, plus owned and RSVP'd events for authenticated ones.
func (l *Lifecycle) ListEvents(actor policy.Actor, filter EventFilter) ([]models.Event, int64, error) {
	query := l.db.Model(&models.Event{})

	if actor.Authenticated {
		invited := l.db.Model(&models.RSVP{}).Select("event_id").Where("user_id = ?", actor.ID)
		query = query.Where("is_public = ? OR organizer_id = ? OR id IN (?)", true, actor.ID, invited)
	} else {
		query = query.Where("is_public = ?", true)
	}

	if filter.Location != "" {
		query = query.Where("location = ?", filter.Location)
	}
	if filter.IsPublic != nil {
		query = query.Where("is_public = ?", *filter.IsPublic)
	}
	if filter.OrganizerID != uuid.Nil {
		query = query.Where("organizer_id = ?", filter.OrganizerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []models.Event
	err := query.
		Preload("Organizer").
		Offset(pageOffset(filter.Page, filter.Limit)).
		Limit(filter.Limit).
		Order("start_time DESC").
		Find(&events).Error
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// AttendeeCount counts RSVPs with status "going", computed from live rows on
// every call so it can never go stale.
func (l *Lifecycle) AttendeeCount(eventID uuid.UUID) (int64, error) {
	var count int64
	err := l.db.Model(&models.RSVP{}).
		Where("event_id = ? AND status = ?", eventID, models.RSVPStatusGoing).
		Count(&count).Error
	return count, err
}

// SetRSVP upserts the actor's RSVP for an event. Concurrent submissions for
// the same (event, user) resolve to a single row through the unique key.
// Returns the stored row and whether it was newly created.
func (l *Lifecycle) SetRSVP(actor policy.Actor, eventID uuid.UUID, status string) (*models.RSVP, bool, error) {
	if !models.ValidRSVPStatus(status) {
		return nil, false, validationErr("status", "Status must be one of going, maybe, not_going.")
	}

	var stored models.RSVP
	var created bool

	err := l.db.Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.Where("id = ?", eventID).First(&event).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "Event"}
			}
			return err
		}

		hasRSVP, err := l.actorHasRSVP(tx, eventID, actor)
		if err != nil {
			return err
		}
		if d := policy.CanCreateRSVP(actor, eventSnapshot(event, hasRSVP)); !d.Allowed {
			return &PermissionError{Reason: d.Reason}
		}
		created = !hasRSVP

		rsvp := models.RSVP{EventID: eventID, UserID: actor.ID, Status: status}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"status": status, "updated_at": time.Now().UTC()}),
		}).Create(&rsvp).Error
		if err != nil {
			return err
		}

		// The generated ID is discarded on conflict; read back the row
		// that actually won.
		if err := tx.Where("event_id = ? AND user_id = ?", eventID, actor.ID).First(&stored).Error; err != nil {
			return err
		}
		return l.sink.Emit(tx, RSVPSubmitted{EventID: eventID, RSVPID: stored.ID})
	})
	if err != nil {
		return nil, false, err
	}
	return &stored, created, nil
}

// AddReview records event feedback. The actor must hold a "going" RSVP and
// may review each event at most once.
func (l *Lifecycle) AddReview(actor policy.Actor, eventID uuid.UUID, rating int, comment string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, validationErr("rating", "Rating must be between 1 and 5.")
	}

	var review models.Review

	err := l.db.Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.Where("id = ?", eventID).First(&event).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "Event"}
			}
			return err
		}

		hasRSVP, err := l.actorHasRSVP(tx, eventID, actor)
		if err != nil {
			return err
		}
		if d := policy.CanReadEvent(actor, eventSnapshot(event, hasRSVP)); !d.Allowed {
			return &PermissionError{Reason: d.Reason}
		}

		var existing int64
		err = tx.Model(&models.Review{}).
			Where("event_id = ? AND user_id = ?", eventID, actor.ID).
			Count(&existing).Error
		if err != nil {
			return err
		}
		if existing > 0 {
			return &ConflictError{Message: "You have already reviewed this event."}
		}

		var going int64
		err = tx.Model(&models.RSVP{}).
			Where("event_id = ? AND user_id = ? AND status = ?", eventID, actor.ID, models.RSVPStatusGoing).
			Count(&going).Error
		if err != nil {
			return err
		}
		if going == 0 {
			return validationErr("rating", "You can only review events you have RSVP'd to as 'going'.")
		}

		review = models.Review{EventID: eventID, UserID: actor.ID, Rating: rating, Comment: comment}
		if err := tx.Create(&review).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &ConflictError{Message: "You have already reviewed this event."}
			}
			return err
		}
		return l.sink.Emit(tx, ReviewCreated{EventID: eventID, ReviewID: review.ID})
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// ListEventRSVPs returns the RSVPs of a single event, gated by the event's
// visibility rule.
func (l *Lifecycle) ListEventRSVPs(actor policy.Actor, eventID uuid.UUID) ([]models.RSVP, error) {
	if err := l.checkEventRead(actor, eventID); err != nil {
		return nil, err
	}
	var rsvps []models.RSVP
	err := l.db.Preload("User").Where("event_id = ?", eventID).Order("updated_at DESC").Find(&rsvps).Error
	return rsvps, err
}

// ListEventReviews returns the reviews of a single event, gated by the
// event's visibility rule.
func (l *Lifecycle) ListEventReviews(actor policy.Actor, eventID uuid.UUID) ([]models.Review, error) {
	if err := l.checkEventRead(actor, eventID); err != nil {
		return nil, err
	}
	var reviews []models.Review
	err := l.db.Preload("User").Where("event_id = ?", eventID).Order("created_at DESC").Find(&reviews).Error
	return reviews, err
}

func (l *Lifecycle) checkEventRead(actor policy.Actor, eventID uuid.UUID) error {
	var event models.Event
	if err := l.db.Where("id = ?", eventID).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Resource: "Event"}
		}
		return err
	}
	hasRSVP, err := l.actorHasRSVP(l.db, eventID, actor)
	if err != nil {
		return err
	}
	if d := policy.CanReadEvent(actor, eventSnapshot(event, hasRSVP)); !d.Allowed {
		return &PermissionError{Reason: d.Reason}
	}
	return nil
}

func (l *Lifecycle) actorHasRSVP(tx *gorm.DB, eventID uuid.UUID, actor policy.Actor) (bool, error) {
	if !actor.Authenticated {
		return false, nil
	}
	var count int64
	err := tx.Model(&models.RSVP{}).
		Where("event_id = ? AND user_id = ?", eventID, actor.ID).
		Count(&count).Error
	return count > 0, err
}

func eventSnapshot(event models.Event, actorHasRSVP bool) policy.EventSnapshot {
	return policy.EventSnapshot{
		OrganizerID:  event.OrganizerID,
		IsPublic:     event.IsPublic,
		ActorHasRSVP: actorHasRSVP,
	}
}

func pageOffset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}
