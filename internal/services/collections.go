package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatherly/api/internal/models"
	"github.com/gatherly/api/internal/policy"
)

// Standalone RSVP and Review collections. Listing is scoped by event
// visibility and ownership; update/delete is owner-only.

type RSVPFilter struct {
	EventID uuid.UUID
	Status  string
	Page    int
	Limit   int
}

type ReviewFilter struct {
	EventID uuid.UUID
	Rating  int
	Page    int
	Limit   int
}

// ListRSVPs returns RSVPs for public events, events the actor organizes and
// the actor's own responses.
func (l *Lifecycle) ListRSVPs(actor policy.Actor, filter RSVPFilter) ([]models.RSVP, int64, error) {
	visible := l.db.Model(&models.Event{}).Select("id").Where("is_public = ? OR organizer_id = ?", true, actor.ID)
	query := l.db.Model(&models.RSVP{}).Where("event_id IN (?) OR user_id = ?", visible, actor.ID)

	if filter.EventID != uuid.Nil {
		query = query.Where("event_id = ?", filter.EventID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rsvps []models.RSVP
	err := query.
		Preload("User").
		Preload("Event").
		Offset(pageOffset(filter.Page, filter.Limit)).
		Limit(filter.Limit).
		Order("created_at DESC").
		Find(&rsvps).Error
	if err != nil {
		return nil, 0, err
	}
	return rsvps, total, nil
}

// UpdateRSVP changes the status of an existing RSVP. Owner-only; the event
// and user references are immutable.
func (l *Lifecycle) UpdateRSVP(actor policy.Actor, rsvpID uuid.UUID, status string) (*models.RSVP, error) {
	if !models.ValidRSVPStatus(status) {
		return nil, validationErr("status", "Status must be one of going, maybe, not_going.")
	}

	var rsvp models.RSVP
	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", rsvpID).First(&rsvp).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "RSVP"}
			}
			return err
		}

		if d := policy.CanModifyOwned(actor, rsvp.UserID); !d.Allowed {
			return &PermissionError{Reason: d.Reason}
		}

		rsvp.Status = status
		if err := tx.Save(&rsvp).Error; err != nil {
			return err
		}
		return l.sink.Emit(tx, RSVPSubmitted{EventID: rsvp.EventID, RSVPID: rsvp.ID})
	})
	if err != nil {
		return nil, err
	}
	return &rsvp, nil
}

// DeleteRSVP removes the actor's own RSVP.
func (l *Lifecycle) DeleteRSVP(actor policy.Actor, rsvpID uuid.UUID) error {
	return l.db.Transaction(func(tx *gorm.DB) error {
		var rsvp models.RSVP
		if err := tx.Where("id = ?", rsvpID).First(&rsvp).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "RSVP"}
			}
			return err
		}

		if d := policy.CanModifyOwned(actor, rsvp.UserID); !d.Allowed {
			return &PermissionError{Reason: d.Reason}
		}
		return tx.Delete(&rsvp).Error
	})
}

// ListReviews returns reviews for events the actor can see: public events,
// events they organize and events they hold an RSVP for.
func (l *Lifecycle) ListReviews(actor policy.Actor, filter ReviewFilter) ([]models.Review, int64, error) {
	invited := l.db.Model(&models.RSVP{}).Select("event_id").Where("user_id = ?", actor.ID)
	visible := l.db.Model(&models.Event{}).Select("id").
		Where("is_public = ? OR organizer_id = ? OR id IN (?)", true, actor.ID, invited)
	query := l.db.Model(&models.Review{}).Where("event_id IN (?)", visible)

	if filter.EventID != uuid.Nil {
		query = query.Where("event_id = ?", filter.EventID)
	}
	if filter.Rating != 0 {
		query = query.Where("rating = ?", filter.Rating)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reviews []models.Review
	err := query.
		Preload("User").
		Preload("Event").
		Offset(pageOffset(filter.Page, filter.Limit)).
		Limit(filter.Limit).
		Order("created_at DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

// UpdateReview edits the actor's own review, keeping the rating bounds.
func (l *Lifecycle) UpdateReview(actor policy.Actor, reviewID uuid.UUID, rating int, comment string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, validationErr("rating", "Rating must be between 1 and 5.")
	}

	var review models.Review
	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", reviewID).First(&review).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "Review"}
			}
			return err
		}

		if d := policy.CanModifyOwned(actor, review.UserID); !d.Allowed {
			return &PermissionError{Reason: d.Reason}
		}

		review.Rating = rating
		review.Comment = comment
		return tx.Save(&review).Error
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// DeleteReview removes the actor's own review.
func (l *Lifecycle) DeleteReview(actor policy.Actor, reviewID uuid.UUID) error {
	return l.db.Transaction(func(tx *gorm.DB) error {
		var review models.Review
		if err := tx.Where("id = ?", reviewID).First(&review).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "Review"}
			}
			return err
		}

		if d := policy.CanModifyOwned(actor, review.UserID); !d.Allowed {
			return &PermissionError{Reason: d.Reason}
		}
		return tx.Delete(&review).Error
	})
}
