package services

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gatherly/api/internal/models"
	"github.com/gatherly/api/internal/policy"
)

type ProfilePatch struct {
	FullName    *string
	Bio         *string
	Location    *string
	PicturePath *string
}

// GetOrCreateProfile returns the actor's profile, creating an empty one on
// first access. The conditional insert is guarded by the unique user_id key
// so concurrent first accesses converge on one row.
func (l *Lifecycle) GetOrCreateProfile(actor policy.Actor) (*models.UserProfile, error) {
	if !actor.Authenticated {
		return nil, &AuthenticationError{Reason: "Authentication required."}
	}

	var profile models.UserProfile
	err := l.db.Transaction(func(tx *gorm.DB) error {
		blank := models.UserProfile{UserID: actor.ID}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&blank).Error
		if err != nil {
			return err
		}
		return tx.Where("user_id = ?", actor.ID).First(&profile).Error
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile applies a partial update to the actor's own profile,
// creating it first if it does not exist yet.
func (l *Lifecycle) UpdateProfile(actor policy.Actor, patch ProfilePatch) (*models.UserProfile, error) {
	profile, err := l.GetOrCreateProfile(actor)
	if err != nil {
		return nil, err
	}

	if patch.FullName != nil {
		profile.FullName = *patch.FullName
	}
	if patch.Bio != nil {
		profile.Bio = *patch.Bio
	}
	if patch.Location != nil {
		profile.Location = *patch.Location
	}
	if patch.PicturePath != nil {
		profile.PicturePath = *patch.PicturePath
	}

	if err := l.db.Save(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}
