package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserProfile extends a User with display information. One row per user,
// created lazily the first time the profile is accessed.
type UserProfile struct {
	gorm.Model
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	User        *User     `gorm:"foreignKey:UserID"`
	FullName    string
	Bio         string
	Location    string
	PicturePath string
}

func (profile *UserProfile) BeforeCreate(tx *gorm.DB) (err error) {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	return
}
