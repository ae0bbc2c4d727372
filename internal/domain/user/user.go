package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	GoogleID        *string   `gorm:"column:google_id;uniqueIndex:idx_user_google_id" json:"-"`
	Email           *string   `gorm:"column:email;uniqueIndex:idx_user_email" json:"email"`
	FirstName       *string   `gorm:"column:first_name" json:"firstName"`
	LastName        *string   `gorm:"column:last_name" json:"lastName"`
	ProfileImageURL *string   `gorm:"column:profile_image_url" json:"profileImageUrl"`

	// Mutated only through the atomic increment in the user repo.
	ChatCount int `gorm:"column:chat_count;not null;default:0" json:"chatCount"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (User) TableName() string { return "user" }

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// UpsertFields describes a user write. Nil pointers mean "not supplied" and
// leave the stored column unchanged on conflict.
type UpsertFields struct {
	ID              uuid.UUID
	ExternalID      *string
	Email           *string
	FirstName       *string
	LastName        *string
	ProfileImageURL *string
}
