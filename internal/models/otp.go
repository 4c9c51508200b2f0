package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OTPCode keeps a bcrypt hash of a one-time code sent by email.
type OTPCode struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	Email     string    `gorm:"not null;index"`
	CodeHash  string    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time
}

func (otp *OTPCode) BeforeCreate(tx *gorm.DB) (err error) {
	if otp.ID == uuid.Nil {
		otp.ID = uuid.New()
	}
	return
}

type NewsletterSubscriber struct {
	Email     string    `gorm:"primary_key" json:"email"`
	Name      *string   `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
