package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an organizer or admin account. Buyers never sign in.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Email       string    `gorm:"unique;not null" json:"email"`
	Password    string    `gorm:"not null" json:"-"`
	PhoneNumber string    `json:"phone_number"`
	Verified    bool      `gorm:"not null;default:false" json:"verified"`
	RoleID      uuid.UUID `gorm:"type:uuid" json:"-"`
	Role        Role      `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return
}

func (user User) Validate() error {
	if user.ID == uuid.Nil || user.Email == "" || !strings.Contains(user.Email, "@") {
		return fmt.Errorf("%w: user %s", ErrInvalidRecord, user.ID)
	}
	return nil
}
