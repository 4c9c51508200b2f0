package store

import (
	"errors"

	"github.com/farellandr/sahmticket/internal/models"
	"gorm.io/gorm"
)

func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error
}

// Migrate creates or updates the schema and seeds the fixed roles.
func Migrate(db *gorm.DB) error {
	if err := enableUUIDExtension(db); err != nil {
		return err
	}

	err := db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Event{},
		&models.TicketTier{},
		&models.Order{},
		&models.Ticket{},
		&models.Attendee{},
		&models.OTPCode{},
		&models.NewsletterSubscriber{},
	)
	if err != nil {
		return err
	}

	return seedRoles(db)
}

func seedRoles(db *gorm.DB) error {
	roles := []models.Role{
		{Name: models.RoleOrganizer},
		{Name: models.RoleAdmin},
	}

	for _, role := range roles {
		var existingRole models.Role
		err := db.Where("name = ?", role.Name).First(&existingRole).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&role).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}
	return nil
}
