package store

import (
	"context"
	"fmt"
	"time"

	"github.com/farellandr/sahmticket/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Store) CreateUser(ctx context.Context, user *models.User, roleName string) error {
	var role models.Role
	if err := s.db.WithContext(ctx).Where("name = ?", roleName).First(&role).Error; err != nil {
		return fmt.Errorf("role %q: %w", roleName, notFound(err, models.ErrUserNotFound))
	}
	user.RoleID = role.ID
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return classify(err)
	}
	user.Role = role
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Role").Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		return models.User{}, notFound(err, models.ErrUserNotFound)
	}
	return user, user.Validate()
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Role").Where("id = ?", id).First(&user).Error; err != nil {
		return models.User{}, notFound(err, models.ErrUserNotFound)
	}
	return user, user.Validate()
}

func (s *Store) ListUsersByRole(ctx context.Context, roleName string, page, limit int) ([]models.User, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("roles.name = ?", roleName)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	err := query.Preload("Role").
		Order("users.created_at DESC").
		Offset(offset(page, limit)).Limit(limit).
		Find(&users).Error
	return users, total, err
}

func (s *Store) PatchUser(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

func (s *Store) MarkUserVerified(ctx context.Context, email string) error {
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(email) = LOWER(?)", email).
		Update("verified", true).Error
}

// SaveOTP replaces any outstanding code for the email.
func (s *Store) SaveOTP(ctx context.Context, otp *models.OTPCode) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", otp.Email).Delete(&models.OTPCode{}).Error; err != nil {
			return err
		}
		return tx.Create(otp).Error
	})
}

// ActiveOTP returns the newest unexpired code for the email.
func (s *Store) ActiveOTP(ctx context.Context, email string, now time.Time) (models.OTPCode, error) {
	var otp models.OTPCode
	err := s.db.WithContext(ctx).
		Where("email = ? AND expires_at > ?", email, now).
		Order("created_at DESC").
		First(&otp).Error
	if err != nil {
		return models.OTPCode{}, notFound(err, models.ErrOTPNotFound)
	}
	return otp, nil
}

func (s *Store) DeleteOTPs(ctx context.Context, email string) error {
	return s.db.WithContext(ctx).Where("email = ?", email).Delete(&models.OTPCode{}).Error
}

// UpsertSubscriber inserts or refreshes a newsletter subscription.
func (s *Store) UpsertSubscriber(ctx context.Context, sub *models.NewsletterSubscriber) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(sub).Error
}
