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

type EventFilter struct {
	Category    string
	Status      string
	OrganizerID *uuid.UUID
	From        *time.Time
	Page        int
	Limit       int
}

func orderedTiers(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, created_at ASC")
}

func (s *Store) eventQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Event{}).Preload("Tiers", orderedTiers)
}

// validEvents drops rows that fail validation so one malformed row does not take
// a whole listing down.
func (s *Store) validEvents(events []models.Event) []models.Event {
	out := events[:0]
	for _, event := range events {
		if err := event.Validate(); err != nil {
			s.logger.Warn("skipping invalid event row", "event_id", event.ID, "error", err)
			continue
		}
		out = append(out, event)
	}
	return out
}

// ListEvents returns a page of events plus the total number of matches. A zero
// Limit returns every match.
func (s *Store) ListEvents(ctx context.Context, f EventFilter) ([]models.Event, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Event{})
	if f.Category != "" && f.Category != "All" {
		query = query.Where("LOWER(category) = LOWER(?)", f.Category)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.OrganizerID != nil {
		query = query.Where("organizer_id = ?", *f.OrganizerID)
	}
	if f.From != nil {
		query = query.Where("starts_at >= ?", *f.From)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	query = query.Preload("Tiers", orderedTiers).Order("starts_at ASC, id ASC")
	if f.Limit > 0 {
		query = query.Offset(offset(f.Page, f.Limit)).Limit(f.Limit)
	}

	var events []models.Event
	if err := query.Find(&events).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list events: %w", err)
	}
	return s.validEvents(events), total, nil
}

func (s *Store) GetEvent(ctx context.Context, id uuid.UUID) (models.Event, error) {
	var event models.Event
	if err := s.eventQuery(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		return models.Event{}, notFound(err, models.ErrEventNotFound)
	}
	if err := event.Validate(); err != nil {
		return models.Event{}, err
	}
	return event, nil
}

// GetEventByRef accepts either an event id or its slug.
func (s *Store) GetEventByRef(ctx context.Context, ref string) (models.Event, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return s.GetEvent(ctx, id)
	}
	var event models.Event
	if err := s.eventQuery(ctx).Where("slug = ?", ref).First(&event).Error; err != nil {
		return models.Event{}, notFound(err, models.ErrEventNotFound)
	}
	if err := event.Validate(); err != nil {
		return models.Event{}, err
	}
	return event, nil
}

func (s *Store) CreateEvent(ctx context.Context, event *models.Event) error {
	return classify(s.db.WithContext(ctx).Create(event).Error)
}

// UpdateEvent saves the event columns. Tiers are managed separately.
func (s *Store) UpdateEvent(ctx context.Context, event *models.Event) error {
	return classify(s.db.WithContext(ctx).Omit("Tiers").Save(event).Error)
}

// PatchEvent updates only the given columns.
func (s *Store) PatchEvent(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	result := s.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.ErrEventNotFound
	}
	return nil
}

// DeleteEvent removes an event. When organizerID is set the event must belong
// to that organizer. Events with issued tickets are kept so the tickets stay
// readable.
func (s *Store) DeleteEvent(ctx context.Context, id uuid.UUID, organizerID *uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id)
		if organizerID != nil {
			query = query.Where("organizer_id = ?", *organizerID)
		}
		var event models.Event
		if err := query.First(&event).Error; err != nil {
			return notFound(err, models.ErrEventNotFound)
		}

		var issued int64
		if err := tx.Model(&models.Ticket{}).Where("event_id = ?", id).Count(&issued).Error; err != nil {
			return err
		}
		if issued > 0 || event.TicketsSold > 0 {
			return fmt.Errorf("%w: %d tickets issued", models.ErrEventHasTickets, issued)
		}

		return tx.Delete(&event).Error
	})
}

func (s *Store) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := s.db.WithContext(ctx).Model(&models.Event{}).
		Where("category <> '' AND status = ?", models.EventStatusLive).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error
	return categories, err
}

func (s *Store) GetTier(ctx context.Context, id uuid.UUID) (models.TicketTier, error) {
	var tier models.TicketTier
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&tier).Error; err != nil {
		return models.TicketTier{}, notFound(err, models.ErrTierNotFound)
	}
	if err := tier.Validate(); err != nil {
		return models.TicketTier{}, err
	}
	return tier, nil
}

func (s *Store) CreateTier(ctx context.Context, tier *models.TicketTier) error {
	return classify(s.db.WithContext(ctx).Create(tier).Error)
}

func (s *Store) UpdateTier(ctx context.Context, tier *models.TicketTier) error {
	return classify(s.db.WithContext(ctx).Save(tier).Error)
}

func (s *Store) DeleteTier(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.TicketTier{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrTierNotFound
	}
	return nil
}
