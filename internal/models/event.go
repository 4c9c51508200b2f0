package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	EventStatusLive  = "Live"
	EventStatusDraft = "Draft"
)

type Event struct {
	ID          uuid.UUID    `gorm:"type:uuid;primary_key" json:"id"`
	Slug        string       `gorm:"uniqueIndex;not null" json:"slug"`
	Title       string       `gorm:"not null" json:"title"`
	Description string       `json:"description"`
	Category    string       `gorm:"index" json:"category"`
	StartsAt    time.Time    `gorm:"not null;index" json:"starts_at"`
	TimeLabel   string       `json:"time"`
	Venue       string       `json:"venue"`
	Address     string       `json:"address"`
	City        string       `json:"city"`
	State       string       `json:"state"`
	Lat         *float64     `json:"lat"`
	Lng         *float64     `json:"lng"`
	Image       string       `json:"image"`
	Featured    bool         `gorm:"not null;default:false" json:"featured"`
	Trending    bool         `gorm:"not null;default:false" json:"trending"`
	IsNew       bool         `gorm:"not null;default:false" json:"is_new"`
	Sponsored   bool         `gorm:"not null;default:false" json:"sponsored"`
	Status      string       `gorm:"not null;default:'Live'" json:"status"`
	OrganizerID *uuid.UUID   `gorm:"type:uuid;index" json:"organizer_id"`
	Tiers       []TicketTier `gorm:"constraint:OnDelete:CASCADE" json:"tiers"`
	TicketsSold int          `gorm:"not null;default:0" json:"tickets_sold"`
	Revenue     int64        `gorm:"not null;default:0" json:"revenue"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (event *Event) BeforeCreate(tx *gorm.DB) (err error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return
}

// HasLocation reports whether the event carries usable coordinates.
func (event Event) HasLocation() bool {
	return event.Lat != nil && event.Lng != nil
}

// Tier looks a tier up by its exact name.
func (event Event) Tier(name string) (TicketTier, bool) {
	for _, tier := range event.Tiers {
		if tier.Name == name {
			return tier, true
		}
	}
	return TicketTier{}, false
}

func (event Event) Validate() error {
	if event.ID == uuid.Nil {
		return fmt.Errorf("%w: event without id", ErrInvalidRecord)
	}
	if strings.TrimSpace(event.Title) == "" || event.Slug == "" {
		return fmt.Errorf("%w: event %s has no title or slug", ErrInvalidRecord, event.ID)
	}
	if event.StartsAt.IsZero() {
		return fmt.Errorf("%w: event %s has no date", ErrInvalidRecord, event.ID)
	}
	if (event.Lat == nil) != (event.Lng == nil) {
		return fmt.Errorf("%w: event %s has half a coordinate", ErrInvalidRecord, event.ID)
	}
	seen := make(map[string]struct{}, len(event.Tiers))
	for _, tier := range event.Tiers {
		if err := tier.Validate(); err != nil {
			return err
		}
		if _, dup := seen[tier.Name]; dup {
			return fmt.Errorf("%w: event %s repeats tier %q", ErrInvalidRecord, event.ID, tier.Name)
		}
		seen[tier.Name] = struct{}{}
	}
	return nil
}
