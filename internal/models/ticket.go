package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TicketTier is a named price level of an event. Price keeps the display form
// ("₦15,000"); the numeric amount is derived by the pricing package.
type TicketTier struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	EventID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_event_tier_name" json:"event_id"`
	Name        string    `gorm:"not null;uniqueIndex:idx_event_tier_name" json:"name"`
	Price       string    `gorm:"not null" json:"price"`
	Description string    `json:"description"`
	Available   bool      `gorm:"not null;default:true" json:"available"`
	Position    int       `gorm:"not null;default:0" json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (tier *TicketTier) BeforeCreate(tx *gorm.DB) (err error) {
	if tier.ID == uuid.Nil {
		tier.ID = uuid.New()
	}
	return
}

func (tier TicketTier) Validate() error {
	if strings.TrimSpace(tier.Name) == "" {
		return fmt.Errorf("%w: tier %s has no name", ErrInvalidRecord, tier.ID)
	}
	return nil
}

// Ticket is the issued admission for a paid order. OrderID is unique so that a
// second issuance attempt for the same order is rejected by the database.
type Ticket struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	OrderID   string    `gorm:"type:char(36);uniqueIndex;not null" json:"order_id"`
	Code      string    `gorm:"type:varchar(16);uniqueIndex;not null" json:"ticket_code"`
	Email     string    `gorm:"not null" json:"email"`
	EventID   uuid.UUID `gorm:"type:uuid;not null;index" json:"event_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (ticket *Ticket) BeforeCreate(tx *gorm.DB) (err error) {
	if ticket.ID == uuid.Nil {
		ticket.ID = uuid.New()
	}
	return
}

func (ticket Ticket) Validate() error {
	if ticket.OrderID == "" || ticket.Code == "" || ticket.EventID == uuid.Nil {
		return fmt.Errorf("%w: ticket %s", ErrInvalidRecord, ticket.ID)
	}
	return nil
}

// Attendee is the organizer-facing record of a fulfilled order.
type Attendee struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	EventID    uuid.UUID `gorm:"type:uuid;not null;index" json:"event_id"`
	OrderID    string    `gorm:"type:char(36);uniqueIndex;not null" json:"order_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	TierName   string    `json:"ticket_type"`
	Quantity   int       `json:"quantity"`
	TicketCode string    `json:"ticket_code"`
	CreatedAt  time.Time `json:"created_at"`
}

func (attendee *Attendee) BeforeCreate(tx *gorm.DB) (err error) {
	if attendee.ID == uuid.Nil {
		attendee.ID = uuid.New()
	}
	return
}
