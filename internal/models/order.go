package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusAbandoned = "abandoned"
)

// Order is created when checkout starts. ID is the 36 character order identifier
// that doubles as the payment reference.
type Order struct {
	ID               string     `gorm:"type:char(36);primary_key" json:"id"`
	EventID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"event_id"`
	TierName         string     `gorm:"not null" json:"ticket_type"`
	UnitPrice        int64      `gorm:"not null" json:"unit_price"`
	Quantity         int        `gorm:"not null" json:"quantity"`
	Total            int64      `gorm:"not null" json:"total_paid"`
	BuyerName        string     `gorm:"not null" json:"full_name"`
	BuyerEmail       string     `gorm:"not null;index" json:"email"`
	BuyerPhone       string     `gorm:"not null" json:"phone"`
	Status           string     `gorm:"not null;default:'pending';index" json:"status"`
	PaymentReference string     `json:"payment_reference,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (order Order) Validate() error {
	if len(order.ID) != 36 || order.EventID == uuid.Nil {
		return fmt.Errorf("%w: order %q", ErrInvalidRecord, order.ID)
	}
	if order.Quantity <= 0 || order.Total <= 0 {
		return fmt.Errorf("%w: order %s has no amount", ErrInvalidRecord, order.ID)
	}
	switch order.Status {
	case OrderStatusPending, OrderStatusPaid, OrderStatusAbandoned:
	default:
		return fmt.Errorf("%w: order %s has status %q", ErrInvalidRecord, order.ID, order.Status)
	}
	return nil
}
