package store

import (
	"context"
	"fmt"

	"github.com/farellandr/sahmticket/internal/models"
	"gorm.io/gorm"
)

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	return classify(s.db.WithContext(ctx).Create(order).Error)
}

func (s *Store) GetOrder(ctx context.Context, id string) (models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return models.Order{}, notFound(err, models.ErrOrderNotFound)
	}
	if err := order.Validate(); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

// MarkOrderAbandoned only moves pending orders.
func (s *Store) MarkOrderAbandoned(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, models.OrderStatusPending).
		Update("status", models.OrderStatusAbandoned).Error
}

func (s *Store) GetTicketByOrderID(ctx context.Context, orderID string) (models.Ticket, error) {
	var ticket models.Ticket
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&ticket).Error; err != nil {
		return models.Ticket{}, notFound(err, models.ErrTicketNotFound)
	}
	if err := ticket.Validate(); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) IssueTicket(ctx context.Context, order models.Order, ticket *models.Ticket, attendee *models.Attendee) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ticket).Error; err != nil {
			return classifyIssue(err)
		}
		if err := tx.Create(attendee).Error; err != nil {
			return classifyIssue(err)
		}

		err := tx.Model(&models.Order{}).
			Where("id = ?", order.ID).
			Updates(map[string]any{
				"status":            models.OrderStatusPaid,
				"paid_at":           order.PaidAt,
				"payment_reference": order.PaymentReference,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to mark order paid: %w", err)
		}

		err = tx.Model(&models.Event{}).
			Where("id = ?", order.EventID).
			Updates(map[string]any{
				"tickets_sold": gorm.Expr("tickets_sold + ?", order.Quantity),
				"revenue":      gorm.Expr("revenue + ?", order.Total),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to update event totals: %w", err)
		}
		return nil
	})
}
