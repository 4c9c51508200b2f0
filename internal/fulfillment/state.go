package fulfillment

import "github.com/farellandr/sahmticket/internal/models"

// State is the checkout flow position of an order.
type State string

const (
	StateCreated          State = "created"
	StateAwaitingPayment  State = "awaiting_payment"
	StatePaymentConfirmed State = "payment_confirmed"
	StateTicketIssuing    State = "ticket_issuing"
	StateFulfilled        State = "fulfilled"
	StateAbandoned        State = "abandoned"
)

// StateOf derives the externally visible state from what is persisted.
// PaymentConfirmed and TicketIssuing only exist inside ConfirmPayment.
func StateOf(order models.Order, hasTicket bool) State {
	switch {
	case hasTicket:
		return StateFulfilled
	case order.Status == models.OrderStatusAbandoned:
		return StateAbandoned
	case order.ID == "":
		return StateCreated
	}
	return StateAwaitingPayment
}
