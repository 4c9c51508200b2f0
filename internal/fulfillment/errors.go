package fulfillment

import "errors"

var (
	ErrInvalidOrderID     = errors.New("invalid order id")
	ErrPriceMismatch      = errors.New("displayed price does not match the catalog")
	ErrOrderConflict      = errors.New("order id already used for a different selection")
	ErrOrderPaid          = errors.New("order is already paid")
	ErrReferenceMismatch  = errors.New("payment reference does not match order")
	ErrPaymentNotVerified = errors.New("payment could not be verified")
	ErrPaymentMismatch    = errors.New("verified payment does not match order")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrTicketPending      = errors.New("ticket is still pending")

	// ErrPersistFailed is fatal for the current attempt. Repeating the
	// confirmation is safe and is the retry path offered to the user.
	ErrPersistFailed = errors.New("failed to save ticket")
)
