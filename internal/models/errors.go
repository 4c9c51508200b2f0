package models

import "errors"

var (
	ErrEventNotFound   = errors.New("event not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrTierNotFound    = errors.New("ticket tier not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrTierUnavailable = errors.New("ticket tier is not available")
	// ErrEventHasTickets means the event cannot be removed because tickets were issued for it.
	ErrEventHasTickets = errors.New("event has issued tickets")

	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidBuyer    = errors.New("invalid buyer details")

	// ErrDuplicate is returned by the store when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")

	// ErrInvalidRecord marks a row that was read back from the database in a shape the
	// service cannot work with.
	ErrInvalidRecord = errors.New("invalid record")
)

var (
	// ErrTicketExists means a ticket was already issued for the order.
	ErrTicketExists = errors.New("ticket already issued for order")
	// ErrTicketCodeTaken means the generated ticket code collided with another.
	ErrTicketCodeTaken = errors.New("ticket code already in use")
)

var ErrOTPNotFound = errors.New("no active verification code")
