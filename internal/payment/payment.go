// Package payment confirms with the gateway that a reference was actually paid.
// The status reported by the browser widget is never trusted on its own.
package payment

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found at gateway")
	ErrGateway             = errors.New("payment gateway error")
)

// Verification is the gateway's view of a transaction. Amount is in the
// currency's minor unit (kobo for NGN).
type Verification struct {
	Provider  string
	Reference string
	Status    string
	Paid      bool
	Amount    int64
	Currency  string
	PaidAt    *time.Time
}

type Verifier interface {
	Verify(ctx context.Context, reference string) (Verification, error)
}
