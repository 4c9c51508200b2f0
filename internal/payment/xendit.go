package payment

import (
	"context"
	"fmt"

	"github.com/farellandr/sahmticket/internal/metrics"
	"github.com/shopspring/decimal"
	"github.com/xendit/xendit-go/v6"
	"github.com/xendit/xendit-go/v6/invoice"
)

const ProviderXendit = "xendit"

// XenditVerifier looks an order up as the external id of a Xendit invoice.
type XenditVerifier struct {
	client *xendit.APIClient
}

func NewXenditVerifier(client *xendit.APIClient) *XenditVerifier {
	return &XenditVerifier{client: client}
}

func (x *XenditVerifier) Verify(ctx context.Context, reference string) (Verification, error) {
	invoices, _, xerr := x.client.InvoiceApi.GetInvoices(ctx).ExternalId(reference).Execute()
	if xerr != nil {
		metrics.PaymentVerifications.WithLabelValues(ProviderXendit, "error").Inc()
		return Verification{}, fmt.Errorf("%w: %s", ErrGateway, xerr.Error())
	}
	if len(invoices) == 0 {
		metrics.PaymentVerifications.WithLabelValues(ProviderXendit, "not_found").Inc()
		return Verification{}, fmt.Errorf("%w: %s", ErrTransactionNotFound, reference)
	}

	inv := invoices[0]
	status := string(inv.Status)
	paid := inv.Status == invoice.INVOICESTATUS_PAID || inv.Status == invoice.INVOICESTATUS_SETTLED

	metrics.PaymentVerifications.WithLabelValues(ProviderXendit, status).Inc()
	return Verification{
		Provider:  ProviderXendit,
		Reference: inv.ExternalId,
		Status:    status,
		Paid:      paid,
		Amount:    MinorUnits(inv.Amount),
		Currency:  string(inv.GetCurrency()),
	}, nil
}

// MinorUnits converts a gateway float amount to integer minor units without
// binary rounding drift (1999.99 -> 199999).
func MinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
