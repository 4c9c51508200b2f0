package fulfillment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/farellandr/sahmticket/internal/clock"
	"github.com/farellandr/sahmticket/internal/helpers"
	"github.com/farellandr/sahmticket/internal/locker"
	"github.com/farellandr/sahmticket/internal/models"
	"github.com/farellandr/sahmticket/internal/notify"
	"github.com/farellandr/sahmticket/internal/payment"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)

type harness struct {
	svc      *Service
	store    *fakeStore
	verifier *fakeVerifier
	notifier *fakeNotifier
	event    models.Event
}

func testEvent() models.Event {
	return models.Event{
		ID:        uuid.New(),
		Slug:      "lagos-jazz-night",
		Title:     "Lagos Jazz Night",
		StartsAt:  testNow.Add(72 * time.Hour),
		TimeLabel: "8:00 PM",
		Venue:     "Terra Kulture",
		Status:    models.EventStatusLive,
		Tiers: []models.TicketTier{
			{Name: "Regular", Price: "₦15,000", Available: true},
			{Name: "VIP", Price: "₦50,000", Available: true},
			{Name: "Table", Price: "₦500,000", Available: false},
			{Name: "Promo", Price: "Free", Available: true},
		},
	}
}

func newHarness(t *testing.T, opts ...func(*Config)) *harness {
	t.Helper()
	event := testEvent()
	h := &harness{
		store:    newFakeStore(event),
		verifier: &fakeVerifier{},
		notifier: &fakeNotifier{},
		event:    event,
	}
	cfg := Config{
		Provider:      "paystack",
		PublicKey:     "pk_test",
		PublicBaseURL: "https://sahmtickethub.online",
		MailTimeout:   time.Second,
	}
	for _, o := range opts {
		o(&cfg)
	}
	h.svc = NewService(h.store, h.verifier, h.notifier, locker.NewLocalLocker(), clock.NewFixed(testNow),
		slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
	return h
}

func (h *harness) checkout(t *testing.T, tier string, qty int) CheckoutResult {
	t.Helper()
	res, err := h.svc.StartCheckout(context.Background(), CheckoutInput{
		OrderID:  helpers.NewOrderID(),
		EventID:  h.event.ID,
		TierName: tier,
		Quantity: qty,
		Buyer:    Buyer{Name: "Ada Obi", Email: "ada@example.com", Phone: "+234 803 000 0000"},
	})
	require.NoError(t, err)
	return res
}

func TestCheckoutAndConfirmHappyPath(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	co := h.checkout(t, "VIP", 2)
	assert.Equal(t, int64(100000), co.Order.Total)
	assert.Equal(t, int64(10000000), co.Payment.Amount)
	assert.Equal(t, co.Order.ID, co.Payment.Reference)
	assert.Equal(t, "pk_test", co.Payment.PublicKey)
	assert.Equal(t, StateAwaitingPayment, co.State)
	assert.Len(t, co.Order.ID, 36)

	h.verifier.paid(co.Order.ID, 10000000)

	res, err := h.svc.ConfirmPayment(ctx, ConfirmInput{OrderID: co.Order.ID, Reference: co.Order.ID, ClientStatus: "success"})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.True(t, res.EmailSent)
	assert.Equal(t, StateFulfilled, res.State)
	assert.Regexp(t, `^[A-Z0-9]{8}$`, res.Ticket.Code)
	assert.Equal(t, models.OrderStatusPaid, res.Order.Status)
	require.NotNil(t, res.Order.PaidAt)
	assert.Equal(t, testNow, *res.Order.PaidAt)

	require.Equal(t, 1, h.notifier.count())
	mail := h.notifier.sent[0]
	assert.Equal(t, notify.KindTicket, mail.kind)
	assert.Equal(t, "ada@example.com", mail.to)
	payload := mail.payload.(notify.TicketPayload)
	assert.Equal(t, res.Ticket.Code, payload.Event.TicketCode)
	assert.Equal(t, "Lagos Jazz Night", payload.Event.Title)
	assert.Equal(t, "https://sahmtickethub.online/ticket/"+co.Order.ID, payload.Event.URL)

	view, err := h.svc.Retrieve(ctx, co.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Ticket.Code, view.Ticket.Code)
	assert.Equal(t, "Lagos Jazz Night", view.Event.Title)
	assert.Equal(t, 2, view.Order.Quantity)

	attendee := h.store.attendees[co.Order.ID]
	assert.Equal(t, "Ada Obi", attendee.Name)
	assert.Equal(t, res.Ticket.Code, attendee.TicketCode)
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	co := h.checkout(t, "Regular", 1)
	h.verifier.paid(co.Order.ID, 1500000)

	first, err := h.svc.ConfirmPayment(ctx, ConfirmInput{OrderID: co.Order.ID, Reference: co.Order.ID})
	require.NoError(t, err)
	second, err := h.svc.ConfirmPayment(ctx, ConfirmInput{OrderID: co.Order.ID, Reference: co.Order.ID})
	require.NoError(t, err)

	assert.True(t, first.Created)
	assert.False(t, second.Created)
	assert.Equal(t, first.Ticket.Code, second.Ticket.Code)
	assert.Equal(t, models.OrderStatusPaid, second.Order.Status)
	assert.Equal(t, 1, h.store.ticketCount())
	assert.Equal(t, 1, h.notifier.count(), "no second confirmation email")
	assert.Equal(t, 1, h.verifier.calls)
}

func TestConfirmPaymentLosesRaceToConcurrentIssuer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	co := h.checkout(t, "Regular", 1)
	h.verifier.paid(co.Order.ID, 1500000)

	h.store.beforeIssue = func(s *fakeStore, order models.Order) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.tickets[order.ID] = models.Ticket{ID: uuid.New(), OrderID: order.ID, Code: "WINNER01", EventID: order.EventID}
	}

	res, err := h.svc.ConfirmPayment(ctx, ConfirmInput{OrderID: co.Order.ID})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "WINNER01", res.Ticket.Code)
	assert.Zero(t, h.notifier.count())
}

func TestConfirmPaymentLockHeld(t *testing.T) {
	h := newHarness(t)
	h.svc.locker = heldLocker{}
	co := h.checkout(t, "Regular", 1)
	h.verifier.paid(co.Order.ID, 1500000)

	res, err := h.svc.ConfirmPayment(context.Background(), ConfirmInput{OrderID: co.Order.ID})
	require.NoError(t, err)
	assert.True(t, res.InProgress)
	assert.Zero(t, h.store.ticketCount())
	assert.Zero(t, h.verifier.calls)
}

func TestConfirmPaymentProceedsWhenLockBackendFails(t *testing.T) {
	h := newHarness(t)
	h.svc.locker = brokenLocker{}
	co := h.checkout(t, "Regular", 1)
	h.verifier.paid(co.Order.ID, 1500000)

	res, err := h.svc.ConfirmPayment(context.Background(), ConfirmInput{OrderID: co.Order.ID})
	require.NoError(t, err)
	assert.True(t, res.Created)
}

func TestConfirmPaymentVerificationFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("gateway has no record", func(t *testing.T) {
		h := newHarness(t)
		co := h.checkout(t, "Regular", 1)

		_, err := h.svc.ConfirmPayment(ctx, ConfirmInput{OrderID: co.Order.ID, ClientStatus: "success"})
		assert.ErrorIs(t, err, ErrPaymentNotVerified)
		assert.Zero(t, h.store.ticketCount())
		assert.Zero(t, h.notifier.count())

		_, err = h.svc.Retrieve(ctx, co.Order.ID)
		assert.ErrorIs(t, err, ErrTicketPending)
	})

	t.Run("gateway says not paid", func(t *testing.T) {
		h := newHarness(t)
		co := h.checkout(t, "Regular", 1)
		h.verifier.result = map[string]payment.Verification{
			co.Order.ID: {Reference: co.Order.ID, Status: "abandoned", Amount: 1500000},
		}

		_, err := h.svc.ConfirmPayment(ctx, ConfirmInput{OrderID: co.Order.ID, ClientStatus: "success"})
		assert.ErrorIs(t, err, ErrPaymentNotVerified)
		assert.Zero(t, h.store.ticketCount())
	})

	t.Run("amount differs", func(t *testing.T) {
		h := newHarness(t)
		co := h.checkout(t, "VIP", 2)
		h.verifier.paid(co.Order.ID, 5000000)

		_, err := h.svc.ConfirmPayment(ctx, ConfirmInput{OrderID: co.Order.ID})
		assert.ErrorIs(t, err, ErrPaymentMismatch)
		assert.Zero(t, h.store.ticketCount())
	})

	t.Run("currency differs", func(t *testing.T) {
		h := newHarness(t)
		co := h.checkout(t, "Regular", 1)
		h.verifier.result = map[string]payment.Verification{
			co.Order.ID: {Reference: co.Order.ID, Status: "PAID", Paid: true, Amount: 1500000, Currency: "IDR"},
		}

		_, err := h.svc.ConfirmPayment(ctx, ConfirmInput{OrderID: co.Order.ID})
		assert.ErrorIs(t, err, ErrPaymentMismatch)
		assert.Zero(t, h.store.ticketCount())
	})

	t.Run("reference differs from order", func(t *testing.T) {
		h := newHarness(t)
		co := h.checkout(t, "Regular", 1)

		_, err := h.svc.ConfirmPayment(ctx, ConfirmInput{OrderID: co.Order.ID, Reference: helpers.NewOrderID()})
		assert.ErrorIs(t, err, ErrReferenceMismatch)
		assert.Zero(t, h.verifier.calls)
	})

	t.Run("gateway unreachable", func(t *testing.T) {
		h := newHarness(t)
		co := h.checkout(t, "Regular", 1)
		h.verifier.err = payment.ErrGateway

		_, err := h.svc.ConfirmPayment(ctx, ConfirmInput{OrderID: co.Order.ID})
		assert.ErrorIs(t, err, ErrGatewayUnavailable)
	})

	t.Run("unknown order", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.ConfirmPayment(ctx, ConfirmInput{OrderID: helpers.NewOrderID()})
		assert.ErrorIs(t, err, models.ErrOrderNotFound)
	})

	t.Run("malformed order id", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.ConfirmPayment(ctx, ConfirmInput{OrderID: "1234"})
		assert.ErrorIs(t, err, ErrInvalidOrderID)
	})
}

func TestConfirmPaymentEmailFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.notifier.err = errors.New("smtp: 421 service not available")
	co := h.checkout(t, "Regular", 1)
	h.verifier.paid(co.Order.ID, 1500000)

	res, err := h.svc.ConfirmPayment(context.Background(), ConfirmInput{OrderID: co.Order.ID})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.False(t, res.EmailSent)

	view, err := h.svc.Retrieve(context.Background(), co.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Ticket.Code, view.Ticket.Code)
}

func TestConfirmPaymentEmailIsBounded(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.MailTimeout = 50 * time.Millisecond })
	h.notifier.block = true
	co := h.checkout(t, "Regular", 1)
	h.verifier.paid(co.Order.ID, 1500000)

	start := time.Now()
	res, err := h.svc.ConfirmPayment(context.Background(), ConfirmInput{OrderID: co.Order.ID})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.False(t, res.EmailSent)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestConfirmPaymentRetriesCodeCollision(t *testing.T) {
	h := newHarness(t)
	h.store.issueErrs = []error{models.ErrTicketCodeTaken, models.ErrTicketCodeTaken}
	co := h.checkout(t, "Regular", 1)
	h.verifier.paid(co.Order.ID, 1500000)

	res, err := h.svc.ConfirmPayment(context.Background(), ConfirmInput{OrderID: co.Order.ID})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, 3, h.store.issueCalls)
}

func TestConfirmPaymentGivesUpAfterRepeatedCollisions(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.MaxCodeAttempts = 2 })
	h.store.issueErrs = []error{models.ErrTicketCodeTaken, models.ErrTicketCodeTaken}
	co := h.checkout(t, "Regular", 1)
	h.verifier.paid(co.Order.ID, 1500000)

	_, err := h.svc.ConfirmPayment(context.Background(), ConfirmInput{OrderID: co.Order.ID})
	assert.ErrorIs(t, err, ErrPersistFailed)
	assert.Zero(t, h.store.ticketCount())
}

func TestConfirmPaymentPersistFailureCanBeRetried(t *testing.T) {
	h := newHarness(t)
	h.store.issueErrs = []error{errors.New("connection reset by peer")}
	co := h.checkout(t, "Regular", 1)
	h.verifier.paid(co.Order.ID, 1500000)
	ctx := context.Background()

	_, err := h.svc.ConfirmPayment(ctx, ConfirmInput{OrderID: co.Order.ID})
	assert.ErrorIs(t, err, ErrPersistFailed)
	assert.Zero(t, h.notifier.count(), "no email before the ticket exists")

	res, err := h.svc.ConfirmPayment(ctx, ConfirmInput{OrderID: co.Order.ID})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, 1, h.store.ticketCount())
}

func TestAbandon(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	co := h.checkout(t, "Regular", 1)

	order, err := h.svc.Abandon(ctx, co.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusAbandoned, order.Status)
	assert.Zero(t, h.store.ticketCount())

	_, err = h.svc.Retrieve(ctx, co.Order.ID)
	assert.ErrorIs(t, err, models.ErrTicketNotFound)

	_, err = h.svc.Abandon(ctx, helpers.NewOrderID())
	assert.ErrorIs(t, err, models.ErrOrderNotFound)
}

func TestAbandonLeavesPaidOrderAlone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	co := h.checkout(t, "Regular", 1)
	h.verifier.paid(co.Order.ID, 1500000)
	_, err := h.svc.ConfirmPayment(ctx, ConfirmInput{OrderID: co.Order.ID})
	require.NoError(t, err)

	order, err := h.svc.Abandon(ctx, co.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, order.Status)

	_, err = h.svc.Retrieve(ctx, co.Order.ID)
	assert.NoError(t, err)
}

func TestRetrieveUnknownOrder(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Retrieve(context.Background(), helpers.NewOrderID())
	assert.ErrorIs(t, err, models.ErrOrderNotFound)

	_, err = h.svc.Retrieve(context.Background(), "garbage")
	assert.ErrorIs(t, err, models.ErrOrderNotFound)
}

func TestStartCheckoutRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	buyer := Buyer{Name: "Ada", Email: "ada@example.com", Phone: "08030000000"}

	tests := []struct {
		name    string
		in      CheckoutInput
		wantErr error
	}{
		{"unknown tier", CheckoutInput{EventID: h.event.ID, TierName: "Platinum", Quantity: 1, Buyer: buyer}, models.ErrTierNotFound},
		{"unavailable tier", CheckoutInput{EventID: h.event.ID, TierName: "Table", Quantity: 1, Buyer: buyer}, models.ErrTierUnavailable},
		{"zero price", CheckoutInput{EventID: h.event.ID, TierName: "Promo", Quantity: 1, Buyer: buyer}, models.ErrInvalidAmount},
		{"price changed", CheckoutInput{EventID: h.event.ID, TierName: "VIP", DisplayPrice: "₦40,000", Quantity: 1, Buyer: buyer}, ErrPriceMismatch},
		{"no quantity", CheckoutInput{EventID: h.event.ID, TierName: "VIP", Quantity: 0, Buyer: buyer}, models.ErrInvalidQuantity},
		{"unknown event", CheckoutInput{EventID: uuid.New(), TierName: "VIP", Quantity: 1, Buyer: buyer}, models.ErrEventNotFound},
		{"missing name", CheckoutInput{EventID: h.event.ID, TierName: "VIP", Quantity: 1, Buyer: Buyer{Email: "a@b.co", Phone: "08030000000"}}, models.ErrInvalidBuyer},
		{"bad email", CheckoutInput{EventID: h.event.ID, TierName: "VIP", Quantity: 1, Buyer: Buyer{Name: "A", Email: "nope", Phone: "08030000000"}}, models.ErrInvalidBuyer},
		{"bad phone", CheckoutInput{EventID: h.event.ID, TierName: "VIP", Quantity: 1, Buyer: Buyer{Name: "A", Email: "a@b.co", Phone: "call me"}}, models.ErrInvalidBuyer},
		{"bad order id", CheckoutInput{OrderID: "abc", EventID: h.event.ID, TierName: "VIP", Quantity: 1, Buyer: buyer}, ErrInvalidOrderID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.StartCheckout(ctx, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, h.store.orders)
}

func TestStartCheckoutAcceptsMatchingDisplayPrice(t *testing.T) {
	h := newHarness(t)
	res, err := h.svc.StartCheckout(context.Background(), CheckoutInput{
		EventID:      h.event.ID,
		TierName:     "VIP",
		DisplayPrice: "₦50,000",
		Quantity:     1,
		Buyer:        Buyer{Name: "Ada", Email: "ada@example.com", Phone: "08030000000"},
	})
	require.NoError(t, err)
	assert.True(t, helpers.IsOrderID(res.Order.ID), "order id is minted when absent")
}

func TestStartCheckoutDraftEventIsNotOnSale(t *testing.T) {
	h := newHarness(t)
	draft := testEvent()
	draft.Status = models.EventStatusDraft
	h.store.events[draft.ID] = draft

	_, err := h.svc.StartCheckout(context.Background(), CheckoutInput{
		EventID:  draft.ID,
		TierName: "VIP",
		Quantity: 1,
		Buyer:    Buyer{Name: "Ada", Email: "ada@example.com", Phone: "08030000000"},
	})
	assert.ErrorIs(t, err, models.ErrEventNotFound)
}

func TestStartCheckoutReusedOrderID(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	in := CheckoutInput{
		OrderID:  helpers.NewOrderID(),
		EventID:  h.event.ID,
		TierName: "VIP",
		Quantity: 1,
		Buyer:    Buyer{Name: "Ada", Email: "ada@example.com", Phone: "08030000000"},
	}

	first, err := h.svc.StartCheckout(ctx, in)
	require.NoError(t, err)
	assert.False(t, first.Resumed)

	again, err := h.svc.StartCheckout(ctx, in)
	require.NoError(t, err)
	assert.True(t, again.Resumed)
	assert.Equal(t, first.Order.ID, again.Order.ID)

	in.Quantity = 3
	_, err = h.svc.StartCheckout(ctx, in)
	assert.ErrorIs(t, err, ErrOrderConflict)
}

func TestStartCheckoutPaidOrderIsNotReopened(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	in := CheckoutInput{
		OrderID:  helpers.NewOrderID(),
		EventID:  h.event.ID,
		TierName: "VIP",
		Quantity: 2,
		Buyer:    Buyer{Name: "Ada", Email: "ada@example.com", Phone: "08030000000"},
	}

	_, err := h.svc.StartCheckout(ctx, in)
	require.NoError(t, err)
	h.verifier.paid(in.OrderID, 10000000)
	_, err = h.svc.ConfirmPayment(ctx, ConfirmInput{OrderID: in.OrderID})
	require.NoError(t, err)

	again, err := h.svc.StartCheckout(ctx, in)
	assert.ErrorIs(t, err, ErrOrderPaid)
	assert.Equal(t, StateFulfilled, again.State)
	assert.Zero(t, again.Payment)
}

func TestResendTicketSurvivesCancelledRequest(t *testing.T) {
	h := newHarness(t)
	co := h.checkout(t, "Regular", 1)
	h.verifier.paid(co.Order.ID, 1500000)
	_, err := h.svc.ConfirmPayment(context.Background(), ConfirmInput{OrderID: co.Order.ID})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, h.svc.ResendTicket(ctx, co.Order.ID))
	assert.Equal(t, 2, h.notifier.count())
}

func TestResendTicket(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	co := h.checkout(t, "Regular", 1)

	err := h.svc.ResendTicket(ctx, co.Order.ID)
	assert.ErrorIs(t, err, ErrTicketPending)

	h.verifier.paid(co.Order.ID, 1500000)
	_, err = h.svc.ConfirmPayment(ctx, ConfirmInput{OrderID: co.Order.ID})
	require.NoError(t, err)

	require.NoError(t, h.svc.ResendTicket(ctx, co.Order.ID))
	assert.Equal(t, 2, h.notifier.count())
}

func TestStateOf(t *testing.T) {
	assert.Equal(t, StateCreated, StateOf(models.Order{}, false))
	assert.Equal(t, StateAwaitingPayment, StateOf(models.Order{ID: "x", Status: models.OrderStatusPending}, false))
	assert.Equal(t, StateAbandoned, StateOf(models.Order{ID: "x", Status: models.OrderStatusAbandoned}, false))
	assert.Equal(t, StateFulfilled, StateOf(models.Order{ID: "x", Status: models.OrderStatusPaid}, true))
}
