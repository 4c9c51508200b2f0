// Package fulfillment runs an order from checkout to an issued ticket. Payment is
// verified with the gateway before anything is issued, issuance is idempotent per
// order id, and the confirmation email never decides the outcome.
package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/farellandr/sahmticket/internal/clock"
	"github.com/farellandr/sahmticket/internal/helpers"
	"github.com/farellandr/sahmticket/internal/locker"
	"github.com/farellandr/sahmticket/internal/metrics"
	"github.com/farellandr/sahmticket/internal/models"
	"github.com/farellandr/sahmticket/internal/notify"
	"github.com/farellandr/sahmticket/internal/payment"
	"github.com/farellandr/sahmticket/internal/pricing"
	"github.com/google/uuid"
)

const (
	DefaultMailTimeout     = 10 * time.Second
	DefaultLockTTL         = 30 * time.Second
	DefaultMaxCodeAttempts = 5

	currencyNGN = "NGN"
)

type Store interface {
	GetEvent(ctx context.Context, id uuid.UUID) (models.Event, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (models.Order, error)
	MarkOrderAbandoned(ctx context.Context, id string) error
	GetTicketByOrderID(ctx context.Context, orderID string) (models.Ticket, error)
	// IssueTicket stores the ticket and attendee, marks the order paid and updates
	// the event counters atomically.
	IssueTicket(ctx context.Context, order models.Order, ticket *models.Ticket, attendee *models.Attendee) error
}

type Notifier interface {
	Send(ctx context.Context, kind notify.Kind, to string, payload any) error
}

type Config struct {
	Provider        string
	PublicKey       string
	PublicBaseURL   string
	MailTimeout     time.Duration
	LockTTL         time.Duration
	MaxCodeAttempts int
	// Location is used to print event dates in emails.
	Location *time.Location
}

type Service struct {
	store    Store
	verifier payment.Verifier
	notifier Notifier
	locker   locker.Locker
	clock    clock.Clock
	logger   *slog.Logger
	cfg      Config

	newCode    func() (string, error)
	newOrderID func() string
}

func NewService(store Store, verifier payment.Verifier, notifier Notifier, lock locker.Locker, clk clock.Clock, logger *slog.Logger, cfg Config) *Service {
	if cfg.MailTimeout <= 0 {
		cfg.MailTimeout = DefaultMailTimeout
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}
	if cfg.MaxCodeAttempts <= 0 {
		cfg.MaxCodeAttempts = DefaultMaxCodeAttempts
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Service{
		store:      store,
		verifier:   verifier,
		notifier:   notifier,
		locker:     lock,
		clock:      clk,
		logger:     logger,
		cfg:        cfg,
		newCode:    helpers.GenerateTicketCode,
		newOrderID: helpers.NewOrderID,
	}
}

type Buyer struct {
	Name  string
	Email string
	Phone string
}

type CheckoutInput struct {
	// OrderID may be empty, in which case one is minted.
	OrderID      string
	EventID      uuid.UUID
	TierName     string
	DisplayPrice string
	Quantity     int
	Buyer        Buyer
}

// PaymentSetup is what the browser needs to open the gateway widget.
type PaymentSetup struct {
	Provider  string `json:"provider"`
	PublicKey string `json:"public_key"`
	Reference string `json:"reference"`
	Email     string `json:"email"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

type CheckoutResult struct {
	Order   models.Order
	Event   models.Event
	Payment PaymentSetup
	State   State
	// Resumed is set when the order id had already been used for the same
	// selection, e.g. after a page reload.
	Resumed bool
}

// StartCheckout prices the selection from the catalog and persists a pending
// order keyed by the order id.
func (s *Service) StartCheckout(ctx context.Context, in CheckoutInput) (CheckoutResult, error) {
	result, err := s.startCheckout(ctx, in)
	switch {
	case err != nil:
		metrics.CheckoutOrders.WithLabelValues("rejected").Inc()
	case result.Resumed:
		metrics.CheckoutOrders.WithLabelValues("resumed").Inc()
	default:
		metrics.CheckoutOrders.WithLabelValues("created").Inc()
	}
	return result, err
}

func (s *Service) startCheckout(ctx context.Context, in CheckoutInput) (CheckoutResult, error) {
	buyer, err := normalizeBuyer(in.Buyer)
	if err != nil {
		return CheckoutResult{}, err
	}

	orderID := in.OrderID
	if orderID == "" {
		orderID = s.newOrderID()
	} else if !helpers.IsOrderID(orderID) {
		return CheckoutResult{}, fmt.Errorf("%w: %q", ErrInvalidOrderID, orderID)
	}

	event, err := s.store.GetEvent(ctx, in.EventID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if event.Status != models.EventStatusLive {
		return CheckoutResult{}, fmt.Errorf("%w: %s is not on sale", models.ErrEventNotFound, event.ID)
	}

	res, err := pricing.Resolve(event, in.TierName)
	if err != nil {
		return CheckoutResult{}, err
	}
	if !res.Available {
		return CheckoutResult{}, fmt.Errorf("%w: %q", models.ErrTierUnavailable, in.TierName)
	}
	if in.DisplayPrice != "" && pricing.ParseAmount(in.DisplayPrice) != res.UnitPrice {
		return CheckoutResult{}, fmt.Errorf("%w: got %q, catalog has %s", ErrPriceMismatch, in.DisplayPrice, pricing.Format(res.UnitPrice))
	}
	total, err := pricing.Total(res.UnitPrice, in.Quantity)
	if err != nil {
		return CheckoutResult{}, err
	}

	order := models.Order{
		ID:         orderID,
		EventID:    event.ID,
		TierName:   res.Tier.Name,
		UnitPrice:  res.UnitPrice,
		Quantity:   in.Quantity,
		Total:      total,
		BuyerName:  buyer.Name,
		BuyerEmail: buyer.Email,
		BuyerPhone: buyer.Phone,
		Status:     models.OrderStatusPending,
	}

	resumed := false
	if err := s.store.CreateOrder(ctx, &order); err != nil {
		if !errors.Is(err, models.ErrDuplicate) {
			return CheckoutResult{}, fmt.Errorf("failed to create order: %w", err)
		}
		existing, getErr := s.store.GetOrder(ctx, orderID)
		if getErr != nil {
			return CheckoutResult{}, fmt.Errorf("failed to load order %s: %w", orderID, getErr)
		}
		if !sameSelection(existing, order) {
			return CheckoutResult{}, fmt.Errorf("%w: %s", ErrOrderConflict, orderID)
		}
		if existing.Status == models.OrderStatusPaid {
			return CheckoutResult{Order: existing, Event: event, State: StateFulfilled}, fmt.Errorf("%w: %s", ErrOrderPaid, orderID)
		}
		order = existing
		resumed = true
	}

	s.logger.Info("checkout started",
		"order_id", order.ID,
		"event_id", event.ID,
		"tier", order.TierName,
		"quantity", order.Quantity,
		"total", order.Total,
		"resumed", resumed,
	)

	return CheckoutResult{
		Order: order,
		Event: event,
		Payment: PaymentSetup{
			Provider:  s.cfg.Provider,
			PublicKey: s.cfg.PublicKey,
			Reference: order.ID,
			Email:     order.BuyerEmail,
			Amount:    pricing.Kobo(order.Total),
			Currency:  currencyNGN,
		},
		State:   StateOf(order, order.Status == models.OrderStatusPaid),
		Resumed: resumed,
	}, nil
}

type ConfirmInput struct {
	OrderID   string
	Reference string
	// ClientStatus is what the payment widget reported. It is logged but not
	// trusted.
	ClientStatus string
}

type Result struct {
	Order  models.Order
	Ticket models.Ticket
	State  State
	// Created is false when the ticket already existed.
	Created bool
	// InProgress is set when another confirmation for the order holds the lock.
	InProgress bool
	EmailSent  bool
}

// ConfirmPayment verifies the payment with the gateway and issues exactly one
// ticket for the order. Calling it again for a fulfilled order is a no-op.
func (s *Service) ConfirmPayment(ctx context.Context, in ConfirmInput) (Result, error) {
	result, err := s.confirmPayment(ctx, in)
	metrics.Fulfillments.WithLabelValues(outcome(result, err)).Inc()
	return result, err
}

func (s *Service) confirmPayment(ctx context.Context, in ConfirmInput) (Result, error) {
	if !helpers.IsOrderID(in.OrderID) {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidOrderID, in.OrderID)
	}
	if in.Reference != "" && in.Reference != in.OrderID {
		return Result{}, fmt.Errorf("%w: reference %q for order %s", ErrReferenceMismatch, in.Reference, in.OrderID)
	}

	order, err := s.store.GetOrder(ctx, in.OrderID)
	if err != nil {
		return Result{}, err
	}

	release, ok, err := s.locker.Acquire(ctx, "fulfillment:"+order.ID, s.cfg.LockTTL)
	if err != nil {
		// The unique order_id on tickets still prevents double issuance.
		s.logger.Warn("fulfillment lock unavailable", "order_id", order.ID, "error", err)
	} else if !ok {
		s.logger.Info("fulfillment already in progress", "order_id", order.ID)
		return Result{Order: order, State: StateOf(order, false), InProgress: true}, nil
	}
	defer release()

	if ticket, err := s.store.GetTicketByOrderID(ctx, order.ID); err == nil {
		return s.alreadyFulfilled(ctx, order, ticket), nil
	} else if !errors.Is(err, models.ErrTicketNotFound) {
		return Result{}, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	if err := s.verify(ctx, order, in.ClientStatus); err != nil {
		return Result{Order: order, State: StateOf(order, false)}, err
	}
	s.logger.Info("payment confirmed", "order_id", order.ID, "state", StatePaymentConfirmed)

	paidAt := s.clock.Now()
	order.PaymentReference = order.ID
	order.PaidAt = &paidAt

	ticket, created, err := s.issue(ctx, order)
	if err != nil {
		s.logger.Error("ticket issuance failed", "order_id", order.ID, "state", StateTicketIssuing, "error", err)
		return Result{Order: order, State: StatePaymentConfirmed}, err
	}
	if !created {
		return s.alreadyFulfilled(ctx, order, ticket), nil
	}

	order.Status = models.OrderStatusPaid
	s.logger.Info("ticket issued", "order_id", order.ID, "ticket_code", ticket.Code, "state", StateFulfilled)

	result := Result{Order: order, Ticket: ticket, State: StateFulfilled, Created: true}
	result.EmailSent = s.sendTicketEmail(ctx, order, ticket) == nil
	return result, nil
}

func (s *Service) alreadyFulfilled(ctx context.Context, order models.Order, ticket models.Ticket) Result {
	if reloaded, err := s.store.GetOrder(ctx, order.ID); err == nil {
		order = reloaded
	}
	s.logger.Info("order already fulfilled", "order_id", order.ID, "ticket_code", ticket.Code)
	return Result{Order: order, Ticket: ticket, State: StateFulfilled}
}

func (s *Service) verify(ctx context.Context, order models.Order, clientStatus string) error {
	v, err := s.verifier.Verify(ctx, order.ID)
	switch {
	case errors.Is(err, payment.ErrTransactionNotFound):
		return fmt.Errorf("%w: %w", ErrPaymentNotVerified, err)
	case err != nil:
		return fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}

	if clientStatus != "" && !strings.EqualFold(clientStatus, v.Status) {
		s.logger.Warn("client payment status disagrees with gateway",
			"order_id", order.ID, "client_status", clientStatus, "gateway_status", v.Status)
	}
	if !v.Paid {
		return fmt.Errorf("%w: gateway status %q", ErrPaymentNotVerified, v.Status)
	}
	if v.Reference != order.ID {
		return fmt.Errorf("%w: gateway reference %q", ErrPaymentMismatch, v.Reference)
	}
	if want := pricing.Kobo(order.Total); v.Amount != want {
		return fmt.Errorf("%w: paid %d, expected %d", ErrPaymentMismatch, v.Amount, want)
	}
	if v.Currency != "" && !strings.EqualFold(v.Currency, currencyNGN) {
		return fmt.Errorf("%w: currency %s", ErrPaymentMismatch, v.Currency)
	}
	return nil
}

// issue stores a ticket, regenerating the code on collision. created is false
// when a concurrent confirmation won the race and its ticket is returned.
func (s *Service) issue(ctx context.Context, order models.Order) (models.Ticket, bool, error) {
	for attempt := 1; attempt <= s.cfg.MaxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return models.Ticket{}, false, fmt.Errorf("%w: failed to generate code: %w", ErrPersistFailed, err)
		}

		ticket := models.Ticket{
			OrderID: order.ID,
			Code:    code,
			Email:   order.BuyerEmail,
			EventID: order.EventID,
		}
		attendee := models.Attendee{
			EventID:    order.EventID,
			OrderID:    order.ID,
			Name:       order.BuyerName,
			Email:      order.BuyerEmail,
			Phone:      order.BuyerPhone,
			TierName:   order.TierName,
			Quantity:   order.Quantity,
			TicketCode: code,
		}

		err = s.store.IssueTicket(ctx, order, &ticket, &attendee)
		switch {
		case err == nil:
			return ticket, true, nil
		case errors.Is(err, models.ErrTicketCodeTaken):
			s.logger.Warn("ticket code collision", "order_id", order.ID, "attempt", attempt)
			continue
		case errors.Is(err, models.ErrTicketExists):
			existing, getErr := s.store.GetTicketByOrderID(ctx, order.ID)
			if getErr != nil {
				return models.Ticket{}, false, fmt.Errorf("%w: %w", ErrPersistFailed, getErr)
			}
			return existing, false, nil
		default:
			return models.Ticket{}, false, fmt.Errorf("%w: %w", ErrPersistFailed, err)
		}
	}
	return models.Ticket{}, false, fmt.Errorf("%w: no free ticket code after %d attempts", ErrPersistFailed, s.cfg.MaxCodeAttempts)
}

// mailContext bounds a ticket email by MailTimeout. It is detached from the
// request so that a client disconnect does not cut the send short.
func (s *Service) mailContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.cfg.MailTimeout)
}

// sendTicketEmail delivers the confirmation within MailTimeout.
func (s *Service) sendTicketEmail(ctx context.Context, order models.Order, ticket models.Ticket) error {
	event, err := s.store.GetEvent(ctx, order.EventID)
	if err != nil {
		s.logger.Error("ticket email skipped, event lookup failed", "order_id", order.ID, "error", err)
		return err
	}

	mailCtx, cancel := s.mailContext(ctx)
	defer cancel()

	err = s.notifier.Send(mailCtx, notify.KindTicket, order.BuyerEmail, s.ticketPayload(order, event, ticket))
	if err != nil {
		s.logger.Error("ticket email failed", "order_id", order.ID, "to", order.BuyerEmail, "error", err)
		return err
	}
	return nil
}

func (s *Service) ticketPayload(order models.Order, event models.Event, ticket models.Ticket) notify.TicketPayload {
	startsAt := event.StartsAt.In(s.cfg.Location)
	timeLabel := event.TimeLabel
	if timeLabel == "" {
		timeLabel = startsAt.Format("3:04 PM")
	}
	details := notify.EventDetails{
		Title:      event.Title,
		Date:       startsAt.Format("Monday, 2 January 2006"),
		Time:       timeLabel,
		Venue:      event.Venue,
		City:       event.City,
		TicketCode: ticket.Code,
	}
	if s.cfg.PublicBaseURL != "" {
		details.URL = strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/ticket/" + order.ID
	}
	return notify.TicketPayload{Name: order.BuyerName, Event: details}
}

// Abandon records that the buyer closed the payment widget. Paid orders are left
// untouched.
func (s *Service) Abandon(ctx context.Context, orderID string) (models.Order, error) {
	if !helpers.IsOrderID(orderID) {
		return models.Order{}, fmt.Errorf("%w: %q", ErrInvalidOrderID, orderID)
	}
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if order.Status != models.OrderStatusPending {
		return order, nil
	}
	if err := s.store.MarkOrderAbandoned(ctx, orderID); err != nil {
		return models.Order{}, fmt.Errorf("failed to abandon order %s: %w", orderID, err)
	}
	order.Status = models.OrderStatusAbandoned
	metrics.CheckoutOrders.WithLabelValues("abandoned").Inc()
	s.logger.Info("checkout abandoned", "order_id", orderID, "state", StateAbandoned)
	return order, nil
}

type TicketView struct {
	Order  models.Order
	Event  models.Event
	Ticket models.Ticket
}

// Retrieve returns the ticket for an order. An unknown or abandoned order is
// ErrOrderNotFound or ErrTicketNotFound; an order still awaiting payment is
// ErrTicketPending.
func (s *Service) Retrieve(ctx context.Context, orderID string) (TicketView, error) {
	if !helpers.IsOrderID(orderID) {
		return TicketView{}, fmt.Errorf("%w: %q", models.ErrOrderNotFound, orderID)
	}
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return TicketView{}, err
	}

	ticket, err := s.store.GetTicketByOrderID(ctx, orderID)
	switch {
	case errors.Is(err, models.ErrTicketNotFound):
		if order.Status == models.OrderStatusPending {
			return TicketView{Order: order}, fmt.Errorf("%w: %s", ErrTicketPending, orderID)
		}
		return TicketView{}, fmt.Errorf("%w: %s", models.ErrTicketNotFound, orderID)
	case err != nil:
		return TicketView{}, err
	}

	event, err := s.store.GetEvent(ctx, order.EventID)
	if err != nil {
		return TicketView{}, err
	}
	return TicketView{Order: order, Event: event, Ticket: ticket}, nil
}

// ResendTicket sends the confirmation email again for a fulfilled order.
func (s *Service) ResendTicket(ctx context.Context, orderID string) error {
	view, err := s.Retrieve(ctx, orderID)
	if err != nil {
		return err
	}
	mailCtx, cancel := s.mailContext(ctx)
	defer cancel()
	return s.notifier.Send(mailCtx, notify.KindTicket, view.Order.BuyerEmail, s.ticketPayload(view.Order, view.Event, view.Ticket))
}

func normalizeBuyer(b Buyer) (Buyer, error) {
	b.Name = strings.TrimSpace(b.Name)
	b.Email = strings.TrimSpace(b.Email)
	b.Phone = strings.TrimSpace(b.Phone)

	if b.Name == "" {
		return Buyer{}, fmt.Errorf("%w: full name is required", models.ErrInvalidBuyer)
	}
	addr, err := mail.ParseAddress(b.Email)
	if err != nil || addr.Address != b.Email {
		return Buyer{}, fmt.Errorf("%w: email %q", models.ErrInvalidBuyer, b.Email)
	}
	digits := 0
	for _, r := range b.Phone {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return Buyer{}, fmt.Errorf("%w: phone %q", models.ErrInvalidBuyer, b.Phone)
		}
	}
	if digits < 7 || digits > 15 {
		return Buyer{}, fmt.Errorf("%w: phone %q", models.ErrInvalidBuyer, b.Phone)
	}
	return b, nil
}

func sameSelection(a, b models.Order) bool {
	return a.EventID == b.EventID &&
		a.TierName == b.TierName &&
		a.Quantity == b.Quantity &&
		strings.EqualFold(a.BuyerEmail, b.BuyerEmail)
}

func outcome(r Result, err error) string {
	switch {
	case err == nil && r.InProgress:
		return "in_progress"
	case err == nil && r.Created:
		return "issued"
	case err == nil:
		return "duplicate"
	case errors.Is(err, ErrPaymentNotVerified), errors.Is(err, ErrPaymentMismatch), errors.Is(err, ErrReferenceMismatch):
		return "unverified"
	case errors.Is(err, ErrPersistFailed):
		return "persist_failed"
	}
	return "error"
}
