package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/farellandr/sahmticket/internal/models"
	"github.com/farellandr/sahmticket/internal/notify"
	"github.com/farellandr/sahmticket/internal/payment"
	"github.com/google/uuid"
)

type fakeStore struct {
	mu        sync.Mutex
	events    map[uuid.UUID]models.Event
	orders    map[string]models.Order
	tickets   map[string]models.Ticket
	attendees map[string]models.Attendee

	// issueErrs are returned by successive IssueTicket calls before the real
	// behaviour kicks in.
	issueErrs   []error
	issueCalls  int
	beforeIssue func(s *fakeStore, order models.Order)
}

func newFakeStore(events ...models.Event) *fakeStore {
	s := &fakeStore{
		events:    make(map[uuid.UUID]models.Event),
		orders:    make(map[string]models.Order),
		tickets:   make(map[string]models.Ticket),
		attendees: make(map[string]models.Attendee),
	}
	for _, e := range events {
		s.events[e.ID] = e
	}
	return s
}

func (s *fakeStore) GetEvent(ctx context.Context, id uuid.UUID) (models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return models.Event{}, models.ErrEventNotFound
	}
	return e, nil
}

func (s *fakeStore) CreateOrder(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.ID]; ok {
		return fmt.Errorf("%w: order", models.ErrDuplicate)
	}
	order.CreatedAt = time.Now()
	s.orders[order.ID] = *order
	return nil
}

func (s *fakeStore) GetOrder(ctx context.Context, id string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return models.Order{}, models.ErrOrderNotFound
	}
	return o, nil
}

func (s *fakeStore) MarkOrderAbandoned(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.orders[id]
	o.Status = models.OrderStatusAbandoned
	s.orders[id] = o
	return nil
}

func (s *fakeStore) GetTicketByOrderID(ctx context.Context, orderID string) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[orderID]
	if !ok {
		return models.Ticket{}, models.ErrTicketNotFound
	}
	return t, nil
}

func (s *fakeStore) IssueTicket(ctx context.Context, order models.Order, ticket *models.Ticket, attendee *models.Attendee) error {
	if s.beforeIssue != nil {
		s.beforeIssue(s, order)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.issueCalls++
	if len(s.issueErrs) > 0 {
		err := s.issueErrs[0]
		s.issueErrs = s.issueErrs[1:]
		if err != nil {
			return err
		}
	}
	if _, ok := s.tickets[order.ID]; ok {
		return models.ErrTicketExists
	}
	for _, t := range s.tickets {
		if t.Code == ticket.Code {
			return models.ErrTicketCodeTaken
		}
	}
	ticket.ID = uuid.New()
	s.tickets[order.ID] = *ticket
	s.attendees[order.ID] = *attendee

	o := s.orders[order.ID]
	o.Status = models.OrderStatusPaid
	o.PaidAt = order.PaidAt
	o.PaymentReference = order.PaymentReference
	s.orders[order.ID] = o

	e := s.events[order.EventID]
	e.TicketsSold += order.Quantity
	e.Revenue += order.Total
	s.events[order.EventID] = e
	return nil
}

func (s *fakeStore) ticketCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickets)
}

type fakeVerifier struct {
	mu     sync.Mutex
	calls  int
	result map[string]payment.Verification
	err    error
}

func (v *fakeVerifier) Verify(ctx context.Context, reference string) (payment.Verification, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	if v.err != nil {
		return payment.Verification{}, v.err
	}
	res, ok := v.result[reference]
	if !ok {
		return payment.Verification{}, payment.ErrTransactionNotFound
	}
	return res, nil
}

func (v *fakeVerifier) paid(reference string, kobo int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.result == nil {
		v.result = make(map[string]payment.Verification)
	}
	v.result[reference] = payment.Verification{
		Provider:  "paystack",
		Reference: reference,
		Status:    "success",
		Paid:      true,
		Amount:    kobo,
		Currency:  "NGN",
	}
}

type sentMail struct {
	kind    notify.Kind
	to      string
	payload any
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
	// block makes Send wait for its context to end.
	block bool
}

func (n *fakeNotifier) Send(ctx context.Context, kind notify.Kind, to string, payload any) error {
	if n.block {
		<-ctx.Done()
		return fmt.Errorf("%w: %w", notify.ErrTransport, ctx.Err())
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", notify.ErrTransport, err)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{kind: kind, to: to, payload: payload})
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type heldLocker struct{}

func (heldLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	return func() {}, false, nil
}

type brokenLocker struct{}

func (brokenLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	return func() {}, false, errors.New("redis down")
}
