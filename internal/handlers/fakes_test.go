package handlers

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/farellandr/sahmticket/internal/clock"
	"github.com/farellandr/sahmticket/internal/fulfillment"
	"github.com/farellandr/sahmticket/internal/models"
	"github.com/farellandr/sahmticket/internal/notify"
	"github.com/farellandr/sahmticket/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var testNow = time.Date(2025, 6, 13, 10, 0, 0, 0, time.UTC)

// fakeCatalog keeps events in memory. Methods a test does not need panic through
// the embedded nil interface.
type fakeCatalog struct {
	Catalog
	mu      sync.Mutex
	events  map[uuid.UUID]models.Event
	tiers   map[uuid.UUID]models.TicketTier
	created []models.Event
	deleted []uuid.UUID
	patched map[string]any
}

func newFakeCatalog(events ...models.Event) *fakeCatalog {
	f := &fakeCatalog{
		events: make(map[uuid.UUID]models.Event),
		tiers:  make(map[uuid.UUID]models.TicketTier),
	}
	for _, e := range events {
		f.events[e.ID] = e
		for _, tier := range e.Tiers {
			f.tiers[tier.ID] = tier
		}
	}
	return f
}

func (f *fakeCatalog) ListEvents(ctx context.Context, filter store.EventFilter) ([]models.Event, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Event
	for _, e := range f.events {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.OrganizerID != nil && (e.OrganizerID == nil || *e.OrganizerID != *filter.OrganizerID) {
			continue
		}
		out = append(out, e)
	}
	return out, int64(len(out)), nil
}

func (f *fakeCatalog) GetEvent(ctx context.Context, id uuid.UUID) (models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return models.Event{}, models.ErrEventNotFound
	}
	return e, nil
}

func (f *fakeCatalog) GetEventByRef(ctx context.Context, ref string) (models.Event, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return f.GetEvent(ctx, id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.Slug == ref {
			return e, nil
		}
	}
	return models.Event{}, models.ErrEventNotFound
}

func (f *fakeCatalog) CreateEvent(ctx context.Context, event *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[event.ID] = *event
	f.created = append(f.created, *event)
	return nil
}

func (f *fakeCatalog) UpdateEvent(ctx context.Context, event *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[event.ID] = *event
	return nil
}

func (f *fakeCatalog) PatchEvent(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[id]; !ok {
		return models.ErrEventNotFound
	}
	f.patched = fields
	return nil
}

func (f *fakeCatalog) DeleteEvent(ctx context.Context, id uuid.UUID, organizerID *uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return models.ErrEventNotFound
	}
	if e.TicketsSold > 0 {
		return models.ErrEventHasTickets
	}
	delete(f.events, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCatalog) Categories(ctx context.Context) ([]string, error) {
	return []string{"Music", "Tech"}, nil
}

func (f *fakeCatalog) GetTier(ctx context.Context, id uuid.UUID) (models.TicketTier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tier, ok := f.tiers[id]
	if !ok {
		return models.TicketTier{}, models.ErrTierNotFound
	}
	return tier, nil
}

func (f *fakeCatalog) CreateTier(ctx context.Context, tier *models.TicketTier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tier.ID == uuid.Nil {
		tier.ID = uuid.New()
	}
	f.tiers[tier.ID] = *tier
	return nil
}

type fakeAccounts struct {
	Accounts
	mu          sync.Mutex
	users       map[uuid.UUID]models.User
	otps        map[string]models.OTPCode
	verified    []string
	subscribers []models.NewsletterSubscriber
}

func newFakeAccounts(users ...models.User) *fakeAccounts {
	f := &fakeAccounts{
		users: make(map[uuid.UUID]models.User),
		otps:  make(map[string]models.OTPCode),
	}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeAccounts) CreateUser(ctx context.Context, user *models.User, roleName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return models.ErrDuplicate
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Role = models.Role{Name: roleName}
	f.users[user.ID] = *user
	return nil
}

func (f *fakeAccounts) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, models.ErrUserNotFound
}

func (f *fakeAccounts) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return models.User{}, models.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeAccounts) SaveOTP(ctx context.Context, otp *models.OTPCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.otps[otp.Email] = *otp
	return nil
}

func (f *fakeAccounts) ActiveOTP(ctx context.Context, email string, now time.Time) (models.OTPCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	otp, ok := f.otps[email]
	if !ok || !otp.ExpiresAt.After(now) {
		return models.OTPCode{}, models.ErrOTPNotFound
	}
	return otp, nil
}

func (f *fakeAccounts) DeleteOTPs(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.otps, email)
	return nil
}

func (f *fakeAccounts) MarkUserVerified(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified = append(f.verified, email)
	return nil
}

func (f *fakeAccounts) UpsertSubscriber(ctx context.Context, sub *models.NewsletterSubscriber) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribers = append(f.subscribers, *sub)
	return nil
}

type fakeCheckout struct {
	startIn   fulfillment.CheckoutInput
	startOut  fulfillment.CheckoutResult
	startErr  error
	confirmIn fulfillment.ConfirmInput
	confirm   fulfillment.Result
	confirmN  int
	err       error
	view      fulfillment.TicketView
	viewErr   error
	abandoned models.Order
	resendErr error
}

func (f *fakeCheckout) StartCheckout(ctx context.Context, in fulfillment.CheckoutInput) (fulfillment.CheckoutResult, error) {
	f.startIn = in
	return f.startOut, f.startErr
}

func (f *fakeCheckout) ConfirmPayment(ctx context.Context, in fulfillment.ConfirmInput) (fulfillment.Result, error) {
	f.confirmIn = in
	f.confirmN++
	return f.confirm, f.err
}

func (f *fakeCheckout) Abandon(ctx context.Context, orderID string) (models.Order, error) {
	if f.err != nil {
		return models.Order{}, f.err
	}
	return f.abandoned, nil
}

func (f *fakeCheckout) Retrieve(ctx context.Context, orderID string) (fulfillment.TicketView, error) {
	return f.view, f.viewErr
}

func (f *fakeCheckout) ResendTicket(ctx context.Context, orderID string) error {
	return f.resendErr
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
}

func (f *fakeNotifier) Send(ctx context.Context, kind notify.Kind, to string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{kind: kind, to: to, payload: payload})
	return f.err
}

type testEnv struct {
	catalog  *fakeCatalog
	accounts *fakeAccounts
	checkout *fakeCheckout
	notifier *fakeNotifier
	handler  *Handler
}

const (
	testJWTSecret      = "jwt-secret"
	testPaystackSecret = "sk_test_secret"
	testTicketSecret   = "ticket-secret"
)

func newTestEnv(t *testing.T, catalog *fakeCatalog, accounts *fakeAccounts) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if catalog == nil {
		catalog = newFakeCatalog()
	}
	if accounts == nil {
		accounts = newFakeAccounts()
	}
	env := &testEnv{
		catalog:  catalog,
		accounts: accounts,
		checkout: &fakeCheckout{},
		notifier: &fakeNotifier{},
	}
	env.handler = New(Deps{
		Catalog:  catalog,
		Accounts: accounts,
		Checkout: env.checkout,
		Notifier: env.notifier,
		Clock:    clock.NewFixed(testNow),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, Config{
		JWTSecret:           testJWTSecret,
		PaystackSecretKey:   testPaystackSecret,
		TicketSigningSecret: testTicketSecret,
		PublicBaseURL:       "https://sahmtickethub.online",
		Location:            time.UTC,
	})
	return env
}

// asUser stands in for JWTAuthMiddleware.
func asUser(id uuid.UUID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", id)
		c.Set("role", role)
		c.Next()
	}
}

func liveEvent(title string, startsAt time.Time, organizerID *uuid.UUID) models.Event {
	id := uuid.New()
	return models.Event{
		ID:          id,
		Slug:        "event-" + id.String()[:8],
		Title:       title,
		Category:    "Music",
		StartsAt:    startsAt,
		Venue:       "Eko Hotel",
		City:        "Lagos",
		Status:      models.EventStatusLive,
		Trending:    true,
		OrganizerID: organizerID,
		Tiers: []models.TicketTier{
			{ID: uuid.New(), EventID: id, Name: "Regular", Price: "₦15,000", Available: true},
			{ID: uuid.New(), EventID: id, Name: "VIP", Price: "₦50,000", Available: true},
		},
	}
}
