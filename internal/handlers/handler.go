package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/farellandr/sahmticket/internal/clock"
	"github.com/farellandr/sahmticket/internal/fulfillment"
	"github.com/farellandr/sahmticket/internal/helpers"
	"github.com/farellandr/sahmticket/internal/models"
	"github.com/farellandr/sahmticket/internal/notify"
	"github.com/farellandr/sahmticket/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Catalog interface {
	ListEvents(ctx context.Context, f store.EventFilter) ([]models.Event, int64, error)
	GetEvent(ctx context.Context, id uuid.UUID) (models.Event, error)
	GetEventByRef(ctx context.Context, ref string) (models.Event, error)
	CreateEvent(ctx context.Context, event *models.Event) error
	UpdateEvent(ctx context.Context, event *models.Event) error
	PatchEvent(ctx context.Context, id uuid.UUID, fields map[string]any) error
	DeleteEvent(ctx context.Context, id uuid.UUID, organizerID *uuid.UUID) error
	Categories(ctx context.Context) ([]string, error)
	GetTier(ctx context.Context, id uuid.UUID) (models.TicketTier, error)
	CreateTier(ctx context.Context, tier *models.TicketTier) error
	UpdateTier(ctx context.Context, tier *models.TicketTier) error
	DeleteTier(ctx context.Context, id uuid.UUID) error
}

type Accounts interface {
	CreateUser(ctx context.Context, user *models.User, roleName string) error
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (models.User, error)
	ListUsersByRole(ctx context.Context, roleName string, page, limit int) ([]models.User, int64, error)
	PatchUser(ctx context.Context, id uuid.UUID, fields map[string]any) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	MarkUserVerified(ctx context.Context, email string) error
	SaveOTP(ctx context.Context, otp *models.OTPCode) error
	ActiveOTP(ctx context.Context, email string, now time.Time) (models.OTPCode, error)
	DeleteOTPs(ctx context.Context, email string) error
	UpsertSubscriber(ctx context.Context, sub *models.NewsletterSubscriber) error
}

type Reports interface {
	AdminStats(ctx context.Context) (store.AdminStats, error)
	Analytics(ctx context.Context, organizerID *uuid.UUID) (store.Analytics, error)
	OrganizerStats(ctx context.Context, organizerID uuid.UUID) (store.OrganizerStats, error)
	Attendees(ctx context.Context, organizerID uuid.UUID, eventID *uuid.UUID, page, limit int) ([]models.Attendee, int64, error)
}

type Checkout interface {
	StartCheckout(ctx context.Context, in fulfillment.CheckoutInput) (fulfillment.CheckoutResult, error)
	ConfirmPayment(ctx context.Context, in fulfillment.ConfirmInput) (fulfillment.Result, error)
	Abandon(ctx context.Context, orderID string) (models.Order, error)
	Retrieve(ctx context.Context, orderID string) (fulfillment.TicketView, error)
	ResendTicket(ctx context.Context, orderID string) error
}

type Notifier interface {
	Send(ctx context.Context, kind notify.Kind, to string, payload any) error
}

type Config struct {
	JWTSecret           string
	TokenTTL            time.Duration
	PaystackSecretKey   string
	TicketSigningSecret string
	PublicBaseURL       string
	OTPExpiry           time.Duration
	MailTimeout         time.Duration
	// Location is the default discovery time zone.
	Location *time.Location
}

type Handler struct {
	catalog  Catalog
	accounts Accounts
	reports  Reports
	checkout Checkout
	notifier Notifier
	clock    clock.Clock
	logger   *slog.Logger
	cfg      Config
}

type Deps struct {
	Catalog  Catalog
	Accounts Accounts
	Reports  Reports
	Checkout Checkout
	Notifier Notifier
	Clock    clock.Clock
	Logger   *slog.Logger
}

func New(deps Deps, cfg Config) *Handler {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.OTPExpiry <= 0 {
		cfg.OTPExpiry = 5 * time.Minute
	}
	if cfg.MailTimeout <= 0 {
		cfg.MailTimeout = fulfillment.DefaultMailTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Handler{
		catalog:  deps.Catalog,
		accounts: deps.Accounts,
		reports:  deps.Reports,
		checkout: deps.Checkout,
		notifier: deps.Notifier,
		clock:    deps.Clock,
		logger:   deps.Logger,
		cfg:      cfg,
	}
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// errorTable is checked in order; the first match wins.
var errorTable = []errorMapping{
	{fulfillment.ErrInvalidOrderID, http.StatusBadRequest, "invalid_order_id", "Invalid order ID."},
	{models.ErrInvalidBuyer, http.StatusBadRequest, "invalid_buyer", "Please provide your full name, a valid email and phone number."},
	{models.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity", "Quantity must be between 1 and 10."},
	{models.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount", "This ticket cannot be purchased at the moment."},
	{models.ErrTierUnavailable, http.StatusConflict, "tier_unavailable", "This ticket type is sold out or unavailable."},
	{fulfillment.ErrPriceMismatch, http.StatusConflict, "price_changed", "The ticket price has changed. Please review your order."},
	{fulfillment.ErrOrderConflict, http.StatusConflict, "order_conflict", "This order has already been started with a different selection."},
	{fulfillment.ErrReferenceMismatch, http.StatusBadRequest, "reference_mismatch", "Payment reference does not match this order."},
	{fulfillment.ErrPaymentNotVerified, http.StatusPaymentRequired, "payment_not_verified", "We could not verify your payment."},
	{fulfillment.ErrPaymentMismatch, http.StatusPaymentRequired, "payment_mismatch", "Your payment does not match this order. Please contact support."},
	{fulfillment.ErrGatewayUnavailable, http.StatusBadGateway, "gateway_unavailable", "Payment provider is unavailable. Please try again shortly."},
	{fulfillment.ErrTicketPending, http.StatusAccepted, "ticket_pending", "Your ticket is not ready yet. Payment has not been confirmed."},
	{models.ErrEventHasTickets, http.StatusConflict, "event_has_tickets", "This event has sold tickets and cannot be deleted. Unpublish it instead."},
	{models.ErrEventNotFound, http.StatusNotFound, "event_not_found", "Event not found."},
	{models.ErrTierNotFound, http.StatusNotFound, "tier_not_found", "Ticket type not found."},
	{models.ErrOrderNotFound, http.StatusNotFound, "order_not_found", "Order not found."},
	{models.ErrTicketNotFound, http.StatusNotFound, "ticket_not_found", "Ticket not found."},
	{models.ErrUserNotFound, http.StatusNotFound, "user_not_found", "User not found."},
	{models.ErrOTPNotFound, http.StatusBadRequest, "otp_invalid", "Invalid or expired verification code."},
	{models.ErrDuplicate, http.StatusConflict, "duplicate", "A record with these details already exists."},
	{notify.ErrUnknownKind, http.StatusBadRequest, "unknown_kind", "Unknown notification type."},
	{notify.ErrInvalidPayload, http.StatusBadRequest, "invalid_payload", "Invalid notification data."},
	{notify.ErrTransport, http.StatusBadGateway, "mail_failed", "Failed to send email."},
}

// respondError writes the mapped status for err. Unmapped errors are logged and
// reported as a generic 500 so backend details never reach the client.
func (h *Handler) respondError(c *gin.Context, err error) {
	// Persistence failures may wrap a not-found from the retry path, so they are
	// matched before the table.
	if errors.Is(err, fulfillment.ErrPersistFailed) {
		h.logger.Error("ticket could not be saved", "path", c.FullPath(), "error", err)
		helpers.RespondWithRetry(c, http.StatusInternalServerError, "ticket_save_failed",
			"Your payment was received but we could not save your ticket. Please retry.",
			c.Request.URL.RequestURI())
		return
	}

	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			if m.status >= http.StatusInternalServerError {
				h.logger.Error("request failed", "path", c.FullPath(), "error", err)
			}
			if m.status == http.StatusAccepted {
				c.AbortWithStatusJSON(m.status, helpers.ErrorResponse{
					Error:   "Pending",
					Message: m.message,
					Code:    m.code,
				})
				return
			}
			helpers.RespondWithCode(c, m.status, m.code, m.message)
			return
		}
	}

	h.logger.Error("request failed", "path", c.FullPath(), "error", err)
	helpers.RespondWithError(c, http.StatusInternalServerError, "Something went wrong. Please try again.")
}

func (h *Handler) paginated(c *gin.Context, key string, items any, total int64, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		key:           items,
		"total":       total,
		"page":        page,
		"limit":       limit,
		"total_pages": helpers.TotalPages(total, limit),
	})
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid ID.")
		return uuid.Nil, false
	}
	return id, true
}
