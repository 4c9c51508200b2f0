package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/farellandr/sahmticket/internal/discovery"
	"github.com/farellandr/sahmticket/internal/helpers"
	"github.com/farellandr/sahmticket/internal/middleware"
	"github.com/farellandr/sahmticket/internal/models"
	"github.com/farellandr/sahmticket/internal/notify"
	"github.com/farellandr/sahmticket/internal/pricing"
	"github.com/farellandr/sahmticket/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TierRequest struct {
	Name        string `json:"name" binding:"required"`
	Price       string `json:"price" binding:"required"`
	Description string `json:"description"`
	Available   *bool  `json:"available"`
	Position    int    `json:"position"`
}

type EventRequest struct {
	Title       string        `json:"title" binding:"required"`
	Slug        string        `json:"slug"`
	Description string        `json:"description"`
	Category    string        `json:"category" binding:"required"`
	StartsAt    time.Time     `json:"starts_at" binding:"required"`
	Time        string        `json:"time"`
	Venue       string        `json:"venue" binding:"required"`
	Address     string        `json:"address"`
	City        string        `json:"city" binding:"required"`
	State       string        `json:"state"`
	Lat         *float64      `json:"lat"`
	Lng         *float64      `json:"lng"`
	Image       string        `json:"image"`
	Status      string        `json:"status"`
	Tiers       []TierRequest `json:"tiers"`
}

type eventResponse struct {
	models.Event
	Badge string `json:"badge,omitempty"`
	// PriceFrom is the cheapest available tier, formatted.
	PriceFrom string `json:"price_from,omitempty"`
}

func presentEvent(event models.Event) eventResponse {
	resp := eventResponse{Event: event, Badge: discovery.Badge(event)}
	var lowest int64
	for _, tier := range event.Tiers {
		amount := pricing.ParseAmount(tier.Price)
		if !tier.Available || amount <= 0 {
			continue
		}
		if lowest == 0 || amount < lowest {
			lowest = amount
		}
	}
	if lowest > 0 {
		resp.PriceFrom = pricing.Format(lowest)
	}
	return resp
}

func presentEvents(events []models.Event) []eventResponse {
	out := make([]eventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, presentEvent(event))
	}
	return out
}

func (h *Handler) ListEvents(c *gin.Context) {
	page, limit, err := helpers.ParsePagination(c)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters.")
		return
	}

	events, total, err := h.catalog.ListEvents(c.Request.Context(), store.EventFilter{
		Category: c.Query("category"),
		Status:   models.EventStatusLive,
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.paginated(c, "events", presentEvents(events), total, page, limit)
}

// DiscoverEvents groups upcoming live events into the home page shelves.
func (h *Handler) DiscoverEvents(c *gin.Context) {
	loc := h.cfg.Location
	if tz := c.Query("tz"); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid time zone.")
			return
		}
		loc = parsed
	}

	lat, errLat := helpers.ParseOptionalFloat(c.Query("lat"))
	lng, errLng := helpers.ParseOptionalFloat(c.Query("lng"))
	if errLat != nil || errLng != nil || (lat == nil) != (lng == nil) {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid coordinates.")
		return
	}
	var user *discovery.Point
	if lat != nil {
		user = &discovery.Point{Lat: *lat, Lng: *lng}
		if !user.Valid() {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid coordinates.")
			return
		}
	}

	now := h.clock.Now().In(loc)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	events, _, err := h.catalog.ListEvents(c.Request.Context(), store.EventFilter{
		Status: models.EventStatusLive,
		From:   &startOfDay,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	query := discovery.Query{
		Now:      now,
		Location: loc,
		Category: c.Query("category"),
		Search:   c.Query("q"),
		User:     user,
	}

	c.JSON(http.StatusOK, gin.H{
		"shelves": discovery.Partition(events, query),
		"total":   len(discovery.Filter(events, query.Category, query.Search)),
	})
}

func (h *Handler) GetEvent(c *gin.Context) {
	event, err := h.catalog.GetEventByRef(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if event.Status != models.EventStatusLive {
		h.respondError(c, models.ErrEventNotFound)
		return
	}
	c.JSON(http.StatusOK, presentEvent(event))
}

func (h *Handler) ListOrganizerEvents(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}
	page, limit, err := helpers.ParsePagination(c)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters.")
		return
	}

	events, total, err := h.catalog.ListEvents(c.Request.Context(), store.EventFilter{
		OrganizerID: &userID,
		Status:      c.Query("status"),
		Page:        page,
		Limit:       limit,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.paginated(c, "events", presentEvents(events), total, page, limit)
}

func (h *Handler) CreateEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}
	user, err := h.accounts.GetUser(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	event := models.Event{ID: uuid.New(), OrganizerID: &userID}
	if msg := applyEventRequest(&event, req); msg != "" {
		helpers.RespondWithError(c, http.StatusBadRequest, msg)
		return
	}
	if event.Slug == "" {
		event.Slug = helpers.Slugify(req.Title) + "-" + event.ID.String()[:8]
	}
	for i, tierReq := range req.Tiers {
		tier, msg := buildTier(tierReq, i)
		if msg != "" {
			helpers.RespondWithError(c, http.StatusBadRequest, msg)
			return
		}
		tier.EventID = event.ID
		event.Tiers = append(event.Tiers, tier)
	}
	if err := event.Validate(); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Event details are incomplete or contain duplicate ticket types.")
		return
	}

	if err := h.catalog.CreateEvent(c.Request.Context(), &event); err != nil {
		h.respondError(c, err)
		return
	}
	h.logger.Info("event created", "event_id", event.ID, "organizer_id", userID)

	h.sendEventCreated(c.Request.Context(), user, event)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Event created successfully.",
		"event":   presentEvent(event),
	})
}

// sendEventCreated mails the organizer a summary. Failures are only logged.
func (h *Handler) sendEventCreated(ctx context.Context, user models.User, event models.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.cfg.MailTimeout)
	defer cancel()

	startsAt := event.StartsAt.In(h.cfg.Location)
	details := notify.EventDetails{
		Title: event.Title,
		Date:  startsAt.Format("Monday, 2 January 2006"),
		Time:  event.TimeLabel,
		Venue: event.Venue,
		City:  event.City,
		Price: presentEvent(event).PriceFrom,
	}
	if h.cfg.PublicBaseURL != "" {
		details.URL = strings.TrimRight(h.cfg.PublicBaseURL, "/") + "/events/" + event.Slug
	}

	payload := notify.EventCreatedPayload{Name: user.Name, Event: details}
	if err := h.notifier.Send(ctx, notify.KindEventCreated, user.Email, payload); err != nil {
		h.logger.Error("event created email failed", "event_id", event.ID, "to", user.Email, "error", err)
	}
}

func (h *Handler) UpdateEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	event, ok := h.ownedEvent(c)
	if !ok {
		return
	}
	if msg := applyEventRequest(&event, req); msg != "" {
		helpers.RespondWithError(c, http.StatusBadRequest, msg)
		return
	}
	if err := event.Validate(); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Event details are incomplete.")
		return
	}

	if err := h.catalog.UpdateEvent(c.Request.Context(), &event); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Event updated successfully.",
		"event":   presentEvent(event),
	})
}

func (h *Handler) DeleteEvent(c *gin.Context) {
	event, ok := h.ownedEvent(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteEvent(c.Request.Context(), event.ID, event.OrganizerID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event deleted successfully."})
}

// ownedEvent loads the :id event and checks that the caller may manage it.
// Admins may manage every event.
func (h *Handler) ownedEvent(c *gin.Context) (models.Event, bool) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return models.Event{}, false
	}
	return h.eventForCaller(c, id)
}

func (h *Handler) eventForCaller(c *gin.Context, id uuid.UUID) (models.Event, bool) {
	event, err := h.catalog.GetEvent(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return models.Event{}, false
	}
	if middleware.GetRole(c) == models.RoleAdmin {
		return event, true
	}
	userID, _ := middleware.GetUserID(c)
	if event.OrganizerID == nil || *event.OrganizerID != userID {
		helpers.RespondWithError(c, http.StatusForbidden, "You don't have permission to manage this event.")
		return models.Event{}, false
	}
	return event, true
}

// applyEventRequest copies the editable fields onto event and returns a message
// when a value is rejected.
func applyEventRequest(event *models.Event, req EventRequest) string {
	event.Title = strings.TrimSpace(req.Title)
	if req.Slug != "" {
		event.Slug = helpers.Slugify(req.Slug)
		if event.Slug == "" {
			return "Invalid slug."
		}
	}
	event.Description = req.Description
	event.Category = strings.TrimSpace(req.Category)
	event.StartsAt = req.StartsAt
	event.TimeLabel = req.Time
	event.Venue = req.Venue
	event.Address = req.Address
	event.City = req.City
	event.State = req.State
	event.Lat = req.Lat
	event.Lng = req.Lng
	event.Image = req.Image

	switch req.Status {
	case "":
		if event.Status == "" {
			event.Status = models.EventStatusDraft
		}
	case models.EventStatusLive, models.EventStatusDraft:
		event.Status = req.Status
	default:
		return "Status must be Live or Draft."
	}

	if (req.Lat == nil) != (req.Lng == nil) {
		return "Latitude and longitude must be given together."
	}
	if req.Lat != nil && !(discovery.Point{Lat: *req.Lat, Lng: *req.Lng}).Valid() {
		return "Coordinates are out of range."
	}
	return ""
}

func buildTier(req TierRequest, position int) (models.TicketTier, string) {
	if pricing.ParseAmount(req.Price) <= 0 {
		return models.TicketTier{}, "Ticket price must be a positive Naira amount."
	}
	available := true
	if req.Available != nil {
		available = *req.Available
	}
	if req.Position != 0 {
		position = req.Position
	}
	return models.TicketTier{
		Name:        strings.TrimSpace(req.Name),
		Price:       pricing.Format(pricing.ParseAmount(req.Price)),
		Description: req.Description,
		Available:   available,
		Position:    position,
	}, ""
}
