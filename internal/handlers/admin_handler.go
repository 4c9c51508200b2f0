package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/farellandr/sahmticket/internal/helpers"
	"github.com/farellandr/sahmticket/internal/models"
	"github.com/farellandr/sahmticket/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type OrganizerPatchRequest struct {
	Name        *string `json:"name"`
	PhoneNumber *string `json:"phone_number"`
	Verified    *bool   `json:"verified"`
}

type EventPatchRequest struct {
	Status    *string `json:"status"`
	Featured  *bool   `json:"featured"`
	Trending  *bool   `json:"trending"`
	IsNew     *bool   `json:"is_new"`
	Sponsored *bool   `json:"sponsored"`
}

func (h *Handler) ListOrganizers(c *gin.Context) {
	page, limit, err := helpers.ParsePagination(c)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters.")
		return
	}

	users, total, err := h.accounts.ListUsersByRole(c.Request.Context(), models.RoleOrganizer, page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.paginated(c, "organizers", users, total, page, limit)
}

func (h *Handler) CreateOrganizer(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	user, err := h.createUser(c.Request.Context(), req, models.RoleOrganizer)
	if err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			helpers.RespondWithError(c, http.StatusConflict, "User already exists.")
			return
		}
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Organizer created successfully.",
		"organizer": user,
	})
}

func (h *Handler) GetOrganizer(c *gin.Context) {
	user, ok := h.organizer(c)
	if !ok {
		return
	}
	stats, err := h.reports.OrganizerStats(c.Request.Context(), user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"organizer": user,
		"stats":     stats,
	})
}

func (h *Handler) UpdateOrganizer(c *gin.Context) {
	var req OrganizerPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	user, ok := h.organizer(c)
	if !ok {
		return
	}

	fields := map[string]any{}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			helpers.RespondWithError(c, http.StatusBadRequest, "Name cannot be empty.")
			return
		}
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.PhoneNumber != nil {
		fields["phone_number"] = *req.PhoneNumber
	}
	if req.Verified != nil {
		fields["verified"] = *req.Verified
	}
	if len(fields) == 0 {
		helpers.RespondWithError(c, http.StatusBadRequest, "Nothing to update.")
		return
	}

	if err := h.accounts.PatchUser(c.Request.Context(), user.ID, fields); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Organizer updated successfully."})
}

func (h *Handler) DeleteOrganizer(c *gin.Context) {
	user, ok := h.organizer(c)
	if !ok {
		return
	}
	if err := h.accounts.DeleteUser(c.Request.Context(), user.ID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Organizer deleted successfully."})
}

// organizer loads the :id user and hides accounts that are not organizers.
func (h *Handler) organizer(c *gin.Context) (models.User, bool) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return models.User{}, false
	}
	user, err := h.accounts.GetUser(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return models.User{}, false
	}
	if user.Role.Name != models.RoleOrganizer {
		h.respondError(c, models.ErrUserNotFound)
		return models.User{}, false
	}
	return user, true
}

func (h *Handler) AdminListEvents(c *gin.Context) {
	page, limit, err := helpers.ParsePagination(c)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters.")
		return
	}

	filter := store.EventFilter{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Page:     page,
		Limit:    limit,
	}
	if raw := c.Query("organizerId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid organizer ID.")
			return
		}
		filter.OrganizerID = &id
	}

	events, total, err := h.catalog.ListEvents(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.paginated(c, "events", presentEvents(events), total, page, limit)
}

func (h *Handler) AdminGetEvent(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	event, err := h.catalog.GetEvent(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, presentEvent(event))
}

// AdminPatchEvent changes an event's status and promotion flags.
func (h *Handler) AdminPatchEvent(c *gin.Context) {
	var req EventPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	fields := map[string]any{}
	if req.Status != nil {
		if *req.Status != models.EventStatusLive && *req.Status != models.EventStatusDraft {
			helpers.RespondWithError(c, http.StatusBadRequest, "Status must be Live or Draft.")
			return
		}
		fields["status"] = *req.Status
	}
	for column, value := range map[string]*bool{
		"featured":  req.Featured,
		"trending":  req.Trending,
		"is_new":    req.IsNew,
		"sponsored": req.Sponsored,
	} {
		if value != nil {
			fields[column] = *value
		}
	}
	if len(fields) == 0 {
		helpers.RespondWithError(c, http.StatusBadRequest, "Nothing to update.")
		return
	}

	if err := h.catalog.PatchEvent(c.Request.Context(), id, fields); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event updated successfully."})
}

func (h *Handler) AdminDeleteEvent(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteEvent(c.Request.Context(), id, nil); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event deleted successfully."})
}

func (h *Handler) AdminStats(c *gin.Context) {
	stats, err := h.reports.AdminStats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Analytics reports revenue per event, for one organizer when ?organizerId= is
// given.
func (h *Handler) Analytics(c *gin.Context) {
	var organizerID *uuid.UUID
	if raw := c.Query("organizerId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid organizer ID.")
			return
		}
		organizerID = &id
	}

	analytics, err := h.reports.Analytics(c.Request.Context(), organizerID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analytics)
}
