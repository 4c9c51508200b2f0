package handlers

import (
	"net/http"

	"github.com/farellandr/sahmticket/internal/helpers"
	"github.com/farellandr/sahmticket/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *Handler) OrganizerStats(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	stats, err := h.reports.OrganizerStats(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListAttendees pages through the organizer's attendees, optionally for one
// event given as ?event=.
func (h *Handler) ListAttendees(c *gin.Context) {
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

	var eventID *uuid.UUID
	if raw := c.Query("event"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event ID.")
			return
		}
		eventID = &id
	}

	attendees, total, err := h.reports.Attendees(c.Request.Context(), userID, eventID, page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.paginated(c, "attendees", attendees, total, page, limit)
}
