package handlers

import (
	"net/http"

	"github.com/farellandr/sahmticket/internal/helpers"
	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateTier(c *gin.Context) {
	var req TierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	event, ok := h.ownedEvent(c)
	if !ok {
		return
	}
	tier, msg := buildTier(req, len(event.Tiers))
	if msg != "" {
		helpers.RespondWithError(c, http.StatusBadRequest, msg)
		return
	}
	tier.EventID = event.ID

	if err := h.catalog.CreateTier(c.Request.Context(), &tier); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Ticket type created successfully.",
		"tier":    tier,
	})
}

func (h *Handler) UpdateTier(c *gin.Context) {
	var req TierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	existing, err := h.catalog.GetTier(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if _, ok := h.eventForCaller(c, existing.EventID); !ok {
		return
	}

	tier, msg := buildTier(req, existing.Position)
	if msg != "" {
		helpers.RespondWithError(c, http.StatusBadRequest, msg)
		return
	}
	tier.ID = existing.ID
	tier.EventID = existing.EventID
	tier.CreatedAt = existing.CreatedAt

	if err := h.catalog.UpdateTier(c.Request.Context(), &tier); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Ticket type updated successfully.",
		"tier":    tier,
	})
}

func (h *Handler) DeleteTier(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	tier, err := h.catalog.GetTier(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if _, ok := h.eventForCaller(c, tier.EventID); !ok {
		return
	}

	if err := h.catalog.DeleteTier(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ticket type deleted successfully."})
}
