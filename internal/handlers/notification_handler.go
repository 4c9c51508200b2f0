package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/farellandr/sahmticket/internal/helpers"
	"github.com/farellandr/sahmticket/internal/notify"
	"github.com/gin-gonic/gin"
)

type NotificationRequest struct {
	Kind  string          `json:"kind" binding:"required"`
	Email string          `json:"email" binding:"required"`
	Data  json.RawMessage `json:"data"`
}

// SendNotification renders and sends one templated email. Request errors are
// 400; a mail server failure is 502.
func (h *Handler) SendNotification(c *gin.Context) {
	var req NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithCode(c, http.StatusBadRequest, "invalid_payload", "kind, email and data are required.")
		return
	}

	kind, err := notify.ParseKind(req.Kind)
	if err != nil {
		h.respondError(c, err)
		return
	}
	payload, err := notify.DecodePayload(kind, req.Data)
	if err != nil {
		h.respondError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.MailTimeout)
	defer cancel()
	if err := h.notifier.Send(ctx, kind, req.Email, payload); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Email sent successfully.",
		"kind":    kind,
	})
}
