package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/farellandr/sahmticket/internal/helpers"
	"github.com/farellandr/sahmticket/internal/models"
	"github.com/farellandr/sahmticket/internal/notify"
	"github.com/gin-gonic/gin"
)

const welcomeContent = `<p>Thanks for subscribing to Sahm Ticket Hub.</p>
<p>We will let you know about the best concerts, conferences and parties happening near you.</p>`

type SubscribeRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name"`
}

// Subscribe stores the subscription and sends a welcome mail. A failed welcome
// mail does not undo the subscription.
func (h *Handler) Subscribe(c *gin.Context) {
	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "A valid email is required.")
		return
	}

	sub := models.NewsletterSubscriber{Email: strings.ToLower(strings.TrimSpace(req.Email))}
	if name := strings.TrimSpace(req.Name); name != "" {
		sub.Name = &name
	}
	if err := h.accounts.UpsertSubscriber(c.Request.Context(), &sub); err != nil {
		h.respondError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.cfg.MailTimeout)
	defer cancel()
	err := h.notifier.Send(ctx, notify.KindNewsletter, sub.Email, notify.NewsletterPayload{
		Name:    req.Name,
		Title:   "Welcome to Sahm Ticket Hub",
		Content: welcomeContent,
		CTAText: "Browse events",
		CTAURL:  h.cfg.PublicBaseURL,
	})
	if err != nil {
		h.logger.Error("welcome email failed", "to", sub.Email, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Subscribed successfully.",
		"email_sent": err == nil,
	})
}
