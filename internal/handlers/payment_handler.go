package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/farellandr/sahmticket/internal/fulfillment"
	"github.com/farellandr/sahmticket/internal/helpers"
	"github.com/farellandr/sahmticket/internal/models"
	"github.com/farellandr/sahmticket/internal/payment"
	"github.com/gin-gonic/gin"
)

const (
	paystackSignatureHeader = "x-paystack-signature"
	paystackChargeSuccess   = "charge.success"
	maxWebhookBody          = 1 << 20
)

// PaystackWebhook is the server-to-server trigger for the same confirmation the
// browser callback performs. Paystack retries on any non-2xx answer, so only
// failures worth retrying return one.
func (h *Handler) PaystackWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Failed to read request body.")
		return
	}

	if !helpers.VerifyPaystackSignature(h.cfg.PaystackSecretKey, body, c.GetHeader(paystackSignatureHeader)) {
		h.logger.Warn("paystack webhook with invalid signature", "ip", c.ClientIP())
		helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid signature.")
		return
	}

	event, err := payment.ParseWebhook(body)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Malformed webhook.")
		return
	}
	if event.Event != paystackChargeSuccess {
		c.JSON(http.StatusOK, gin.H{"message": "Event ignored."})
		return
	}

	result, err := h.checkout.ConfirmPayment(c.Request.Context(), fulfillment.ConfirmInput{
		OrderID:      event.Reference,
		Reference:    event.Reference,
		ClientStatus: "success",
	})
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"message": "Webhook processed.",
			"state":   result.State,
		})
	case errors.Is(err, fulfillment.ErrInvalidOrderID),
		errors.Is(err, models.ErrOrderNotFound),
		errors.Is(err, fulfillment.ErrPaymentNotVerified),
		errors.Is(err, fulfillment.ErrPaymentMismatch):
		h.logger.Warn("paystack webhook not fulfilled", "reference", event.Reference, "error", err)
		c.JSON(http.StatusOK, gin.H{"message": "Webhook acknowledged."})
	default:
		h.respondError(c, err)
	}
}
