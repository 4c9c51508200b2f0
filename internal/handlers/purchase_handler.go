package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/farellandr/sahmticket/internal/fulfillment"
	"github.com/farellandr/sahmticket/internal/helpers"
	"github.com/farellandr/sahmticket/internal/models"
	"github.com/farellandr/sahmticket/internal/pricing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// newOrderParam lets the client ask the server to mint the order id.
const newOrderParam = "new"

type CheckoutRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
}

type CallbackRequest struct {
	Reference string `json:"reference" binding:"required"`
	Status    string `json:"status"`
}

// StartCheckout prices the selection carried in the query string and opens a
// pending order for it.
func (h *Handler) StartCheckout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithCode(c, http.StatusBadRequest, "invalid_buyer", "Please provide your full name, email and phone number.")
		return
	}

	eventID, err := uuid.Parse(c.Query("event"))
	if err != nil {
		helpers.RespondWithCode(c, http.StatusBadRequest, "invalid_selection", "Missing or invalid event.")
		return
	}
	tierName := strings.TrimSpace(c.Query("type"))
	if tierName == "" {
		helpers.RespondWithCode(c, http.StatusBadRequest, "invalid_selection", "Missing ticket type.")
		return
	}
	quantity, err := helpers.StringToInt(c.DefaultQuery("qty", "1"))
	if err != nil {
		h.respondError(c, models.ErrInvalidQuantity)
		return
	}

	orderID := c.Param("orderId")
	if orderID == newOrderParam {
		orderID = ""
	}

	result, err := h.checkout.StartCheckout(c.Request.Context(), fulfillment.CheckoutInput{
		OrderID:      orderID,
		EventID:      eventID,
		TierName:     tierName,
		DisplayPrice: c.Query("price"),
		Quantity:     quantity,
		Buyer: fulfillment.Buyer{
			Name:  req.FullName,
			Email: req.Email,
			Phone: req.Phone,
		},
	})
	if errors.Is(err, fulfillment.ErrOrderPaid) {
		helpers.RespondWithRetry(c, http.StatusConflict, "order_paid",
			"This order has already been paid. Your ticket is ready.", ticketURL(result.Order.ID))
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Resumed {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"order":         result.Order,
		"event":         presentEvent(result.Event),
		"payment":       result.Payment,
		"state":         result.State,
		"resumed":       result.Resumed,
		"total_display": pricing.Format(result.Order.Total),
	})
}

// PaymentCallback is called by the browser after the payment widget reports
// success. The reported status is only a hint; the gateway is asked directly.
func (h *Handler) PaymentCallback(c *gin.Context) {
	var req CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	orderID := c.Param("orderId")
	result, err := h.checkout.ConfirmPayment(c.Request.Context(), fulfillment.ConfirmInput{
		OrderID:      orderID,
		Reference:    req.Reference,
		ClientStatus: req.Status,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	if result.InProgress {
		c.JSON(http.StatusAccepted, gin.H{
			"message":  "Your payment is being confirmed.",
			"order_id": orderID,
			"state":    result.State,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Payment confirmed.",
		"order":       result.Order,
		"ticket_code": result.Ticket.Code,
		"state":       result.State,
		"email_sent":  result.EmailSent,
		"ticket_url":  ticketURL(orderID),
	})
}

// CloseCheckout is called when the buyer dismisses the payment widget.
func (h *Handler) CloseCheckout(c *gin.Context) {
	order, err := h.checkout.Abandon(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Payment window closed.",
		"order_id": order.ID,
		"status":   order.Status,
		"state":    fulfillment.StateOf(order, order.Status == models.OrderStatusPaid),
	})
}

func ticketURL(orderID string) string {
	return "/v1/orders/" + orderID + "/ticket"
}
