package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/farellandr/sahmticket/internal/fulfillment"
	"github.com/farellandr/sahmticket/internal/helpers"
	"github.com/farellandr/sahmticket/internal/middleware"
	"github.com/farellandr/sahmticket/internal/models"
	"github.com/farellandr/sahmticket/internal/pricing"
	"github.com/gin-gonic/gin"
)

type ticketResponse struct {
	TicketCode   string          `json:"ticket_code"`
	OrderID      string          `json:"order_id"`
	FullName     string          `json:"full_name"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	TicketType   string          `json:"ticket_type"`
	Quantity     int             `json:"quantity"`
	TotalPaid    int64           `json:"total_paid"`
	TotalDisplay string          `json:"total_display"`
	PaidAt       *time.Time      `json:"paid_at"`
	Event        ticketEventInfo `json:"event"`
	QRPayload    string          `json:"qr_payload"`
}

type ticketEventInfo struct {
	ID      string `json:"id"`
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Venue   string `json:"venue"`
	Address string `json:"address"`
	City    string `json:"city"`
	Image   string `json:"image"`
}

func (h *Handler) presentTicket(view fulfillment.TicketView) ticketResponse {
	startsAt := view.Event.StartsAt.In(h.cfg.Location)
	timeLabel := view.Event.TimeLabel
	if timeLabel == "" {
		timeLabel = startsAt.Format("3:04 PM")
	}
	return ticketResponse{
		TicketCode:   view.Ticket.Code,
		OrderID:      view.Order.ID,
		FullName:     view.Order.BuyerName,
		Email:        view.Order.BuyerEmail,
		Phone:        view.Order.BuyerPhone,
		TicketType:   view.Order.TierName,
		Quantity:     view.Order.Quantity,
		TotalPaid:    view.Order.Total,
		TotalDisplay: pricing.Format(view.Order.Total),
		PaidAt:       view.Order.PaidAt,
		Event: ticketEventInfo{
			ID:      view.Event.ID.String(),
			Slug:    view.Event.Slug,
			Title:   view.Event.Title,
			Date:    startsAt.Format("Monday, 2 January 2006"),
			Time:    timeLabel,
			Venue:   view.Event.Venue,
			Address: view.Event.Address,
			City:    view.Event.City,
			Image:   view.Event.Image,
		},
		QRPayload: h.qrPayload(view),
	}
}

func (h *Handler) qrPayload(view fulfillment.TicketView) string {
	return helpers.SignTicketPayload(h.cfg.TicketSigningSecret, view.Order.ID, view.Event.ID.String(), view.Ticket.Code)
}

func (h *Handler) GetTicket(c *gin.Context) {
	view, err := h.checkout.Retrieve(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.presentTicket(view))
}

func (h *Handler) GetTicketQR(c *gin.Context) {
	view, err := h.checkout.Retrieve(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	qrImage, err := helpers.RenderTicketQR(h.qrPayload(view))
	if err != nil {
		h.logger.Error("failed to render ticket qr", "order_id", view.Order.ID, "error", err)
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate QR code.")
		return
	}

	c.Data(http.StatusOK, "image/png", qrImage)
}

func (h *Handler) GetTicketPDF(c *gin.Context) {
	view, err := h.checkout.Retrieve(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	info := h.presentTicket(view)
	doc, err := helpers.RenderTicketPDF(helpers.TicketDocument{
		Code:       info.TicketCode,
		OrderID:    info.OrderID,
		EventTitle: info.Event.Title,
		Date:       info.Event.Date,
		Time:       info.Event.Time,
		Venue:      info.Event.Venue,
		HolderName: info.FullName,
		TierName:   info.TicketType,
		Quantity:   info.Quantity,
		// gofpdf core fonts cannot print the Naira sign.
		AmountPaid: fmt.Sprintf("NGN %d", info.TotalPaid),
		QRPayload:  info.QRPayload,
	})
	if err != nil {
		h.logger.Error("failed to render ticket pdf", "order_id", view.Order.ID, "error", err)
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate ticket.")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="ticket-%s.pdf"`, info.TicketCode))
	c.Data(http.StatusOK, "application/pdf", doc)
}

func (h *Handler) ResendTicket(c *gin.Context) {
	if err := h.checkout.ResendTicket(c.Request.Context(), c.Param("orderId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ticket sent to your email."})
}

// VerifyTicket checks a scanned QR code at the venue. Only the event's
// organizer or an admin may verify.
func (h *Handler) VerifyTicket(c *gin.Context) {
	var req struct {
		QRData string `json:"qr_data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid request payload.")
		return
	}

	orderID, ok := helpers.VerifyTicketPayload(h.cfg.TicketSigningSecret, req.QRData)
	if !ok {
		helpers.RespondWithCode(c, http.StatusForbidden, "invalid_signature", "Invalid QR code signature.")
		return
	}

	view, err := h.checkout.Retrieve(c.Request.Context(), orderID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if h.qrPayload(view) != req.QRData {
		helpers.RespondWithCode(c, http.StatusForbidden, "invalid_signature", "Invalid QR code.")
		return
	}

	if middleware.GetRole(c) != models.RoleAdmin {
		userID, _ := middleware.GetUserID(c)
		if view.Event.OrganizerID == nil || *view.Event.OrganizerID != userID {
			helpers.RespondWithError(c, http.StatusForbidden, "You don't have permission to validate this ticket.")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Ticket is valid.",
		"ticket":  h.presentTicket(view),
	})
}
