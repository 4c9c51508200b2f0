package notify

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var otpPattern = regexp.MustCompile(`^[0-9]{6}$`)

type OTPPayload struct {
	Name      string `json:"name"`
	OTP       string `json:"otp"`
	ExpiresIn int    `json:"expiresIn"`
}

// EventDetails is shared by ticket and event-created mails. Unused fields are left
// empty.
type EventDetails struct {
	Title      string `json:"title"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Venue      string `json:"venue"`
	City       string `json:"city"`
	Price      string `json:"price"`
	URL        string `json:"url"`
	TicketCode string `json:"ticketCode"`
}

type TicketPayload struct {
	Name  string       `json:"name"`
	Event EventDetails `json:"event"`
}

type EventCreatedPayload struct {
	Name  string       `json:"name"`
	Event EventDetails `json:"event"`
}

type NewsletterPayload struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Content string `json:"content"`
	CTAText string `json:"ctaText"`
	CTAURL  string `json:"ctaUrl"`
}

// DecodePayload turns the free-form JSON data of a send request into the payload
// type of kind.
func DecodePayload(kind Kind, raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	var (
		payload any
		err     error
	)
	switch kind {
	case KindOTP:
		var p OTPPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case KindTicket:
		var p TicketPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case KindEventCreated:
		var p EventCreatedPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case KindNewsletter:
		var p NewsletterPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return payload, nil
}

func (p OTPPayload) validate() error {
	if !otpPattern.MatchString(p.OTP) {
		return fmt.Errorf("%w: otp must be six digits", ErrInvalidPayload)
	}
	if p.ExpiresIn < 0 {
		return fmt.Errorf("%w: negative expiry", ErrInvalidPayload)
	}
	return nil
}

func (p TicketPayload) validate() error {
	if blank(p.Event.Title) || blank(p.Event.TicketCode) {
		return fmt.Errorf("%w: ticket mail needs event title and ticket code", ErrInvalidPayload)
	}
	return nil
}

func (p EventCreatedPayload) validate() error {
	if blank(p.Event.Title) {
		return fmt.Errorf("%w: event mail needs a title", ErrInvalidPayload)
	}
	return nil
}

func (p NewsletterPayload) validate() error {
	if blank(p.Title) || blank(p.Content) {
		return fmt.Errorf("%w: newsletter needs title and content", ErrInvalidPayload)
	}
	return nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
