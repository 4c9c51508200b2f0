package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

const defaultOTPExpiry = 5

var templates = map[Kind]*template.Template{
	KindOTP:          parse("otp.html"),
	KindTicket:       parse("ticket.html"),
	KindEventCreated: parse("event_created.html"),
	KindNewsletter:   parse("newsletter.html"),
}

func parse(body string) *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+body))
}

type Rendered struct {
	Subject string
	HTML    string
}

type view struct {
	Title     string
	Preheader string
	Data      any
	Content   template.HTML
}

// Render produces the subject and HTML body for a payload. It has no side
// effects; the payload type must match kind.
func Render(kind Kind, payload any) (Rendered, error) {
	tmpl, ok := templates[kind]
	if !ok {
		return Rendered{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	var (
		subject string
		v       view
	)
	switch p := payload.(type) {
	case OTPPayload:
		if kind != KindOTP {
			return Rendered{}, mismatch(kind, payload)
		}
		if err := p.validate(); err != nil {
			return Rendered{}, err
		}
		if p.ExpiresIn == 0 {
			p.ExpiresIn = defaultOTPExpiry
		}
		subject = "Your Verification Code"
		v = view{Title: "Verify your organizer account", Preheader: "Your verification code is " + p.OTP, Data: p}
	case TicketPayload:
		if kind != KindTicket {
			return Rendered{}, mismatch(kind, payload)
		}
		if err := p.validate(); err != nil {
			return Rendered{}, err
		}
		subject = fmt.Sprintf("Your Ticket for %s", p.Event.Title)
		v = view{Title: "Your Ticket is Ready", Preheader: fmt.Sprintf("Your ticket for %s is confirmed.", p.Event.Title), Data: p}
	case EventCreatedPayload:
		if kind != KindEventCreated {
			return Rendered{}, mismatch(kind, payload)
		}
		if err := p.validate(); err != nil {
			return Rendered{}, err
		}
		if blank(p.Event.Time) {
			p.Event.Time = "TBD"
		}
		if blank(p.Event.Price) {
			p.Event.Price = "Free"
		}
		subject = fmt.Sprintf("Your Event \"%s\" is Created!", p.Event.Title)
		v = view{Title: "Event Created", Preheader: p.Event.Title + " is now on Sahm Ticket Hub.", Data: p}
	case NewsletterPayload:
		if kind != KindNewsletter {
			return Rendered{}, mismatch(kind, payload)
		}
		if err := p.validate(); err != nil {
			return Rendered{}, err
		}
		subject = p.Title
		// Newsletter bodies are authored by admins and sent as HTML.
		v = view{Title: p.Title, Preheader: p.Title, Data: p, Content: template.HTML(p.Content)}
	default:
		return Rendered{}, mismatch(kind, payload)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", v); err != nil {
		return Rendered{}, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return Rendered{Subject: subject, HTML: buf.String()}, nil
}

func mismatch(kind Kind, payload any) error {
	return fmt.Errorf("%w: %T cannot be sent as %q", ErrInvalidPayload, payload, kind)
}
