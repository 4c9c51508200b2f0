package notify

import (
	"fmt"
	"strings"

	"github.com/farellandr/sahmticket/internal/mailer"
)

type Kind string

const (
	KindOTP          Kind = "otp"
	KindTicket       Kind = "ticket"
	KindEventCreated Kind = "event-created"
	KindNewsletter   Kind = "newsletter"
)

var senders = map[Kind]mailer.AccountKey{
	KindOTP:          mailer.AccountNoReply,
	KindTicket:       mailer.AccountNoReply,
	KindEventCreated: mailer.AccountInfo,
	KindNewsletter:   mailer.AccountHello,
}

// ParseKind accepts the kinds above plus "event" as a shorthand for
// event-created.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "event" {
		return KindEventCreated, nil
	}
	k := Kind(s)
	if _, ok := senders[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Sender returns the mailbox a kind is sent from.
func (k Kind) Sender() (mailer.AccountKey, bool) {
	acct, ok := senders[k]
	return acct, ok
}
