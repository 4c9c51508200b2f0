// Package mailer delivers rendered messages over SMTP from one of the configured
// sender accounts.
package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"strconv"

	"github.com/domodwyer/mailyak/v3"
)

type AccountKey string

const (
	AccountNoReply AccountKey = "noreply"
	AccountInfo    AccountKey = "info"
	AccountHello   AccountKey = "hello"
)

var ErrUnknownAccount = errors.New("unknown sender account")

// Account is one authenticated mailbox. Secure selects implicit TLS (port 465).
type Account struct {
	Key      AccountKey
	Host     string
	Port     int
	Secure   bool
	User     string
	Password string
	FromName string
	ReplyTo  string
}

type Message struct {
	Account AccountKey
	To      string
	Subject string
	HTML    string
}

type Transport interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPTransport struct {
	accounts map[AccountKey]Account
	logger   *slog.Logger
}

func NewSMTPTransport(accounts []Account, logger *slog.Logger) *SMTPTransport {
	byKey := make(map[AccountKey]Account, len(accounts))
	for _, acct := range accounts {
		byKey[acct.Key] = acct
	}
	return &SMTPTransport{accounts: byKey, logger: logger}
}

// Send blocks until the SMTP exchange finishes or ctx is done. An abandoned
// exchange keeps running in the background until the server drops it.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	acct, ok := t.accounts[msg.Account]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAccount, msg.Account)
	}

	mail, err := newMail(acct)
	if err != nil {
		return fmt.Errorf("failed to prepare mail: %w", err)
	}
	mail.To(msg.To)
	mail.From(acct.User)
	mail.FromName(acct.FromName)
	if acct.ReplyTo != "" {
		mail.ReplyTo(acct.ReplyTo)
	}
	mail.Subject(msg.Subject)
	mail.HTML().Set(msg.HTML)

	done := make(chan error, 1)
	go func() {
		done <- mail.Send()
	}()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
		t.logger.Info("mail sent", "account", acct.Key, "to", msg.To, "subject", msg.Subject)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newMail(acct Account) (*mailyak.MailYak, error) {
	addr := acct.Host + ":" + strconv.Itoa(acct.Port)
	var auth smtp.Auth
	if acct.User != "" {
		auth = smtp.PlainAuth("", acct.User, acct.Password, acct.Host)
	}
	if acct.Secure {
		return mailyak.NewWithTLS(addr, auth, &tls.Config{ServerName: acct.Host})
	}
	return mailyak.New(addr, auth), nil
}

// LogTransport writes messages to the log instead of sending them. It is used in
// development when no mailbox credentials are configured.
type LogTransport struct {
	Logger *slog.Logger
}

func (t LogTransport) Send(ctx context.Context, msg Message) error {
	t.Logger.Info("mail not sent, log transport",
		"account", msg.Account,
		"to", msg.To,
		"subject", msg.Subject,
		"bytes", len(msg.HTML),
	)
	return nil
}
