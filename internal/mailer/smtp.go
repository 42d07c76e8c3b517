package mailer

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender delivers messages through the account's own SMTP server via go-mail.
type SMTPSender struct {
	timeout time.Duration
}

// NewSMTPSender creates an SMTPSender with the default dial timeout.
func NewSMTPSender() *SMTPSender {
	return &SMTPSender{timeout: 15 * time.Second}
}

// Send delivers one message using the given account's credentials.
func (s *SMTPSender) Send(ctx context.Context, account Account, m Message) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(account.Label, account.Email); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(m.Subject)
	if m.HTML {
		msg.SetBodyString(gomail.TypeTextHTML, m.Body)
	} else {
		msg.SetBodyString(gomail.TypeTextPlain, m.Body)
	}

	client, err := gomail.NewClient(account.SMTPHost,
		gomail.WithPort(account.SMTPPort),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(account.Email),
		gomail.WithPassword(account.Password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(s.timeout),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

// Probe verifies the account's SMTP credentials by dialing and authenticating
// without sending a message.
func (s *SMTPSender) Probe(ctx context.Context, account Account) error {
	client, err := gomail.NewClient(account.SMTPHost,
		gomail.WithPort(account.SMTPPort),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(account.Email),
		gomail.WithPassword(account.Password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(10*time.Second),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialWithContext(ctx); err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	return client.Close()
}
