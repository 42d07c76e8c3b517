// Package mailer wraps SMTP sending and IMAP inbox polling behind a single
// transport interface. The campaign engine and the reply reconciler depend on
// this interface only; protocol details stay here.
package mailer

import (
	"context"
	"time"
)

// Account carries the credentials and endpoints of one sending account.
type Account struct {
	ID       int64
	Label    string
	Email    string
	Password string
	SMTPHost string
	SMTPPort int
	IMAPHost string
	IMAPPort int
}

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
	HTML    bool
}

// RawMessage is the envelope-level view of one inbound email.
type RawMessage struct {
	MessageID string
	From      string // bare address, case-folded
	Subject   string
	Received  time.Time
}

// Transport sends mail, fetches recent inbox messages, and probes the
// endpoints of an account.
type Transport interface {
	Send(ctx context.Context, account Account, msg Message) error
	FetchSince(ctx context.Context, account Account, since time.Time) ([]RawMessage, error)
	ProbeSMTP(ctx context.Context, account Account) error
	ProbeIMAP(ctx context.Context, account Account) error
}

// transport combines the SMTP sender and IMAP fetcher.
type transport struct {
	*SMTPSender
	*IMAPFetcher
}

func (t *transport) ProbeSMTP(ctx context.Context, account Account) error {
	return t.SMTPSender.Probe(ctx, account)
}

func (t *transport) ProbeIMAP(ctx context.Context, account Account) error {
	return t.IMAPFetcher.Probe(ctx, account)
}

// New creates the production transport.
func New() Transport {
	return &transport{
		SMTPSender:  NewSMTPSender(),
		IMAPFetcher: NewIMAPFetcher(),
	}
}
