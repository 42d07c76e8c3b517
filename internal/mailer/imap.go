package mailer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	imap "github.com/BrianLeishman/go-imap"
)

// imapDateFormat is the RFC 3501 search date layout.
const imapDateFormat = "02-Jan-2006"

// IMAPFetcher reads envelope-level message summaries from an account's INBOX.
type IMAPFetcher struct{}

// NewIMAPFetcher creates an IMAPFetcher.
func NewIMAPFetcher() *IMAPFetcher {
	return &IMAPFetcher{}
}

// FetchSince returns envelope summaries for INBOX messages received on or
// after the given date. The underlying client is not context-aware, so
// cancellation is honored between protocol steps only.
func (f *IMAPFetcher) FetchSince(ctx context.Context, account Account, since time.Time) ([]RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dialer, err := imap.New(account.Email, account.Password, account.IMAPHost, account.IMAPPort)
	if err != nil {
		return nil, fmt.Errorf("imap dial %s: %w", account.IMAPHost, err)
	}
	defer dialer.Close()

	if err := dialer.SelectFolder("INBOX"); err != nil {
		return nil, fmt.Errorf("imap select: %w", err)
	}

	uids, err := dialer.GetUIDs("SINCE " + since.Format(imapDateFormat))
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	overviews, err := dialer.GetOverviews(uids...)
	if err != nil {
		return nil, fmt.Errorf("imap fetch: %w", err)
	}

	messages := make([]RawMessage, 0, len(overviews))
	for uid, email := range overviews {
		if email == nil {
			continue
		}
		messages = append(messages, RawMessage{
			MessageID: messageID(account, uid, email),
			From:      firstAddress(email.From),
			Subject:   email.Subject,
			Received:  email.Received,
		})
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].Received.Before(messages[j].Received)
	})

	return messages, nil
}

// Probe verifies the account's IMAP credentials by logging in and out.
func (f *IMAPFetcher) Probe(ctx context.Context, account Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dialer, err := imap.New(account.Email, account.Password, account.IMAPHost, account.IMAPPort)
	if err != nil {
		return fmt.Errorf("imap dial %s: %w", account.IMAPHost, err)
	}
	return dialer.Close()
}

// messageID prefers the envelope Message-ID; when a server omits it, a
// synthetic account-scoped id keeps in-session de-duplication working.
func messageID(account Account, uid int, email *imap.Email) string {
	if id := strings.TrimSpace(email.MessageID); id != "" {
		return id
	}
	return fmt.Sprintf("%s/%d/%d", account.Email, uid, email.Received.Unix())
}

// firstAddress extracts one bare, case-folded address from an address map.
func firstAddress(addresses imap.EmailAddresses) string {
	for address := range addresses {
		return strings.ToLower(strings.TrimSpace(address))
	}
	return ""
}
