// Package accounts manages the pool of sending mailboxes: CRUD, connection
// probing, least-loaded selection for the next send, and the daily counter
// lifecycle.
package accounts

import (
	"time"

	"outreach_backend/internal/mailer"
)

// Account is a configured sending mailbox. Password is write-only over the
// API; list and get responses never carry it.
type Account struct {
	ID         int64      `json:"id"`
	Label      string     `json:"label"`
	Email      string     `json:"email"`
	Password   string     `json:"-"`
	SMTPHost   string     `json:"smtp_host"`
	SMTPPort   int        `json:"smtp_port"`
	IMAPHost   string     `json:"imap_host"`
	IMAPPort   int        `json:"imap_port"`
	IsActive   bool       `json:"is_active"`
	SentToday  int        `json:"sent_today"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Mailbox converts the account to its transport credentials.
func (a Account) Mailbox() mailer.Account {
	return mailer.Account{
		ID:       a.ID,
		Label:    a.Label,
		Email:    a.Email,
		Password: a.Password,
		SMTPHost: a.SMTPHost,
		SMTPPort: a.SMTPPort,
		IMAPHost: a.IMAPHost,
		IMAPPort: a.IMAPPort,
	}
}
