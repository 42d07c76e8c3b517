package domain

import "time"

// FollowupDelay is how long a lead must sit in SENT before the next
// follow-up becomes eligible.
const FollowupDelay = 72 * time.Hour

// Lead is a prospect tracked through the outreach sequence. Email is the
// case-insensitive unique key; Data carries opaque template variables from
// ingestion.
type Lead struct {
	ID                int64
	Email             string
	Data              map[string]string
	Status            LeadStatus
	FollowupCount     int
	LastSentAt        *time.Time
	AssignedAccountID *int64
	CreatedAt         time.Time
}

// Industry returns the lead's industry column, if ingestion provided one.
func (l Lead) Industry() string {
	return l.Data["industry"]
}

// FollowupDue reports whether the lead's next follow-up is eligible at now.
func (l Lead) FollowupDue(now time.Time) bool {
	if l.Status != LeadSent || l.FollowupCount >= MaxFollowups || l.LastSentAt == nil {
		return false
	}
	return !l.LastSentAt.After(now.Add(-FollowupDelay))
}

// Campaign is the singleton campaign aggregate (well-known id 1).
type Campaign struct {
	ID            int64
	Status        CampaignStatus
	SentToday     int
	LastResetDate string // YYYY-MM-DD, empty before the first reset
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CampaignID is the identity of the singleton campaign row.
const CampaignID int64 = 1

// ResetDateFormat lays out LastResetDate values.
const ResetDateFormat = "2006-01-02"

// LogEntry is one append-only audit trail record.
type LogEntry struct {
	ID        int64
	Email     string
	Event     string
	CreatedAt time.Time
}
