// Package domain holds the closed campaign vocabulary: lead and campaign
// statuses and the outreach stage progression. Unknown values are rejected
// at the store boundary, never silently carried.
package domain

import "fmt"

// LeadStatus is the lifecycle state of a lead.
type LeadStatus string

const (
	LeadPending LeadStatus = "PENDING"
	LeadSent    LeadStatus = "SENT"
	LeadReplied LeadStatus = "REPLIED"
	LeadFailed  LeadStatus = "FAILED"
)

// ParseLeadStatus converts a stored string into a LeadStatus,
// rejecting unknown values.
func ParseLeadStatus(raw string) (LeadStatus, error) {
	switch LeadStatus(raw) {
	case LeadPending, LeadSent, LeadReplied, LeadFailed:
		return LeadStatus(raw), nil
	}
	return "", fmt.Errorf("unknown lead status %q", raw)
}

// CampaignStatus is the operator-controlled campaign state.
type CampaignStatus string

const (
	CampaignStopped   CampaignStatus = "STOPPED"
	CampaignRunning   CampaignStatus = "RUNNING"
	CampaignPaused    CampaignStatus = "PAUSED"
	CampaignCompleted CampaignStatus = "COMPLETED"
)

// ParseCampaignStatus converts a stored string into a CampaignStatus,
// rejecting unknown values.
func ParseCampaignStatus(raw string) (CampaignStatus, error) {
	switch CampaignStatus(raw) {
	case CampaignStopped, CampaignRunning, CampaignPaused, CampaignCompleted:
		return CampaignStatus(raw), nil
	}
	return "", fmt.Errorf("unknown campaign status %q", raw)
}

// Stage identifies which message in the outreach sequence applies.
type Stage string

const (
	StageInitial   Stage = "initial"
	StageFollowup1 Stage = "followup1"
	StageFollowup2 Stage = "followup2"
	StageReply     Stage = "reply"
)

// MaxFollowups is the number of timed follow-ups after the initial message.
const MaxFollowups = 2

// StageForFollowupCount maps a lead's followup_count to the message stage
// for its next send. Counts at or beyond MaxFollowups map to the final
// follow-up; selection never hands such leads to the sender.
func StageForFollowupCount(count int) Stage {
	switch count {
	case 0:
		return StageInitial
	case 1:
		return StageFollowup1
	default:
		return StageFollowup2
	}
}

// ParseStage converts a stored string into a Stage, rejecting unknown values.
func ParseStage(raw string) (Stage, error) {
	switch Stage(raw) {
	case StageInitial, StageFollowup1, StageFollowup2, StageReply:
		return Stage(raw), nil
	}
	return "", fmt.Errorf("unknown template stage %q", raw)
}
