package domain

import "outreach_backend/platform/events"

// Event names published on the application bus.
const (
	EventLeadContacted     = "campaign.lead_contacted"
	EventLeadReplied       = "campaign.lead_replied"
	EventLeadFailed        = "campaign.lead_failed"
	EventCampaignCompleted = "campaign.completed"
)

// LeadContactedEvent fires after a send is committed.
type LeadContactedEvent struct {
	events.BaseEvent
	LeadID    int64
	Email     string
	Stage     Stage
	AccountID int64
}

func (LeadContactedEvent) EventName() string { return EventLeadContacted }

// LeadRepliedEvent fires the first time a reply is reconciled for a lead.
type LeadRepliedEvent struct {
	events.BaseEvent
	LeadID    int64
	Email     string
	AccountID int64
}

func (LeadRepliedEvent) EventName() string { return EventLeadReplied }

// LeadFailedEvent fires when a send fails and the lead is parked.
type LeadFailedEvent struct {
	events.BaseEvent
	LeadID int64
	Email  string
	Reason string
}

func (LeadFailedEvent) EventName() string { return EventLeadFailed }

// CampaignCompletedEvent fires when the sequence is exhausted for every lead.
type CampaignCompletedEvent struct {
	events.BaseEvent
}

func (CampaignCompletedEvent) EventName() string { return EventCampaignCompleted }
