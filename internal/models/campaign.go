package models

import (
	"fmt"
	"time"
)

// CampaignStatus represents valid campaign statuses
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusFailed    CampaignStatus = "failed"
)

// Channel represents valid messaging channels
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
)

// ValidChannel reports whether c is one of the supported channels.
func ValidChannel(c Channel) bool {
	return c == ChannelSMS || c == ChannelWhatsApp || c == ChannelEmail
}

// AudienceScope selects which submissions of the source quiz become recipients
type AudienceScope string

const (
	ScopeAll       AudienceScope = "all"
	ScopeCompleted AudienceScope = "completed"
	ScopeAbandoned AudienceScope = "abandoned"
)

// ValidScope reports whether s is a supported audience scope.
func ValidScope(s AudienceScope) bool {
	return s == ScopeAll || s == ScopeCompleted || s == ScopeAbandoned
}

// AudienceSelector describes how recipients are picked from a lead source.
// Resolution happens fresh on every dispatch cycle, so leads arriving after
// campaign creation are included automatically.
type AudienceSelector struct {
	Scope        AudienceScope `json:"scope" db:"audience_scope"`
	MinDate      *time.Time    `json:"min_date,omitempty" db:"audience_min_date"`
	SourceQuizID string        `json:"source_quiz_id" db:"source_quiz_id"`
}

// Campaign represents a configured, schedulable bulk-messaging unit over one channel
type Campaign struct {
	ID              string           `json:"id" db:"id"`
	OwnerID         string           `json:"owner_id" db:"owner_id"`
	Channel         Channel          `json:"channel" db:"channel"`
	MessageTemplate string           `json:"message_template" db:"message_template"`
	Audience        AudienceSelector `json:"audience_selector"`
	Status          CampaignStatus   `json:"status" db:"status"`
	ScheduledFor    *time.Time       `json:"scheduled_for,omitempty" db:"scheduled_for"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`
}

// CampaignWithCounts represents a campaign with its per-status delivery counts
type CampaignWithCounts struct {
	Campaign
	Counts DeliveryCounts `json:"counts"`
}

// campaignTransitions encodes the lifecycle: draft → scheduled → active →
// {paused, completed, failed}; paused may only resume. paused → draft is not
// permitted: a paused campaign can only resume or be abandoned.
var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignStatusDraft:     {CampaignStatusScheduled, CampaignStatusActive},
	CampaignStatusScheduled: {CampaignStatusActive, CampaignStatusFailed},
	CampaignStatusActive:    {CampaignStatusPaused, CampaignStatusCompleted, CampaignStatusFailed},
	CampaignStatusPaused:    {CampaignStatusActive},
	CampaignStatusCompleted: {},
	CampaignStatusFailed:    {},
}

// CanTransitionTo reports whether the campaign may move to the given status.
func (c *Campaign) CanTransitionTo(next CampaignStatus) bool {
	for _, s := range campaignTransitions[c.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// TransitionSources returns every status from which next may be entered,
// in lifecycle order. An empty result means nothing transitions to next.
func TransitionSources(next CampaignStatus) []CampaignStatus {
	ordered := []CampaignStatus{
		CampaignStatusDraft,
		CampaignStatusScheduled,
		CampaignStatusActive,
		CampaignStatusPaused,
		CampaignStatusCompleted,
		CampaignStatusFailed,
	}

	sources := []CampaignStatus{}
	for _, from := range ordered {
		for _, to := range campaignTransitions[from] {
			if to == next {
				sources = append(sources, from)
			}
		}
	}
	return sources
}

// Validate checks if the campaign fields are valid
func (c *Campaign) Validate() error {
	if !ValidChannel(c.Channel) {
		return fmt.Errorf("invalid channel: must be 'sms', 'whatsapp' or 'email'")
	}
	if c.MessageTemplate == "" {
		return fmt.Errorf("message template is required")
	}
	if !ValidScope(c.Audience.Scope) {
		return fmt.Errorf("invalid audience scope: must be 'all', 'completed' or 'abandoned'")
	}
	if c.Audience.SourceQuizID == "" {
		return fmt.Errorf("audience source_quiz_id is required")
	}
	return nil
}

// Editable reports whether the owner may still change template/audience.
func (c *Campaign) Editable() bool {
	return c.Status == CampaignStatusDraft || c.Status == CampaignStatusPaused
}

// Terminal reports whether the campaign has reached a final status.
func (c *Campaign) Terminal() bool {
	return c.Status == CampaignStatusCompleted || c.Status == CampaignStatusFailed
}
