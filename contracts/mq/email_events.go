package mq

import (
	"time"

	"mailfilter/internal/model"
)

const (
	RoutingKeyEnrichRequested  = "email.enrich.requested"
	RoutingKeyEnriched         = "email.enriched"
	RoutingKeyForwardRequested = "email.forward.requested"
)

// EmailEnrichRequestedPayload asks a worker to fill sentiment and summary.
type EmailEnrichRequestedPayload struct {
	Email       model.Email `json:"email"`
	RequestedAt time.Time   `json:"requested_at"`
}

// EmailEnrichedPayload carries an email after enrichment.
type EmailEnrichedPayload struct {
	Email      model.Email `json:"email"`
	EnrichedAt time.Time   `json:"enriched_at"`
}

// EmailForwardRequestedPayload is emitted when a forwardTo rule fires.
type EmailForwardRequestedPayload struct {
	EmailID     string    `json:"email_id"`
	RuleID      string    `json:"rule_id"`
	RuleName    string    `json:"rule_name"`
	To          string    `json:"to"`
	Sender      string    `json:"sender"`
	Subject     string    `json:"subject"`
	RequestedAt time.Time `json:"requested_at"`
}
