// Package audit captures checklist lifecycle events for operational
// visibility. Events are emitted from domain logic and fanned out to sinks
// (in-memory store, Kafka) by a worker, so emitting never blocks a request.
package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryOperations covers events useful for debugging and operational
	// visibility: generation starts, completions, failures.
	CategoryOperations EventCategory = "operations"

	// CategoryCompliance covers events with review significance: rule set
	// creation and approval changes.
	CategoryCompliance EventCategory = "compliance"
)

// AuditEvent names a specific lifecycle action.
type AuditEvent string

const (
	EventGenerationStarted AuditEvent = "checklist_generation_started"
	EventChecklistReady    AuditEvent = "checklist_ready"
	EventGenerationFailed  AuditEvent = "checklist_generation_failed"

	EventRuleSetCreated  AuditEvent = "ruleset_created"
	EventRuleSetApproved AuditEvent = "ruleset_approved"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category      EventCategory `json:"category"`
	Action        AuditEvent    `json:"action"`
	Timestamp     time.Time     `json:"timestamp"`
	ApplicationID string        `json:"applicationId,omitempty"`
	UserID        string        `json:"userId,omitempty"`
	CountryCode   string        `json:"countryCode,omitempty"`
	VisaType      string        `json:"visaType,omitempty"`
	RuleSetID     string        `json:"ruleSetId,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	RequestID     string        `json:"requestId,omitempty"`
	Device        string        `json:"device,omitempty"`
}

// Publisher accepts events for asynchronous delivery.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Store persists events. The worker drains the inbox into a Store.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// ChannelPublisher feeds an inbox channel, dropping events when the inbox is
// full rather than blocking request handling.
type ChannelPublisher struct {
	inbox chan<- Event
}

func NewChannelPublisher(inbox chan<- Event) *ChannelPublisher {
	return &ChannelPublisher{inbox: inbox}
}

func (p *ChannelPublisher) Publish(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
	}
}

// NopPublisher discards events; used when auditing is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}
