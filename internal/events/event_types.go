package events

import (
	"time"

	"github.com/spec-kit/escalation-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketSeverityChanged EventType = "ticket_severity_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketCommentAdded    EventType = "ticket_comment_added"
)

// TicketSummary is the minimal ticket view handed to notification
// consumers: enough to render a message and a link, nothing more.
type TicketSummary struct {
	TicketID  string                `json:"ticket_id"`
	Number    string                `json:"number"`
	Category  domain.TicketCategory `json:"category"`
	Severity  domain.TicketSeverity `json:"severity"`
	Status    domain.TicketStatus   `json:"status"`
	Submitter string                `json:"submitter"`
}

// Event represents a domain event emitted by services after the backing
// mutation has committed.
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	TicketID  string        `json:"ticket_id"`
	Actor     domain.Actor  `json:"actor"`
	Ticket    TicketSummary `json:"ticket"`
	Timestamp time.Time     `json:"timestamp"`
	Payload   interface{}   `json:"payload"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus       domain.TicketStatus `json:"old_status"`
	NewStatus       domain.TicketStatus `json:"new_status"`
	ResolutionNotes string              `json:"resolution_notes,omitempty"`
	Reopened        bool                `json:"reopened,omitempty"`
	Bypass          bool                `json:"bypass,omitempty"`
}

// SeverityChangedPayload payload.
type SeverityChangedPayload struct {
	OldSeverity domain.TicketSeverity `json:"old_severity"`
	NewSeverity domain.TicketSeverity `json:"new_severity"`
}

// AssignedPayload payload.
type AssignedPayload struct {
	UserID  string                `json:"user_id"`
	Role    domain.AssignmentRole `json:"role"`
	Removed bool                  `json:"removed,omitempty"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID   string      `json:"comment_id"`
	AuthorRole  domain.Role `json:"author_role"`
	Internal    bool        `json:"internal"`
	BodyPreview string      `json:"body_preview"`
}
