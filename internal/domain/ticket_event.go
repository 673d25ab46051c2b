package domain

import "time"

// TicketEventType captures what changed in an audit entry.
type TicketEventType string

const (
	EventStatusChanged    TicketEventType = "status_changed"
	EventSeverityChanged  TicketEventType = "severity_changed"
	EventAssigneeAdded    TicketEventType = "assignee_added"
	EventAssigneeRemoved  TicketEventType = "assignee_removed"
	EventCommentAdded     TicketEventType = "comment_added"
	EventTicketReopened   TicketEventType = "reopened"
	EventTicketCreated    TicketEventType = "created"
	EventTicketSoftDelete TicketEventType = "soft_deleted"
)

// TicketEvent is an immutable audit trail entry. OldValue/NewValue hold
// the change where applicable; Details carries event-specific fields as
// a raw JSON object for forward compatibility. ActorName is a read-time
// enrichment and is not part of the stored record's identity.
type TicketEvent struct {
	ID        string
	TicketID  string
	Type      TicketEventType
	OldValue  map[string]any
	NewValue  map[string]any
	ActorID   string
	ActorRole Role
	ActorName string
	Details   map[string]any
	CreatedAt time.Time
}

// StatusChangeDetails is the typed payload for EventStatusChanged.
type StatusChangeDetails struct {
	From            TicketStatus `json:"from"`
	To              TicketStatus `json:"to"`
	ResolutionNotes string       `json:"resolution_notes,omitempty"`
	Bypass          bool         `json:"bypass,omitempty"`
}

// AsMap renders the payload for the event's Details column.
func (d StatusChangeDetails) AsMap() map[string]any {
	m := map[string]any{
		"from": string(d.From),
		"to":   string(d.To),
	}
	if d.ResolutionNotes != "" {
		m["resolution_notes"] = d.ResolutionNotes
	}
	if d.Bypass {
		m["bypass"] = true
	}
	return m
}

// AssignmentDetails is the typed payload for assignee events.
type AssignmentDetails struct {
	UserID string         `json:"user_id"`
	Role   AssignmentRole `json:"role"`
	Auto   bool           `json:"auto,omitempty"`
}

// AsMap renders the payload for the event's Details column.
func (d AssignmentDetails) AsMap() map[string]any {
	m := map[string]any{
		"user_id": d.UserID,
		"role":    string(d.Role),
	}
	if d.Auto {
		m["auto"] = true
	}
	return m
}

// ReopenDetails is the typed payload for EventTicketReopened.
type ReopenDetails struct {
	ReopenCount int          `json:"reopen_count"`
	BackTo      TicketStatus `json:"back_to"`
}

// AsMap renders the payload for the event's Details column.
func (d ReopenDetails) AsMap() map[string]any {
	return map[string]any{
		"reopen_count": d.ReopenCount,
		"back_to":      string(d.BackTo),
	}
}
