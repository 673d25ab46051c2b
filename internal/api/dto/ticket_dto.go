package dto

import (
	"time"

	"github.com/spec-kit/escalation-service/internal/domain"
)

// IssueDateRequest mirrors domain.IssueDate on the wire.
type IssueDateRequest struct {
	Mode    domain.IssueDateMode    `json:"mode"`
	On      *time.Time              `json:"on,omitempty"`
	From    *time.Time              `json:"from,omitempty"`
	To      *time.Time              `json:"to,omitempty"`
	Entries []domain.IssueDateEntry `json:"entries,omitempty"`
}

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Category      domain.TicketCategory `json:"category"`
	Severity      domain.TicketSeverity `json:"severity"`
	Description   string                `json:"description"`
	IssueDate     IssueDateRequest      `json:"issue_date"`
	CentreCode    string                `json:"centre_code"`
	City          string                `json:"city"`
	ExternalRef   *string               `json:"external_ref"`
	SubmitterName string                `json:"submitter_name"`
	Anonymous     bool                  `json:"anonymous"`
}

// StatusChangeRequest payload.
type StatusChangeRequest struct {
	Status          domain.TicketStatus `json:"status"`
	ResolutionNotes string              `json:"resolution_notes"`
}

// SeverityChangeRequest payload.
type SeverityChangeRequest struct {
	Severity domain.TicketSeverity `json:"severity"`
}

// AssigneeRequest payload.
type AssigneeRequest struct {
	UserID string                `json:"user_id"`
	Role   domain.AssignmentRole `json:"role"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Body        string              `json:"body"`
	Internal    bool                `json:"internal"`
	Attachments []AttachmentRequest `json:"attachments"`
}

// AttachmentRequest describes attachment input.
type AttachmentRequest struct {
	StorageKey string `json:"storage_key"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
}

// TicketSummary response.
type TicketSummary struct {
	ID          string                `json:"id"`
	Number      string                `json:"number"`
	Category    domain.TicketCategory `json:"category"`
	Severity    domain.TicketSeverity `json:"severity"`
	Status      domain.TicketStatus   `json:"status"`
	CentreCode  string                `json:"centre_code"`
	City        string                `json:"city"`
	ReopenCount int                   `json:"reopen_count"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	ID              string                `json:"id"`
	Number          string                `json:"number"`
	Category        domain.TicketCategory `json:"category"`
	Severity        domain.TicketSeverity `json:"severity"`
	Status          domain.TicketStatus   `json:"status"`
	Description     string                `json:"description"`
	IssueDate       domain.IssueDate      `json:"issue_date"`
	CentreCode      string                `json:"centre_code"`
	City            string                `json:"city"`
	ExternalRef     *string               `json:"external_ref,omitempty"`
	SubmitterName   string                `json:"submitter_name,omitempty"`
	Anonymous       bool                  `json:"anonymous"`
	ResolutionNotes string                `json:"resolution_notes,omitempty"`
	ResolvedAt      *time.Time            `json:"resolved_at,omitempty"`
	ReopenCount     int                   `json:"reopen_count"`
	LastReopenedAt  *time.Time            `json:"last_reopened_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	Comments        []CommentResponse     `json:"comments"`
}

// CommentResponse represents one thread entry.
type CommentResponse struct {
	ID          string               `json:"id"`
	AuthorName  string               `json:"author_name"`
	AuthorRole  domain.Role          `json:"author_role"`
	Body        string               `json:"body"`
	Internal    bool                 `json:"internal"`
	Attachments []AttachmentResponse `json:"attachments"`
	CreatedAt   time.Time            `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID        string `json:"id"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// AssignmentResponse represents one assignee binding.
type AssignmentResponse struct {
	UserID     string                `json:"user_id"`
	Role       domain.AssignmentRole `json:"role"`
	AssignedBy string                `json:"assigned_by"`
	AssignedAt time.Time             `json:"assigned_at"`
}

// TimelineEventResponse represents one audit entry.
type TimelineEventResponse struct {
	ID        string                 `json:"id"`
	Type      domain.TicketEventType `json:"type"`
	OldValue  map[string]any         `json:"old_value,omitempty"`
	NewValue  map[string]any         `json:"new_value,omitempty"`
	ActorID   string                 `json:"actor_id"`
	ActorRole domain.Role            `json:"actor_role"`
	ActorName string                 `json:"actor_name"`
	Details   map[string]any         `json:"details,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
