package domain

import "time"

// TicketStatus enumerates workflow states for tickets. Values are
// persisted; renaming one breaks existing rows.
type TicketStatus string

const (
	TicketStatusOpen              TicketStatus = "open"
	TicketStatusInProgress        TicketStatus = "in_progress"
	TicketStatusOpsInputRequired  TicketStatus = "ops_input_required"
	TicketStatusUserDependency    TicketStatus = "user_dependency"
	TicketStatusOpsUserDependency TicketStatus = "ops_user_dependency"
	TicketStatusSendForApproval   TicketStatus = "send_for_approval"
	TicketStatusApproved          TicketStatus = "approved"
	TicketStatusResolved          TicketStatus = "resolved"
)

// AllStatuses lists every workflow state in rough order of progress.
var AllStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusOpsInputRequired,
	TicketStatusUserDependency,
	TicketStatusOpsUserDependency,
	TicketStatusSendForApproval,
	TicketStatusApproved,
	TicketStatusResolved,
}

// IsValidStatus reports whether value is a known workflow state.
func IsValidStatus(value TicketStatus) bool {
	for _, status := range AllStatuses {
		if status == value {
			return true
		}
	}
	return false
}

// TicketSeverity enumerates urgency tiers, sev1 being the most urgent.
type TicketSeverity string

const (
	SeveritySev1 TicketSeverity = "sev1"
	SeveritySev2 TicketSeverity = "sev2"
	SeveritySev3 TicketSeverity = "sev3"
)

// SeverityRank orders severities; a lower rank is more urgent.
func SeverityRank(s TicketSeverity) int {
	switch s {
	case SeveritySev1:
		return 1
	case SeveritySev2:
		return 2
	case SeveritySev3:
		return 3
	default:
		return 4
	}
}

// IsValidSeverity reports whether value is a known severity tier.
func IsValidSeverity(value TicketSeverity) bool {
	return SeverityRank(value) <= 3
}

// TicketCategory classifies the reported issue.
type TicketCategory string

const (
	CategoryTechnical TicketCategory = "technical"
	CategoryNetwork   TicketCategory = "network"
	CategoryPower     TicketCategory = "power"
	CategoryStaffing  TicketCategory = "staffing"
	CategoryCandidate TicketCategory = "candidate"
	CategoryOther     TicketCategory = "other"
)

// AllCategories lists the closed set of issue categories.
var AllCategories = []TicketCategory{
	CategoryTechnical,
	CategoryNetwork,
	CategoryPower,
	CategoryStaffing,
	CategoryCandidate,
	CategoryOther,
}

// IsValidCategory reports whether value is a known category.
func IsValidCategory(value TicketCategory) bool {
	for _, category := range AllCategories {
		if category == value {
			return true
		}
	}
	return false
}

// IssueDateMode selects which issue-date shape a ticket carries.
type IssueDateMode string

const (
	IssueDateSingle  IssueDateMode = "single"
	IssueDateRange   IssueDateMode = "range"
	IssueDateEntries IssueDateMode = "entries"
	IssueDateOngoing IssueDateMode = "ongoing"
)

// IssueDateEntry is one dated sub-entry with its own description.
type IssueDateEntry struct {
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
}

// IssueDate captures when the reported issue occurred. Exactly one mode
// is active: a single date, a date range, a set of dated entries, or an
// ongoing marker carrying no dates at all.
type IssueDate struct {
	Mode    IssueDateMode    `json:"mode"`
	On      *time.Time       `json:"on,omitempty"`
	From    *time.Time       `json:"from,omitempty"`
	To      *time.Time       `json:"to,omitempty"`
	Entries []IssueDateEntry `json:"entries,omitempty"`
}

// Validate checks that the populated fields match the declared mode.
func (d IssueDate) Validate() bool {
	switch d.Mode {
	case IssueDateSingle:
		return d.On != nil && d.From == nil && d.To == nil && len(d.Entries) == 0
	case IssueDateRange:
		return d.On == nil && d.From != nil && d.To != nil && len(d.Entries) == 0 && !d.To.Before(*d.From)
	case IssueDateEntries:
		return d.On == nil && d.From == nil && d.To == nil && len(d.Entries) > 0
	case IssueDateOngoing:
		return d.On == nil && d.From == nil && d.To == nil && len(d.Entries) == 0
	default:
		return false
	}
}

// Ticket is the aggregate for escalated issues.
type Ticket struct {
	ID          string
	Number      string
	Category    TicketCategory
	Severity    TicketSeverity
	Status      TicketStatus
	Description string
	IssueDate   IssueDate
	CentreCode  string
	City        string
	ExternalRef *string

	SubmitterName   string
	SubmitterUserID *string
	Anonymous       bool

	ResolutionNotes string
	ResolvedAt      *time.Time
	ReopenCount     int
	LastReopenedAt  *time.Time
	ReopenedBy      *string

	Deleted bool
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}
