package domain

import "time"

// AssignmentRole enumerates the capacity in which a user is bound to a
// ticket. Persisted values.
type AssignmentRole string

const (
	AssignResolver    AssignmentRole = "resolver"
	AssignApprover    AssignmentRole = "approver"
	AssignOperations  AssignmentRole = "operations"
	AssignTicketAdmin AssignmentRole = "ticket_admin"
)

// IsValidAssignmentRole reports whether value is a known assignment role.
func IsValidAssignmentRole(value AssignmentRole) bool {
	switch value {
	case AssignResolver, AssignApprover, AssignOperations, AssignTicketAdmin:
		return true
	default:
		return false
	}
}

// Assignment binds a user to a ticket in a given role. A ticket may hold
// several assignees of the same role; the (ticket, user, role) triple is
// unique.
type Assignment struct {
	ID         string
	TicketID   string
	UserID     string
	Role       AssignmentRole
	AssignedBy string
	AssignedAt time.Time
}
