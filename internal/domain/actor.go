package domain

// Role enumerates actor roles. Values are persisted in tokens and audit
// rows; do not rename.
type Role string

const (
	RoleInvigilator Role = "invigilator"
	RoleResolver    Role = "resolver"
	RoleApprover    Role = "approver"
	RoleSuperAdmin  Role = "super_admin"
	RoleTicketAdmin Role = "ticket_admin"

	// RoleAnonymous is a pseudo-role for unauthenticated comment
	// authorship; it never appears on a user record.
	RoleAnonymous Role = "anonymous"
)

// AllRoles lists the roles a user record may hold.
var AllRoles = []Role{
	RoleInvigilator,
	RoleResolver,
	RoleApprover,
	RoleSuperAdmin,
	RoleTicketAdmin,
}

// IsValidRole reports whether value is a role a user record may hold.
func IsValidRole(value Role) bool {
	for _, role := range AllRoles {
		if role == value {
			return true
		}
	}
	return false
}

// IsPrivileged reports whether the role bypasses the workflow graph.
func (r Role) IsPrivileged() bool {
	return r == RoleSuperAdmin || r == RoleTicketAdmin
}

// IsStaff reports whether the role belongs to triage staff. Invigilators
// submit tickets but do not work them.
func (r Role) IsStaff() bool {
	switch r {
	case RoleResolver, RoleApprover, RoleSuperAdmin, RoleTicketAdmin:
		return true
	default:
		return false
	}
}

// Actor identifies who is performing an operation.
type Actor struct {
	ID   string
	Role Role
}

// AnonymousActor is the actor used for unauthenticated submissions.
var AnonymousActor = Actor{ID: "anonymous", Role: RoleAnonymous}
