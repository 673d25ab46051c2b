// Package workflow holds the status-transition policy for tickets: a
// static table mapping (role, current status) to the set of statuses the
// role may move the ticket into.
package workflow

import "github.com/spec-kit/escalation-service/internal/domain"

// transitionTable is the per-role workflow graph. Privileged roles are
// not listed here; they may move a ticket to any other status and are
// handled by Allowed directly. Roles absent from the table have no
// transitions at all.
var transitionTable = map[domain.Role]map[domain.TicketStatus][]domain.TicketStatus{
	domain.RoleResolver: {
		domain.TicketStatusOpen: {
			domain.TicketStatusInProgress,
		},
		domain.TicketStatusInProgress: {
			domain.TicketStatusSendForApproval,
			domain.TicketStatusUserDependency,
			domain.TicketStatusOpsInputRequired,
			domain.TicketStatusOpsUserDependency,
		},
		domain.TicketStatusOpsInputRequired: {
			domain.TicketStatusInProgress,
		},
		domain.TicketStatusUserDependency: {
			domain.TicketStatusInProgress,
			domain.TicketStatusOpsInputRequired,
			domain.TicketStatusOpsUserDependency,
			domain.TicketStatusSendForApproval,
		},
		domain.TicketStatusOpsUserDependency: {
			domain.TicketStatusInProgress,
		},
		domain.TicketStatusApproved: {
			domain.TicketStatusResolved,
		},
	},
	domain.RoleApprover: {
		domain.TicketStatusSendForApproval: {
			domain.TicketStatusApproved,
			domain.TicketStatusInProgress,
		},
	},
}

// Allowed returns the set of statuses the role may transition a ticket
// into from the given current status. Privileged roles get every status
// other than the current one; unrecognized roles get nothing.
func Allowed(role domain.Role, current domain.TicketStatus) []domain.TicketStatus {
	if role.IsPrivileged() {
		targets := make([]domain.TicketStatus, 0, len(domain.AllStatuses)-1)
		for _, status := range domain.AllStatuses {
			if status != current {
				targets = append(targets, status)
			}
		}
		return targets
	}
	return transitionTable[role][current]
}

// CanTransition reports whether the role may move a ticket from current
// to next.
func CanTransition(role domain.Role, current, next domain.TicketStatus) bool {
	for _, candidate := range Allowed(role, current) {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsBypass reports whether a privileged actor taking this transition is
// stepping outside the workflow graph, i.e. no non-privileged staff role
// could have taken it. Bypasses are tagged in the audit log.
func IsBypass(role domain.Role, current, next domain.TicketStatus) bool {
	if !role.IsPrivileged() {
		return false
	}
	for _, staffRole := range []domain.Role{domain.RoleResolver, domain.RoleApprover} {
		for _, candidate := range transitionTable[staffRole][current] {
			if candidate == next {
				return false
			}
		}
	}
	return true
}

// IsReopen reports whether the move takes a ticket out of its terminal
// state back into active work. The reopen counter only ever increases.
func IsReopen(current, next domain.TicketStatus) bool {
	return current == domain.TicketStatusResolved && next != domain.TicketStatusResolved
}

// RequiresOpsAssignee reports whether entering the status requires the
// well-known operations actor on the assignee set.
func RequiresOpsAssignee(status domain.TicketStatus) bool {
	return status == domain.TicketStatusOpsInputRequired || status == domain.TicketStatusOpsUserDependency
}

// AutoAdvanceOnResolverAssign reports whether adding a resolver assignee
// should move the ticket forward. Only an untouched open ticket
// advances; anything a human already moved stays put.
func AutoAdvanceOnResolverAssign(current domain.TicketStatus) (domain.TicketStatus, bool) {
	if current == domain.TicketStatusOpen {
		return domain.TicketStatusInProgress, true
	}
	return current, false
}
