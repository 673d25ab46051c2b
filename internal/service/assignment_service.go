package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/escalation-service/internal/domain"
	"github.com/spec-kit/escalation-service/internal/events"
	"github.com/spec-kit/escalation-service/internal/repository"
	"github.com/spec-kit/escalation-service/internal/workflow"
	apperrors "github.com/spec-kit/escalation-service/pkg/util"
)

// AssignmentService authorizes and applies assignee changes. Only
// privileged roles may add or remove resolver/approver assignments,
// regardless of ticket status. Both directions are idempotent.
type AssignmentService struct {
	tickets     repository.TicketRepository
	assignments repository.AssignmentRepository
	users       repository.UserRepository
	dispatcher  events.Dispatcher
	now         func() time.Time
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	TicketRepo     repository.TicketRepository
	AssignmentRepo repository.AssignmentRepository
	UserRepo       repository.UserRepository
	Dispatcher     events.Dispatcher
	Now            func() time.Time
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &AssignmentService{
		tickets:     deps.TicketRepo,
		assignments: deps.AssignmentRepo,
		users:       deps.UserRepo,
		dispatcher:  deps.Dispatcher,
		now:         now,
	}
}

// CanAssign reports whether the actor role may mutate assignments of the
// target role. Assignment changes are privileged-only across the board.
func CanAssign(actorRole domain.Role, _ domain.AssignmentRole) bool {
	return actorRole.IsPrivileged()
}

// AddAssignee binds a user to the ticket in the given role. Adding an
// already-present (ticket, user, role) triple is a no-op success. When a
// resolver lands on an untouched open ticket, the ticket auto-advances
// to in_progress inside the same transaction.
func (s *AssignmentService) AddAssignee(ctx context.Context, actor domain.Actor, ticketID, userID string, role domain.AssignmentRole) (*domain.Ticket, error) {
	if !CanAssign(actor.Role, role) {
		return nil, apperrors.NewForbidden("assignment changes require a privileged role")
	}
	if !domain.IsValidAssignmentRole(role) {
		return nil, apperrors.NewValidationError("unknown assignment role", map[string]any{"role": role})
	}

	assignee, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}
	if !assignee.Active {
		return nil, apperrors.NewValidationError("assignee account is inactive", map[string]any{"user_id": userID})
	}

	ticket, err := s.loadActive(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	present, err := s.assignments.Exists(ctx, ticket.ID, userID, role)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if present {
		return ticket, nil
	}

	details := domain.AssignmentDetails{UserID: userID, Role: role}
	mutation := repository.TicketMutation{
		AddAssignments: []domain.Assignment{{
			TicketID:   ticket.ID,
			UserID:     userID,
			Role:       role,
			AssignedBy: actor.ID,
		}},
		Events: []*domain.TicketEvent{{
			TicketID:  ticket.ID,
			Type:      domain.EventAssigneeAdded,
			NewValue:  map[string]any{"user_id": userID, "role": string(role)},
			ActorID:   actor.ID,
			ActorRole: actor.Role,
			Details:   details.AsMap(),
		}},
	}

	var advancedFrom domain.TicketStatus
	advanced := false
	if role == domain.AssignResolver {
		if next, ok := workflow.AutoAdvanceOnResolverAssign(ticket.Status); ok {
			advancedFrom = ticket.Status
			expectedVersion := ticket.Version
			ticket.Status = next
			mutation.Ticket = ticket
			mutation.ExpectedVersion = expectedVersion
			statusDetails := domain.StatusChangeDetails{From: advancedFrom, To: next}
			detailsMap := statusDetails.AsMap()
			detailsMap["auto"] = true
			mutation.Events = append(mutation.Events, &domain.TicketEvent{
				TicketID:  ticket.ID,
				Type:      domain.EventStatusChanged,
				OldValue:  map[string]any{"status": string(advancedFrom)},
				NewValue:  map[string]any{"status": string(next)},
				ActorID:   actor.ID,
				ActorRole: actor.Role,
				Details:   detailsMap,
			})
			advanced = true
		}
	}

	if err := s.apply(ctx, ticket.ID, mutation); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:    events.EventTicketAssigned,
		Actor:   actor,
		Ticket:  summarize(ticket),
		Payload: events.AssignedPayload{UserID: userID, Role: role},
	})
	if advanced {
		s.publish(ctx, events.Event{
			Type:   events.EventTicketStatusChanged,
			Actor:  actor,
			Ticket: summarize(ticket),
			Payload: events.StatusChangedPayload{
				OldStatus: advancedFrom,
				NewStatus: ticket.Status,
			},
		})
	}
	return ticket, nil
}

// RemoveAssignee unbinds a user from the ticket. Removing a triple that
// does not exist is a no-op success.
func (s *AssignmentService) RemoveAssignee(ctx context.Context, actor domain.Actor, ticketID, userID string, role domain.AssignmentRole) (*domain.Ticket, error) {
	if !CanAssign(actor.Role, role) {
		return nil, apperrors.NewForbidden("assignment changes require a privileged role")
	}

	ticket, err := s.loadActive(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	present, err := s.assignments.Exists(ctx, ticket.ID, userID, role)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !present {
		return ticket, nil
	}

	details := domain.AssignmentDetails{UserID: userID, Role: role}
	mutation := repository.TicketMutation{
		RemoveAssignments: []domain.Assignment{{
			TicketID: ticket.ID,
			UserID:   userID,
			Role:     role,
		}},
		Events: []*domain.TicketEvent{{
			TicketID:  ticket.ID,
			Type:      domain.EventAssigneeRemoved,
			OldValue:  map[string]any{"user_id": userID, "role": string(role)},
			ActorID:   actor.ID,
			ActorRole: actor.Role,
			Details:   details.AsMap(),
		}},
	}
	if err := s.apply(ctx, ticket.ID, mutation); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:    events.EventTicketAssigned,
		Actor:   actor,
		Ticket:  summarize(ticket),
		Payload: events.AssignedPayload{UserID: userID, Role: role, Removed: true},
	})
	return ticket, nil
}

// ListAssignees returns the ticket's current assignee set.
func (s *AssignmentService) ListAssignees(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.Assignment, error) {
	if !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("assignee list is staff-only")
	}
	if _, err := s.loadActive(ctx, ticketID); err != nil {
		return nil, err
	}
	assignments, err := s.assignments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return assignments, nil
}

func (s *AssignmentService) loadActive(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.Deleted {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

func (s *AssignmentService) apply(ctx context.Context, ticketID string, mutation repository.TicketMutation) error {
	if err := s.tickets.Apply(ctx, mutation); err != nil {
		switch {
		case errors.Is(err, repository.ErrVersionConflict):
			return apperrors.NewConflict("ticket changed concurrently; re-read and retry", map[string]any{"ticket_id": ticketID})
		case errors.Is(err, repository.ErrNotFound):
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		default:
			return apperrors.MapError(err)
		}
	}
	return nil
}

func (s *AssignmentService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if event.TicketID == "" {
		event.TicketID = event.Ticket.TicketID
	}
	_ = s.dispatcher.Publish(ctx, event)
}
