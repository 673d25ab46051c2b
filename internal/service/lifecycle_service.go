package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/escalation-service/internal/domain"
	"github.com/spec-kit/escalation-service/internal/events"
	"github.com/spec-kit/escalation-service/internal/identity"
	"github.com/spec-kit/escalation-service/internal/repository"
	"github.com/spec-kit/escalation-service/internal/workflow"
	apperrors "github.com/spec-kit/escalation-service/pkg/util"
)

// LifecycleService coordinates ticket creation and the status workflow.
// Every mutation is validated before anything is written; the ticket
// update and its audit events commit in one transaction, and
// notification events are published only after that commit.
type LifecycleService struct {
	tickets     repository.TicketRepository
	assignments repository.AssignmentRepository
	eventsRepo  repository.TicketEventRepository
	directory   identity.Directory
	dispatcher  events.Dispatcher

	numberPrefix string
	opsActorID   string
	now          func() time.Time
}

// LifecycleDependencies bundles collaborators for the coordinator.
type LifecycleDependencies struct {
	TicketRepo     repository.TicketRepository
	AssignmentRepo repository.AssignmentRepository
	EventRepo      repository.TicketEventRepository
	Directory      identity.Directory
	Dispatcher     events.Dispatcher

	TicketNumberPrefix string
	OpsActorID         string
	Now                func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Category    domain.TicketCategory
	Severity    domain.TicketSeverity
	Description string
	IssueDate   domain.IssueDate
	CentreCode  string
	City        string
	ExternalRef *string

	SubmitterName string
	Anonymous     bool
}

// NewLifecycleService constructs the coordinator.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	prefix := deps.TicketNumberPrefix
	if prefix == "" {
		prefix = "TKT"
	}
	return &LifecycleService{
		tickets:      deps.TicketRepo,
		assignments:  deps.AssignmentRepo,
		eventsRepo:   deps.EventRepo,
		directory:    deps.Directory,
		dispatcher:   deps.Dispatcher,
		numberPrefix: prefix,
		opsActorID:   deps.OpsActorID,
		now:          now,
	}
}

// CreateTicket files a new ticket in the initial open state.
func (s *LifecycleService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if !domain.IsValidCategory(input.Category) {
		return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": input.Category})
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, apperrors.NewValidationError("description required", nil)
	}
	if !input.IssueDate.Validate() {
		return nil, apperrors.NewValidationError("issue date does not match its mode", nil)
	}
	severity := input.Severity
	if severity == "" {
		severity = domain.SeveritySev3
	}
	if !domain.IsValidSeverity(severity) {
		return nil, apperrors.NewValidationError("unknown severity", map[string]any{"severity": severity})
	}

	ticket := &domain.Ticket{
		Number:        s.generateTicketNumber(),
		Category:      input.Category,
		Severity:      severity,
		Status:        domain.TicketStatusOpen,
		Description:   strings.TrimSpace(input.Description),
		IssueDate:     input.IssueDate,
		CentreCode:    strings.TrimSpace(input.CentreCode),
		City:          strings.TrimSpace(input.City),
		ExternalRef:   input.ExternalRef,
		SubmitterName: strings.TrimSpace(input.SubmitterName),
		Anonymous:     input.Anonymous,
	}
	if input.Anonymous {
		ticket.SubmitterName = ""
	} else if actor.Role != domain.RoleAnonymous {
		id := actor.ID
		ticket.SubmitterUserID = &id
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	created := &domain.TicketEvent{
		TicketID:  ticket.ID,
		Type:      domain.EventTicketCreated,
		NewValue:  map[string]any{"status": string(ticket.Status), "severity": string(ticket.Severity)},
		ActorID:   actor.ID,
		ActorRole: actor.Role,
	}
	if err := s.eventsRepo.Append(ctx, created); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:   events.EventTicketCreated,
		Actor:  actor,
		Ticket: summarize(ticket),
	})
	return ticket, nil
}

// RequestStatusChange moves a ticket through the workflow on behalf of
// an actor. Denials happen before any write; the status update and its
// audit events commit atomically.
func (s *LifecycleService) RequestStatusChange(ctx context.Context, actor domain.Actor, ticketID string, newStatus domain.TicketStatus, resolutionNotes string) (*domain.Ticket, error) {
	if !domain.IsValidStatus(newStatus) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}

	ticket, err := s.loadActive(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if !workflow.CanTransition(actor.Role, ticket.Status, newStatus) {
		return nil, apperrors.NewTransitionDenied(string(actor.Role), string(ticket.Status), string(newStatus))
	}

	notes := strings.TrimSpace(resolutionNotes)
	if newStatus == domain.TicketStatusResolved && !actor.Role.IsPrivileged() && notes == "" {
		return nil, apperrors.NewValidationError("resolution notes required to resolve", nil)
	}

	now := s.now()
	oldStatus := ticket.Status
	expectedVersion := ticket.Version
	reopened := workflow.IsReopen(oldStatus, newStatus)
	bypass := workflow.IsBypass(actor.Role, oldStatus, newStatus)

	if reopened {
		actorID := actor.ID
		ticket.ReopenCount++
		ticket.LastReopenedAt = &now
		ticket.ReopenedBy = &actorID
	}
	ticket.Status = newStatus
	if notes != "" {
		ticket.ResolutionNotes = notes
	}
	if newStatus == domain.TicketStatusResolved {
		ticket.ResolvedAt = &now
	}

	details := domain.StatusChangeDetails{
		From:            oldStatus,
		To:              newStatus,
		ResolutionNotes: notes,
		Bypass:          bypass,
	}
	mutation := repository.TicketMutation{
		Ticket:          ticket,
		ExpectedVersion: expectedVersion,
		Events: []*domain.TicketEvent{{
			TicketID:  ticket.ID,
			Type:      domain.EventStatusChanged,
			OldValue:  map[string]any{"status": string(oldStatus)},
			NewValue:  map[string]any{"status": string(newStatus)},
			ActorID:   actor.ID,
			ActorRole: actor.Role,
			Details:   details.AsMap(),
		}},
	}
	if reopened {
		reopenDetails := domain.ReopenDetails{ReopenCount: ticket.ReopenCount, BackTo: newStatus}
		mutation.Events = append(mutation.Events, &domain.TicketEvent{
			TicketID:  ticket.ID,
			Type:      domain.EventTicketReopened,
			ActorID:   actor.ID,
			ActorRole: actor.Role,
			Details:   reopenDetails.AsMap(),
		})
	}

	if workflow.RequiresOpsAssignee(newStatus) {
		present, err := s.assignments.Exists(ctx, ticket.ID, s.opsActorID, domain.AssignOperations)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if !present {
			mutation.AddAssignments = append(mutation.AddAssignments, domain.Assignment{
				TicketID:   ticket.ID,
				UserID:     s.opsActorID,
				Role:       domain.AssignOperations,
				AssignedBy: actor.ID,
			})
			assignDetails := domain.AssignmentDetails{UserID: s.opsActorID, Role: domain.AssignOperations, Auto: true}
			mutation.Events = append(mutation.Events, &domain.TicketEvent{
				TicketID:  ticket.ID,
				Type:      domain.EventAssigneeAdded,
				NewValue:  map[string]any{"user_id": s.opsActorID, "role": string(domain.AssignOperations)},
				ActorID:   actor.ID,
				ActorRole: actor.Role,
				Details:   assignDetails.AsMap(),
			})
		}
	}

	if err := s.apply(ctx, mutation); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:   events.EventTicketStatusChanged,
		Actor:  actor,
		Ticket: summarize(ticket),
		Payload: events.StatusChangedPayload{
			OldStatus:       oldStatus,
			NewStatus:       newStatus,
			ResolutionNotes: notes,
			Reopened:        reopened,
			Bypass:          bypass,
		},
	})
	return ticket, nil
}

// RequestSeverityChange updates a ticket's severity. Severity is
// orthogonal to the workflow graph but remains privileged-only.
//
// TODO: product has two conflicting policies on who may change severity;
// confirm whether resolvers should be allowed before widening this gate.
func (s *LifecycleService) RequestSeverityChange(ctx context.Context, actor domain.Actor, ticketID string, newSeverity domain.TicketSeverity) (*domain.Ticket, error) {
	if !actor.Role.IsPrivileged() {
		return nil, apperrors.NewForbidden("severity changes require a privileged role")
	}
	if !domain.IsValidSeverity(newSeverity) {
		return nil, apperrors.NewValidationError("unknown severity", map[string]any{"severity": newSeverity})
	}

	ticket, err := s.loadActive(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	oldSeverity := ticket.Severity
	expectedVersion := ticket.Version
	ticket.Severity = newSeverity

	mutation := repository.TicketMutation{
		Ticket:          ticket,
		ExpectedVersion: expectedVersion,
		Events: []*domain.TicketEvent{{
			TicketID:  ticket.ID,
			Type:      domain.EventSeverityChanged,
			OldValue:  map[string]any{"severity": string(oldSeverity)},
			NewValue:  map[string]any{"severity": string(newSeverity)},
			ActorID:   actor.ID,
			ActorRole: actor.Role,
		}},
	}
	if err := s.apply(ctx, mutation); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:   events.EventTicketSeverityChanged,
		Actor:  actor,
		Ticket: summarize(ticket),
		Payload: events.SeverityChangedPayload{
			OldSeverity: oldSeverity,
			NewSeverity: newSeverity,
		},
	})
	return ticket, nil
}

// SoftDelete hides a ticket from every non-privileged read path. Tickets
// are never hard-deleted.
func (s *LifecycleService) SoftDelete(ctx context.Context, actor domain.Actor, ticketID string) error {
	if !actor.Role.IsPrivileged() {
		return apperrors.NewForbidden("deleting tickets requires a privileged role")
	}
	ticket, err := s.loadActive(ctx, ticketID)
	if err != nil {
		return err
	}

	expectedVersion := ticket.Version
	ticket.Deleted = true
	mutation := repository.TicketMutation{
		Ticket:          ticket,
		ExpectedVersion: expectedVersion,
		Events: []*domain.TicketEvent{{
			TicketID:  ticket.ID,
			Type:      domain.EventTicketSoftDelete,
			ActorID:   actor.ID,
			ActorRole: actor.Role,
		}},
	}
	return s.apply(ctx, mutation)
}

// GetTicket fetches a ticket. Submitters only see their own tickets;
// staff see everything that is not soft-deleted.
func (s *LifecycleService) GetTicket(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadActive(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsStaff() {
		if ticket.SubmitterUserID == nil || *ticket.SubmitterUserID != actor.ID {
			return nil, apperrors.NewForbidden("access denied")
		}
	}
	return ticket, nil
}

// ListSubmitterTickets returns the actor's own tickets.
func (s *LifecycleService) ListSubmitterTickets(ctx context.Context, actor domain.Actor, limit, offset int) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListBySubmitter(ctx, actor.ID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// Timeline returns the audit trail with actor display names resolved
// best-effort through the identity directory.
func (s *LifecycleService) Timeline(ctx context.Context, actor domain.Actor, ticketID string, limit, offset int) ([]domain.TicketEvent, error) {
	if !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("timeline is staff-only")
	}
	if _, err := s.loadActive(ctx, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.eventsRepo.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for i := range entries {
		entries[i].ActorName = identity.DisplayName(ctx, s.directory, entries[i].ActorID)
	}
	return entries, nil
}

func (s *LifecycleService) loadActive(ctx context.Context, ticketID string) (*domain.Ticket, error) {
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

func (s *LifecycleService) apply(ctx context.Context, mutation repository.TicketMutation) error {
	if err := s.tickets.Apply(ctx, mutation); err != nil {
		switch {
		case errors.Is(err, repository.ErrVersionConflict):
			return apperrors.NewConflict("ticket changed concurrently; re-read and retry", map[string]any{"ticket_id": mutation.Ticket.ID})
		case errors.Is(err, repository.ErrNotFound):
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": mutation.Ticket.ID})
		default:
			return apperrors.MapError(err)
		}
	}
	return nil
}

func (s *LifecycleService) publish(ctx context.Context, event events.Event) {
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

func (s *LifecycleService) generateTicketNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return fmt.Sprintf("%s-%d-%s", s.numberPrefix, s.now().Year(), suffix)
}

func summarize(ticket *domain.Ticket) events.TicketSummary {
	submitter := ticket.SubmitterName
	if ticket.Anonymous {
		submitter = "anonymous"
	}
	return events.TicketSummary{
		TicketID:  ticket.ID,
		Number:    ticket.Number,
		Category:  ticket.Category,
		Severity:  ticket.Severity,
		Status:    ticket.Status,
		Submitter: submitter,
	}
}
