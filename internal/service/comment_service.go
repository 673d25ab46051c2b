package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/escalation-service/internal/domain"
	"github.com/spec-kit/escalation-service/internal/events"
	"github.com/spec-kit/escalation-service/internal/identity"
	"github.com/spec-kit/escalation-service/internal/repository"
	apperrors "github.com/spec-kit/escalation-service/pkg/util"
)

// CommentService appends to the ticket conversation thread. Comments
// are append-only; internal comments never reach the submitter.
type CommentService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	eventsRepo repository.TicketEventRepository
	directory  identity.Directory
	dispatcher events.Dispatcher
	now        func() time.Time
}

// CommentDependencies bundles collaborators.
type CommentDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	EventRepo   repository.TicketEventRepository
	Directory   identity.Directory
	Dispatcher  events.Dispatcher
	Now         func() time.Time
}

// CommentAttachmentInput defines attachment metadata.
type CommentAttachmentInput struct {
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
}

// NewCommentService creates the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &CommentService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		eventsRepo: deps.EventRepo,
		directory:  deps.Directory,
		dispatcher: deps.Dispatcher,
		now:        now,
	}
}

// AddComment appends a comment. Any actor may comment, including
// anonymous submitters, except that non-staff actors are blocked once
// the ticket is resolved; staff keep commenting. Internal comments are
// staff-only.
func (s *CommentService) AddComment(ctx context.Context, actor domain.Actor, ticketID, body string, internal bool, attachments []CommentAttachmentInput) (*domain.Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("comment body required", nil)
	}
	if internal && !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("internal comments are staff-only")
	}

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
	if ticket.Status == domain.TicketStatusResolved && !actor.Role.IsStaff() {
		return nil, apperrors.NewValidationError("ticket is resolved; the conversation is closed to submitters", nil)
	}

	comment := &domain.Comment{
		TicketID:   ticket.ID,
		AuthorName: identity.DisplayName(ctx, s.directory, actor.ID),
		AuthorRole: actor.Role,
		Body:       strings.TrimSpace(body),
		Internal:   internal,
	}
	if actor.Role != domain.RoleAnonymous {
		actorID := actor.ID
		comment.AuthorID = &actorID
	}
	for _, att := range attachments {
		comment.Attachments = append(comment.Attachments, domain.AttachmentReference{
			StorageKey: att.StorageKey,
			FileName:   att.FileName,
			MimeType:   att.MimeType,
			SizeBytes:  att.SizeBytes,
		})
	}

	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	event := &domain.TicketEvent{
		TicketID:  ticket.ID,
		Type:      domain.EventCommentAdded,
		NewValue:  map[string]any{"comment_id": comment.ID, "internal": internal},
		ActorID:   actor.ID,
		ActorRole: actor.Role,
	}
	if err := s.eventsRepo.Append(ctx, event); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:   events.EventTicketCommentAdded,
		Actor:  actor,
		Ticket: summarize(ticket),
		Payload: events.CommentAddedPayload{
			CommentID:   comment.ID,
			AuthorRole:  actor.Role,
			Internal:    internal,
			BodyPreview: stringPreview(comment.Body, 120),
		},
	})
	return comment, nil
}

// ListComments returns the thread. Non-staff callers never see internal
// comments.
func (s *CommentService) ListComments(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.Comment, error) {
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
	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if actor.Role.IsStaff() {
		return comments, nil
	}
	filtered := make([]domain.Comment, 0, len(comments))
	for _, comment := range comments {
		if comment.Internal {
			continue
		}
		filtered = append(filtered, comment)
	}
	return filtered, nil
}

func (s *CommentService) publish(ctx context.Context, event events.Event) {
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

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
