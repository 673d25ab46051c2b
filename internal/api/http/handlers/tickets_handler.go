package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/escalation-service/internal/api/dto"
	"github.com/spec-kit/escalation-service/internal/auth"
	"github.com/spec-kit/escalation-service/internal/domain"
	"github.com/spec-kit/escalation-service/internal/service"
	apperrors "github.com/spec-kit/escalation-service/pkg/util"
)

// TicketsHandler manages submitter-facing ticket endpoints. Submission
// and commenting work for both authenticated invigilators and anonymous
// callers.
type TicketsHandler struct {
	lifecycle *service.LifecycleService
	comments  *service.CommentService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(lifecycle *service.LifecycleService, comments *service.CommentService) *TicketsHandler {
	return &TicketsHandler{lifecycle: lifecycle, comments: comments}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if actor.Role == domain.RoleAnonymous && !req.Anonymous {
		return apperrors.NewValidationError("unauthenticated submissions must set anonymous", nil)
	}

	input := service.TicketCreateInput{
		Category:    req.Category,
		Severity:    req.Severity,
		Description: req.Description,
		IssueDate: domain.IssueDate{
			Mode:    req.IssueDate.Mode,
			On:      req.IssueDate.On,
			From:    req.IssueDate.From,
			To:      req.IssueDate.To,
			Entries: req.IssueDate.Entries,
		},
		CentreCode:    req.CentreCode,
		City:          req.City,
		ExternalRef:   req.ExternalRef,
		SubmitterName: req.SubmitterName,
		Anonymous:     req.Anonymous,
	}
	ticket, err := h.lifecycle.CreateTicket(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	limit := parseInt(c.Query("page_size"), 20)
	page := parseInt(c.Query("page"), 1)
	tickets, err := h.lifecycle.ListSubmitterTickets(c.UserContext(), principal.Actor(), limit, (page-1)*limit)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)
	ticket, err := h.lifecycle.GetTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	comments, err := h.comments.ListComments(c.UserContext(), actor, ticket.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, comments)})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	// internal flag ignored on the public surface
	comment, err := h.comments.AddComment(c.UserContext(), actor, c.Params("id"), req.Body, false, attachmentInputs(req.Attachments))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

func attachmentInputs(reqs []dto.AttachmentRequest) []service.CommentAttachmentInput {
	attachments := make([]service.CommentAttachmentInput, 0, len(reqs))
	for _, att := range reqs {
		attachments = append(attachments, service.CommentAttachmentInput{
			StorageKey: att.StorageKey,
			FileName:   att.FileName,
			MimeType:   att.MimeType,
			SizeBytes:  att.SizeBytes,
		})
	}
	return attachments
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:          ticket.ID,
		Number:      ticket.Number,
		Category:    ticket.Category,
		Severity:    ticket.Severity,
		Status:      ticket.Status,
		CentreCode:  ticket.CentreCode,
		City:        ticket.City,
		ReopenCount: ticket.ReopenCount,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket, comments []domain.Comment) dto.TicketDetailResponse {
	commentResponses := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		commentResponses = append(commentResponses, commentResponse(&comments[i]))
	}
	return dto.TicketDetailResponse{
		ID:              ticket.ID,
		Number:          ticket.Number,
		Category:        ticket.Category,
		Severity:        ticket.Severity,
		Status:          ticket.Status,
		Description:     ticket.Description,
		IssueDate:       ticket.IssueDate,
		CentreCode:      ticket.CentreCode,
		City:            ticket.City,
		ExternalRef:     ticket.ExternalRef,
		SubmitterName:   ticket.SubmitterName,
		Anonymous:       ticket.Anonymous,
		ResolutionNotes: ticket.ResolutionNotes,
		ResolvedAt:      ticket.ResolvedAt,
		ReopenCount:     ticket.ReopenCount,
		LastReopenedAt:  ticket.LastReopenedAt,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
		Comments:        commentResponses,
	}
}

func commentResponse(comment *domain.Comment) dto.CommentResponse {
	attachments := make([]dto.AttachmentResponse, 0, len(comment.Attachments))
	for _, att := range comment.Attachments {
		attachments = append(attachments, dto.AttachmentResponse{
			ID:        att.ID,
			FileName:  att.FileName,
			MimeType:  att.MimeType,
			SizeBytes: att.SizeBytes,
		})
	}
	return dto.CommentResponse{
		ID:          comment.ID,
		AuthorName:  comment.AuthorName,
		AuthorRole:  comment.AuthorRole,
		Body:        comment.Body,
		Internal:    comment.Internal,
		Attachments: attachments,
		CreatedAt:   comment.CreatedAt,
	}
}
