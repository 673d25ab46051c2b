package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/escalation-service/internal/api/dto"
	"github.com/spec-kit/escalation-service/internal/auth"
	"github.com/spec-kit/escalation-service/internal/service"
	apperrors "github.com/spec-kit/escalation-service/pkg/util"
)

// StaffTicketsHandler manages the staff triage surface.
type StaffTicketsHandler struct {
	lifecycle   *service.LifecycleService
	assignments *service.AssignmentService
	comments    *service.CommentService
}

// NewStaffTicketsHandler constructs handler.
func NewStaffTicketsHandler(lifecycle *service.LifecycleService, assignments *service.AssignmentService, comments *service.CommentService) *StaffTicketsHandler {
	return &StaffTicketsHandler{lifecycle: lifecycle, assignments: assignments, comments: comments}
}

// ChangeStatus POST /staff/tickets/:id/status.
func (h *StaffTicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)
	var req dto.StatusChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.RequestStatusChange(c.UserContext(), actor, c.Params("id"), req.Status, req.ResolutionNotes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ChangeSeverity PATCH /staff/tickets/:id/severity.
func (h *StaffTicketsHandler) ChangeSeverity(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)
	var req dto.SeverityChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.RequestSeverityChange(c.UserContext(), actor, c.Params("id"), req.Severity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// GetTicket GET /staff/tickets/:id.
func (h *StaffTicketsHandler) GetTicket(c *fiber.Ctx) error {
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

// AddComment POST /staff/tickets/:id/comments.
func (h *StaffTicketsHandler) AddComment(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.comments.AddComment(c.UserContext(), actor, c.Params("id"), req.Body, req.Internal, attachmentInputs(req.Attachments))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// AddAssignee POST /staff/tickets/:id/assignees.
func (h *StaffTicketsHandler) AddAssignee(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)
	var req dto.AssigneeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.UserID == "" {
		return apperrors.NewValidationError("user_id required", nil)
	}
	ticket, err := h.assignments.AddAssignee(c.UserContext(), actor, c.Params("id"), req.UserID, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// RemoveAssignee DELETE /staff/tickets/:id/assignees.
func (h *StaffTicketsHandler) RemoveAssignee(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)
	var req dto.AssigneeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.assignments.RemoveAssignee(c.UserContext(), actor, c.Params("id"), req.UserID, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ListAssignees GET /staff/tickets/:id/assignees.
func (h *StaffTicketsHandler) ListAssignees(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)
	assignments, err := h.assignments.ListAssignees(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		items = append(items, dto.AssignmentResponse{
			UserID:     assignment.UserID,
			Role:       assignment.Role,
			AssignedBy: assignment.AssignedBy,
			AssignedAt: assignment.AssignedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Timeline GET /staff/tickets/:id/timeline.
func (h *StaffTicketsHandler) Timeline(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)
	limit := parseInt(c.Query("page_size"), 100)
	page := parseInt(c.Query("page"), 1)
	entries, err := h.lifecycle.Timeline(c.UserContext(), actor, c.Params("id"), limit, (page-1)*limit)
	if err != nil {
		return err
	}
	items := make([]dto.TimelineEventResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.TimelineEventResponse{
			ID:        entry.ID,
			Type:      entry.Type,
			OldValue:  entry.OldValue,
			NewValue:  entry.NewValue,
			ActorID:   entry.ActorID,
			ActorRole: entry.ActorRole,
			ActorName: entry.ActorName,
			Details:   entry.Details,
			CreatedAt: entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// DeleteTicket DELETE /staff/tickets/:id.
func (h *StaffTicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)
	if err := h.lifecycle.SoftDelete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
