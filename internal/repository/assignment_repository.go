package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/escalation-service/internal/domain"
)

// AssignmentRepository reads the ticket assignee set. Mutations go
// through TicketRepository.Apply so they share the ticket transaction.
type AssignmentRepository interface {
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Assignment, error)
	Exists(ctx context.Context, ticketID, userID string, role domain.AssignmentRole) (bool, error)
}

type assignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository builds repository.
func NewAssignmentRepository(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepository{pool: pool}
}

func (r *assignmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Assignment, error) {
	const query = `
        SELECT id, ticket_id, user_id, role, assigned_by, assigned_at
        FROM ticket_assignees WHERE ticket_id=$1 ORDER BY assigned_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Assignment
	for rows.Next() {
		var assignment domain.Assignment
		if err := rows.Scan(
			&assignment.ID,
			&assignment.TicketID,
			&assignment.UserID,
			&assignment.Role,
			&assignment.AssignedBy,
			&assignment.AssignedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, assignment)
	}
	return result, rows.Err()
}

func (r *assignmentRepository) Exists(ctx context.Context, ticketID, userID string, role domain.AssignmentRole) (bool, error) {
	const query = `SELECT EXISTS(
        SELECT 1 FROM ticket_assignees WHERE ticket_id=$1 AND user_id=$2 AND role=$3)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, ticketID, userID, role).Scan(&exists)
	return exists, err
}
