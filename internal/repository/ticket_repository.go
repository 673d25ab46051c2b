package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/escalation-service/internal/domain"
)

// TicketMutation bundles the writes that must land in one transaction: a
// guarded ticket row update, idempotent assignee changes, and the audit
// events describing them. Either everything commits or nothing does; a
// status change is never left unaudited.
type TicketMutation struct {
	// Ticket, when non-nil, is written over the existing row provided its
	// version still equals ExpectedVersion.
	Ticket          *domain.Ticket
	ExpectedVersion int64

	AddAssignments    []domain.Assignment
	RemoveAssignments []domain.Assignment
	Events            []*domain.TicketEvent
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number string) (*domain.Ticket, error)
	ListBySubmitter(ctx context.Context, userID string, limit, offset int) ([]domain.Ticket, error)
	Apply(ctx context.Context, mutation TicketMutation) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, number, category, severity, status, description, issue_date,
        centre_code, city, external_ref, submitter_name, submitter_user_id, anonymous,
        resolution_notes, resolved_at, reopen_count, last_reopened_at, reopened_by,
        deleted, version, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (number, category, severity, status, description, issue_date,
            centre_code, city, external_ref, submitter_name, submitter_user_id, anonymous)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, version, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Number,
		ticket.Category,
		ticket.Severity,
		ticket.Status,
		ticket.Description,
		ticket.IssueDate,
		ticket.CentreCode,
		ticket.City,
		ticket.ExternalRef,
		ticket.SubmitterName,
		ticket.SubmitterUserID,
		ticket.Anonymous,
	).Scan(&ticket.ID, &ticket.Version, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE number=$1`, number)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.Number,
		&ticket.Category,
		&ticket.Severity,
		&ticket.Status,
		&ticket.Description,
		&ticket.IssueDate,
		&ticket.CentreCode,
		&ticket.City,
		&ticket.ExternalRef,
		&ticket.SubmitterName,
		&ticket.SubmitterUserID,
		&ticket.Anonymous,
		&ticket.ResolutionNotes,
		&ticket.ResolvedAt,
		&ticket.ReopenCount,
		&ticket.LastReopenedAt,
		&ticket.ReopenedBy,
		&ticket.Deleted,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListBySubmitter(ctx context.Context, userID string, limit, offset int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `SELECT ` + ticketColumns + `
        FROM tickets WHERE submitter_user_id=$1 AND deleted=FALSE
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Number,
			&ticket.Category,
			&ticket.Severity,
			&ticket.Status,
			&ticket.Description,
			&ticket.IssueDate,
			&ticket.CentreCode,
			&ticket.City,
			&ticket.ExternalRef,
			&ticket.SubmitterName,
			&ticket.SubmitterUserID,
			&ticket.Anonymous,
			&ticket.ResolutionNotes,
			&ticket.ResolvedAt,
			&ticket.ReopenCount,
			&ticket.LastReopenedAt,
			&ticket.ReopenedBy,
			&ticket.Deleted,
			&ticket.Version,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) Apply(ctx context.Context, mutation TicketMutation) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if mutation.Ticket != nil {
		const update = `
            UPDATE tickets SET severity=$1, status=$2, resolution_notes=$3, resolved_at=$4,
                reopen_count=$5, last_reopened_at=$6, reopened_by=$7, deleted=$8,
                version=version+1, updated_at=NOW()
            WHERE id=$9 AND version=$10`
		ticket := mutation.Ticket
		cmd, err := tx.Exec(ctx, update,
			ticket.Severity,
			ticket.Status,
			ticket.ResolutionNotes,
			ticket.ResolvedAt,
			ticket.ReopenCount,
			ticket.LastReopenedAt,
			ticket.ReopenedBy,
			ticket.Deleted,
			ticket.ID,
			mutation.ExpectedVersion,
		)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, ticket.ID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return ErrNotFound
			}
			return ErrVersionConflict
		}
		ticket.Version = mutation.ExpectedVersion + 1
	}

	for i := range mutation.AddAssignments {
		assignment := &mutation.AddAssignments[i]
		const insert = `
            INSERT INTO ticket_assignees (ticket_id, user_id, role, assigned_by)
            VALUES ($1,$2,$3,$4)
            ON CONFLICT (ticket_id, user_id, role) DO NOTHING`
		if _, err := tx.Exec(ctx, insert,
			assignment.TicketID,
			assignment.UserID,
			assignment.Role,
			assignment.AssignedBy,
		); err != nil {
			return err
		}
	}

	for i := range mutation.RemoveAssignments {
		assignment := &mutation.RemoveAssignments[i]
		const remove = `DELETE FROM ticket_assignees WHERE ticket_id=$1 AND user_id=$2 AND role=$3`
		if _, err := tx.Exec(ctx, remove,
			assignment.TicketID,
			assignment.UserID,
			assignment.Role,
		); err != nil {
			return err
		}
	}

	for _, event := range mutation.Events {
		const insert = `
            INSERT INTO ticket_events (ticket_id, event_type, old_value, new_value, actor_id, actor_role, details)
            VALUES ($1,$2,$3,$4,$5,$6,$7)
            RETURNING id, created_at`
		if err := tx.QueryRow(ctx, insert,
			event.TicketID,
			event.Type,
			event.OldValue,
			event.NewValue,
			event.ActorID,
			event.ActorRole,
			event.Details,
		).Scan(&event.ID, &event.CreatedAt); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
