package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-scheduler/internal/domain"
	apperrors "github.com/spec-kit/ticket-scheduler/pkg/util"
)

// TicketRepository encapsulates the slice of ticket persistence the scheduler
// needs: snapshot reads plus the conditional assignment write.
type TicketRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListActive(ctx context.Context) ([]domain.Ticket, error)
	ListUnassigned(ctx context.Context, limit int) ([]domain.Ticket, error)
	SetAssignment(ctx context.Context, ticketID, agentID string, at time.Time, expectedVersion int64) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, subject, requester_user_id, status, priority,
               assignee_agent_id, assigned_at, version, created_at, updated_at
        FROM tickets WHERE id=$1`
	ticket, err := scanTicketRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, apperrors.NewTransient("ticket read failed", err)
	}
	return ticket, nil
}

// ListActive returns all tickets in OPEN or IN_PROGRESS status, the inputs to
// load accounting.
func (r *ticketRepository) ListActive(ctx context.Context) ([]domain.Ticket, error) {
	const query = `
        SELECT id, subject, requester_user_id, status, priority,
               assignee_agent_id, assigned_at, version, created_at, updated_at
        FROM tickets WHERE status IN ('OPEN','IN_PROGRESS')
        ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewTransient("ticket list failed", err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

// ListUnassigned returns open tickets with no assignee, oldest first, for the
// orphan sweep.
func (r *ticketRepository) ListUnassigned(ctx context.Context, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
        SELECT id, subject, requester_user_id, status, priority,
               assignee_agent_id, assigned_at, version, created_at, updated_at
        FROM tickets WHERE status='OPEN' AND assignee_agent_id IS NULL
        ORDER BY created_at ASC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, apperrors.NewTransient("ticket list failed", err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

// SetAssignment commits the chosen agent with a compare-and-set conditioned on
// the version observed at decision time and on the assignee still being empty.
// Losing the race yields CONFLICT, a vanished ticket NOT_FOUND.
func (r *ticketRepository) SetAssignment(ctx context.Context, ticketID, agentID string, at time.Time, expectedVersion int64) error {
	const query = `
        UPDATE tickets
        SET assignee_agent_id=$2, assigned_at=$3, version=version+1, updated_at=NOW()
        WHERE id=$1 AND version=$4 AND assignee_agent_id IS NULL`
	cmd, err := r.pool.Exec(ctx, query, ticketID, agentID, at, expectedVersion)
	if err != nil {
		return apperrors.NewTransient("assignment write failed", err)
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}

	current, err := r.GetByID(ctx, ticketID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return err
	}
	details := map[string]any{"ticket_id": ticketID}
	if current.AssignedTo != nil {
		details["assignee_agent_id"] = *current.AssignedTo
	}
	return apperrors.NewConflict("assignment already committed", details)
}

func scanTicketRow(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Subject,
		&ticket.RequesterID,
		&ticket.Status,
		&ticket.Priority,
		&ticket.AssignedTo,
		&ticket.AssignedAt,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicketRow(rows)
		if err != nil {
			return nil, apperrors.NewTransient("ticket scan failed", err)
		}
		result = append(result, *ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewTransient("ticket list failed", err)
	}
	return result, nil
}
