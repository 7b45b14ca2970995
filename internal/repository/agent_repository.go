package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-scheduler/internal/domain"
	apperrors "github.com/spec-kit/ticket-scheduler/pkg/util"
)

// AgentRepository handles read access to agent records.
type AgentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	List(ctx context.Context, filter AgentFilter) ([]domain.Agent, error)
	ListAgents(ctx context.Context) ([]domain.Agent, error)
}

// AgentFilter defines query params for agent listing.
type AgentFilter struct {
	Role   *domain.AgentRole
	Status *domain.AgentStatus
	Limit  int
	Offset int
}

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository instantiates the repository.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

const agentColumns = `id, name, email, role, specialization, max_tickets,
       work_start_minute, work_end_minute, work_timezone, work_days,
       auto_assign, status, created_at, updated_at`

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	query := fmt.Sprintf(`SELECT %s FROM agents WHERE id=$1`, agentColumns)
	row := r.pool.QueryRow(ctx, query, id)
	agent, err := scanAgentRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, apperrors.NewTransient("agent read failed", err)
	}
	return agent, nil
}

// ListAgents returns the full agent directory in a deterministic order so
// equal-load ties break the same way on every call.
func (r *agentRepository) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	return r.List(ctx, AgentFilter{Limit: 1000})
}

func (r *agentRepository) List(ctx context.Context, filter AgentFilter) ([]domain.Agent, error) {
	query := fmt.Sprintf(`SELECT %s FROM agents`, agentColumns)
	args := []any{}
	clauses := []string{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY created_at ASC, id ASC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewTransient("agent list failed", err)
	}
	defer rows.Close()

	var result []domain.Agent
	for rows.Next() {
		agent, err := scanAgentRow(rows)
		if err != nil {
			return nil, apperrors.NewTransient("agent scan failed", err)
		}
		result = append(result, *agent)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewTransient("agent list failed", err)
	}
	return result, nil
}

func scanAgentRow(row pgx.Row) (*domain.Agent, error) {
	var (
		agent       domain.Agent
		maxTickets  *int
		startMinute *int
		endMinute   *int
		timezone    *string
		workDays    []int16
	)
	if err := row.Scan(
		&agent.ID,
		&agent.Name,
		&agent.Email,
		&agent.Role,
		&agent.Specialization,
		&maxTickets,
		&startMinute,
		&endMinute,
		&timezone,
		&workDays,
		&agent.AutoAssign,
		&agent.Status,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	); err != nil {
		return nil, err
	}
	agent.MaxTickets = maxTickets
	if startMinute != nil && endMinute != nil && timezone != nil {
		hours := domain.WorkingHours{
			StartMinute: *startMinute,
			EndMinute:   *endMinute,
			Timezone:    *timezone,
		}
		for _, day := range workDays {
			hours.WorkDays = append(hours.WorkDays, time.Weekday(day))
		}
		agent.WorkingHours = &hours
	}
	return &agent, nil
}
