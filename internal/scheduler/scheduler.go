package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-scheduler/internal/clock"
	"github.com/spec-kit/ticket-scheduler/internal/domain"
	"github.com/spec-kit/ticket-scheduler/internal/events"
	"github.com/spec-kit/ticket-scheduler/internal/observability"
	apperrors "github.com/spec-kit/ticket-scheduler/pkg/util"
)

// ReasonNoEligibleAgent is the terminal outcome when no agent can take the
// ticket right now. It is not an error; the ticket stays unassigned until
// conditions change.
const ReasonNoEligibleAgent = "no-eligible-agent"

// AgentDirectory is the narrow read surface the scheduler needs from agent
// storage.
type AgentDirectory interface {
	ListAgents(ctx context.Context) ([]domain.Agent, error)
}

// TicketLedger is the slice of ticket storage the scheduler reads and writes.
type TicketLedger interface {
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListActive(ctx context.Context) ([]domain.Ticket, error)
	SetAssignment(ctx context.Context, ticketID, agentID string, at time.Time, expectedVersion int64) error
}

// Decision is the outcome of one auto-assignment invocation.
type Decision struct {
	Assigned bool
	AgentID  string
	Reason   string
}

// Scheduler composes load accounting, eligibility filtering, ranking and the
// assignment write into the single autoAssign entry point.
type Scheduler struct {
	agents     AgentDirectory
	tickets    TicketLedger
	clk        clock.Clock
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// Dependencies bundles scheduler collaborators.
type Dependencies struct {
	Agents     AgentDirectory
	Tickets    TicketLedger
	Clock      clock.Clock
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// New creates the scheduler.
func New(deps Dependencies) *Scheduler {
	clk := deps.Clock
	if clk == nil {
		clk = clock.System()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		agents:     deps.Agents,
		tickets:    deps.Tickets,
		clk:        clk,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
	}
}

// AutoAssign decides which agent should own the ticket and commits the
// assignment. Each invocation is a fresh decision over a snapshot read here;
// nothing carries over between calls. An already assigned ticket is a no-op
// success.
func (s *Scheduler) AutoAssign(ctx context.Context, ticketID string) (Decision, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Decision{}, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return Decision{}, apperrors.MapError(err)
	}
	if ticket.AssignedTo != nil {
		s.logger.Debug("ticket already assigned; skipping",
			zap.String("ticket_id", ticket.ID),
			zap.String("agent_id", *ticket.AssignedTo))
		return Decision{Assigned: true, AgentID: *ticket.AssignedTo}, nil
	}

	directory, err := s.agents.ListAgents(ctx)
	if err != nil {
		return Decision{}, apperrors.MapError(err)
	}
	active, err := s.tickets.ListActive(ctx)
	if err != nil {
		return Decision{}, apperrors.MapError(err)
	}

	loads := LoadCounts(active)
	eligible, issues := EligibleAgents(directory, s.clk.Now(), loads)
	for _, issue := range issues {
		s.metrics.RecordSkippedAgent()
		s.logger.Warn("agent record malformed; excluded from eligibility",
			zap.String("agent_id", issue.AgentID),
			zap.Error(issue.Err))
	}

	if len(eligible) == 0 {
		s.metrics.RecordDecision("no_eligible_agent")
		s.publish(ctx, events.EventAssignmentUnfilled, ticket.ID, events.AssignmentUnfilledPayload{
			Priority:       ticket.Priority,
			AgentsExamined: len(directory),
		})
		s.logger.Info("no eligible agent",
			zap.String("ticket_id", ticket.ID),
			zap.String("priority", string(ticket.Priority)),
			zap.Int("agents_examined", len(directory)))
		return Decision{Assigned: false, Reason: ReasonNoEligibleAgent}, nil
	}

	ranked := Rank(eligible, ticket.Priority, loads)
	choice := ranked[0]

	if err := s.tickets.SetAssignment(ctx, ticket.ID, choice.ID, s.clk.Now(), ticket.Version); err != nil {
		if apperrors.IsConflict(err) {
			return s.resolveConflict(ctx, ticket.ID, err)
		}
		return Decision{}, apperrors.MapError(err)
	}

	s.metrics.RecordDecision("assigned")
	s.publish(ctx, events.EventTicketAssigned, ticket.ID, events.TicketAssignedPayload{
		AgentID:        choice.ID,
		Specialization: choice.Specialization,
		Priority:       ticket.Priority,
		AgentLoad:      loads[choice.ID],
	})
	s.logger.Info("ticket assigned",
		zap.String("ticket_id", ticket.ID),
		zap.String("agent_id", choice.ID),
		zap.String("priority", string(ticket.Priority)),
		zap.Int("agent_load", loads[choice.ID]))
	return Decision{Assigned: true, AgentID: choice.ID}, nil
}

// resolveConflict handles losing the assignment race. When another invocation
// already committed an assignee the ticket is assigned either way, so the
// caller gets a no-op success rather than an error.
func (s *Scheduler) resolveConflict(ctx context.Context, ticketID string, conflict error) (Decision, error) {
	current, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Decision{}, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return Decision{}, apperrors.MapError(err)
	}
	if current.AssignedTo != nil {
		s.metrics.RecordDecision("conflict_noop")
		s.logger.Info("assignment race lost; ticket already assigned",
			zap.String("ticket_id", ticketID),
			zap.String("agent_id", *current.AssignedTo))
		return Decision{Assigned: true, AgentID: *current.AssignedTo}, nil
	}
	// The version moved without an assignee appearing; the caller may retry
	// with a fresh decision.
	return Decision{}, conflict
}

func (s *Scheduler) publish(ctx context.Context, eventType events.EventType, ticketID string, payload any) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Timestamp: s.clk.Now(),
		Payload:   payload,
	}
	_ = s.dispatcher.Publish(ctx, event)
}
