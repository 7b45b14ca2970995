package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-scheduler/internal/clock"
	"github.com/spec-kit/ticket-scheduler/internal/domain"
	"github.com/spec-kit/ticket-scheduler/internal/events"
	"github.com/spec-kit/ticket-scheduler/internal/observability"
	apperrors "github.com/spec-kit/ticket-scheduler/pkg/util"
)

type fakeDirectory struct {
	agents []domain.Agent
	err    error
}

func (f *fakeDirectory) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.agents, nil
}

// fakeLedger emulates the Postgres ticket store, including the version-checked
// assignment write.
type fakeLedger struct {
	mu       sync.Mutex
	tickets  map[string]*domain.Ticket
	setCalls int
	// interceptSet, when set, runs before each SetAssignment under the lock.
	// A concurrent writer can be simulated by mutating the ledger here.
	interceptSet func()
}

func newFakeLedger(tickets ...*domain.Ticket) *fakeLedger {
	ledger := &fakeLedger{tickets: make(map[string]*domain.Ticket)}
	for _, ticket := range tickets {
		ledger.tickets[ticket.ID] = ticket
	}
	return ledger
}

func (f *fakeLedger) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (f *fakeLedger) ListActive(ctx context.Context) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range f.tickets {
		if ticket.CountsTowardLoad() {
			result = append(result, *ticket)
		}
	}
	return result, nil
}

func (f *fakeLedger) SetAssignment(ctx context.Context, ticketID, agentID string, at time.Time, expectedVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.interceptSet != nil {
		f.interceptSet()
	}
	f.setCalls++

	ticket, ok := f.tickets[ticketID]
	if !ok {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	if ticket.Version != expectedVersion || ticket.AssignedTo != nil {
		return apperrors.NewConflict("assignment already committed", map[string]any{"ticket_id": ticketID})
	}
	ticket.AssignedTo = &agentID
	assignedAt := at
	ticket.AssignedAt = &assignedAt
	ticket.Version++
	return nil
}

func openTicket(id string, priority domain.TicketPriority) *domain.Ticket {
	return &domain.Ticket{
		ID:       id,
		Subject:  "subject " + id,
		Status:   domain.TicketStatusOpen,
		Priority: priority,
		Version:  1,
	}
}

func assignedTicket(id, agentID string, status domain.TicketStatus) *domain.Ticket {
	at := wednesdayMorning.Add(-time.Hour)
	return &domain.Ticket{
		ID:         id,
		Status:     status,
		Priority:   domain.TicketPriorityMedium,
		AssignedTo: &agentID,
		AssignedAt: &at,
		Version:    2,
	}
}

func newTestScheduler(dir *fakeDirectory, ledger *fakeLedger, metrics *observability.Metrics) *Scheduler {
	return New(Dependencies{
		Agents:  dir,
		Tickets: ledger,
		Clock:   clock.Fixed{Instant: wednesdayMorning},
		Logger:  zap.NewNop(),
		Metrics: metrics,
	})
}

func TestAutoAssignSelectsUnderCapacityAgent(t *testing.T) {
	ceiling := 5
	agent := eligibleAgent("agent-a")
	agent.MaxTickets = &ceiling

	ledger := newFakeLedger(openTicket("t1", domain.TicketPriorityMedium))
	s := newTestScheduler(&fakeDirectory{agents: []domain.Agent{agent}}, ledger, observability.NewMetrics())

	decision, err := s.AutoAssign(context.Background(), "t1")
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}
	if !decision.Assigned || decision.AgentID != "agent-a" {
		t.Fatalf("decision = %+v, want assigned to agent-a", decision)
	}

	stored, _ := ledger.GetByID(context.Background(), "t1")
	if stored.AssignedTo == nil || *stored.AssignedTo != "agent-a" {
		t.Fatalf("ledger not updated: %+v", stored)
	}
	if stored.AssignedAt == nil || !stored.AssignedAt.Equal(wednesdayMorning) {
		t.Fatalf("assigned_at = %v, want the decision clock instant", stored.AssignedAt)
	}
}

func TestAutoAssignRespectsCapacityStrictly(t *testing.T) {
	ceiling := 2
	agent := eligibleAgent("agent-a")
	agent.MaxTickets = &ceiling

	// Two active tickets put the agent exactly at capacity.
	ledger := newFakeLedger(
		openTicket("t-new", domain.TicketPriorityHigh),
		assignedTicket("t-old-1", "agent-a", domain.TicketStatusOpen),
		assignedTicket("t-old-2", "agent-a", domain.TicketStatusInProgress),
	)
	s := newTestScheduler(&fakeDirectory{agents: []domain.Agent{agent}}, ledger, observability.NewMetrics())

	decision, err := s.AutoAssign(context.Background(), "t-new")
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}
	if decision.Assigned || decision.Reason != ReasonNoEligibleAgent {
		t.Fatalf("decision = %+v, want no-eligible-agent for an agent at capacity", decision)
	}
}

func TestAutoAssignCapacityIgnoresWaitingTickets(t *testing.T) {
	ceiling := 2
	agent := eligibleAgent("agent-a")
	agent.MaxTickets = &ceiling

	ledger := newFakeLedger(
		openTicket("t-new", domain.TicketPriorityHigh),
		assignedTicket("t-old-1", "agent-a", domain.TicketStatusOpen),
		assignedTicket("t-old-2", "agent-a", domain.TicketStatusWaiting),
	)
	s := newTestScheduler(&fakeDirectory{agents: []domain.Agent{agent}}, ledger, observability.NewMetrics())

	decision, err := s.AutoAssign(context.Background(), "t-new")
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}
	if !decision.Assigned {
		t.Fatalf("waiting tickets must not count toward load; decision = %+v", decision)
	}
}

func TestAutoAssignOutsideWorkingHours(t *testing.T) {
	agent := eligibleAgent("agent-a")
	agent.WorkingHours = &domain.WorkingHours{
		StartMinute: 0,
		EndMinute:   8 * 60,
		Timezone:    "UTC",
		WorkDays:    []time.Weekday{time.Wednesday},
	}

	ledger := newFakeLedger(openTicket("t1", domain.TicketPriorityMedium))
	s := newTestScheduler(&fakeDirectory{agents: []domain.Agent{agent}}, ledger, observability.NewMetrics())

	decision, err := s.AutoAssign(context.Background(), "t1")
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}
	if decision.Assigned || decision.Reason != ReasonNoEligibleAgent {
		t.Fatalf("decision = %+v, want no-eligible-agent outside working hours", decision)
	}
}

func TestAutoAssignNoEligibleAgentLeavesLedgerUntouched(t *testing.T) {
	inactive := eligibleAgent("inactive")
	inactive.Status = domain.AgentStatusInactive
	optedOut := eligibleAgent("opted-out")
	optedOut.AutoAssign = false

	ticket := openTicket("t1", domain.TicketPriorityCritical)
	ledger := newFakeLedger(ticket)
	metrics := observability.NewMetrics()
	s := newTestScheduler(&fakeDirectory{agents: []domain.Agent{inactive, optedOut}}, ledger, metrics)

	decision, err := s.AutoAssign(context.Background(), "t1")
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}
	if decision.Assigned || decision.Reason != ReasonNoEligibleAgent {
		t.Fatalf("decision = %+v, want no-eligible-agent", decision)
	}
	if ledger.setCalls != 0 {
		t.Fatalf("ledger written %d times, want 0", ledger.setCalls)
	}
	stored, _ := ledger.GetByID(context.Background(), "t1")
	if stored.AssignedTo != nil || stored.Version != 1 {
		t.Fatalf("ticket modified: %+v", stored)
	}
	if metrics.DecisionCount("no_eligible_agent") != 1 {
		t.Fatalf("no_eligible_agent counter = %d, want 1", metrics.DecisionCount("no_eligible_agent"))
	}
}

func TestAutoAssignIdempotentOnAssignedTicket(t *testing.T) {
	agent := eligibleAgent("agent-a")
	ledger := newFakeLedger(openTicket("t1", domain.TicketPriorityMedium))
	s := newTestScheduler(&fakeDirectory{agents: []domain.Agent{agent}}, ledger, observability.NewMetrics())

	first, err := s.AutoAssign(context.Background(), "t1")
	if err != nil {
		t.Fatalf("first AutoAssign: %v", err)
	}
	afterFirst, _ := ledger.GetByID(context.Background(), "t1")

	second, err := s.AutoAssign(context.Background(), "t1")
	if err != nil {
		t.Fatalf("second AutoAssign: %v", err)
	}
	if !second.Assigned || second.AgentID != first.AgentID {
		t.Fatalf("second decision = %+v, want no-op success with %s", second, first.AgentID)
	}

	afterSecond, _ := ledger.GetByID(context.Background(), "t1")
	if ledger.setCalls != 1 {
		t.Fatalf("ledger written %d times, want 1", ledger.setCalls)
	}
	if !afterSecond.AssignedAt.Equal(*afterFirst.AssignedAt) || afterSecond.Version != afterFirst.Version {
		t.Fatalf("second call mutated the ticket: %+v vs %+v", afterSecond, afterFirst)
	}
}

func TestAutoAssignConflictReturnsWinner(t *testing.T) {
	agent := eligibleAgent("agent-a")
	ticket := openTicket("t1", domain.TicketPriorityMedium)
	ledger := newFakeLedger(ticket)

	// A concurrent invocation commits "agent-z" between this decision's read
	// and its write.
	committed := false
	ledger.interceptSet = func() {
		if committed {
			return
		}
		committed = true
		winner := "agent-z"
		at := wednesdayMorning
		ticket.AssignedTo = &winner
		ticket.AssignedAt = &at
		ticket.Version++
	}

	metrics := observability.NewMetrics()
	s := newTestScheduler(&fakeDirectory{agents: []domain.Agent{agent}}, ledger, metrics)

	decision, err := s.AutoAssign(context.Background(), "t1")
	if err != nil {
		t.Fatalf("AutoAssign after lost race: %v", err)
	}
	if !decision.Assigned || decision.AgentID != "agent-z" {
		t.Fatalf("decision = %+v, want no-op success carrying the winner agent-z", decision)
	}
	if metrics.DecisionCount("conflict_noop") != 1 {
		t.Fatalf("conflict_noop counter = %d, want 1", metrics.DecisionCount("conflict_noop"))
	}
}

func TestAutoAssignTicketNotFound(t *testing.T) {
	s := newTestScheduler(&fakeDirectory{}, newFakeLedger(), observability.NewMetrics())
	_, err := s.AutoAssign(context.Background(), "missing")
	if !apperrors.IsNotFound(err) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestAutoAssignTransientStoreFailure(t *testing.T) {
	dir := &fakeDirectory{err: apperrors.NewTransient("agent list failed", nil)}
	ledger := newFakeLedger(openTicket("t1", domain.TicketPriorityLow))
	s := newTestScheduler(dir, ledger, observability.NewMetrics())

	_, err := s.AutoAssign(context.Background(), "t1")
	if !apperrors.IsTransient(err) {
		t.Fatalf("err = %v, want TRANSIENT", err)
	}
	if ledger.setCalls != 0 {
		t.Fatalf("no partial write may be left behind; setCalls = %d", ledger.setCalls)
	}
}

func TestAutoAssignSkipsMalformedAgentRecord(t *testing.T) {
	broken := eligibleAgent("broken")
	broken.WorkingHours = &domain.WorkingHours{Timezone: "Not/AZone", StartMinute: 540, EndMinute: 1020, WorkDays: []time.Weekday{time.Wednesday}}
	healthy := eligibleAgent("healthy")

	ledger := newFakeLedger(openTicket("t1", domain.TicketPriorityMedium))
	metrics := observability.NewMetrics()
	s := newTestScheduler(&fakeDirectory{agents: []domain.Agent{broken, healthy}}, ledger, metrics)

	decision, err := s.AutoAssign(context.Background(), "t1")
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}
	if !decision.Assigned || decision.AgentID != "healthy" {
		t.Fatalf("decision = %+v, want healthy agent despite the malformed record", decision)
	}
	if metrics.SkippedAgents() != 1 {
		t.Fatalf("skipped agent counter = %d, want 1", metrics.SkippedAgents())
	}
}

// The worked example: a critical ticket routes to the technical specialist
// despite higher load; the following medium ticket goes to the general agent.
func TestAutoAssignEndToEndExample(t *testing.T) {
	ceiling := 5
	agentA := specialist("A", domain.SpecializationGeneral)
	agentA.MaxTickets = &ceiling
	agentB := specialist("B", domain.SpecializationTechnical)
	agentB.MaxTickets = &ceiling

	ledger := newFakeLedger(
		openTicket("T", domain.TicketPriorityCritical),
		openTicket("U", domain.TicketPriorityMedium),
		assignedTicket("a1", "A", domain.TicketStatusOpen),
		assignedTicket("a2", "A", domain.TicketStatusInProgress),
		assignedTicket("b1", "B", domain.TicketStatusOpen),
		assignedTicket("b2", "B", domain.TicketStatusOpen),
		assignedTicket("b3", "B", domain.TicketStatusInProgress),
		assignedTicket("b4", "B", domain.TicketStatusOpen),
	)
	s := newTestScheduler(&fakeDirectory{agents: []domain.Agent{agentA, agentB}}, ledger, observability.NewMetrics())

	critical, err := s.AutoAssign(context.Background(), "T")
	if err != nil {
		t.Fatalf("AutoAssign(T): %v", err)
	}
	if !critical.Assigned || critical.AgentID != "B" {
		t.Fatalf("critical ticket decision = %+v, want technical agent B", critical)
	}

	medium, err := s.AutoAssign(context.Background(), "U")
	if err != nil {
		t.Fatalf("AutoAssign(U): %v", err)
	}
	if !medium.Assigned || medium.AgentID != "A" {
		t.Fatalf("medium ticket decision = %+v, want lower-load agent A", medium)
	}
}

func TestAutoAssignPublishesEvents(t *testing.T) {
	agent := eligibleAgent("agent-a")
	ledger := newFakeLedger(openTicket("t1", domain.TicketPriorityMedium), openTicket("t2", domain.TicketPriorityMedium))

	dispatcher := events.NewInMemoryDispatcher()
	var mu sync.Mutex
	received := map[events.EventType]int{}
	record := func(ctx context.Context, event events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		received[event.Type]++
		return nil
	}
	dispatcher.Subscribe(events.EventTicketAssigned, record)
	dispatcher.Subscribe(events.EventAssignmentUnfilled, record)

	noAgents := New(Dependencies{
		Agents:     &fakeDirectory{},
		Tickets:    ledger,
		Clock:      clock.Fixed{Instant: wednesdayMorning},
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
		Metrics:    observability.NewMetrics(),
	})
	if _, err := noAgents.AutoAssign(context.Background(), "t1"); err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}

	withAgent := New(Dependencies{
		Agents:     &fakeDirectory{agents: []domain.Agent{agent}},
		Tickets:    ledger,
		Clock:      clock.Fixed{Instant: wednesdayMorning},
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
		Metrics:    observability.NewMetrics(),
	})
	if _, err := withAgent.AutoAssign(context.Background(), "t2"); err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if received[events.EventAssignmentUnfilled] != 1 {
		t.Errorf("assignment_unfilled events = %d, want 1", received[events.EventAssignmentUnfilled])
	}
	if received[events.EventTicketAssigned] != 1 {
		t.Errorf("ticket_assigned events = %d, want 1", received[events.EventTicketAssigned])
	}
}
