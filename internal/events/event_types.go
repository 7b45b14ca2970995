package events

import (
	"time"

	"github.com/spec-kit/ticket-scheduler/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	// EventTicketAssigned fires when the scheduler commits an assignment.
	EventTicketAssigned EventType = "ticket_assigned"
	// EventAssignmentUnfilled fires when a decision finds no eligible agent.
	EventAssignmentUnfilled EventType = "assignment_unfilled"
)

// Event represents a scheduler event.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AgentID        string                `json:"agent_id"`
	Specialization domain.Specialization `json:"specialization"`
	Priority       domain.TicketPriority `json:"priority"`
	AgentLoad      int                   `json:"agent_load"`
}

// AssignmentUnfilledPayload payload.
type AssignmentUnfilledPayload struct {
	Priority       domain.TicketPriority `json:"priority"`
	AgentsExamined int                   `json:"agents_examined"`
}
