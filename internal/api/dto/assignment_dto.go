package dto

import (
	"time"

	"github.com/spec-kit/ticket-scheduler/internal/domain"
)

// AssignmentResponse is the outcome of an auto-assign trigger.
type AssignmentResponse struct {
	Assigned bool   `json:"assigned"`
	AgentID  string `json:"agent_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// AgentSummary is the operator-facing view of a directory entry.
type AgentSummary struct {
	ID             string                `json:"id"`
	Name           string                `json:"name"`
	Email          string                `json:"email"`
	Role           domain.AgentRole      `json:"role"`
	Specialization domain.Specialization `json:"specialization"`
	MaxTickets     int                   `json:"max_tickets"`
	AutoAssign     bool                  `json:"auto_assign"`
	Status         domain.AgentStatus    `json:"status"`
	CreatedAt      time.Time             `json:"created_at"`
}

// TicketSummary is the scheduler-relevant view of a ticket.
type TicketSummary struct {
	ID         string                `json:"id"`
	Subject    string                `json:"subject"`
	Status     domain.TicketStatus   `json:"status"`
	Priority   domain.TicketPriority `json:"priority"`
	AssignedTo *string               `json:"assigned_to,omitempty"`
	AssignedAt *time.Time            `json:"assigned_at,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
}
