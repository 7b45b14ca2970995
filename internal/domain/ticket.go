package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusWaiting    TicketStatus = "WAITING"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityCritical TicketPriority = "CRITICAL"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityLow      TicketPriority = "LOW"
)

// Ticket is the aggregate for support requests. Version is an optimistic-lock
// counter bumped on every write; the assignment write is conditioned on it.
type Ticket struct {
	ID          string
	Subject     string
	RequesterID string
	Status      TicketStatus
	Priority    TicketPriority
	AssignedTo  *string
	AssignedAt  *time.Time
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CountsTowardLoad reports whether the ticket occupies assignee capacity.
// Waiting, resolved and closed tickets do not.
func (t *Ticket) CountsTowardLoad() bool {
	return t.Status == TicketStatusOpen || t.Status == TicketStatusInProgress
}
