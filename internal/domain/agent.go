package domain

import "time"

// AgentRole enumerates account roles; only AGENT participates in assignment.
type AgentRole string

const (
	AgentRoleAgent AgentRole = "AGENT"
	AgentRoleAdmin AgentRole = "ADMIN"
	AgentRoleUser  AgentRole = "USER"
)

// AgentStatus represents lifecycle states for an agent account.
type AgentStatus string

const (
	AgentStatusActive   AgentStatus = "ACTIVE"
	AgentStatusInactive AgentStatus = "INACTIVE"
)

// Specialization enumerates the ticket categories an agent is trained for.
type Specialization string

const (
	SpecializationGeneral         Specialization = "GENERAL"
	SpecializationTechnical       Specialization = "TECHNICAL"
	SpecializationBilling         Specialization = "BILLING"
	SpecializationBugReports      Specialization = "BUG_REPORTS"
	SpecializationFeatureRequests Specialization = "FEATURE_REQUESTS"
)

// DefaultMaxTickets applies when an agent record has no explicit capacity.
const DefaultMaxTickets = 10

// Agent models a support operator as seen by the scheduler.
type Agent struct {
	ID             string
	Name           string
	Email          string
	Role           AgentRole
	Specialization Specialization
	MaxTickets     *int
	WorkingHours   *WorkingHours
	AutoAssign     bool
	Status         AgentStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Capacity returns the agent's ticket ceiling, applying the default when the
// record carries none.
func (a *Agent) Capacity() int {
	if a.MaxTickets != nil && *a.MaxTickets > 0 {
		return *a.MaxTickets
	}
	return DefaultMaxTickets
}

// Hours returns the agent's working-hours window, applying the default
// 09:00-17:00 UTC Mon-Fri schedule when the record carries none.
func (a *Agent) Hours() WorkingHours {
	if a.WorkingHours != nil {
		return *a.WorkingHours
	}
	return DefaultWorkingHours()
}
