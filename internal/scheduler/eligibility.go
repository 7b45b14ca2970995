package scheduler

import (
	"time"

	"github.com/spec-kit/ticket-scheduler/internal/domain"
)

// AgentIssue identifies an agent record excluded for being malformed rather
// than merely ineligible. The scheduler logs and counts these so the exclusion
// stays observable.
type AgentIssue struct {
	AgentID string
	Err     error
}

// EligibleAgents narrows the directory to agents who can legally receive work
// at the given instant. Relative order of the input is preserved, which is
// what makes the downstream tie-break deterministic.
func EligibleAgents(agents []domain.Agent, now time.Time, loads map[string]int) ([]domain.Agent, []AgentIssue) {
	var (
		eligible []domain.Agent
		issues   []AgentIssue
	)
	for _, agent := range agents {
		if agent.Role != domain.AgentRoleAgent {
			continue
		}
		if agent.Status != domain.AgentStatusActive {
			continue
		}
		if !agent.AutoAssign {
			continue
		}

		hours := agent.Hours()
		if err := hours.Validate(); err != nil {
			issues = append(issues, AgentIssue{AgentID: agent.ID, Err: err})
			continue
		}
		loc, err := hours.Location()
		if err != nil {
			issues = append(issues, AgentIssue{AgentID: agent.ID, Err: err})
			continue
		}
		if !hours.Covers(now.In(loc)) {
			continue
		}

		// Strict inequality: an agent exactly at capacity is out.
		if loads[agent.ID] >= agent.Capacity() {
			continue
		}
		eligible = append(eligible, agent)
	}
	return eligible, issues
}
