package scheduler

import "github.com/spec-kit/ticket-scheduler/internal/domain"

// LoadCounts derives each agent's current load from a ticket snapshot. Only
// OPEN and IN_PROGRESS tickets occupy capacity; waiting, resolved and closed
// ones do not.
func LoadCounts(tickets []domain.Ticket) map[string]int {
	loads := make(map[string]int, len(tickets))
	for i := range tickets {
		ticket := &tickets[i]
		if ticket.AssignedTo == nil || !ticket.CountsTowardLoad() {
			continue
		}
		loads[*ticket.AssignedTo]++
	}
	return loads
}
