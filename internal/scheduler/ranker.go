package scheduler

import (
	"sort"

	"github.com/spec-kit/ticket-scheduler/internal/domain"
)

// Rank orders eligible agents by fitness for a ticket. Critical tickets route
// technical specialists ahead of everyone else regardless of load; within a
// tier, lower load wins. The sort is stable, so equal candidates keep the
// directory order and repeated calls pick the same agent.
func Rank(eligible []domain.Agent, priority domain.TicketPriority, loads map[string]int) []domain.Agent {
	ranked := make([]domain.Agent, len(eligible))
	copy(ranked, eligible)

	sort.SliceStable(ranked, func(i, j int) bool {
		ti, tj := tier(&ranked[i], priority), tier(&ranked[j], priority)
		if ti != tj {
			return ti < tj
		}
		return loads[ranked[i].ID] < loads[ranked[j].ID]
	})
	return ranked
}

func tier(agent *domain.Agent, priority domain.TicketPriority) int {
	if priority == domain.TicketPriorityCritical && agent.Specialization == domain.SpecializationTechnical {
		return 0
	}
	return 1
}
