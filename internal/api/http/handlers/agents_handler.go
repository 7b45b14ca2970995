package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-scheduler/internal/api/dto"
	"github.com/spec-kit/ticket-scheduler/internal/domain"
	"github.com/spec-kit/ticket-scheduler/internal/repository"
)

// AgentsHandler exposes a read-only operator view of the agent directory.
type AgentsHandler struct {
	agents repository.AgentRepository
}

// NewAgentsHandler constructs handler.
func NewAgentsHandler(agents repository.AgentRepository) *AgentsHandler {
	return &AgentsHandler{agents: agents}
}

// ListAgents GET /agents.
func (h *AgentsHandler) ListAgents(c *fiber.Ctx) error {
	filter := repository.AgentFilter{
		Limit:  c.QueryInt("page_size", 50),
		Offset: (c.QueryInt("page", 1) - 1) * c.QueryInt("page_size", 50),
	}
	if role := c.Query("role"); role != "" {
		r := domain.AgentRole(role)
		filter.Role = &r
	}
	if status := c.Query("status"); status != "" {
		s := domain.AgentStatus(status)
		filter.Status = &s
	}

	agents, err := h.agents.List(c.UserContext(), filter)
	if err != nil {
		return err
	}

	summaries := make([]dto.AgentSummary, 0, len(agents))
	for i := range agents {
		agent := &agents[i]
		summaries = append(summaries, dto.AgentSummary{
			ID:             agent.ID,
			Name:           agent.Name,
			Email:          agent.Email,
			Role:           agent.Role,
			Specialization: agent.Specialization,
			MaxTickets:     agent.Capacity(),
			AutoAssign:     agent.AutoAssign,
			Status:         agent.Status,
			CreatedAt:      agent.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": summaries})
}
