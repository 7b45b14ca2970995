package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-scheduler/internal/api/dto"
	"github.com/spec-kit/ticket-scheduler/internal/scheduler"
	apperrors "github.com/spec-kit/ticket-scheduler/pkg/util"
)

// AssignmentHandler exposes the auto-assignment trigger.
type AssignmentHandler struct {
	scheduler *scheduler.Scheduler
}

// NewAssignmentHandler constructs handler.
func NewAssignmentHandler(s *scheduler.Scheduler) *AssignmentHandler {
	return &AssignmentHandler{scheduler: s}
}

// AutoAssign POST /tickets/:id/auto-assign.
func (h *AssignmentHandler) AutoAssign(c *fiber.Ctx) error {
	ticketID := strings.TrimSpace(c.Params("id"))
	if ticketID == "" {
		return apperrors.NewValidationError("ticket id required", nil)
	}

	decision, err := h.scheduler.AutoAssign(c.UserContext(), ticketID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": dto.AssignmentResponse{
		Assigned: decision.Assigned,
		AgentID:  decision.AgentID,
		Reason:   decision.Reason,
	}})
}
