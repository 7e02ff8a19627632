package server

import (
	"partrack/internal/models"
	"partrack/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SubmitRequest handles POST /api/requests/:id/submit
// Moves a DRAFT or KICKED_BACK request into the approval chain.
func (s *Server) SubmitRequest(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}
	submittedBy, err := s.actingIdentity(c)
	if err != nil {
		return nil
	}

	request, err := s.workflowService.Submit(ctx, id, submittedBy)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(request)
}

// ApproveStep handles POST /api/requests/:id/approve
func (s *Server) ApproveStep(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		ApproverID string `json:"approver_id"`
		ActingAs   string `json:"acting_as"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.ApproverID == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Approver ID is required"))
	}

	// The authenticated display name is the default acting identity; an
	// explicit acting_as overrides it (e.g. an assistant acting for the
	// approver) and is still verified against the delegate list.
	actingAs := req.ActingAs
	if actingAs == "" {
		name, err := s.actingIdentity(c)
		if err != nil {
			return nil
		}
		actingAs = name
	}

	request, err := s.workflowService.Approve(ctx, service.ApproveInput{
		RequestID:  id,
		ApproverID: req.ApproverID,
		ActingAs:   actingAs,
	})
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(request)
}

// KickBackRequest handles POST /api/requests/:id/kick-back
func (s *Server) KickBackRequest(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		ApproverID  string `json:"approver_id"`
		ToStepOrder int    `json:"to_step_order"`
		Reason      string `json:"reason"`
		ActingAs    string `json:"acting_as"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.ApproverID == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Approver ID is required"))
	}
	if req.ToStepOrder < 1 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Target step order must be at least 1"))
	}

	actingAs := req.ActingAs
	if actingAs == "" {
		name, err := s.actingIdentity(c)
		if err != nil {
			return nil
		}
		actingAs = name
	}

	request, err := s.workflowService.KickBack(ctx, service.KickBackInput{
		RequestID:   id,
		ApproverID:  req.ApproverID,
		ToStepOrder: req.ToStepOrder,
		Reason:      req.Reason,
		ActingAs:    actingAs,
	})
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(request)
}

// CancelRequest handles POST /api/requests/:id/cancel
func (s *Server) CancelRequest(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}
	cancelledBy, err := s.actingIdentity(c)
	if err != nil {
		return nil
	}

	request, err := s.workflowService.Cancel(ctx, id, cancelledBy)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(request)
}

// GetApprovalQueue handles GET /api/approvers/:id/queue
// The queue is projected from live data on every call.
func (s *Server) GetApprovalQueue(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}

	queue, err := s.workflowService.QueueFor(ctx, id)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(fiber.Map{
		"queue": queue,
		"total": len(queue),
	})
}
