package server

import (
	"partrack/internal/models"
	"partrack/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetApprovers handles GET /api/approvers
func (s *Server) GetApprovers(c *fiber.Ctx) error {
	approvers, err := s.approverService.List(c.Context())
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(approvers)
}

// GetActiveApprovers handles GET /api/approvers/active
// Returns the roster a submission would snapshot right now.
func (s *Server) GetActiveApprovers(c *fiber.Ctx) error {
	approvers, err := s.approverService.ListActive(c.Context())
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(approvers)
}

// CreateApprover handles POST /api/approvers
func (s *Server) CreateApprover(c *fiber.Ctx) error {
	ctx := c.Context()
	createdBy, err := s.actingIdentity(c)
	if err != nil {
		return nil
	}

	var in service.ApproverInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	approver, err := s.approverService.Create(ctx, in, createdBy)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(approver)
}

// UpdateApprover handles PUT /api/approvers/:id
func (s *Server) UpdateApprover(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}
	updatedBy, err := s.actingIdentity(c)
	if err != nil {
		return nil
	}

	var in service.ApproverInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	approver, err := s.approverService.Update(ctx, id, in, updatedBy)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(approver)
}

// ReorderApprovers handles PUT /api/approvers/reorder
func (s *Server) ReorderApprovers(c *fiber.Ctx) error {
	ctx := c.Context()
	updatedBy, err := s.actingIdentity(c)
	if err != nil {
		return nil
	}

	var req struct {
		OrderedIDs []string `json:"ordered_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	approvers, err := s.approverService.Reorder(ctx, req.OrderedIDs, updatedBy)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(approvers)
}

// AddDelegate handles POST /api/approvers/:id/delegates
func (s *Server) AddDelegate(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}
	createdBy, err := s.actingIdentity(c)
	if err != nil {
		return nil
	}

	var in service.DelegateInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	delegate, err := s.approverService.AddDelegate(ctx, id, in, createdBy)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(delegate)
}

// RemoveDelegate handles DELETE /api/approvers/delegates/:delegateId
func (s *Server) RemoveDelegate(c *fiber.Ctx) error {
	ctx := c.Context()
	delegateID, err := s.parseUUID(c, "delegateId")
	if err != nil {
		return nil
	}
	removedBy, err := s.actingIdentity(c)
	if err != nil {
		return nil
	}

	if err := s.approverService.RemoveDelegate(ctx, delegateID, removedBy); err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
