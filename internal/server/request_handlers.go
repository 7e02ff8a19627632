package server

import (
	"partrack/internal/models"
	"partrack/internal/repository"
	"partrack/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateRequest handles POST /api/requests
func (s *Server) CreateRequest(c *fiber.Ctx) error {
	ctx := c.Context()
	createdBy, err := s.actingIdentity(c)
	if err != nil {
		return nil
	}

	var in service.RequestInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	request, err := s.requestService.Create(ctx, in, createdBy)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(request)
}

// GetRequests handles GET /api/requests
func (s *Server) GetRequests(c *fiber.Ctx) error {
	ctx := c.Context()
	page := parsePagination(c, 25)

	requests, total, err := s.requestService.List(ctx, repository.RequestFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}

	return c.JSON(fiber.Map{
		"requests": requests,
		"total":    total,
		"limit":    page.Limit,
		"offset":   page.Offset,
	})
}

// GetRequest handles GET /api/requests/:id
func (s *Server) GetRequest(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}

	request, err := s.requestService.Get(ctx, id)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(request)
}

// UpdateRequest handles PUT /api/requests/:id
func (s *Server) UpdateRequest(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}
	updatedBy, err := s.actingIdentity(c)
	if err != nil {
		return nil
	}

	var in service.RequestInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	request, err := s.requestService.Update(ctx, id, in, updatedBy)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(request)
}

// GetDashboard handles GET /api/requests/dashboard
func (s *Server) GetDashboard(c *fiber.Ctx) error {
	ctx := c.Context()
	counts, err := s.requestService.Dashboard(ctx)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(fiber.Map{"counts": counts})
}

// GetRequestAuditLog handles GET /api/requests/:id/audit
func (s *Server) GetRequestAuditLog(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 50)

	entries, total, err := s.auditRecorder.List(ctx, repository.AuditFilter{
		EntityType: string(models.AuditEntityRequest),
		EntityID:   id,
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}

	return c.JSON(fiber.Map{
		"entries": entries,
		"total":   total,
	})
}
