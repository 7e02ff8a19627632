package server

import (
	"partrack/internal/models"
	"partrack/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetDropdownCategories handles GET /api/dropdowns
func (s *Server) GetDropdownCategories(c *fiber.Ctx) error {
	categories, err := s.dropdownService.Categories(c.Context())
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(categories)
}

// GetDropdownOptions handles GET /api/dropdowns/:slug/options
func (s *Server) GetDropdownOptions(c *fiber.Ctx) error {
	options, err := s.dropdownService.Options(c.Context(), c.Params("slug"))
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(options)
}

// CreateDropdownOption handles POST /api/dropdowns/:slug/options
func (s *Server) CreateDropdownOption(c *fiber.Ctx) error {
	ctx := c.Context()
	createdBy, err := s.actingIdentity(c)
	if err != nil {
		return nil
	}

	var in service.OptionInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	option, err := s.dropdownService.CreateOption(ctx, c.Params("slug"), in, createdBy)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(option)
}

// UpdateDropdownOption handles PUT /api/dropdowns/:slug/options/:optionId
func (s *Server) UpdateDropdownOption(c *fiber.Ctx) error {
	ctx := c.Context()
	optionID, err := s.parseUUID(c, "optionId")
	if err != nil {
		return nil
	}
	updatedBy, err := s.actingIdentity(c)
	if err != nil {
		return nil
	}

	var in service.OptionInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	option, err := s.dropdownService.UpdateOption(ctx, c.Params("slug"), optionID, in, updatedBy)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(option)
}
