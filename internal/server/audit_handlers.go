package server

import (
	"partrack/internal/models"
	"partrack/internal/repository"

	"github.com/gofiber/fiber/v2"
)

// GetAuditLog handles GET /api/audit
// Admin-only listing across all entity types.
func (s *Server) GetAuditLog(c *fiber.Ctx) error {
	ctx := c.Context()
	page := parsePagination(c, 50)

	entries, total, err := s.auditRecorder.List(ctx, repository.AuditFilter{
		EntityType: c.Query("entity_type"),
		EntityID:   c.Query("entity_id"),
		Action:     c.Query("action"),
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}

	return c.JSON(fiber.Map{
		"entries": entries,
		"total":   total,
		"limit":   page.Limit,
		"offset":  page.Offset,
	})
}
