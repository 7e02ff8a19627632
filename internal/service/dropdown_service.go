package service

import (
	"context"
	"strings"

	"partrack/internal/models"
	"partrack/internal/repository"
)

// OptionInput carries the editable fields of a dropdown option.
type OptionInput struct {
	Label     string `json:"label"`
	SortOrder *int   `json:"sort_order"`
	IsActive  *bool  `json:"is_active"`
}

// DropdownService manages the selectable catalogs (position, location, fund
// line) that requests reference. Options are deactivated rather than deleted
// so existing requests keep resolving.
type DropdownService struct {
	repo  repository.DropdownRepository
	audit *AuditRecorder
}

// NewDropdownService returns a DropdownService.
func NewDropdownService(repo repository.DropdownRepository, audit *AuditRecorder) *DropdownService {
	return &DropdownService{repo: repo, audit: audit}
}

// Categories lists all dropdown categories.
func (s *DropdownService) Categories(ctx context.Context) ([]models.DropdownCategory, error) {
	return s.repo.ListCategories(ctx)
}

// Options lists the active options of one category, cheapest path first.
func (s *DropdownService) Options(ctx context.Context, slug string) ([]models.DropdownOption, error) {
	return s.repo.OptionsForCategory(ctx, slug)
}

// CreateOption adds an option to a category.
func (s *DropdownService) CreateOption(ctx context.Context, slug string, in OptionInput, createdBy string) (*models.DropdownOption, error) {
	label := strings.TrimSpace(in.Label)
	if label == "" {
		return nil, models.NewValidationError("Option label is required")
	}

	category, err := s.repo.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	option := &models.DropdownOption{
		CategoryID: category.ID,
		Label:      label,
		IsActive:   true,
	}
	if in.SortOrder != nil {
		option.SortOrder = *in.SortOrder
	}
	if in.IsActive != nil {
		option.IsActive = *in.IsActive
	}
	if err := s.repo.CreateOption(ctx, slug, option); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		EntityType: models.AuditEntityDropdownOption,
		EntityID:   option.ID,
		Action:     models.AuditActionCreated,
		ChangedBy:  createdBy,
		Metadata:   map[string]any{"category": slug, "label": label},
	})
	return option, nil
}

// UpdateOption edits an option's label, ordering or active flag.
func (s *DropdownService) UpdateOption(ctx context.Context, slug, id string, in OptionInput, updatedBy string) (*models.DropdownOption, error) {
	category, err := s.repo.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	option, err := s.repo.GetOption(ctx, id)
	if err != nil {
		return nil, err
	}
	if option.CategoryID != category.ID {
		return nil, models.NewNotFoundError("Dropdown option", id)
	}

	before := map[string]any{
		"label":      option.Label,
		"sort_order": option.SortOrder,
		"is_active":  option.IsActive,
	}

	if label := strings.TrimSpace(in.Label); label != "" {
		option.Label = label
	}
	if in.SortOrder != nil {
		option.SortOrder = *in.SortOrder
	}
	if in.IsActive != nil {
		option.IsActive = *in.IsActive
	}
	if err := s.repo.SaveOption(ctx, slug, option); err != nil {
		return nil, err
	}

	after := map[string]any{
		"label":      option.Label,
		"sort_order": option.SortOrder,
		"is_active":  option.IsActive,
	}
	if changes := ComputeChanges(before, after); changes != nil {
		s.audit.Record(ctx, AuditEntry{
			EntityType: models.AuditEntityDropdownOption,
			EntityID:   option.ID,
			Action:     models.AuditActionUpdated,
			ChangedBy:  updatedBy,
			Changes:    changes,
		})
	}
	return option, nil
}
