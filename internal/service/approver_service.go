package service

import (
	"context"
	"strings"

	"partrack/internal/models"
	"partrack/internal/repository"
)

// ApproverInput carries the editable fields of a chain approver.
type ApproverInput struct {
	Name     string  `json:"name"`
	Title    string  `json:"title"`
	Email    *string `json:"email"`
	IsActive *bool   `json:"is_active"`
}

// DelegateInput carries the fields of a new delegate.
type DelegateInput struct {
	DelegateName  string  `json:"delegate_name"`
	DelegateEmail *string `json:"delegate_email"`
}

// ApproverService manages the approval chain roster and its delegates.
// Roster changes only affect future chain materializations; chains already
// bound to a request keep their snapshot.
type ApproverService struct {
	repo  repository.ApproverRepository
	audit *AuditRecorder
}

// NewApproverService returns an ApproverService.
func NewApproverService(repo repository.ApproverRepository, audit *AuditRecorder) *ApproverService {
	return &ApproverService{repo: repo, audit: audit}
}

// List returns the full roster in chain order, inactive approvers included.
func (s *ApproverService) List(ctx context.Context) ([]models.Approver, error) {
	return s.repo.ListAll(ctx)
}

// ListActive returns the roster a submission would snapshot right now.
func (s *ApproverService) ListActive(ctx context.Context) ([]models.Approver, error) {
	return s.repo.ListActive(ctx)
}

// Get returns one approver with delegates.
func (s *ApproverService) Get(ctx context.Context, id string) (*models.Approver, error) {
	return s.repo.GetByID(ctx, id)
}

// Create appends a new approver to the end of the chain.
func (s *ApproverService) Create(ctx context.Context, in ApproverInput, createdBy string) (*models.Approver, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.NewValidationError("Approver name is required")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, models.NewValidationError("Approver title is required")
	}

	maxOrder, err := s.repo.MaxSortOrder(ctx)
	if err != nil {
		return nil, err
	}

	approver := &models.Approver{
		Name:      name,
		Title:     title,
		Email:     in.Email,
		SortOrder: maxOrder + 1,
		IsActive:  true,
	}
	if in.IsActive != nil {
		approver.IsActive = *in.IsActive
	}
	if err := s.repo.Create(ctx, approver); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		EntityType: models.AuditEntityApprover,
		EntityID:   approver.ID,
		Action:     models.AuditActionCreated,
		ChangedBy:  createdBy,
		Metadata:   map[string]any{"name": approver.Name, "sort_order": approver.SortOrder},
	})
	return approver, nil
}

// Update edits an approver's details or active flag, recording a diff.
func (s *ApproverService) Update(ctx context.Context, id string, in ApproverInput, updatedBy string) (*models.Approver, error) {
	approver, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	before := map[string]any{
		"name":      approver.Name,
		"title":     approver.Title,
		"email":     approver.Email,
		"is_active": approver.IsActive,
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		approver.Name = name
	}
	if title := strings.TrimSpace(in.Title); title != "" {
		approver.Title = title
	}
	if in.Email != nil {
		approver.Email = in.Email
	}
	if in.IsActive != nil {
		approver.IsActive = *in.IsActive
	}
	if err := s.repo.Save(ctx, approver); err != nil {
		return nil, err
	}

	after := map[string]any{
		"name":      approver.Name,
		"title":     approver.Title,
		"email":     approver.Email,
		"is_active": approver.IsActive,
	}
	if changes := ComputeChanges(before, after); changes != nil {
		s.audit.Record(ctx, AuditEntry{
			EntityType: models.AuditEntityApprover,
			EntityID:   approver.ID,
			Action:     models.AuditActionUpdated,
			ChangedBy:  updatedBy,
			Changes:    changes,
		})
	}
	return approver, nil
}

// Reorder rewrites the chain order. Every approver must appear exactly once.
func (s *ApproverService) Reorder(ctx context.Context, orderedIDs []string, updatedBy string) ([]models.Approver, error) {
	if len(orderedIDs) == 0 {
		return nil, models.NewValidationError("Ordered approver IDs are required")
	}
	seen := make(map[string]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if seen[id] {
			return nil, models.NewValidationError("Duplicate approver ID in ordering")
		}
		seen[id] = true
	}

	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) != len(orderedIDs) {
		return nil, models.NewValidationError("Ordering must include every approver exactly once")
	}
	for _, approver := range all {
		if !seen[approver.ID] {
			return nil, models.NewValidationError("Ordering must include every approver exactly once")
		}
	}

	if err := s.repo.SetSortOrders(ctx, orderedIDs); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		EntityType: models.AuditEntityApprover,
		EntityID:   "chain",
		Action:     models.AuditActionUpdated,
		ChangedBy:  updatedBy,
		Metadata:   map[string]any{"order": orderedIDs},
	})
	return s.repo.ListAll(ctx)
}

// AddDelegate registers a delegate authorized to act for the approver.
func (s *ApproverService) AddDelegate(ctx context.Context, approverID string, in DelegateInput, createdBy string) (*models.ApproverDelegate, error) {
	name := strings.TrimSpace(in.DelegateName)
	if name == "" {
		return nil, models.NewValidationError("Delegate name is required")
	}

	approver, err := s.repo.GetByID(ctx, approverID)
	if err != nil {
		return nil, err
	}

	delegate := &models.ApproverDelegate{
		ApproverID:    approver.ID,
		DelegateName:  name,
		DelegateEmail: in.DelegateEmail,
		IsActive:      true,
	}
	if err := s.repo.CreateDelegate(ctx, delegate); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		EntityType: models.AuditEntityApproverDelegate,
		EntityID:   delegate.ID,
		Action:     models.AuditActionCreated,
		ChangedBy:  createdBy,
		Metadata:   map[string]any{"approver": approver.Name, "delegate": name},
	})
	return delegate, nil
}

// RemoveDelegate revokes a delegate. Past actions keep the frozen acting name
// on their steps.
func (s *ApproverService) RemoveDelegate(ctx context.Context, delegateID, removedBy string) error {
	delegate, err := s.repo.GetDelegate(ctx, delegateID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteDelegate(ctx, delegateID); err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{
		EntityType: models.AuditEntityApproverDelegate,
		EntityID:   delegateID,
		Action:     models.AuditActionDeleted,
		ChangedBy:  removedBy,
		Metadata:   map[string]any{"delegate": delegate.DelegateName},
	})
	return nil
}
