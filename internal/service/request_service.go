package service

import (
	"context"
	"strings"
	"time"

	"partrack/internal/models"
	"partrack/internal/repository"
)

// RequestInput carries the editable fields of a PAR request.
type RequestInput struct {
	RequestType      models.RequestType      `json:"request_type"`
	EmploymentType   models.EmploymentType   `json:"employment_type"`
	PositionDuration models.PositionDuration `json:"position_duration"`
	PositionID       *string                 `json:"position_id"`
	LocationID       *string                 `json:"location_id"`
	FundLineID       *string                 `json:"fund_line_id"`
	NewEmployeeName  string                  `json:"new_employee_name"`
	StartDate        *time.Time              `json:"start_date"`
	ReplacedPerson   string                  `json:"replaced_person"`
	Notes            string                  `json:"notes"`
}

// RequestService handles the descriptive side of a request's life: creation
// with job identifier allocation, edits with field-level audit diffs, and
// listings. Status transitions belong to the WorkflowService.
type RequestService struct {
	repo      repository.RequestRepository
	dropdowns repository.DropdownRepository
	allocator *JobIDAllocator
	audit     *AuditRecorder
}

// NewRequestService returns a RequestService.
func NewRequestService(repo repository.RequestRepository, dropdowns repository.DropdownRepository, allocator *JobIDAllocator, audit *AuditRecorder) *RequestService {
	return &RequestService{repo: repo, dropdowns: dropdowns, allocator: allocator, audit: audit}
}

func (s *RequestService) validate(ctx context.Context, in RequestInput) error {
	switch in.RequestType {
	case models.RequestTypeNew, models.RequestTypeReplacement:
	default:
		return models.NewValidationError("Invalid request type")
	}
	switch in.EmploymentType {
	case models.EmploymentTypeFullTime, models.EmploymentTypePartTime:
	default:
		return models.NewValidationError("Invalid employment type")
	}
	switch in.PositionDuration {
	case models.PositionDurationTemporary, models.PositionDurationRegular:
	default:
		return models.NewValidationError("Invalid position duration")
	}
	if in.RequestType == models.RequestTypeReplacement && strings.TrimSpace(in.ReplacedPerson) == "" {
		return models.NewValidationError("Replaced person is required for replacement requests")
	}

	if err := s.checkOption(ctx, models.DropdownCategoryPosition, in.PositionID); err != nil {
		return err
	}
	if err := s.checkOption(ctx, models.DropdownCategoryLocation, in.LocationID); err != nil {
		return err
	}
	return s.checkOption(ctx, models.DropdownCategoryFundLine, in.FundLineID)
}

// checkOption verifies a referenced dropdown option exists and belongs to the
// expected category.
func (s *RequestService) checkOption(ctx context.Context, slug string, id *string) error {
	if id == nil || *id == "" {
		return nil
	}
	option, err := s.dropdowns.GetOption(ctx, *id)
	if err != nil {
		return err
	}
	category, err := s.dropdowns.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if option.CategoryID != category.ID {
		return models.NewValidationError("Option does not belong to the " + slug + " category")
	}
	return nil
}

func applyInput(request *models.Request, in RequestInput) {
	request.RequestType = in.RequestType
	request.EmploymentType = in.EmploymentType
	request.PositionDuration = in.PositionDuration
	request.PositionID = in.PositionID
	request.LocationID = in.LocationID
	request.FundLineID = in.FundLineID
	request.NewEmployeeName = strings.TrimSpace(in.NewEmployeeName)
	request.StartDate = in.StartDate
	request.ReplacedPerson = strings.TrimSpace(in.ReplacedPerson)
	request.Notes = in.Notes
}

// trackedFields snapshots the audited fields of a request for diffing.
func trackedFields(r *models.Request) map[string]any {
	return map[string]any{
		"request_type":      r.RequestType,
		"employment_type":   r.EmploymentType,
		"position_duration": r.PositionDuration,
		"position_id":       r.PositionID,
		"location_id":       r.LocationID,
		"fund_line_id":      r.FundLineID,
		"new_employee_name": r.NewEmployeeName,
		"start_date":        r.StartDate,
		"replaced_person":   r.ReplacedPerson,
		"notes":             r.Notes,
	}
}

// Create allocates a job identifier and persists a new DRAFT request.
func (s *RequestService) Create(ctx context.Context, in RequestInput, createdBy string) (*models.Request, error) {
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}

	jobID, err := s.allocator.Allocate(ctx)
	if err != nil {
		return nil, err
	}

	request := &models.Request{
		JobID:  jobID,
		Status: models.RequestStatusDraft,
	}
	applyInput(request, in)
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		EntityType: models.AuditEntityRequest,
		EntityID:   request.ID,
		Action:     models.AuditActionCreated,
		ChangedBy:  createdBy,
		Metadata:   map[string]any{"job_id": jobID},
	})
	return s.repo.GetByID(ctx, request.ID)
}

// Update edits a request's descriptive fields and records a field-level diff.
// Terminal requests are immutable.
func (s *RequestService) Update(ctx context.Context, id string, in RequestInput, updatedBy string) (*models.Request, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch request.Status {
	case models.RequestStatusApproved, models.RequestStatusCancelled:
		return nil, models.NewInvalidStateError("Request cannot be edited in status " + string(request.Status))
	}
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}

	before := trackedFields(request)
	applyInput(request, in)
	if err := s.repo.Save(ctx, request); err != nil {
		return nil, err
	}

	if changes := ComputeChanges(before, trackedFields(request)); changes != nil {
		s.audit.Record(ctx, AuditEntry{
			EntityType: models.AuditEntityRequest,
			EntityID:   request.ID,
			Action:     models.AuditActionUpdated,
			ChangedBy:  updatedBy,
			Changes:    changes,
		})
	}
	return s.repo.GetByID(ctx, request.ID)
}

// Get returns a request with its full chain.
func (s *RequestService) Get(ctx context.Context, id string) (*models.Request, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns requests matching the filter plus a total count.
func (s *RequestService) List(ctx context.Context, filter repository.RequestFilter) ([]models.Request, int64, error) {
	return s.repo.List(ctx, filter)
}

// Dashboard summarizes request counts by status.
func (s *RequestService) Dashboard(ctx context.Context) (map[models.RequestStatus]int64, error) {
	return s.repo.CountByStatus(ctx)
}
