// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"partrack/internal/models"

	"gorm.io/gorm"
)

// RequestFilter narrows request listings.
type RequestFilter struct {
	Status string
	Search string
	Limit  int
	Offset int
}

// RequestRepository defines persistence operations for PAR requests.
type RequestRepository interface {
	GetByID(ctx context.Context, id string) (*models.Request, error)
	List(ctx context.Context, filter RequestFilter) ([]models.Request, int64, error)
	Create(ctx context.Context, request *models.Request) error
	Save(ctx context.Context, request *models.Request) error
	CountByStatus(ctx context.Context) (map[models.RequestStatus]int64, error)
}

type requestRepository struct {
	db *gorm.DB
}

// NewRequestRepository returns a new RequestRepository implementation.
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

// withChain preloads the materialized chain with live approver references,
// ordered by step position.
func withChain(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Position").
		Preload("Location").
		Preload("FundLine").
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_order ASC")
		}).
		Preload("Steps.Approver").
		Preload("Steps.Approver.Delegates")
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*models.Request, error) {
	var request models.Request
	if err := withChain(r.db.WithContext(ctx)).First(&request, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Request", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &request, nil
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter) ([]models.Request, int64, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 25
	}
	if limit > 100 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := r.db.WithContext(ctx).Model(&models.Request{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(job_id) LIKE ? OR LOWER(submitted_by) LIKE ? OR LOWER(new_employee_name) LIKE ? OR LOWER(replaced_person) LIKE ? OR LOWER(notes) LIKE ?",
			like, like, like, like, like,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var requests []models.Request
	if err := withChain(query).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&requests).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return requests, total, nil
}

func (r *requestRepository) Create(ctx context.Context, request *models.Request) error {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *requestRepository) Save(ctx context.Context, request *models.Request) error {
	if err := r.db.WithContext(ctx).Save(request).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *requestRepository) CountByStatus(ctx context.Context) (map[models.RequestStatus]int64, error) {
	type row struct {
		Status models.RequestStatus
		Total  int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	out := make(map[models.RequestStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}
