package repository

import (
	"context"
	"errors"

	"partrack/internal/cache"
	"partrack/internal/models"

	"gorm.io/gorm"
)

// ApproverRepository defines persistence operations for the approval chain roster.
type ApproverRepository interface {
	GetByID(ctx context.Context, id string) (*models.Approver, error)
	ListAll(ctx context.Context) ([]models.Approver, error)
	ListActive(ctx context.Context) ([]models.Approver, error)
	Create(ctx context.Context, approver *models.Approver) error
	Save(ctx context.Context, approver *models.Approver) error
	MaxSortOrder(ctx context.Context) (int, error)
	SetSortOrders(ctx context.Context, orderedIDs []string) error
	GetDelegate(ctx context.Context, delegateID string) (*models.ApproverDelegate, error)
	CreateDelegate(ctx context.Context, delegate *models.ApproverDelegate) error
	DeleteDelegate(ctx context.Context, delegateID string) error
}

type approverRepository struct {
	db *gorm.DB
}

// NewApproverRepository returns a new ApproverRepository implementation.
func NewApproverRepository(db *gorm.DB) ApproverRepository {
	return &approverRepository{db: db}
}

func (r *approverRepository) GetByID(ctx context.Context, id string) (*models.Approver, error) {
	var approver models.Approver
	if err := r.db.WithContext(ctx).
		Preload("Delegates", func(db *gorm.DB) *gorm.DB {
			return db.Order("delegate_name ASC")
		}).
		First(&approver, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Approver", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &approver, nil
}

func (r *approverRepository) ListAll(ctx context.Context) ([]models.Approver, error) {
	var approvers []models.Approver
	if err := r.db.WithContext(ctx).
		Preload("Delegates", func(db *gorm.DB) *gorm.DB {
			return db.Order("delegate_name ASC")
		}).
		Order("sort_order ASC").
		Find(&approvers).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return approvers, nil
}

// ListActive serves the read endpoint through the cache; chain
// materialization never goes through here, it reads the roster inside its own
// transaction.
func (r *approverRepository) ListActive(ctx context.Context) ([]models.Approver, error) {
	var approvers []models.Approver
	err := cache.Aside(ctx, cache.RosterKey(), &approvers, cache.RosterTTL, func() error {
		if err := r.db.WithContext(ctx).
			Where("is_active = ?", true).
			Preload("Delegates", "is_active = ?", true).
			Order("sort_order ASC").
			Find(&approvers).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approvers, nil
}

func (r *approverRepository) Create(ctx context.Context, approver *models.Approver) error {
	if err := r.db.WithContext(ctx).Create(approver).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateRoster(ctx)
	return nil
}

func (r *approverRepository) Save(ctx context.Context, approver *models.Approver) error {
	if err := r.db.WithContext(ctx).Save(approver).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateRoster(ctx)
	return nil
}

func (r *approverRepository) MaxSortOrder(ctx context.Context) (int, error) {
	var max *int
	if err := r.db.WithContext(ctx).
		Model(&models.Approver{}).
		Select("MAX(sort_order)").
		Scan(&max).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// SetSortOrders rewrites the chain ordering in one transaction; position in
// the slice becomes the 1-based sort order.
func (r *approverRepository) SetSortOrders(ctx context.Context, orderedIDs []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range orderedIDs {
			res := tx.Model(&models.Approver{}).Where("id = ?", id).Update("sort_order", i+1)
			if res.Error != nil {
				return models.NewInternalError(res.Error)
			}
			if res.RowsAffected == 0 {
				return models.NewNotFoundError("Approver", id)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	cache.InvalidateRoster(ctx)
	return nil
}

func (r *approverRepository) GetDelegate(ctx context.Context, delegateID string) (*models.ApproverDelegate, error) {
	var delegate models.ApproverDelegate
	if err := r.db.WithContext(ctx).First(&delegate, "id = ?", delegateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Delegate", delegateID)
		}
		return nil, models.NewInternalError(err)
	}
	return &delegate, nil
}

func (r *approverRepository) CreateDelegate(ctx context.Context, delegate *models.ApproverDelegate) error {
	if err := r.db.WithContext(ctx).Create(delegate).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateRoster(ctx)
	return nil
}

// DeleteDelegate hard deletes; steps only ever store the acting display name,
// so removing a delegate cannot corrupt historical step records.
func (r *approverRepository) DeleteDelegate(ctx context.Context, delegateID string) error {
	res := r.db.WithContext(ctx).Delete(&models.ApproverDelegate{}, "id = ?", delegateID)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Delegate", delegateID)
	}
	cache.InvalidateRoster(ctx)
	return nil
}
