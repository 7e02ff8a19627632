package repository

import (
	"context"
	"errors"

	"partrack/internal/cache"
	"partrack/internal/models"

	"gorm.io/gorm"
)

// DropdownRepository defines persistence operations for dropdown categories and options.
type DropdownRepository interface {
	ListCategories(ctx context.Context) ([]models.DropdownCategory, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*models.DropdownCategory, error)
	CreateCategory(ctx context.Context, category *models.DropdownCategory) error
	OptionsForCategory(ctx context.Context, slug string) ([]models.DropdownOption, error)
	GetOption(ctx context.Context, id string) (*models.DropdownOption, error)
	CreateOption(ctx context.Context, slug string, option *models.DropdownOption) error
	SaveOption(ctx context.Context, slug string, option *models.DropdownOption) error
}

type dropdownRepository struct {
	db *gorm.DB
}

// NewDropdownRepository returns a new DropdownRepository implementation.
func NewDropdownRepository(db *gorm.DB) DropdownRepository {
	return &dropdownRepository{db: db}
}

func (r *dropdownRepository) ListCategories(ctx context.Context) ([]models.DropdownCategory, error) {
	var categories []models.DropdownCategory
	if err := r.db.WithContext(ctx).Order("slug ASC").Find(&categories).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return categories, nil
}

func (r *dropdownRepository) GetCategoryBySlug(ctx context.Context, slug string) (*models.DropdownCategory, error) {
	var category models.DropdownCategory
	if err := r.db.WithContext(ctx).First(&category, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Dropdown category", slug)
		}
		return nil, models.NewInternalError(err)
	}
	return &category, nil
}

func (r *dropdownRepository) CreateCategory(ctx context.Context, category *models.DropdownCategory) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// OptionsForCategory returns active options through the cache; admin writes
// invalidate the category key.
func (r *dropdownRepository) OptionsForCategory(ctx context.Context, slug string) ([]models.DropdownOption, error) {
	var options []models.DropdownOption
	err := cache.Aside(ctx, cache.DropdownKey(slug), &options, cache.DropdownTTL, func() error {
		category, err := r.GetCategoryBySlug(ctx, slug)
		if err != nil {
			return err
		}
		if err := r.db.WithContext(ctx).
			Where("category_id = ? AND is_active = ?", category.ID, true).
			Order("sort_order ASC").
			Find(&options).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return options, nil
}

func (r *dropdownRepository) GetOption(ctx context.Context, id string) (*models.DropdownOption, error) {
	var option models.DropdownOption
	if err := r.db.WithContext(ctx).First(&option, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Dropdown option", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &option, nil
}

func (r *dropdownRepository) CreateOption(ctx context.Context, slug string, option *models.DropdownOption) error {
	if err := r.db.WithContext(ctx).Create(option).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateDropdown(ctx, slug)
	return nil
}

func (r *dropdownRepository) SaveOption(ctx context.Context, slug string, option *models.DropdownOption) error {
	if err := r.db.WithContext(ctx).Save(option).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateDropdown(ctx, slug)
	return nil
}
