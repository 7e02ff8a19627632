package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Canonical dropdown category slugs referenced by requests.
const (
	DropdownCategoryPosition = "position"
	DropdownCategoryLocation = "location"
	DropdownCategoryFundLine = "fund_line"
)

// DropdownCategory groups selectable options (position, location, fund line).
type DropdownCategory struct {
	ID   string `gorm:"primaryKey;size:36" json:"id"`
	Slug string `gorm:"size:60;uniqueIndex;not null" json:"slug"`
	Name string `gorm:"size:120;not null" json:"name"`

	Options []DropdownOption `gorm:"foreignKey:CategoryID" json:"options,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (c *DropdownCategory) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// DropdownOption is a single selectable value within a category. Options are
// soft-deactivated so historical requests keep resolving their references.
type DropdownOption struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	CategoryID string `gorm:"size:36;not null;index" json:"category_id"`
	Label      string `gorm:"size:200;not null" json:"label"`
	SortOrder  int    `gorm:"not null" json:"sort_order"`
	IsActive   bool   `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (o *DropdownOption) BeforeCreate(_ *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}
