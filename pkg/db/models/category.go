package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultCategoryIcon is used when a category is created without an icon.
const DefaultCategoryIcon = "📦"

// Category groups menu items and controls their storefront visibility.
type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"column:name;not null;uniqueIndex:ux_categories_name"`
	Icon        string    `gorm:"column:icon;not null"`
	IsAvailable bool      `gorm:"column:is_available;not null"`
	Items       []Item    `gorm:"foreignKey:CategoryID"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}
