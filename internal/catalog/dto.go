package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cafe-backend/pkg/db/models"
)

// CategoryDTO is the API view of a category. Items is only populated on the
// storefront menu; ItemCount only on the admin listing.
type CategoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Icon        string    `json:"icon"`
	IsAvailable bool      `json:"is_available"`
	ItemCount   *int64    `json:"items_count,omitempty"`
	Items       []ItemDTO `json:"items,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CategoryRefDTO is the short category embedded in item payloads.
type CategoryRefDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Icon string    `json:"icon"`
}

// ItemDTO is the API view of a menu item.
type ItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	CategoryID  uuid.UUID       `json:"category_id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Image       *string         `json:"image,omitempty"`
	Category    *CategoryRefDTO `json:"category,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func FromCategoryModel(m *models.Category) CategoryDTO {
	dto := CategoryDTO{
		ID:          m.ID,
		Name:        m.Name,
		Icon:        m.Icon,
		IsAvailable: m.IsAvailable,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if len(m.Items) > 0 {
		dto.Items = make([]ItemDTO, 0, len(m.Items))
		for i := range m.Items {
			dto.Items = append(dto.Items, FromItemModel(&m.Items[i]))
		}
	}
	return dto
}

func FromItemModel(m *models.Item) ItemDTO {
	dto := ItemDTO{
		ID:          m.ID,
		CategoryID:  m.CategoryID,
		Name:        m.Name,
		Description: m.Description,
		Price:       m.Price,
		Image:       m.Image,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.Category != nil {
		dto.Category = &CategoryRefDTO{
			ID:   m.Category.ID,
			Name: m.Category.Name,
			Icon: m.Category.Icon,
		}
	}
	return dto
}
