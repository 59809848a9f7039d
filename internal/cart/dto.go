package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cafe-backend/internal/catalog"
	"github.com/angelmondragon/cafe-backend/pkg/db/models"
)

// LineDTO is one cart line with its derived total.
type LineDTO struct {
	ID        uuid.UUID        `json:"id"`
	ItemID    uuid.UUID        `json:"item_id"`
	Quantity  int              `json:"quantity"`
	Price     decimal.Decimal  `json:"price"`
	Total     decimal.Decimal  `json:"total"`
	Item      *catalog.ItemDTO `json:"item,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// Summary is the cart as shown to the customer.
type Summary struct {
	Lines     []LineDTO       `json:"items"`
	CartTotal decimal.Decimal `json:"cart_total"`
	CartCount int             `json:"cart_count"`
}

func FromLineModel(m *models.CartLine) LineDTO {
	dto := LineDTO{
		ID:        m.ID,
		ItemID:    m.ItemID,
		Quantity:  m.Quantity,
		Price:     m.Price,
		Total:     m.LineTotal(),
		CreatedAt: m.CreatedAt,
	}
	if m.Item != nil {
		item := catalog.FromItemModel(m.Item)
		dto.Item = &item
	}
	return dto
}

// Summarize derives line totals, cart_total and cart_count. Lines whose item
// no longer exists are left out.
func Summarize(lines []models.CartLine) Summary {
	summary := Summary{
		Lines:     make([]LineDTO, 0, len(lines)),
		CartTotal: decimal.Zero,
	}
	for i := range lines {
		if lines[i].Item == nil {
			continue
		}
		dto := FromLineModel(&lines[i])
		summary.Lines = append(summary.Lines, dto)
		summary.CartTotal = summary.CartTotal.Add(dto.Total)
		summary.CartCount += dto.Quantity
	}
	return summary
}
