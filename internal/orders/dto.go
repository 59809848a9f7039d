package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cafe-backend/pkg/db/models"
	"github.com/angelmondragon/cafe-backend/pkg/enums"
	"github.com/angelmondragon/cafe-backend/pkg/pagination"
	"github.com/angelmondragon/cafe-backend/pkg/types"
)

// OrderItemDTO is the frozen line captured at checkout.
type OrderItemDTO struct {
	ID       uuid.UUID       `json:"id"`
	ItemID   uuid.UUID       `json:"item_id"`
	ItemName string          `json:"item_name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Total    decimal.Decimal `json:"total"`
}

// OrderDTO is the API representation of an order, badge included.
type OrderDTO struct {
	ID           uuid.UUID          `json:"id"`
	OrderNumber  string             `json:"order_number"`
	UserID       uuid.UUID          `json:"user_id"`
	TotalAmount  decimal.Decimal    `json:"total_amount"`
	Status       enums.OrderStatus  `json:"status"`
	StatusBadge  enums.StatusBadge  `json:"status_badge"`
	CustomerInfo types.CustomerInfo `json:"customer_info"`
	Notes        *string            `json:"notes,omitempty"`
	ConfirmedAt  *time.Time         `json:"confirmed_at,omitempty"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty"`
	ItemCount    int                `json:"item_count"`
	Items        []OrderItemDTO     `json:"items"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// OrderList is a numbered page of orders for the admin dashboard.
type OrderList struct {
	Orders []OrderDTO      `json:"orders"`
	Meta   pagination.Meta `json:"meta"`
}

// UserOrderList is a cursor page of one customer's orders.
type UserOrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// Stats feeds the admin dashboard counters.
type Stats struct {
	TodayOrders   int64           `json:"today_orders"`
	PendingOrders int64           `json:"pending_orders"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}

func FromOrderModel(m *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:           m.ID,
		OrderNumber:  m.OrderNumber,
		UserID:       m.UserID,
		TotalAmount:  m.TotalAmount,
		Status:       m.Status,
		StatusBadge:  m.Status.Badge(),
		CustomerInfo: m.CustomerInfo,
		Notes:        m.Notes,
		ConfirmedAt:  m.ConfirmedAt,
		CompletedAt:  m.CompletedAt,
		Items:        make([]OrderItemDTO, 0, len(m.Items)),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	for _, item := range m.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:       item.ID,
			ItemID:   item.ItemID,
			ItemName: item.ItemName,
			Quantity: item.Quantity,
			Price:    item.Price,
			Total:    item.Total,
		})
		dto.ItemCount += item.Quantity
	}
	return dto
}

func fromOrderModels(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromOrderModel(&rows[i]))
	}
	return out
}
