package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/cafe-backend/pkg/enums"
	"github.com/angelmondragon/cafe-backend/pkg/types"
)

// Order is the immutable record of a checkout plus its mutable status.
type Order struct {
	ID           uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber  string             `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	UserID       uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	TotalAmount  decimal.Decimal    `gorm:"column:total_amount;type:numeric(10,2);not null"`
	Status       enums.OrderStatus  `gorm:"column:status;type:order_status_enum;not null"`
	CustomerInfo types.CustomerInfo `gorm:"column:customer_info;type:jsonb;serializer:json;not null"`
	Notes        *string            `gorm:"column:notes"`
	ConfirmedAt  *time.Time         `gorm:"column:confirmed_at"`
	CompletedAt  *time.Time         `gorm:"column:completed_at"`
	Items        []OrderItem        `gorm:"foreignKey:OrderID"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}
