package checkout

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/cafe-backend/internal/cart"
	"github.com/angelmondragon/cafe-backend/internal/orders"
	"github.com/angelmondragon/cafe-backend/pkg/db"
	"github.com/angelmondragon/cafe-backend/pkg/db/models"
	"github.com/angelmondragon/cafe-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cafe-backend/pkg/errors"
	"github.com/angelmondragon/cafe-backend/pkg/logger"
	"github.com/angelmondragon/cafe-backend/pkg/metrics"
	"github.com/angelmondragon/cafe-backend/pkg/outbox"
	"github.com/angelmondragon/cafe-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/cafe-backend/pkg/types"
)

const (
	maxOrderNumberAttempts = 5
	unknownItemName        = "Unknown item"

	maxCustomerNameLen  = 255
	maxCustomerPhoneLen = 20
	maxNotesLen         = 500
)

// Service converts a customer's cart into an order.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*orders.OrderDTO, error)
	Preview(ctx context.Context, userID uuid.UUID) (*cart.Summary, error)
}

// PlaceOrderInput carries the contact details captured at checkout.
type PlaceOrderInput struct {
	CustomerName  string
	CustomerPhone string
	Notes         *string
}

// ServiceParams wires the checkout service.
type ServiceParams struct {
	Tx              db.TxRunner
	Carts           cart.CartRepository
	Orders          orders.Repository
	Outbox          outbox.Emitter
	Logger          *logger.Logger
	Metrics         *metrics.OrderMetrics
	NumberGenerator NumberGenerator
}

type service struct {
	tx        db.TxRunner
	carts     cart.CartRepository
	orders    orders.Repository
	outbox    outbox.Emitter
	logg      *logger.Logger
	metrics   *metrics.OrderMetrics
	newNumber NumberGenerator
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	gen := params.NumberGenerator
	if gen == nil {
		gen = GenerateOrderNumber
	}
	return &service{
		tx:        params.Tx,
		carts:     params.Carts,
		orders:    params.Orders,
		outbox:    params.Outbox,
		logg:      params.Logger,
		metrics:   params.Metrics,
		newNumber: gen,
	}, nil
}

func (s *service) Preview(ctx context.Context, userID uuid.UUID) (*cart.Summary, error) {
	lines, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list cart")
	}
	summary := cart.Summarize(lines)
	if len(summary.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}
	return &summary, nil
}

// PlaceOrder runs as a single transaction: order row, frozen lines, cart
// purge and the order_created event commit together or not at all.
func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*orders.OrderDTO, error) {
	info, notes, err := normalizeInput(input)
	if err != nil {
		return nil, err
	}

	var placed *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.carts.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		lines, err := cartRepo.ListByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}

		order := &models.Order{
			UserID:       userID,
			TotalAmount:  cartTotal(lines),
			Status:       enums.OrderStatusPending,
			CustomerInfo: info,
			Notes:        notes,
		}
		if err := s.insertWithUniqueNumber(ctx, tx, order); err != nil {
			return err
		}

		items := buildOrderItems(order.ID, lines)
		if err := ordersRepo.CreateOrderItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create order items")
		}

		if _, err := cartRepo.DeleteByUser(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear cart")
		}

		if err := s.emitOrderCreated(ctx, tx, order, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created event")
		}

		order.Items = items
		placed = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObservePlaced(placed.TotalAmount)
	logCtx := s.logg.WithUserID(ctx, userID.String())
	logCtx = s.logg.WithOrderNumber(logCtx, placed.OrderNumber)
	logCtx = s.logg.WithField(logCtx, "total_amount", placed.TotalAmount.StringFixed(2))
	s.logg.Info(logCtx, "order.placed")

	dto := orders.FromOrderModel(placed)
	return &dto, nil
}

// insertWithUniqueNumber inserts the order inside a savepoint so an
// order_number collision can be rolled back and retried without aborting
// the outer transaction.
func (s *service) insertWithUniqueNumber(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		number, err := s.newNumber()
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}
		order.OrderNumber = number

		err = tx.Transaction(func(sp *gorm.DB) error {
			return s.orders.WithTx(sp).CreateOrder(ctx, order)
		})
		if err == nil {
			return nil
		}
		if !db.IsUniqueViolation(err, "order_number") {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create order")
		}
		s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "order number collision, regenerating")
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique order number")
}

func (s *service) emitOrderCreated(ctx context.Context, tx *gorm.DB, order *models.Order, items []models.OrderItem) error {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: order.UserID, Role: string(enums.UserRoleCustomer)},
		Data: payloads.OrderCreatedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			TotalAmount: order.TotalAmount,
			ItemCount:   count,
			Status:      order.Status,
		},
	})
}

func cartTotal(lines []models.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

func buildOrderItems(orderID uuid.UUID, lines []models.CartLine) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		name := unknownItemName
		if line.Item != nil && line.Item.Name != "" {
			name = line.Item.Name
		}
		items = append(items, models.OrderItem{
			OrderID:  orderID,
			ItemID:   line.ItemID,
			ItemName: name,
			Quantity: line.Quantity,
			Price:    line.Price,
			Total:    line.LineTotal(),
		})
	}
	return items
}

func normalizeInput(input PlaceOrderInput) (types.CustomerInfo, *string, error) {
	info := types.CustomerInfo{Name: input.CustomerName, Phone: input.CustomerPhone}.Normalize()
	details := map[string]string{}

	switch {
	case info.Name == "":
		details["customer_name"] = "required"
	case utf8.RuneCountInString(info.Name) > maxCustomerNameLen:
		details["customer_name"] = fmt.Sprintf("must be at most %d characters", maxCustomerNameLen)
	}
	switch {
	case info.Phone == "":
		details["customer_phone"] = "required"
	case utf8.RuneCountInString(info.Phone) > maxCustomerPhoneLen:
		details["customer_phone"] = fmt.Sprintf("must be at most %d characters", maxCustomerPhoneLen)
	}

	var notes *string
	if input.Notes != nil {
		trimmed := strings.TrimSpace(*input.Notes)
		if utf8.RuneCountInString(trimmed) > maxNotesLen {
			details["notes"] = fmt.Sprintf("must be at most %d characters", maxNotesLen)
		}
		if trimmed != "" {
			notes = &trimmed
		}
	}

	if len(details) > 0 {
		return types.CustomerInfo{}, nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid checkout details").WithDetails(details)
	}
	return info, notes, nil
}
