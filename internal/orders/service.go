package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/cafe-backend/pkg/db"
	"github.com/angelmondragon/cafe-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cafe-backend/pkg/errors"
	"github.com/angelmondragon/cafe-backend/pkg/logger"
	"github.com/angelmondragon/cafe-backend/pkg/metrics"
	"github.com/angelmondragon/cafe-backend/pkg/outbox"
	"github.com/angelmondragon/cafe-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/cafe-backend/pkg/pagination"
)

// Service exposes order reads and the staff status workflow.
type Service interface {
	GetOrderByNumber(ctx context.Context, userID uuid.UUID, orderNumber string) (*OrderDTO, error)
	SetStatus(ctx context.Context, input SetStatusInput) (*OrderDTO, error)
	ListOrders(ctx context.Context, params pagination.PageParams) (*OrderList, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*UserOrderList, error)
	Stats(ctx context.Context, now time.Time, loc *time.Location) (*Stats, error)
}

// SetStatusInput carries a staff status change.
type SetStatusInput struct {
	OrderID     uuid.UUID
	Status      string
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo    Repository
	Tx      db.TxRunner
	Outbox  outbox.Emitter
	Logger  *logger.Logger
	Metrics *metrics.OrderMetrics
	Now     func() time.Time
}

type service struct {
	repo    Repository
	tx      db.TxRunner
	outbox  outbox.Emitter
	logg    *logger.Logger
	metrics *metrics.OrderMetrics
	now     func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		outbox:  params.Outbox,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

// GetOrderByNumber never distinguishes "not yours" from "missing".
func (s *service) GetOrderByNumber(ctx context.Context, userID uuid.UUID, orderNumber string) (*OrderDTO, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	order, err := s.repo.FindByNumberForUser(ctx, userID, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	dto := FromOrderModel(order)
	return &dto, nil
}

func (s *service) SetStatus(ctx context.Context, input SetStatusInput) (*OrderDTO, error) {
	status, err := enums.ParseOrderStatus(strings.TrimSpace(input.Status))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status").
			WithDetails(map[string]string{"status": "must be one of pending, confirmed, preparing, ready, completed, cancelled"})
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	var (
		previous enums.OrderStatus
		result   *OrderDTO
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.LockByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lock order")
		}
		previous = order.Status

		now := s.now().UTC()
		updates := map[string]any{"status": status, "updated_at": now}
		switch status {
		case enums.OrderStatusConfirmed:
			if order.ConfirmedAt == nil {
				updates["confirmed_at"] = now
			}
		case enums.OrderStatusCompleted:
			if order.CompletedAt == nil {
				updates["completed_at"] = now
			}
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update order status")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				UserID:         order.UserID,
				PreviousStatus: previous,
				Status:         status,
				ChangedAt:      now,
			},
			OccurredAt: now,
		}
		if input.ActorUserID != uuid.Nil {
			event.Actor = &outbox.ActorRef{UserID: input.ActorUserID, Role: string(input.ActorRole)}
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order status event")
		}

		updated, err := repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload order")
		}
		dto := FromOrderModel(updated)
		result = &dto
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(string(previous), string(status))
	logCtx := s.logg.WithOrderNumber(ctx, result.OrderNumber)
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"previous_status": previous,
		"status":          status,
	})
	s.logg.Info(logCtx, "order.status_changed")
	return result, nil
}

func (s *service) ListOrders(ctx context.Context, params pagination.PageParams) (*OrderList, error) {
	params = params.Normalize()
	rows, total, err := s.repo.ListOrders(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list orders")
	}
	return &OrderList{
		Orders: fromOrderModels(rows),
		Meta:   pagination.BuildMeta(params, total),
	}, nil
}

func (s *service) ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*UserOrderList, error) {
	rows, next, err := s.repo.ListUserOrders(ctx, userID, params)
	if errors.Is(err, pagination.ErrInvalidCursor) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").
			WithDetails(map[string]string{"cursor": "malformed"})
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list user orders")
	}
	return &UserOrderList{Orders: fromOrderModels(rows), NextCursor: next}, nil
}

// Stats counts orders created since local midnight of now, pending orders,
// and revenue from completed orders.
func (s *service) Stats(ctx context.Context, now time.Time, loc *time.Location) (*Stats, error) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	today, err := s.repo.CountCreatedSince(ctx, midnight)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count today orders")
	}
	pending, err := s.repo.CountByStatus(ctx, enums.OrderStatusPending)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count pending orders")
	}
	revenue, err := s.repo.SumTotalByStatus(ctx, enums.OrderStatusCompleted)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: sum revenue")
	}
	return &Stats{TodayOrders: today, PendingOrders: pending, TotalRevenue: revenue}, nil
}
