package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/cafe-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cafe-backend/pkg/errors"
)

const (
	MinQuantity = 1
	MaxQuantity = 99
)

// Service exposes the customer's cart operations. Every call is scoped to
// the user id passed in.
type Service interface {
	Add(ctx context.Context, userID uuid.UUID, input AddInput) (*LineDTO, error)
	UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*LineDTO, error)
	Remove(ctx context.Context, userID, lineID uuid.UUID) error
	ClearAll(ctx context.Context, userID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) (*Summary, error)
}

// AddInput names the item to add. A nil Quantity means one.
type AddInput struct {
	ItemID   uuid.UUID
	Quantity *int
}

type service struct {
	repo  CartRepository
	items itemLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, items itemLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if items == nil {
		return nil, fmt.Errorf("item loader required")
	}
	return &service{repo: repo, items: items}, nil
}

func (s *service) Add(ctx context.Context, userID uuid.UUID, input AddInput) (*LineDTO, error) {
	quantity := MinQuantity
	if input.Quantity != nil {
		quantity = *input.Quantity
	}
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}

	item, err := s.items.FindItemByID(ctx, input.ItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load item")
	}

	stored, err := s.repo.UpsertLine(ctx, &models.CartLine{
		UserID:   userID,
		ItemID:   item.ID,
		Quantity: quantity,
		Price:    item.Price,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: upsert cart line")
	}
	stored.Item = item
	dto := FromLineModel(stored)
	return &dto, nil
}

func (s *service) UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*LineDTO, error) {
	line, err := s.ownedLine(ctx, userID, lineID)
	if err != nil {
		return nil, err
	}
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateQuantity(ctx, line.ID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update cart line")
	}
	line.Quantity = quantity
	dto := FromLineModel(line)
	return &dto, nil
}

func (s *service) Remove(ctx context.Context, userID, lineID uuid.UUID) error {
	line, err := s.ownedLine(ctx, userID, lineID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteLine(ctx, line.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete cart line")
	}
	return nil
}

func (s *service) ClearAll(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.repo.DeleteByUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear cart")
	}
	return nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	lines, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list cart")
	}
	summary := Summarize(lines)
	return &summary, nil
}

func (s *service) ownedLine(ctx context.Context, userID, lineID uuid.UUID) (*models.CartLine, error) {
	line, err := s.repo.FindLineByID(ctx, lineID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart line")
	}
	if line.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart line belongs to another user")
	}
	return line, nil
}

func validateQuantity(quantity int) error {
	if quantity < MinQuantity || quantity > MaxQuantity {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid quantity").
			WithDetails(map[string]string{"quantity": fmt.Sprintf("must be between %d and %d", MinQuantity, MaxQuantity)})
	}
	return nil
}
