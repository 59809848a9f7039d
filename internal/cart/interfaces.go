package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/cafe-backend/pkg/db/models"
)

// CartRepository is the persistence surface used by the cart and checkout services.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	UpsertLine(ctx context.Context, line *models.CartLine) (*models.CartLine, error)
	FindLineByID(ctx context.Context, id uuid.UUID) (*models.CartLine, error)
	UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error
	DeleteLine(ctx context.Context, id uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error)
}

type itemLoader interface {
	FindItemByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
}
