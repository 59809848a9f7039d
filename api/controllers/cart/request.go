package cart

import (
	"github.com/google/uuid"

	cartsvc "github.com/angelmondragon/cafe-backend/internal/cart"
)

type addRequest struct {
	ItemID   uuid.UUID `json:"item_id" validate:"required"`
	Quantity *int      `json:"quantity" validate:"omitempty,gte=1,lte=99"`
}

func (r addRequest) toInput() cartsvc.AddInput {
	return cartsvc.AddInput{ItemID: r.ItemID, Quantity: r.Quantity}
}

type updateRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1,lte=99"`
}
