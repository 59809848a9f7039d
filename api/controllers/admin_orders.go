package controllers

import (
	"net/http"

	"github.com/angelmondragon/cafe-backend/api/middleware"
	"github.com/angelmondragon/cafe-backend/api/responses"
	"github.com/angelmondragon/cafe-backend/api/validators"
	internalorders "github.com/angelmondragon/cafe-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/cafe-backend/pkg/errors"
	"github.com/angelmondragon/cafe-backend/pkg/logger"
	"github.com/angelmondragon/cafe-backend/pkg/pagination"
)

const maxOrderPage = 10000

type setStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func parsePageParams(r *http.Request) (pagination.PageParams, error) {
	page, err := validators.ParseQueryInt(r, "page", 1, 1, maxOrderPage)
	if err != nil {
		return pagination.PageParams{}, err
	}
	perPage, err := validators.ParseQueryInt(r, "per_page", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.PageParams{}, err
	}
	return pagination.PageParams{Page: page, PerPage: perPage}, nil
}

// AdminOrdersList returns a numbered page of every order, newest first.
func AdminOrdersList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		params, err := parsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListOrders(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AdminOrderSetStatus moves an order to the requested status.
func AdminOrderSetStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := middleware.Caller(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body setStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.SetStatus(r.Context(), internalorders.SetStatusInput{
			OrderID:     orderID,
			Status:      body.Status,
			ActorUserID: actor.UserID,
			ActorRole:   actor.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
