package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/cafe-backend/api/responses"
	"github.com/angelmondragon/cafe-backend/internal/catalog"
	internalorders "github.com/angelmondragon/cafe-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/cafe-backend/pkg/errors"
	"github.com/angelmondragon/cafe-backend/pkg/logger"
)

type dashboardResponse struct {
	Categories []catalog.CategoryDTO     `json:"categories"`
	Items      []catalog.ItemDTO         `json:"items"`
	Orders     *internalorders.OrderList `json:"orders"`
	Stats      *internalorders.Stats     `json:"stats"`
}

// AdminDashboard bundles the catalog, the requested order page and the day's
// counters. "Today" is midnight in loc.
func AdminDashboard(catalogSvc catalog.Service, ordersSvc internalorders.Service, loc *time.Location, now func() time.Time, logg *logger.Logger) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if catalogSvc == nil || ordersSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard services unavailable"))
			return
		}
		params, err := parsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var out dashboardResponse
		if out.Categories, err = catalogSvc.ListCategoriesWithItemCounts(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if out.Items, err = catalogSvc.ListItems(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if out.Orders, err = ordersSvc.ListOrders(r.Context(), params); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if out.Stats, err = ordersSvc.Stats(r.Context(), now(), loc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}
