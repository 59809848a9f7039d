package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cafe-backend/api/middleware"
	cartsvc "github.com/angelmondragon/cafe-backend/internal/cart"
	"github.com/angelmondragon/cafe-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cafe-backend/pkg/errors"
)

type stubCartService struct {
	added     cartsvc.AddInput
	updatedID uuid.UUID
	updateQty int
	cleared   bool
	err       error
	summary   cartsvc.Summary
}

func (s *stubCartService) Add(ctx context.Context, userID uuid.UUID, input cartsvc.AddInput) (*cartsvc.LineDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.added = input
	quantity := 1
	if input.Quantity != nil {
		quantity = *input.Quantity
	}
	return &cartsvc.LineDTO{ID: uuid.New(), ItemID: input.ItemID, Quantity: quantity}, nil
}

func (s *stubCartService) UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*cartsvc.LineDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.updatedID = lineID
	s.updateQty = quantity
	return &cartsvc.LineDTO{ID: lineID, Quantity: quantity}, nil
}

func (s *stubCartService) Remove(ctx context.Context, userID, lineID uuid.UUID) error {
	return s.err
}

func (s *stubCartService) ClearAll(ctx context.Context, userID uuid.UUID) error {
	s.cleared = true
	return s.err
}

func (s *stubCartService) List(ctx context.Context, userID uuid.UUID) (*cartsvc.Summary, error) {
	summary := s.summary
	return &summary, nil
}

func authed(req *http.Request) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), middleware.Identity{UserID: uuid.New(), Role: enums.UserRoleCustomer}))
}

func withLineParam(req *http.Request, lineID string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("lineId", lineID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestListReturnsTotals(t *testing.T) {
	svc := &stubCartService{summary: cartsvc.Summary{
		Lines:     []cartsvc.LineDTO{},
		CartTotal: decimal.RequireFromString("13.50"),
		CartCount: 3,
	}}

	resp := httptest.NewRecorder()
	List(svc, nil).ServeHTTP(resp, authed(httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			CartTotal string `json:"cart_total"`
			CartCount int    `json:"cart_count"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.CartTotal != "13.5" || envelope.Data.CartCount != 3 {
		t.Fatalf("unexpected totals %+v", envelope.Data)
	}
}

func TestListRequiresUser(t *testing.T) {
	resp := httptest.NewRecorder()
	List(&stubCartService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAddDecodesPayload(t *testing.T) {
	svc := &stubCartService{}
	itemID := uuid.New()
	body := `{"item_id":"` + itemID.String() + `","quantity":2}`

	resp := httptest.NewRecorder()
	Add(svc, nil).ServeHTTP(resp, authed(httptest.NewRequest(http.MethodPost, "/api/v1/cart", strings.NewReader(body))))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.added.ItemID != itemID || svc.added.Quantity == nil || *svc.added.Quantity != 2 {
		t.Fatalf("unexpected add input %+v", svc.added)
	}
}

func TestAddRejectsOutOfRangeQuantity(t *testing.T) {
	for _, qty := range []string{"0", "100", "-1"} {
		svc := &stubCartService{}
		body := `{"item_id":"` + uuid.NewString() + `","quantity":` + qty + `}`
		resp := httptest.NewRecorder()
		Add(svc, nil).ServeHTTP(resp, authed(httptest.NewRequest(http.MethodPost, "/api/v1/cart", strings.NewReader(body))))
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("quantity %s: expected 400 got %d", qty, resp.Code)
		}
		if svc.added.ItemID != uuid.Nil {
			t.Fatalf("quantity %s reached the service", qty)
		}
	}
}

func TestAddWithoutQuantityLeavesDefaultToService(t *testing.T) {
	svc := &stubCartService{}
	body := `{"item_id":"` + uuid.NewString() + `"}`
	resp := httptest.NewRecorder()
	Add(svc, nil).ServeHTTP(resp, authed(httptest.NewRequest(http.MethodPost, "/api/v1/cart", strings.NewReader(body))))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.added.Quantity != nil {
		t.Fatalf("expected nil quantity, got %d", *svc.added.Quantity)
	}
}

func TestAddPropagatesNotFound(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeNotFound, "item not found")}
	body := `{"item_id":"` + uuid.NewString() + `"}`
	resp := httptest.NewRecorder()
	Add(svc, nil).ServeHTTP(resp, authed(httptest.NewRequest(http.MethodPost, "/api/v1/cart", strings.NewReader(body))))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestUpdateQuantityUsesLineParam(t *testing.T) {
	svc := &stubCartService{}
	lineID := uuid.New()
	req := authed(httptest.NewRequest(http.MethodPut, "/api/v1/cart/"+lineID.String(), strings.NewReader(`{"quantity":4}`)))
	req = withLineParam(req, lineID.String())

	resp := httptest.NewRecorder()
	UpdateQuantity(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.updatedID != lineID || svc.updateQty != 4 {
		t.Fatalf("unexpected update %s/%d", svc.updatedID, svc.updateQty)
	}
}

func TestRemoveForbidden(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeForbidden, "cart line belongs to another user")}
	lineID := uuid.NewString()
	req := withLineParam(authed(httptest.NewRequest(http.MethodDelete, "/api/v1/cart/"+lineID, nil)), lineID)

	resp := httptest.NewRecorder()
	Remove(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestRemoveMalformedLineID(t *testing.T) {
	req := withLineParam(authed(httptest.NewRequest(http.MethodDelete, "/api/v1/cart/nope", nil)), "nope")
	resp := httptest.NewRecorder()
	Remove(&stubCartService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestClear(t *testing.T) {
	svc := &stubCartService{}
	resp := httptest.NewRecorder()
	Clear(svc, nil).ServeHTTP(resp, authed(httptest.NewRequest(http.MethodDelete, "/api/v1/cart", nil)))
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
	if !svc.cleared {
		t.Fatal("expected ClearAll to be called")
	}
}
