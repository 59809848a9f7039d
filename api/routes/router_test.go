package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cafe-backend/internal/auth"
	"github.com/angelmondragon/cafe-backend/internal/cart"
	"github.com/angelmondragon/cafe-backend/internal/catalog"
	"github.com/angelmondragon/cafe-backend/internal/checkout"
	"github.com/angelmondragon/cafe-backend/internal/orders"
	"github.com/angelmondragon/cafe-backend/internal/users"
	pkgAuth "github.com/angelmondragon/cafe-backend/pkg/auth"
	"github.com/angelmondragon/cafe-backend/pkg/config"
	"github.com/angelmondragon/cafe-backend/pkg/enums"
	"github.com/angelmondragon/cafe-backend/pkg/logger"
	"github.com/angelmondragon/cafe-backend/pkg/metrics"
	"github.com/angelmondragon/cafe-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return &auth.LoginResponse{AccessToken: "a", RefreshToken: "r"}, nil
}

type stubRegisterService struct{}

func (stubRegisterService) Register(ctx context.Context, req auth.RegisterRequest) (*users.Profile, error) {
	return &users.Profile{ID: uuid.New(), Email: req.Email}, nil
}

type stubSessionManager struct{}

func (stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

func (stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	return "", "", nil
}

func (stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	return nil
}

type stubCatalogService struct {
	catalog.Service
}

func (stubCatalogService) ListAvailableCategories(ctx context.Context) ([]catalog.CategoryDTO, error) {
	return []catalog.CategoryDTO{}, nil
}

func (stubCatalogService) ListCategoriesWithItemCounts(ctx context.Context) ([]catalog.CategoryDTO, error) {
	return []catalog.CategoryDTO{}, nil
}

func (stubCatalogService) ListItems(ctx context.Context) ([]catalog.ItemDTO, error) {
	return []catalog.ItemDTO{}, nil
}

type stubCartService struct {
	cart.Service
}

func (stubCartService) List(ctx context.Context, userID uuid.UUID) (*cart.Summary, error) {
	return &cart.Summary{Lines: []cart.LineDTO{}, CartTotal: decimal.Zero}, nil
}

type stubCheckoutService struct {
	checkout.Service
}

type stubOrdersService struct {
	orders.Service
}

func (stubOrdersService) ListOrders(ctx context.Context, params pagination.PageParams) (*orders.OrderList, error) {
	return &orders.OrderList{Orders: []orders.OrderDTO{}, Meta: pagination.BuildMeta(params, 0)}, nil
}

func (stubOrdersService) Stats(ctx context.Context, now time.Time, loc *time.Location) (*orders.Stats, error) {
	return &orders.Stats{TotalRevenue: decimal.Zero}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "cafe", ExpirationMinutes: 30},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics.NewOrderMetrics(reg).ObservePlaced(decimal.RequireFromString("13.50"))
	return NewRouter(
		cfg,
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		stubPinger{},
		nil,
		reg,
		stubSessionManager{},
		stubAuthService{},
		stubRegisterService{},
		stubCatalogService{},
		stubCartService{},
		stubCheckoutService{},
		stubOrdersService{},
	)
}

func bearer(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: uuid.New(), Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func serve(router http.Handler, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestPublicRoutes(t *testing.T) {
	router := newTestRouter(t, testConfig())

	for _, path := range []string{"/health/live", "/health/ready", "/api/public/menu"} {
		if resp := serve(router, http.MethodGet, path, ""); resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, testConfig())
	resp := serve(router, http.MethodGet, "/metrics", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "orders_placed_total") {
		t.Fatalf("expected order metrics in exposition, got %s", resp.Body.String())
	}
}

func TestCustomerRoutesRequireAuth(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	if resp := serve(router, http.MethodGet, "/api/v1/cart", ""); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if resp := serve(router, http.MethodGet, "/api/v1/cart", bearer(t, cfg, enums.UserRoleCustomer)); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	if resp := serve(router, http.MethodGet, "/api/admin/v1/dashboard", bearer(t, cfg, enums.UserRoleCustomer)); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
	if resp := serve(router, http.MethodGet, "/api/admin/v1/dashboard", bearer(t, cfg, enums.UserRoleAdmin)); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRequestIDHeaderSet(t *testing.T) {
	router := newTestRouter(t, testConfig())
	resp := serve(router, http.MethodGet, "/health/live", "")
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected X-Request-Id header")
	}
}
