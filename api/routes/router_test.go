package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	pkgauth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubCartService struct {
	cart.Service
	owners []cart.Owner
}

func (s *stubCartService) Items(ctx context.Context, owner cart.Owner) (*cart.View, error) {
	s.owners = append(s.owners, owner)
	return &cart.View{Lines: []cart.LineView{}, TotalPrice: decimal.Zero}, nil
}

func (s *stubCartService) CanCheckout(ctx context.Context, owner cart.Owner) ([]inventory.Shortfall, error) {
	return nil, nil
}

type stubInventoryService struct {
	inventory.Service
	thresholds []int
}

func (s *stubInventoryService) GetLowStockProducts(ctx context.Context, threshold int) ([]inventory.StockLevel, error) {
	s.thresholds = append(s.thresholds, threshold)
	return []inventory.StockLevel{{ProductTitle: "Mug", Quantity: 2}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:       config.AppConfig{Env: config.AppEnvDev},
		JWT:       config.JWTConfig{Secret: "secret", Issuer: "storefront"},
		Inventory: config.InventoryConfig{LowStockThreshold: 5},
		Cart:      config.CartConfig{SessionCookieName: "sf_cart_session", AnonymousCartTTL: time.Hour},
	}
}

func newTestRouter(svc Services) http.Handler {
	return NewRouter(testConfig(), logger.Nop(), Deps{
		Pingers:  map[string]controllers.Pinger{"db": stubPinger{}},
		Gatherer: prometheus.NewRegistry(),
	}, svc)
}

func bearer(t *testing.T, role enums.UserRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(testConfig().JWT, time.Now(), time.Hour, pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	router := newTestRouter(Services{})

	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	inv := &stubInventoryService{}
	router := newTestRouter(Services{Inventory: inv})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/inventory/low-stock", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/inventory/low-stock", nil)
	req.Header.Set("Authorization", bearer(t, enums.UserRoleCustomer))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/inventory/low-stock", nil)
	req.Header.Set("Authorization", bearer(t, enums.UserRoleAdmin))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{5}, inv.thresholds)
}

func TestCartRouteIssuesSessionForAnonymousBuyer(t *testing.T) {
	carts := &stubCartService{}
	router := newTestRouter(Services{Cart: carts})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "sf_cart_session" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	require.Len(t, carts.owners, 1)
	assert.False(t, carts.owners[0].IsAuthenticated())
	assert.Equal(t, cookie.Value, carts.owners[0].SessionToken())

	var body struct {
		Data struct {
			CanCheckout bool `json:"can_checkout"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.Data.CanCheckout)
}

func TestCartMergeRequiresBearer(t *testing.T) {
	router := newTestRouter(Services{Cart: &stubCartService{}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/merge", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckoutRequiresIdempotencyKey(t *testing.T) {
	router := NewRouter(testConfig(), logger.Nop(), Deps{
		Idempotency: newMemoryIdempotencyStore(),
		Gatherer:    prometheus.NewRegistry(),
	}, Services{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Idempotency-Key")
}

type memoryIdempotencyStore struct {
	values map[string]string
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{values: map[string]string{}}
}

func (m *memoryIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	return m.values[key], nil
}

func (m *memoryIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}
