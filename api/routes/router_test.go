package routes

import (
	"context"
	"encoding/json"
	"errors"
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

	"github.com/dropmart/dropmart-backend/internal/catalog"
	"github.com/dropmart/dropmart-backend/internal/categories"
	"github.com/dropmart/dropmart-backend/internal/checkout"
	"github.com/dropmart/dropmart-backend/internal/orders"
	products "github.com/dropmart/dropmart-backend/internal/products"
	"github.com/dropmart/dropmart-backend/internal/suppliers"
	supplierwebhook "github.com/dropmart/dropmart-backend/internal/webhooks/supplier"
	pkgAuth "github.com/dropmart/dropmart-backend/pkg/auth"
	"github.com/dropmart/dropmart-backend/pkg/config"
	"github.com/dropmart/dropmart-backend/pkg/db"
	"github.com/dropmart/dropmart-backend/pkg/db/dbtest"
	"github.com/dropmart/dropmart-backend/pkg/enums"
	"github.com/dropmart/dropmart-backend/pkg/metrics"
	"github.com/dropmart/dropmart-backend/pkg/outbox"
	"github.com/dropmart/dropmart-backend/pkg/signature"
	"github.com/dropmart/dropmart-backend/pkg/stripe"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubAuthorizer struct{}

func (stubAuthorizer) Authorize(_ context.Context, req stripe.AuthorizeRequest) (*stripe.Authorization, error) {
	return &stripe.Authorization{ExternalRef: "pi_" + req.Metadata["order_id"], ClientSecret: "cs_" + req.Metadata["order_id"]}, nil
}

func (stubAuthorizer) CancelAuthorization(context.Context, string) error { return nil }

type testServer struct {
	client  *db.Client
	handler http.Handler
	cfg     *config.Config
}

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Env: "test"},
		JWT:      config.JWTConfig{Secret: "router-secret", Issuer: "dropmart-test", ExpirationMinutes: 30},
		HTTP:     config.HTTPConfig{CORSOrigins: []string{"http://localhost:3000"}},
		Webhooks: config.WebhooksConfig{SupplierRateLimit: 100, SupplierRateWindow: time.Minute},
	}
}

func newTestServer(t *testing.T, dbPing error) *testServer {
	t.Helper()
	cfg := testConfig()
	client := dbtest.Open(t)
	gorm := client.DB()
	reg := prometheus.NewRegistry()
	publisher := outbox.NewService(outbox.NewRepository(gorm), nil)

	cat, err := catalog.NewService(catalog.ServiceParams{Repository: catalog.NewRepository(gorm), Tx: client})
	require.NoError(t, err)
	supplierSvc, err := suppliers.NewService(suppliers.NewRepository(gorm), client, cat, nil)
	require.NoError(t, err)
	categorySvc, err := categories.NewService(categories.NewRepository(gorm), client, cat, nil)
	require.NoError(t, err)
	productSvc, err := products.NewService(products.NewRepository(gorm))
	require.NoError(t, err)
	ordersRepo := orders.NewRepository(gorm)
	ordersSvc, err := orders.NewService(ordersRepo, client, publisher, stubAuthorizer{}, nil)
	require.NoError(t, err)
	checkoutSvc, err := checkout.NewService(client, checkout.NewRepository(gorm), ordersRepo, stubAuthorizer{}, publisher, "usd", nil)
	require.NoError(t, err)
	hookSvc, err := supplierwebhook.NewService(suppliers.NewRepository(gorm), cat, metrics.NewSettlementMetrics(reg), nil)
	require.NoError(t, err)

	handler := NewRouter(Deps{
		Config:          cfg,
		DB:              stubPinger{err: dbPing},
		Redis:           stubPinger{},
		MetricsGather:   reg,
		Categories:      categorySvc,
		Products:        productSvc,
		Catalog:         cat,
		Suppliers:       supplierSvc,
		Checkout:        checkoutSvc,
		Orders:          ordersSvc,
		SupplierWebhook: hookSvc,
	})
	return &testServer{client: client, handler: handler, cfg: cfg}
}

func (s *testServer) token(t *testing.T, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(s.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: uuid.New(), Role: role})
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, body, token string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, nil)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/health/live", "", "").Code)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/health/ready", "", "").Code)

	rec := srv.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	down := newTestServer(t, errors.New("connection refused"))
	rec = down.do(t, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "database")
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	srv := newTestServer(t, nil)
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, "/api/admin/v1/suppliers", "", "").Code)
	assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodGet, "/api/admin/v1/suppliers", "", srv.token(t, enums.UserRoleCustomer)).Code)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/api/admin/v1/suppliers", "", srv.token(t, enums.UserRoleAdmin)).Code)
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodPost, "/api/v1/checkout", `{"items":[]}`, "").Code)
}

// TestSupplierToStorefrontToCheckout drives a product from a signed supplier
// webhook through publishing to a customer checkout.
func TestSupplierToStorefrontToCheckout(t *testing.T) {
	srv := newTestServer(t, nil)
	admin := srv.token(t, enums.UserRoleAdmin)
	customer := srv.token(t, enums.UserRoleCustomer)

	rec := srv.do(t, http.MethodPost, "/api/admin/v1/suppliers", `{"name":"Acme","default_markup":"0.25"}`, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var supplier suppliers.SupplierDTO
	decodeData(t, rec, &supplier)
	require.NotEmpty(t, supplier.WebhookSecret)

	hookPath := "/api/v1/webhooks/supplier/" + supplier.ID.String()
	body := `{"event":"product.created","product":{"id":"sku-9","title":"Ceramic Mug","wholesalePrice":10,"inventoryCount":4}}`

	rec = srv.do(t, http.MethodPost, hookPath, body, "", signature.HeaderName, "sha256=deadbeef")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = srv.do(t, http.MethodPost, "/api/v1/webhooks/supplier/"+uuid.NewString(), body, "", signature.HeaderName, signature.Sign([]byte(body), supplier.WebhookSecret))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = srv.do(t, http.MethodPost, hookPath, `{"event":"product.archived","product":{"id":"x"}}`, "", signature.HeaderName, signature.Sign([]byte(`{"event":"product.archived","product":{"id":"x"}}`), supplier.WebhookSecret))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, hookPath, body, "", signature.HeaderName, signature.Sign([]byte(body), supplier.WebhookSecret))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"data":{"ok":true}}`, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/api/admin/v1/supplier-products?unpublished=true", "", admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var inventory catalog.SupplierProductList
	decodeData(t, rec, &inventory)
	require.Len(t, inventory.Items, 1)

	rec = srv.do(t, http.MethodPost, "/api/admin/v1/products", `{"supplier_product_id":"`+inventory.Items[0].ID.String()+`","is_featured":true}`, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var published catalog.ProductDTO
	decodeData(t, rec, &published)
	assert.Equal(t, "ceramic-mug", published.Slug)

	rec = srv.do(t, http.MethodGet, "/api/v1/products?featured=true", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items []products.ProductDTO `json:"items"`
	}
	decodeData(t, rec, &page)
	require.Len(t, page.Items, 1)
	assert.True(t, decimal.RequireFromString("12.50").Equal(page.Items[0].Price))

	rec = srv.do(t, http.MethodGet, "/api/v1/products/ceramic-mug", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	checkoutBody := `{"items":[{"product_id":"` + published.ID.String() + `","quantity":2,"price":"0.01"}]}`
	rec = srv.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody, customer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var result checkout.Result
	decodeData(t, rec, &result)
	assert.True(t, decimal.RequireFromString("25.00").Equal(result.Total))
	assert.Equal(t, "cs_"+result.OrderID.String(), result.ClientSecret)

	rec = srv.do(t, http.MethodGet, "/api/v1/orders", "", customer)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine orders.OrderList
	decodeData(t, rec, &mine)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, result.OrderID, mine.Items[0].ID)

	other := srv.token(t, enums.UserRoleCustomer)
	rec = srv.do(t, http.MethodGet, "/api/v1/orders/"+result.OrderID.String(), "", other)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckoutRejections(t *testing.T) {
	srv := newTestServer(t, nil)
	customer := srv.token(t, enums.UserRoleCustomer)

	rec := srv.do(t, http.MethodPost, "/api/v1/checkout", `{"items":[]}`, customer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "EMPTY_CART")

	rec = srv.do(t, http.MethodPost, "/api/v1/checkout", `{"items":[{"product_id":"`+uuid.NewString()+`","quantity":1}]}`, customer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "PRODUCTS_UNAVAILABLE")
}
