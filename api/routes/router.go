package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropmart/dropmart-backend/api/controllers"
	ordercontrollers "github.com/dropmart/dropmart-backend/api/controllers/orders"
	webhookcontrollers "github.com/dropmart/dropmart-backend/api/controllers/webhooks"
	"github.com/dropmart/dropmart-backend/api/middleware"
	"github.com/dropmart/dropmart-backend/internal/affiliate"
	"github.com/dropmart/dropmart-backend/internal/catalog"
	"github.com/dropmart/dropmart-backend/internal/categories"
	checkoutsvc "github.com/dropmart/dropmart-backend/internal/checkout"
	"github.com/dropmart/dropmart-backend/internal/orders"
	"github.com/dropmart/dropmart-backend/internal/payouts"
	products "github.com/dropmart/dropmart-backend/internal/products"
	"github.com/dropmart/dropmart-backend/internal/settlement"
	"github.com/dropmart/dropmart-backend/internal/suppliers"
	stripewebhook "github.com/dropmart/dropmart-backend/internal/webhooks/stripe"
	supplierwebhook "github.com/dropmart/dropmart-backend/internal/webhooks/supplier"
	"github.com/dropmart/dropmart-backend/pkg/config"
	"github.com/dropmart/dropmart-backend/pkg/enums"
	"github.com/dropmart/dropmart-backend/pkg/logger"
	"github.com/dropmart/dropmart-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. Nil services make their
// handlers answer 500 rather than panic.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	DB            controllers.Pinger
	Redis         controllers.Pinger
	Idempotency   redis.IdempotencyStore
	RateLimiter   redis.RateLimiter
	MetricsGather prometheus.Gatherer

	Categories      categories.Service
	Products        products.Service
	Catalog         catalog.Service
	Suppliers       suppliers.Service
	Checkout        checkoutsvc.Service
	Orders          orders.Service
	Payouts         payouts.Service
	Settlement      settlement.Service
	Affiliate       affiliate.Service
	SupplierWebhook *supplierwebhook.Service
	StripeWebhook   *stripewebhook.Service
	StripeGuard     *stripewebhook.IdempotencyGuard
	StripeSigner    webhookcontrollers.SigningSecretProvider
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg,
			controllers.Dependency{Name: "database", Pinger: d.DB},
			controllers.Dependency{Name: "redis", Pinger: d.Redis},
		))
	})
	if d.MetricsGather != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.MetricsGather, promhttp.HandlerOpts{}))
	}

	supplierLimit := middleware.RateLimitPolicy{
		Name:   "supplier_webhook",
		Param:  "supplierId",
		Limit:  cfg.Webhooks.SupplierRateLimit,
		Window: cfg.Webhooks.SupplierRateWindow,
	}
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/webhooks", func(r chi.Router) {
			r.With(middleware.RateLimit(supplierLimit, d.RateLimiter, logg)).
				Post("/supplier/{supplierId}", webhookcontrollers.SupplierWebhook(optionalSupplierWebhook(d.SupplierWebhook), logg))
			r.Post("/stripe", webhookcontrollers.StripeWebhook(optionalStripeWebhook(d.StripeWebhook), d.StripeSigner, optionalGuard(d.StripeGuard), logg))
		})

		r.Get("/categories", controllers.CategoryList(d.Categories, logg))
		r.Get("/products", controllers.ProductList(d.Products, logg))
		r.Get("/products/{slug}", controllers.ProductDetail(d.Products, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(d.Idempotency, logg))
			r.Post("/checkout", controllers.Checkout(d.Checkout, logg))
			r.Get("/orders", ordercontrollers.List(d.Orders, logg))
			r.Get("/orders/{orderId}", ordercontrollers.Detail(d.Orders, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
		r.Use(middleware.Idempotency(d.Idempotency, logg))

		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", controllers.AdminSupplierList(d.Suppliers, logg))
			r.Post("/", controllers.AdminSupplierCreate(d.Suppliers, logg))
			r.Patch("/{supplierId}", controllers.AdminSupplierUpdate(d.Suppliers, logg))
			r.Post("/{supplierId}/active", controllers.AdminSupplierSetActive(d.Suppliers, logg))
			r.Delete("/{supplierId}", controllers.AdminSupplierDelete(d.Suppliers, logg))
		})

		r.Get("/supplier-products", controllers.AdminSupplierProducts(d.Catalog, logg))
		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.AdminProductPublish(d.Catalog, logg))
			r.Get("/{productId}", controllers.AdminProductGet(d.Catalog, logg))
			r.Patch("/{productId}", controllers.AdminProductUpdate(d.Catalog, logg))
			r.Post("/{productId}/visibility", controllers.AdminProductVisibility(d.Catalog, logg))
			r.Post("/{productId}/featured", controllers.AdminProductFeatured(d.Catalog, logg))
			r.Post("/{productId}/markup", controllers.AdminProductMarkup(d.Catalog, logg))
			r.Post("/{productId}/category", controllers.AdminProductCategory(d.Catalog, logg))
			r.Delete("/{productId}", controllers.AdminProductUnpublish(d.Catalog, logg))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", controllers.AdminCategoryUpsert(d.Categories, logg))
			r.Delete("/{categoryId}", controllers.AdminCategoryDelete(d.Categories, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.AdminList(d.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.AdminDetail(d.Orders, logg))
			r.Post("/{orderId}/status", ordercontrollers.AdminUpdateStatus(d.Orders, logg))
		})

		r.Route("/payouts", func(r chi.Router) {
			r.Get("/", controllers.AdminPayoutList(d.Payouts, logg))
			r.Post("/{payoutId}/retry", controllers.AdminPayoutRetry(d.Settlement, logg))
		})

		r.Route("/aliexpress", func(r chi.Router) {
			r.Get("/search", controllers.AdminAliExpressSearch(d.Affiliate, logg))
			r.Post("/import", controllers.AdminAliExpressImport(d.Affiliate, logg))
		})
	})

	return r
}

// The helpers below keep a nil pointer from turning into a non-nil interface.

func optionalSupplierWebhook(svc *supplierwebhook.Service) webhookcontrollers.SupplierWebhookService {
	if svc == nil {
		return nil
	}
	return svc
}

func optionalStripeWebhook(svc *stripewebhook.Service) webhookcontrollers.StripeWebhookService {
	if svc == nil {
		return nil
	}
	return svc
}

func optionalGuard(guard *stripewebhook.IdempotencyGuard) webhookcontrollers.StripeWebhookGuard {
	if guard == nil {
		return nil
	}
	return guard
}
