package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tradehub/tradehub-backend/api/controllers"
	gigordercontrollers "github.com/tradehub/tradehub-backend/api/controllers/gigorders"
	inquirycontrollers "github.com/tradehub/tradehub-backend/api/controllers/inquiries"
	warehousecontrollers "github.com/tradehub/tradehub-backend/api/controllers/warehouse"
	"github.com/tradehub/tradehub-backend/api/middleware"
	"github.com/tradehub/tradehub-backend/internal/inquiries"
	"github.com/tradehub/tradehub-backend/internal/inventory"
	"github.com/tradehub/tradehub-backend/internal/orders"
	"github.com/tradehub/tradehub-backend/internal/shipments"
	"github.com/tradehub/tradehub-backend/pkg/config"
	"github.com/tradehub/tradehub-backend/pkg/logger"
)

// Deps carries the collaborators the HTTP surface is built from. Nil stores
// disable the middleware that needs them; nil services answer 500.
type Deps struct {
	Ready       map[string]controllers.Pinger
	Idempotency middleware.IdempotencyStore
	RateLimiter middleware.RateLimiterStore
	Metrics     http.Handler

	GigOrders       orders.GigService
	WarehouseOrders orders.WarehouseService
	Inquiries       inquiries.Service
	Shipments       shipments.Service
	Inventory       inventory.Service
	OTP             controllers.OTPService
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	issuePolicy := middleware.NewAuthRateLimitPolicy("otp_issue", cfg.OTP.RateWindow, cfg.OTP.IssueIPLimit, cfg.OTP.IssueEmailLimit)
	verifyPolicy := middleware.NewAuthRateLimitPolicy("otp_verify", cfg.OTP.RateWindow, cfg.OTP.VerifyIPLimit, cfg.OTP.VerifyEmailLimit)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Ready))
	})

	metricsHandler := deps.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())

		r.Route("/otp", func(r chi.Router) {
			r.With(rateLimit(issuePolicy, deps.RateLimiter, logg)).Post("/", controllers.OTPIssue(deps.OTP, logg))
			r.With(rateLimit(verifyPolicy, deps.RateLimiter, logg)).Post("/verify", controllers.OTPVerify(deps.OTP, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			if deps.Idempotency != nil {
				r.Use(middleware.Idempotency(deps.Idempotency, logg))
			}

			r.Get("/me/ping", controllers.PrivatePing())

			r.Route("/inquiries", func(r chi.Router) {
				r.Post("/", inquirycontrollers.Create(deps.Inquiries, logg))
				r.Get("/user", inquirycontrollers.ListForUser(deps.Inquiries, logg))
				r.Get("/{id}", inquirycontrollers.Detail(deps.Inquiries, logg))
				r.Put("/{id}", inquirycontrollers.Update(deps.Inquiries, logg))
				r.Delete("/{id}", inquirycontrollers.Cancel(deps.Inquiries, logg))
			})

			r.Route("/gig-orders", func(r chi.Router) {
				r.Post("/create-payment-intent", gigordercontrollers.CreatePaymentIntent(deps.GigOrders, logg))
				r.Post("/", gigordercontrollers.Create(deps.GigOrders, logg))
				r.Get("/", gigordercontrollers.List(deps.GigOrders, logg))
				r.Get("/{id}", gigordercontrollers.Detail(deps.GigOrders, logg))
				r.Patch("/{id}", gigordercontrollers.UpdateStatus(deps.GigOrders, logg))
				r.Put("/{id}/cancel", gigordercontrollers.Cancel(deps.GigOrders, logg))
				r.Post("/{id}/updates", gigordercontrollers.AddProgressUpdate(deps.GigOrders, logg))
				r.Get("/{id}/updates", gigordercontrollers.ListProgressUpdates(deps.GigOrders, logg))
			})

			r.Route("/warehouse", func(r chi.Router) {
				r.Get("/shipping-methods", warehousecontrollers.ShippingMethods(deps.Shipments, logg))

				r.Route("/orders", func(r chi.Router) {
					r.Post("/create-payment-intent", warehousecontrollers.CreateOrderPaymentIntent(deps.WarehouseOrders, logg))
					r.Post("/", warehousecontrollers.CreateOrder(deps.WarehouseOrders, logg))
					r.Get("/", warehousecontrollers.ListOrders(deps.WarehouseOrders, logg))
					r.Route("/{orderId}", func(r chi.Router) {
						r.Get("/", warehousecontrollers.OrderDetail(deps.WarehouseOrders, logg))
						r.Put("/status", warehousecontrollers.UpdateOrderStatus(deps.WarehouseOrders, logg))
						r.Put("/cancel", warehousecontrollers.CancelOrder(deps.WarehouseOrders, logg))
						r.Post("/assign-stock", warehousecontrollers.AssignStock(deps.WarehouseOrders, logg))
						r.Post("/ship", warehousecontrollers.Ship(deps.Shipments, logg))
						r.Put("/track", warehousecontrollers.Track(deps.Shipments, logg))
						r.Get("/shipment", warehousecontrollers.ShipmentDetail(deps.Shipments, logg))
					})
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireSeller(logg))
					r.Post("/stock/in", warehousecontrollers.StockIn(deps.Inventory, logg))
					r.Post("/stock/out", warehousecontrollers.StockOut(deps.Inventory, logg))
					r.Get("/stock/movements/{productId}", warehousecontrollers.Movements(deps.Inventory, logg))
					r.Get("/inventory/products/{productId}", warehousecontrollers.InventoryByProduct(deps.Inventory, logg))
					r.Get("/inventory/warehouses/{warehouseId}", warehousecontrollers.InventoryByWarehouse(deps.Inventory, logg))
				})
			})
		})
	})

	return r
}

func rateLimit(policy middleware.AuthRateLimitPolicy, store middleware.RateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	if store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.AuthRateLimit(policy, store, logg)
}
