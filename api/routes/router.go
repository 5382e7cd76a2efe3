package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pisakart/pisakart-backend/api/controllers"
	"github.com/pisakart/pisakart-backend/api/middleware"
	"github.com/pisakart/pisakart-backend/internal/addresshistory"
	"github.com/pisakart/pisakart-backend/internal/carts"
	"github.com/pisakart/pisakart-backend/internal/customers"
	"github.com/pisakart/pisakart-backend/internal/orders"
	"github.com/pisakart/pisakart-backend/internal/payments"
	"github.com/pisakart/pisakart-backend/pkg/config"
	"github.com/pisakart/pisakart-backend/pkg/docstore"
	"github.com/pisakart/pisakart-backend/pkg/logger"
	"github.com/pisakart/pisakart-backend/pkg/metrics"
)

// NewRouter wires the storefront compatibility surface. Paths are the
// contract the existing UI depends on and must not be re-nested.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	store docstore.Pinger,
	registry *prometheus.Registry,
	httpMetrics *metrics.HTTPMetrics,
	customersService customers.Service,
	historyService addresshistory.Service,
	cartsService carts.Service,
	paymentsService payments.Service,
	ordersService orders.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, store))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Post("/create-user", controllers.CreateUser(customersService, logg))
	r.Post("/add-address/{code}", controllers.AddAddress(customersService, logg))
	r.Get("/get-user/{code}", controllers.GetUser(customersService, logg))
	r.Get("/user-info/{code}", controllers.UserInfo(customersService, logg))

	r.Route("/api", func(r chi.Router) {
		r.Post("/record-address", controllers.RecordAddress(historyService, logg))
		r.Get("/get-address-history", controllers.GetAddressHistory(historyService, logg))
		r.Delete("/delete-address", controllers.DeleteAddress(historyService, logg))
		r.Delete("/clear-address-history", controllers.ClearAddressHistory(historyService, logg))
		r.Post("/restore-address", controllers.RestoreAddress(historyService, logg))
	})

	r.Post("/save-cart", controllers.SaveCart(cartsService, logg))
	r.Route("/carts", func(r chi.Router) {
		r.Post("/", controllers.SaveCart(cartsService, logg))
		r.Get("/", controllers.ListCarts(cartsService, logg))
		r.Delete("/", controllers.ClearCarts(cartsService, logg))
		r.Delete("/{id}", controllers.DeleteCart(cartsService, logg))
		r.Post("/update-status", controllers.UpdateCartStatus(cartsService, logg))
		r.Get("/notifications", controllers.CartNotifications(cartsService, logg))
		r.Post("/notifications/{id}/viewed", controllers.MarkNotificationViewed(cartsService, logg))
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/", controllers.RecordPayment(paymentsService, logg))
		r.Get("/", controllers.ListPayments(paymentsService, logg))
		r.Delete("/", controllers.DeletePayment(paymentsService, logg))
		r.Delete("/{id}", controllers.DeletePayment(paymentsService, logg))
	})
	r.Post("/create-payment", controllers.CreatePayment(paymentsService, logg))

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", controllers.CreateOrder(ordersService, logg))
		r.Get("/", controllers.ListOrders(ordersService, logg))
	})
	r.Get("/my-orders/{code}", controllers.MyOrders(ordersService, logg))

	return r
}
