package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JhnOkall/avenuefashion-backend/api/controllers"
	webhookcontrollers "github.com/JhnOkall/avenuefashion-backend/api/controllers/webhooks"
	"github.com/JhnOkall/avenuefashion-backend/api/middleware"
	addresssvc "github.com/JhnOkall/avenuefashion-backend/internal/addresses"
	cartsvc "github.com/JhnOkall/avenuefashion-backend/internal/cart"
	"github.com/JhnOkall/avenuefashion-backend/internal/catalog"
	locationsvc "github.com/JhnOkall/avenuefashion-backend/internal/locations"
	ordersvc "github.com/JhnOkall/avenuefashion-backend/internal/orders"
	vouchersvc "github.com/JhnOkall/avenuefashion-backend/internal/vouchers"
	paystackwebhook "github.com/JhnOkall/avenuefashion-backend/internal/webhooks/paystack"
	pkgauth "github.com/JhnOkall/avenuefashion-backend/pkg/auth"
	"github.com/JhnOkall/avenuefashion-backend/pkg/config"
	"github.com/JhnOkall/avenuefashion-backend/pkg/db"
	"github.com/JhnOkall/avenuefashion-backend/pkg/logger"
	"github.com/JhnOkall/avenuefashion-backend/pkg/redis"
)

// Params bundles everything the router wires into handlers.
type Params struct {
	Config     *config.Config
	Log        *logger.Logger
	DB         db.Pinger
	Redis      *redis.Client
	Catalog    catalog.Repository
	Locations  locationsvc.Service
	Addresses  addresssvc.Service
	Cart       cartsvc.Service
	Vouchers   vouchersvc.Service
	Orders     ordersvc.Service
	Webhook    *paystackwebhook.Service
	MetricsReg *prometheus.Registry
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Log

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.DB, p.Redis, logg))
	})

	if p.MetricsReg != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.MetricsReg, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/paystack", webhookcontrollers.PaystackWebhook(p.Webhook, logg))
	})

	// Storefront browse surfaces need no session.
	r.Route("/api/public/v1", func(r chi.Router) {
		r.Get("/products", controllers.ProductList(p.Catalog, logg))
		r.Route("/locations", func(r chi.Router) {
			r.Get("/countries", controllers.LocationCountries(p.Locations, logg))
			r.Get("/countries/{countryID}/counties", controllers.LocationCounties(p.Locations, logg))
			r.Get("/counties/{countyID}/cities", controllers.LocationCities(p.Locations, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", controllers.AddressList(p.Addresses, logg))
			r.Post("/", controllers.AddressCreate(p.Addresses, logg))
			r.Patch("/{addressID}", controllers.AddressUpdate(p.Addresses, logg))
			r.Delete("/{addressID}", controllers.AddressDelete(p.Addresses, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(p.Cart, logg))
			r.Post("/items", controllers.CartAddItem(p.Cart, logg))
			r.Patch("/items/{itemID}", controllers.CartUpdateItem(p.Cart, logg))
			r.Delete("/items/{itemID}", controllers.CartRemoveItem(p.Cart, logg))
			r.Delete("/", controllers.CartClear(p.Cart, logg))
		})

		r.Post("/vouchers/validate", controllers.VoucherValidate(p.Vouchers, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderPlace(p.Orders, logg))
			r.Get("/", controllers.OrderList(p.Orders, logg))
			r.Get("/{orderRef}", controllers.OrderGet(p.Orders, logg))
			r.Get("/{orderRef}/timeline", controllers.OrderTimeline(p.Orders, logg))
			r.Get("/{orderRef}/payment-status", controllers.OrderPaymentStatus(p.Webhook, cfg.Checkout, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(pkgauth.RoleAdmin, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderList(p.Orders, logg))
			r.Get("/{orderRef}", controllers.AdminOrderGet(p.Orders, logg))
			r.Post("/{orderRef}/status", controllers.AdminOrderAdvance(p.Orders, logg))
			r.Post("/{orderRef}/cancel", controllers.AdminOrderCancel(p.Orders, logg))
			r.Post("/{orderRef}/notes", controllers.AdminOrderNote(p.Orders, logg))
		})

		r.Route("/vouchers", func(r chi.Router) {
			r.Get("/", controllers.VoucherList(p.Vouchers, logg))
			r.Post("/", controllers.VoucherCreate(p.Vouchers, logg))
			r.Patch("/{voucherID}", controllers.VoucherUpdate(p.Vouchers, logg))
		})
	})

	return r
}
