package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/serviceorder/internal/service/models/dashboard"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/order"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderstatus"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/statushistory"
	"github.com/corray333/backend-labs/serviceorder/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/serviceorder/internal/transport/http/docs"
	centerdashboard "github.com/corray333/backend-labs/serviceorder/internal/transport/http/v1/center_dashboard"
	changestatus "github.com/corray333/backend-labs/serviceorder/internal/transport/http/v1/change_status"
	computetotals "github.com/corray333/backend-labs/serviceorder/internal/transport/http/v1/compute_totals"
	createorder "github.com/corray333/backend-labs/serviceorder/internal/transport/http/v1/create_order"
	deleteorder "github.com/corray333/backend-labs/serviceorder/internal/transport/http/v1/delete_order"
	getorder "github.com/corray333/backend-labs/serviceorder/internal/transport/http/v1/get_order"
	listorders "github.com/corray333/backend-labs/serviceorder/internal/transport/http/v1/list_orders"
	liststatuses "github.com/corray333/backend-labs/serviceorder/internal/transport/http/v1/list_statuses"
	orderhistory "github.com/corray333/backend-labs/serviceorder/internal/transport/http/v1/order_history"
	reconcileitems "github.com/corray333/backend-labs/serviceorder/internal/transport/http/v1/reconcile_items"
	updateorder "github.com/corray333/backend-labs/serviceorder/internal/transport/http/v1/update_order"
	"github.com/corray333/backend-labs/serviceorder/pkg/http/middleware/trace"
	"github.com/corray333/backend-labs/serviceorder/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type service interface {
	CreateOrder(ctx context.Context, cmd ordersvc.CreateOrderCommand) (order.Order, error)
	UpdateOrder(ctx context.Context, cmd ordersvc.UpdateOrderCommand) (order.Order, error)
	ChangeStatus(ctx context.Context, cmd ordersvc.ChangeStatusCommand) (order.Order, error)
	ReconcileItems(ctx context.Context, cmd ordersvc.ReconcileItemsCommand) (order.Order, error)
	ComputeTotals(ctx context.Context, orderID int64) (order.Order, error)
	DeleteOrder(ctx context.Context, orderID int64) error
	GetOrder(ctx context.Context, orderID int64) (order.Order, error)
	ListOrders(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, error)
	ListStatuses(ctx context.Context) ([]orderstatus.OrderStatus, error)
	Dashboard(ctx context.Context, centerID int64) (dashboard.Dashboard, error)
	GetHistory(ctx context.Context, orderID int64) ([]statushistory.Entry, error)
}

type HTTPTransport struct {
	server  *http.Server
	router  *chi.Mux
	service service
}

func NewHTTPTransport(service service) *HTTPTransport {
	router := newRouter()
	server := newServer(router)
	return &HTTPTransport{
		server:  server,
		router:  router,
		service: service,
	}
}

func (h *HTTPTransport) Run() error {
	slog.Info("Starting HTTP server", "address", h.server.Addr)

	return h.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx expires.
func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// Handler exposes the router, mostly for tests.
func (h *HTTPTransport) Handler() http.Handler {
	return h.router
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.listOrders)
			r.Post("/", h.createOrder)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getOrder)
				r.Patch("/", h.updateOrder)
				r.Delete("/", h.deleteOrder)
				r.Patch("/status", h.changeStatus)
				r.Put("/items", h.reconcileItems)
				r.Post("/totals", h.computeTotals)
				r.Get("/history", h.getHistory)
			})
		})
		r.Get("/statuses", h.listStatuses)
		r.Get("/dashboard", h.dashboard)
		r.Get("/centers/{id}/dashboard", h.centerDashboard)
	})

	h.router.Get("/swagger/doc.json", docs.ServeOpenAPI)
	h.router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

func (h *HTTPTransport) createOrder(w http.ResponseWriter, r *http.Request) {
	createorder.CreateOrder(w, r, h.service)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.service)
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	getorder.GetOrder(w, r, h.service)
}

func (h *HTTPTransport) updateOrder(w http.ResponseWriter, r *http.Request) {
	updateorder.UpdateOrder(w, r, h.service)
}

func (h *HTTPTransport) deleteOrder(w http.ResponseWriter, r *http.Request) {
	deleteorder.DeleteOrder(w, r, h.service)
}

func (h *HTTPTransport) changeStatus(w http.ResponseWriter, r *http.Request) {
	changestatus.ChangeStatus(w, r, h.service)
}

func (h *HTTPTransport) reconcileItems(w http.ResponseWriter, r *http.Request) {
	reconcileitems.ReconcileItems(w, r, h.service)
}

func (h *HTTPTransport) computeTotals(w http.ResponseWriter, r *http.Request) {
	computetotals.ComputeTotals(w, r, h.service)
}

func (h *HTTPTransport) getHistory(w http.ResponseWriter, r *http.Request) {
	orderhistory.GetHistory(w, r, h.service)
}

func (h *HTTPTransport) listStatuses(w http.ResponseWriter, r *http.Request) {
	liststatuses.ListStatuses(w, r, h.service)
}

func (h *HTTPTransport) dashboard(w http.ResponseWriter, r *http.Request) {
	centerdashboard.Dashboard(w, r, h.service)
}

func (h *HTTPTransport) centerDashboard(w http.ResponseWriter, r *http.Request) {
	centerdashboard.CenterDashboard(w, r, h.service)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(trace.NewTraceMiddleware)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))

	requestTimeout := viper.GetDuration("server.http.request_timeout")
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	router.Use(middleware.Timeout(requestTimeout))

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:              "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
