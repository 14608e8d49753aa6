package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corray333/backend-labs/serviceorder/internal/dal/cache/memory"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/cache/redis"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/postgres"
	"github.com/corray333/backend-labs/serviceorder/internal/dal/rabbitmq"
	rabbitmqrepo "github.com/corray333/backend-labs/serviceorder/internal/dal/repositories/events/rabbitmq"
	outboxrepo "github.com/corray333/backend-labs/serviceorder/internal/dal/repositories/outbox/postgres"
	"github.com/corray333/backend-labs/serviceorder/internal/otel"
	"github.com/corray333/backend-labs/serviceorder/internal/service/cacheport"
	"github.com/corray333/backend-labs/serviceorder/internal/service/numbergen"
	"github.com/corray333/backend-labs/serviceorder/internal/service/services/ordersvc"
	grpctransport "github.com/corray333/backend-labs/serviceorder/internal/transport/grpc"
	httptransport "github.com/corray333/backend-labs/serviceorder/internal/transport/http"
	"github.com/corray333/backend-labs/serviceorder/internal/worker/outbox"
	"github.com/spf13/viper"
)

const defaultExchange = "service_orders"

// App represents the application.
type App struct {
	orderSvc       *ordersvc.OrderService
	transport      *httptransport.HTTPTransport
	grpcTransport  *grpctransport.GRPCTransport
	postgresClient *postgres.Client
	rabbitClient   *rabbitmq.Client
	outboxWorker   *outbox.Worker
	otel           *otel.OtelController
	closeCache     func() error
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otel.MustInitOtel()

	location := mustLoadLocation(viper.GetString("orders.timezone"))

	postgresClient := postgres.MustNewClient()
	rabbitClient := rabbitmq.MustNewClient()

	exchange := viper.GetString("rabbitmq.exchange")
	if exchange == "" {
		exchange = defaultExchange
	}
	if err := rabbitClient.DeclareExchange(rabbitmq.DeclareExchangeConfig{
		Name:    exchange,
		Durable: true,
	}); err != nil {
		panic(err)
	}

	outboxRepo := outboxrepo.NewOutboxRepository(postgresClient.Pool())
	eventRepo := rabbitmqrepo.NewEventRabbitMQRepository(
		rabbitClient,
		outboxRepo,
		exchange,
		viper.GetInt("rabbitmq.outbox.max_retries"),
	)
	outboxWorker := outbox.NewWorker(outboxRepo, rabbitClient)

	cache, closeCache := mustNewCache()

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithPostgresClient(postgresClient),
		ordersvc.WithCache(cache, viper.GetDuration("cache.ttl")),
		ordersvc.WithEventRepository(eventRepo),
		ordersvc.WithLocation(location),
		ordersvc.WithLockTimeout(postgres.LockTimeout()),
		ordersvc.WithNumberGenerator(newNumberGenerator(location)),
	)

	transport := httptransport.NewHTTPTransport(orderSvc)
	transport.RegisterRoutes()

	return &App{
		orderSvc:       orderSvc,
		transport:      transport,
		grpcTransport:  grpctransport.NewGRPCTransport(postgresClient),
		postgresClient: postgresClient,
		rabbitClient:   rabbitClient,
		outboxWorker:   outboxWorker,
		otel:           otelController,
		closeCache:     closeCache,
	}
}

// mustNewCache picks the cache adapter named by cache.driver.
func mustNewCache() (cacheport.Cache, func() error) {
	switch driver := viper.GetString("cache.driver"); driver {
	case "redis":
		client := redis.MustNewClient()

		return client, client.Close
	case "", "memory":
		capacity := viper.GetUint64("cache.memory.capacity")
		if capacity == 0 {
			capacity = 10_000
		}
		c := memory.New(viper.GetDuration("cache.ttl"), capacity)
		go c.Start()

		return c, func() error {
			c.Stop()

			return nil
		}
	default:
		panic("unknown cache driver: " + driver)
	}
}

func newNumberGenerator(location *time.Location) *numbergen.Generator {
	prefix := numbergen.DefaultPrefix
	if viper.IsSet("orders.number.prefix") {
		prefix = viper.GetString("orders.number.prefix")
	}

	return numbergen.New(
		numbergen.WithPrefix(prefix),
		numbergen.WithPadding(viper.GetInt("orders.number.padding")),
		numbergen.WithLocation(location),
	)
}

func mustLoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}

	return loc
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	// Create a channel to receive OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	go a.outboxWorker.Start(workerCtx)

	go func() {
		if err := a.transport.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	go func() {
		if err := a.grpcTransport.Run(); err != nil {
			slog.Error("gRPC server error", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if err := a.grpcTransport.Shutdown(ctx); err != nil {
		slog.Error("gRPC server shutdown error", "error", err)
	} else {
		slog.Info("gRPC server stopped gracefully")
	}

	a.outboxWorker.Stop()
	cancelWorker()

	if err := a.rabbitClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	if err := a.closeCache(); err != nil {
		slog.Error("Cache close error", "error", err)
	}

	a.postgresClient.Close()
	slog.Info("Database connection closed gracefully")

	if err := a.otel.Shutdown(ctx); err != nil {
		slog.Error("Tracer provider shutdown error", "error", err)
	}

	slog.Info("Application shutdown complete")
}
