package grpctransport

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// ServiceName is the name health checks are registered under besides the server-wide "".
const ServiceName = "serviceorder.v1.OrderService"

// pinger reports whether a dependency is reachable.
type pinger interface {
	Ping(ctx context.Context) error
}

// GRPCTransport represents the gRPC transport layer. It serves the standard health
// protocol, reporting SERVING while the database answers pings.
type GRPCTransport struct {
	server       *grpc.Server
	listener     net.Listener
	health       *health.Server
	db           pinger
	pingInterval time.Duration
	stopCh       chan struct{}
}

// NewGRPCTransport creates a new GRPCTransport.
func NewGRPCTransport(db pinger) *GRPCTransport {
	listener, err := net.Listen("tcp", ":"+viper.GetString("server.grpc.port"))
	if err != nil {
		panic(err)
	}

	return newTransport(db, listener)
}

func newTransport(db pinger, listener net.Listener) *GRPCTransport {
	pingInterval := viper.GetDuration("server.grpc.health.ping_interval")
	if pingInterval <= 0 {
		pingInterval = 5 * time.Second
	}

	return &GRPCTransport{
		server:       newGRPCServer(),
		listener:     listener,
		health:       health.NewServer(),
		db:           db,
		pingInterval: pingInterval,
		stopCh:       make(chan struct{}),
	}
}

// Run starts the gRPC server.
func (g *GRPCTransport) Run() error {
	g.RegisterServices()
	go g.watchDatabase()

	slog.Info("Starting gRPC server", "address", g.listener.Addr().String())

	return g.server.Serve(g.listener)
}

// Shutdown gracefully shuts down the gRPC server.
func (g *GRPCTransport) Shutdown(ctx context.Context) error {
	close(g.stopCh)
	g.health.Shutdown()

	done := make(chan struct{})
	go func() {
		g.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		g.server.Stop()

		return ctx.Err()
	}
}

// RegisterServices registers the gRPC services.
func (g *GRPCTransport) RegisterServices() {
	healthpb.RegisterHealthServer(g.server, g.health)
}

func (g *GRPCTransport) watchDatabase() {
	ticker := time.NewTicker(g.pingInterval)
	defer ticker.Stop()

	g.probe()
	for {
		select {
		case <-ticker.C:
			g.probe()
		case <-g.stopCh:
			return
		}
	}
}

// probe pings the database once and publishes the result.
func (g *GRPCTransport) probe() healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(context.Background(), g.pingInterval)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := g.db.Ping(ctx); err != nil {
		slog.Warn("Database ping failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	g.health.SetServingStatus("", status)
	g.health.SetServingStatus(ServiceName, status)

	return status
}

// newGRPCServer creates a new gRPC server with default settings.
func newGRPCServer() *grpc.Server {
	keepaliveParams := keepalive.ServerParameters{
		MaxConnectionIdle: time.Duration(
			viper.GetInt("server.grpc.keepalive.max_connection_idle"),
		) * time.Minute,
		MaxConnectionAge: time.Duration(
			viper.GetInt("server.grpc.keepalive.max_connection_age"),
		) * time.Minute,
		MaxConnectionAgeGrace: time.Duration(
			viper.GetInt("server.grpc.keepalive.max_connection_age_grace"),
		) * time.Second,
		Time: time.Duration(
			viper.GetInt("server.grpc.keepalive.time"),
		) * time.Second,
		Timeout: time.Duration(
			viper.GetInt("server.grpc.keepalive.timeout"),
		) * time.Second,
	}

	keepalivePolicy := keepalive.EnforcementPolicy{
		MinTime: time.Duration(
			viper.GetInt("server.grpc.keepalive.min_time"),
		) * time.Second,
		PermitWithoutStream: viper.GetBool("server.grpc.keepalive.permit_without_stream"),
	}

	opts := []grpc.ServerOption{
		grpc.KeepaliveParams(keepaliveParams),
		grpc.KeepaliveEnforcementPolicy(keepalivePolicy),
	}

	return grpc.NewServer(opts...)
}
