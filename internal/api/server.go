package api

import (
	"context"
	"errors"
	"fmt"
	"net"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/factoryos/console-sync/internal/config"
)

// HealthServer publishes console health over gRPC so probes and grpcurl can query it.
type HealthServer struct {
	cfg      config.ServerConfig
	grpc     *grpc.Server
	health   *health.Server
	listener net.Listener
}

// NewHealthServer binds the configured gRPC address. Per-service statuses are owned by the
// caller through healthSrv; the overall status is serving until Run begins draining.
func NewHealthServer(cfg config.ServerConfig, healthSrv *health.Server, opts ...grpc.ServerOption) (*HealthServer, error) {
	if healthSrv == nil {
		return nil, errors.New("health server is required")
	}
	lis, err := net.Listen("tcp", cfg.GRPCAddress)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.GRPCAddress, err)
	}

	grpc_prometheus.EnableHandlingTimeHistogram()
	srv := grpc.NewServer(append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(grpc_prometheus.UnaryServerInterceptor),
		grpc.ChainStreamInterceptor(grpc_prometheus.StreamServerInterceptor),
	}, opts...)...)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, healthSrv)
	grpc_prometheus.Register(srv)
	reflection.Register(srv)

	return &HealthServer{cfg: cfg, grpc: srv, health: healthSrv, listener: lis}, nil
}

// Run serves until ctx is done, then drains in-flight calls for at most the configured
// graceful timeout before forcing the listener closed.
func (s *HealthServer) Run(ctx context.Context) error {
	served := make(chan error, 1)
	go func() { served <- s.grpc.Serve(s.listener) }()

	select {
	case err := <-served:
		return err
	case <-ctx.Done():
	}

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	stopped := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(stopped)
	}()

	timeout := s.cfg.GracefulTimeout
	if timeout <= 0 {
		s.grpc.Stop()
		<-stopped
		return nil
	}
	drain, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	select {
	case <-drain.Done():
		s.grpc.Stop()
		<-stopped
	case <-stopped:
	}
	return nil
}

// Address is the bound listener address.
func (s *HealthServer) Address() string { return s.listener.Addr().String() }
