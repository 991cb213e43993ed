package utilities

import (
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer exposes the standard gRPC health service so orchestrators that
// probe over gRPC see the same readiness as the HTTP /health endpoint.
type HealthServer struct {
	grpcServer *grpc.Server
	health     *health.Server
	listener   net.Listener
}

// NewHealthServer listens on port and registers the gRPC health check service.
func NewHealthServer(port int) (*HealthServer, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}

	grpcServer := grpc.NewServer()
	healthServer := RegisterHealthServer(grpcServer)

	return &HealthServer{
		grpcServer: grpcServer,
		health:     healthServer,
		listener:   lis,
	}, nil
}

// RegisterHealthServer registers the gRPC health check service.
func RegisterHealthServer(grpcServer *grpc.Server) *health.Server {
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	return healthServer
}

// SetServing flips the overall serving status.
func (s *HealthServer) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
}

// Addr returns the address the server listens on.
func (s *HealthServer) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve blocks until the server is stopped.
func (s *HealthServer) Serve() error {
	return s.grpcServer.Serve(s.listener)
}

// Stop marks the service as not serving and stops accepting new RPCs.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
