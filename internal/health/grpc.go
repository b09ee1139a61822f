package health

import (
	"fmt"
	"net"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServicePrefix namespaces per-authority gRPC health services.
const ServicePrefix = "vatcheck."

// GRPCServer exposes the standard grpc.health.v1 protocol.
// The empty service name reflects the aggregate status; each authority is
// also published as "vatcheck.<authority>".
type GRPCServer struct {
	port   int
	server *grpc.Server
	health *grpchealth.Server
}

// NewGRPCServer creates a gRPC health server and subscribes it to the monitor.
func NewGRPCServer(monitor *Monitor, port int) *GRPCServer {
	s := &GRPCServer{
		port:   port,
		server: grpc.NewServer(),
		health: grpchealth.NewServer(),
	}
	healthpb.RegisterHealthServer(s.server, s.health)

	monitor.OnStatus(s.Apply)
	return s
}

// Apply publishes a health report to gRPC clients.
func (s *GRPCServer) Apply(report HealthReport) {
	s.health.SetServingStatus("", servingStatus(report.SystemStatus))
	for name, a := range report.Authorities {
		s.health.SetServingStatus(ServicePrefix+name, servingStatus(a.Status))
	}
}

// HealthServer returns the underlying health service implementation.
func (s *GRPCServer) HealthServer() healthpb.HealthServer {
	return s.health
}

// Start listens on the configured port and serves until Stop.
func (s *GRPCServer) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("listen grpc health: %w", err)
	}
	return s.Serve(lis)
}

// Serve serves on an existing listener.
func (s *GRPCServer) Serve(lis net.Listener) error {
	if err := s.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

// Stop marks every service as not serving and stops the server gracefully.
func (s *GRPCServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}

func servingStatus(status SystemStatus) healthpb.HealthCheckResponse_ServingStatus {
	if status == StatusCritical {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}
