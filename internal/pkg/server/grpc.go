package server

import (
	"net"

	"github.com/kiosk404/ragrelay/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCAPIServer serves gRPC health and reflection next to the HTTP API.
type GRPCAPIServer struct {
	*grpc.Server
	address string
	health  *health.Server
}

// NewGRPCAPIServer registers the standard health service on srv.
func NewGRPCAPIServer(srv *grpc.Server, address string) *GRPCAPIServer {
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	return &GRPCAPIServer{Server: srv, address: address, health: hs}
}

// SetServing updates the health status reported for service ("" for the server).
func (s *GRPCAPIServer) SetServing(service string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(service, status)
}

func (s *GRPCAPIServer) Run() {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		logger.Fatal("[GRPC] failed to listen: %s", err.Error())
	}

	s.SetServing("", true)
	logger.Info("[GRPC] start grpc server at %s", s.address)

	go func() {
		if err := s.Serve(listen); err != nil {
			logger.Fatal("[GRPC] failed to start grpc server: %s", err.Error())
		}
	}()
}

func (s *GRPCAPIServer) Close() {
	s.health.Shutdown()
	s.GracefulStop()
	logger.Info("[GRPC] GRPC server on %s stopped", s.address)
}
