package grpc

import (
	"context"

	"google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/growthfund/matrix-engine/internal/application"
)

type MatrixInternalServer struct {
	grpc_health_v1.UnimplementedHealthServer
	service *application.Service
}

func NewMatrixInternalServer(service *application.Service) *MatrixInternalServer {
	return &MatrixInternalServer{service: service}
}
func Register(server grpc.ServiceRegistrar, svc *MatrixInternalServer) {
	grpc_health_v1.RegisterHealthServer(server, svc)
}
func (s *MatrixInternalServer) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	_ = s.service
	_ = ctx
	_ = req
	return &grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_SERVING}, nil
}
func (s *MatrixInternalServer) Watch(req *grpc_health_v1.HealthCheckRequest, stream grpc_health_v1.Health_WatchServer) error {
	_ = s.service
	_ = req
	return stream.Send(&grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_SERVING})
}
