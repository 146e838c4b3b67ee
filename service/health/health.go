package health

import (
	"net"

	"DreamsChat/tools/errs"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName 网关在健康检查里的服务名；"" 表示整个节点
const ServiceName = "dreams.Gateway"

// Server gRPC 健康检查，供 k8s/负载均衡探活
type Server struct {
	grpc *grpc.Server
	hs   *health.Server
	lis  net.Listener
}

func Listen(addr string) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errs.WrapMsg(err, "listen grpc", "addr", addr)
	}
	s := grpc.NewServer()
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	return &Server{grpc: s, hs: hs, lis: lis}, nil
}

func (s *Server) Addr() string { return s.lis.Addr().String() }

// Serve 阻塞直到 Stop
func (s *Server) Serve() error {
	err := s.grpc.Serve(s.lis)
	if err == grpc.ErrServerStopped {
		return nil
	}
	return err
}

func (s *Server) SetServing(serving bool) {
	st := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		st = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.hs.SetServingStatus("", st)
	s.hs.SetServingStatus(ServiceName, st)
}

// Stop 先标记下线再优雅停止
func (s *Server) Stop() {
	s.hs.Shutdown()
	s.grpc.GracefulStop()
}
