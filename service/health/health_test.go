package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func TestServer_ServingLifecycle(t *testing.T) {
	req := require.New(t)
	// Given
	s, err := Listen("127.0.0.1:0")
	req.NoError(err)
	done := make(chan error, 1)
	go func() { done <- s.Serve() }()

	conn, err := grpc.Dial(s.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	req.NoError(err)
	defer conn.Close()
	client := grpc_health_v1.NewHealthClient(conn)
	check := func(service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
		req.NoError(err)
		return resp.GetStatus()
	}

	// Then 启动时未就绪
	req.Equal(grpc_health_v1.HealthCheckResponse_NOT_SERVING, check(ServiceName))

	// When
	s.SetServing(true)
	req.Equal(grpc_health_v1.HealthCheckResponse_SERVING, check(""))
	req.Equal(grpc_health_v1.HealthCheckResponse_SERVING, check(ServiceName))

	s.Stop()
	req.NoError(<-done)
}
