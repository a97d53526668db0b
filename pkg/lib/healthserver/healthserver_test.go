package healthserver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/JustinBeckwith/flem/pkg/lib"
)

func check(t *testing.T, s *Server, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := s.health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestPublishTracksLifecycle(t *testing.T) {
	s, err := New("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(s.Stop)

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, s, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, s, ServiceName))

	steps := []struct {
		event lib.AppEvent
		want  healthpb.HealthCheckResponse_ServingStatus
	}{
		{lib.BuildStarted, healthpb.HealthCheckResponse_NOT_SERVING},
		{lib.BuildComplete, healthpb.HealthCheckResponse_NOT_SERVING},
		{lib.AppStarting, healthpb.HealthCheckResponse_NOT_SERVING},
		{lib.AppStarted, healthpb.HealthCheckResponse_SERVING},
		{lib.AppRestarting, healthpb.HealthCheckResponse_NOT_SERVING},
		{lib.AppStarted, healthpb.HealthCheckResponse_SERVING},
		{lib.AppStopping, healthpb.HealthCheckResponse_NOT_SERVING},
	}
	for _, step := range steps {
		s.Publish(lib.Output{Event: step.event})
		assert.Equal(t, step.want, check(t, s, ServiceName), "after %s", step.event)
	}

	// Plain log lines never change the status.
	s.Publish(lib.Output{Event: lib.AppStarted})
	s.Publish(lib.Output{Text: "GET / 200"})
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, s, ServiceName))
}

func TestServeOverGRPC(t *testing.T) {
	s, err := New("127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		_ = s.Serve()
	}()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient(s.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := healthpb.NewHealthClient(conn)
	s.Publish(lib.Output{Event: lib.AppStarted})
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	_, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "unknown"})
	require.Error(t, err)
}
