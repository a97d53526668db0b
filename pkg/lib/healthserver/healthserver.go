// Package healthserver exposes the state of a hot reload session over the
// standard gRPC health checking protocol.
//
// SERVING means the container has been started and is being watched, not
// that the app inside it answers requests yet: the engine reports a run as
// soon as it is spawned. Callers that need readiness should poll the app's
// own port after SERVING.
package healthserver

import (
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/JustinBeckwith/flem/pkg/lib"
)

// DefaultAddress is used when no address is configured.
const DefaultAddress = "localhost:50051"

// ServiceName is the health service that tracks the running container. The
// empty service reports on the server itself.
const ServiceName = "flem.Container"

// Server is a gRPC health server fed by session events.
type Server struct {
	lis    net.Listener
	s      *grpc.Server
	health *health.Server
}

// New listens on addr and registers the health service. The app starts
// out NOT_SERVING.
func New(addr string) (*Server, error) {
	if addr == "" {
		addr = DefaultAddress
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, hs)

	return &Server{lis: lis, s: s, health: hs}, nil
}

// Publish implements lib.Sink. Only lifecycle events change the status.
func (h *Server) Publish(o lib.Output) {
	switch o.Event {
	case lib.AppStarted:
		h.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	case lib.BuildStarted, lib.AppRestarting, lib.AppStopping, lib.AppStopped:
		h.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	}
}

// Serve blocks serving gRPC on the listener.
func (h *Server) Serve() error {
	return h.s.Serve(h.lis)
}

// Addr returns the network address the server is bound to.
func (h *Server) Addr() net.Addr { return h.lis.Addr() }

// Stop marks every service NOT_SERVING and gracefully stops the server.
func (h *Server) Stop() {
	h.health.Shutdown()
	h.s.GracefulStop()
}
