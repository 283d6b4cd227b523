package grpc

import (
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported for the whole process.
const ServiceName = "settlement.SettlementService"

// Checker reports whether a dependency is reachable.
type Checker func(ctx context.Context) error

// HealthServer keeps the gRPC health status in step with the service's
// dependencies. A failing check marks its own entry and the whole service
// NOT_SERVING.
type HealthServer struct {
	Health   *health.Server
	Checks   map[string]Checker
	Interval time.Duration
	Timeout  time.Duration
	Log      *logrus.Entry
}

func NewHealthServer(checks map[string]Checker, log *logrus.Entry) *HealthServer {
	return &HealthServer{
		Health:   health.NewServer(),
		Checks:   checks,
		Interval: 15 * time.Second,
		Timeout:  3 * time.Second,
		Log:      log,
	}
}

// Probe runs every check once and publishes the result.
func (h *HealthServer) Probe(ctx context.Context) bool {
	healthy := true
	for name, check := range h.Checks {
		cctx, cancel := context.WithTimeout(ctx, h.Timeout)
		err := check(cctx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			healthy = false
			status = healthpb.HealthCheckResponse_NOT_SERVING
			h.Log.WithError(err).WithField("dependency", name).Warn("health check failed")
		}
		h.Health.SetServingStatus(name, status)
	}

	overall := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.Health.SetServingStatus("", overall)
	h.Health.SetServingStatus(ServiceName, overall)
	return healthy
}

// Run probes on every tick until ctx is done, then marks everything
// NOT_SERVING.
func (h *HealthServer) Run(ctx context.Context) {
	h.Probe(ctx)
	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.Health.Shutdown()
			return
		case <-ticker.C:
			h.Probe(ctx)
		}
	}
}

// StartGRPCServer serves the health and reflection services on port until
// ctx is cancelled.
func StartGRPCServer(ctx context.Context, port string, hs *HealthServer, log *logrus.Entry) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return err
	}
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, hs.Health)
	reflection.Register(s)

	go hs.Run(ctx)
	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	log.Infof("gRPC server listening at %v", lis.Addr())
	return s.Serve(lis)
}
