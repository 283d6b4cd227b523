package grpc

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func status(t *testing.T, hs *HealthServer, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	res, err := hs.Health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return res.Status
}

func TestProbeAllHealthy(t *testing.T) {
	hs := NewHealthServer(map[string]Checker{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return nil },
	}, quietLog())

	assert.True(t, hs.Probe(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, hs, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, hs, ServiceName))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, hs, "database"))
}

func TestProbeFailingDependency(t *testing.T) {
	redisUp := false
	hs := NewHealthServer(map[string]Checker{
		"database": func(context.Context) error { return nil },
		"redis": func(context.Context) error {
			if redisUp {
				return nil
			}
			return errors.New("connection refused")
		},
	}, quietLog())

	assert.False(t, hs.Probe(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, hs, ServiceName))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, hs, "redis"))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, hs, "database"))

	redisUp = true
	assert.True(t, hs.Probe(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, hs, ServiceName))
}
