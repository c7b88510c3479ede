package api

import (
	"context"
	"testing"
	"time"

	"github.com/loglens/loglens/internal/config"
	"github.com/loglens/loglens/internal/health"
	"github.com/loglens/loglens/internal/ingest"
	"github.com/loglens/loglens/internal/logging"
	"github.com/loglens/loglens/internal/metrics"
	"github.com/loglens/loglens/internal/store"
)

func TestShutdownAppliesGracePeriod(t *testing.T) {
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	collector := metrics.NewCollector()
	svc := ingest.NewService(st, collector, "", logging.Nop())
	checker := health.NewChecker(0)

	srv := New(
		config.ServerConfig{Address: ":0", ShutdownTimeout: time.Second},
		config.IngestConfig{MaxBodySize: config.DefaultMaxBodySize},
		svc, st, collector, checker, logging.Nop(),
	)

	done := make(chan error, 1)
	go func() { done <- srv.Shutdown(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Shutdown: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Shutdown did not return within the grace period")
	}
}
