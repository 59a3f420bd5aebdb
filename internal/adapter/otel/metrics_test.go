package otel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Strob0t/StackForge/internal/config"
)

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordProvision(ctx, "java", "react", true, 1.5)
	m.RecordPipeline(ctx, "build", "RUNNING")
	m.RecordWarning(ctx, "grant_owner_access")
}

func TestNewMetricsOnNoopProvider(t *testing.T) {
	m, err := NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	ctx := context.Background()
	m.RecordProvision(ctx, "python", "vue", false, 0.2)
	m.RecordPipeline(ctx, "deploy", "SUCCESS")
	m.RecordWarning(ctx, "remote_delete")
}

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), config.OTEL{ServiceName: "stackforge"})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestTracedSkipsProbes(t *testing.T) {
	tests := map[string]bool{
		"/health":                  true,
		"/health/ready":            true,
		"/metrics":                 true,
		"/ws":                      true,
		"/api/v1/projects":         false,
		"/api/v1/projects/1/build": false,
	}
	for path, skipped := range tests {
		r := httptest.NewRequest(http.MethodGet, path, http.NoBody)
		if got := traced(r); got == skipped {
			t.Errorf("traced(%s) = %v, want %v", path, got, !skipped)
		}
	}
}
