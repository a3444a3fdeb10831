package promhooks

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matzehuels/btgraph/pkg/errors"
)

func TestPipeline(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	p := NewPipeline(reg)

	p.OnMigrateComplete(ctx, 1, true, time.Millisecond, nil)
	p.OnMigrateComplete(ctx, 2, false, time.Millisecond, nil)
	p.OnMigrateComplete(ctx, 9, false, time.Millisecond, errors.New(errors.ErrCodeUnsupportedSchema, "v9"))

	tests := []struct {
		version, result string
	}{
		{"1", "migrated"},
		{"2", "current"},
		{"9", "UNSUPPORTED_SCHEMA"},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(p.migrations.WithLabelValues(tt.version, tt.result)); got != 1 {
			t.Errorf("migrations{%s,%s} = %v, want 1", tt.version, tt.result, got)
		}
	}

	p.OnValidateComplete(ctx, 3, 2, false, time.Millisecond)
	if got := testutil.ToFloat64(p.validations.WithLabelValues("false")); got != 1 {
		t.Errorf("validations{false} = %v, want 1", got)
	}

	p.OnLayoutComplete(ctx, 4, time.Millisecond)
	p.OnLayoutComplete(ctx, 2, time.Millisecond)
	if got := testutil.ToFloat64(p.placed); got != 6 {
		t.Errorf("placed = %v, want 6", got)
	}

	p.OnSaveComplete(ctx, "file", time.Millisecond, nil)
	p.OnSaveComplete(ctx, "mongo", time.Millisecond, context.DeadlineExceeded)
	if got := testutil.ToFloat64(p.saves.WithLabelValues("mongo", "error")); got != 1 {
		t.Errorf("saves{mongo,error} = %v, want 1", got)
	}

	if n, err := testutil.GatherAndCount(reg); err != nil || n == 0 {
		t.Errorf("GatherAndCount() = %d, %v", n, err)
	}
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	c := NewCache(prometheus.NewRegistry())

	c.OnCacheHit(ctx, "report")
	c.OnCacheMiss(ctx, "report")
	c.OnCacheMiss(ctx, "report")
	c.OnCacheSet(ctx, "report", 128)

	if got := testutil.ToFloat64(c.lookups.WithLabelValues("report", "miss")); got != 2 {
		t.Errorf("misses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.bytes.WithLabelValues("report")); got != 128 {
		t.Errorf("bytes = %v, want 128", got)
	}
}

func TestHTTP(t *testing.T) {
	ctx := context.Background()
	h := NewHTTP(prometheus.NewRegistry())

	h.OnRequest(ctx, "POST", "/v1/validate")
	if got := testutil.ToFloat64(h.inFlight); got != 1 {
		t.Errorf("inFlight = %v, want 1", got)
	}
	h.OnResponse(ctx, "POST", "/v1/validate", 200, 5*time.Millisecond)
	if got := testutil.ToFloat64(h.inFlight); got != 0 {
		t.Errorf("inFlight = %v, want 0", got)
	}
	if got := testutil.ToFloat64(h.responses.WithLabelValues("POST", "/v1/validate", "200")); got != 1 {
		t.Errorf("responses = %v, want 1", got)
	}
}

func TestRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPipeline(reg)
	defer func() {
		if recover() == nil {
			t.Error("registering twice on one registry should panic")
		}
	}()
	NewPipeline(reg)
}
