package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRoutePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/api/casos/507f1f77bcf86cd799439011/formulario", "/api/casos/{id}/formulario"},
		{"/api/victimas/507f1f77bcf86cd799439011", "/api/victimas/{id}"},
		{"/api/listado/", "/api/listado"},
		{"/", "/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeRoutePath(tt.in), tt.in)
	}
}

func TestCollector_Process(t *testing.T) {
	mc := NewCollector(2, time.Hour)
	defer mc.Stop()

	now := time.Now()
	mc.process(RequestTrace{Method: "GET", Path: "/api/casos/507f1f77bcf86cd799439011/formulario", Status: 200, StartTime: now, TotalDuration: 10 * time.Millisecond})
	mc.process(RequestTrace{Method: "GET", Path: "/api/casos/507f191e810c19729de860ea/formulario", Status: 404, StartTime: now, TotalDuration: 30 * time.Millisecond})
	mc.process(RequestTrace{Method: "GET", Path: "/api/dashboard", Status: 200, StartTime: now, TotalDuration: 5 * time.Millisecond})

	routes := mc.RouteMetrics()
	require.Len(t, routes, 2)
	form := routes["GET /api/casos/{id}/formulario"]
	assert.Equal(t, int64(2), form.Count)
	assert.Equal(t, int64(1), form.ErrorCount)
	assert.Equal(t, 20*time.Millisecond, form.AvgTime)
	assert.Equal(t, 10*time.Millisecond, form.MinTime)
	assert.Equal(t, 30*time.Millisecond, form.MaxTime)

	slowest := mc.SlowestRoutes(1)
	require.Len(t, slowest, 1)
	assert.Equal(t, "/api/casos/{id}/formulario", slowest[0].Path)

	summary := mc.Summary()
	assert.Equal(t, int64(3), summary["totalRequests"])
	assert.Equal(t, int64(1), summary["totalErrors"])
	assert.Equal(t, 2, summary["traceCount"])
}

func TestRecordDBQueryFromContext(t *testing.T) {
	trace := &RequestTrace{}
	ctx := WithRequestTrace(context.Background(), trace)

	RecordDBQueryFromContext(ctx, "find", "victimas", 3*time.Millisecond, nil)
	RecordDBQueryFromContext(ctx, "insertOne", "hechos", 2*time.Millisecond, errors.New("boom"))
	RecordDBQueryFromContext(context.Background(), "find", "casos", time.Second, nil)

	require.Len(t, trace.DBQueries, 2)
	assert.Equal(t, "victimas", trace.DBQueries[0].Collection)
	assert.Equal(t, "boom", trace.DBQueries[1].Error)
	assert.Equal(t, 5*time.Millisecond, trace.DBTotalTime)
}

func TestRecordTraceNeverBlocks(t *testing.T) {
	mc := &Collector{traceChan: make(chan RequestTrace)}
	done := make(chan struct{})
	go func() {
		mc.RecordTrace(RequestTrace{})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RecordTrace blocked")
	}
}
