// Package metrics collects per-request timings and the database calls made
// while serving them. Collection never blocks a request: traces are queued
// on a buffered channel and dropped when it is full.
package metrics

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// RequestTrace tracks timing for a single request
type RequestTrace struct {
	RequestID     string            `json:"requestId"`
	Method        string            `json:"method"`
	Path          string            `json:"path"`
	Status        int               `json:"status"`
	StartTime     time.Time         `json:"startTime"`
	EndTime       time.Time         `json:"endTime"`
	TotalDuration time.Duration     `json:"totalDuration"`
	DBQueries     []DBQueryTrace    `json:"dbQueries"`
	DBTotalTime   time.Duration     `json:"dbTotalTime"`
	Error         string            `json:"error,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// DBQueryTrace tracks a single database query
type DBQueryTrace struct {
	Operation  string        `json:"operation"`
	Collection string        `json:"collection"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}

// RouteMetrics aggregates metrics for a specific route
type RouteMetrics struct {
	Method      string        `json:"method"`
	Path        string        `json:"path"`
	Count       int64         `json:"count"`
	ErrorCount  int64         `json:"errorCount"`
	TotalTime   time.Duration `json:"totalTime"`
	AvgTime     time.Duration `json:"avgTime"`
	MinTime     time.Duration `json:"minTime"`
	MaxTime     time.Duration `json:"maxTime"`
	DBTotalTime time.Duration `json:"dbTotalTime"`
	DBAvgTime   time.Duration `json:"dbAvgTime"`
	LastRequest time.Time     `json:"lastRequest"`
}

// Collector collects and aggregates request metrics
type Collector struct {
	mu             sync.RWMutex
	traces         []RequestTrace
	maxTraces      int
	routeMetrics   map[string]*RouteMetrics
	windowStart    time.Time
	windowDuration time.Duration
	totalRequests  int64
	totalErrors    int64
	totalDBQueries int64
	totalDBTime    time.Duration
	traceChan      chan RequestTrace
	stopChan       chan struct{}
	stopOnce       sync.Once
}

var (
	globalMu      sync.Mutex
	globalMetrics *Collector
)

// NewCollector creates a collector and starts its background processor
func NewCollector(maxTraces int, windowDuration time.Duration) *Collector {
	mc := &Collector{
		traces:         make([]RequestTrace, 0, maxTraces),
		maxTraces:      maxTraces,
		routeMetrics:   make(map[string]*RouteMetrics),
		windowStart:    time.Now(),
		windowDuration: windowDuration,
		traceChan:      make(chan RequestTrace, 1000),
		stopChan:       make(chan struct{}),
	}
	go mc.processTraces()
	return mc
}

// Init replaces the global collector
func Init(maxTraces int, windowDuration time.Duration) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalMetrics != nil {
		globalMetrics.Stop()
	}
	globalMetrics = NewCollector(maxTraces, windowDuration)
}

// Get returns the global collector, creating a default one on first use
func Get() *Collector {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalMetrics == nil {
		globalMetrics = NewCollector(10000, time.Hour)
	}
	return globalMetrics
}

// Stop ends the background processor
func (mc *Collector) Stop() {
	mc.stopOnce.Do(func() { close(mc.stopChan) })
}

// RecordTrace queues a trace. It never blocks: when the queue is full the
// trace is dropped.
func (mc *Collector) RecordTrace(trace RequestTrace) {
	select {
	case mc.traceChan <- trace:
	default:
	}
}

func (mc *Collector) processTraces() {
	for {
		select {
		case trace := <-mc.traceChan:
			mc.process(trace)
		case <-mc.stopChan:
			return
		}
	}
}

func (mc *Collector) process(trace RequestTrace) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if len(mc.traces) >= mc.maxTraces && len(mc.traces) > 0 {
		mc.traces = mc.traces[1:]
	}
	mc.traces = append(mc.traces, trace)

	path := normalizeRoutePath(trace.Path)
	routeKey := trace.Method + " " + path
	m, exists := mc.routeMetrics[routeKey]
	if !exists {
		m = &RouteMetrics{
			Method:  trace.Method,
			Path:    path,
			MinTime: trace.TotalDuration,
		}
		mc.routeMetrics[routeKey] = m
	}

	m.Count++
	m.TotalTime += trace.TotalDuration
	m.AvgTime = m.TotalTime / time.Duration(m.Count)
	m.LastRequest = trace.StartTime
	if trace.TotalDuration < m.MinTime {
		m.MinTime = trace.TotalDuration
	}
	if trace.TotalDuration > m.MaxTime {
		m.MaxTime = trace.TotalDuration
	}
	if trace.Status >= 400 {
		m.ErrorCount++
		mc.totalErrors++
	}
	m.DBTotalTime += trace.DBTotalTime
	m.DBAvgTime = m.DBTotalTime / time.Duration(m.Count)

	mc.totalRequests++
	mc.totalDBQueries += int64(len(trace.DBQueries))
	mc.totalDBTime += trace.DBTotalTime

	cutoff := time.Now().Add(-mc.windowDuration)
	if mc.windowStart.Before(cutoff) {
		var kept []RequestTrace
		for _, t := range mc.traces {
			if t.StartTime.After(cutoff) {
				kept = append(kept, t)
			}
		}
		mc.traces = kept
		mc.windowStart = time.Now()
	}
}

// RouteMetrics returns a copy of the aggregated metrics of every route
func (mc *Collector) RouteMetrics() map[string]RouteMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	result := make(map[string]RouteMetrics, len(mc.routeMetrics))
	for k, v := range mc.routeMetrics {
		result[k] = *v
	}
	return result
}

// SlowestRoutes returns up to limit routes ordered by average time
func (mc *Collector) SlowestRoutes(limit int) []RouteMetrics {
	routes := make([]RouteMetrics, 0)
	for _, m := range mc.RouteMetrics() {
		routes = append(routes, m)
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].AvgTime > routes[j].AvgTime })
	if limit > 0 && len(routes) > limit {
		routes = routes[:limit]
	}
	return routes
}

// Summary returns overall summary metrics
func (mc *Collector) Summary() map[string]interface{} {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	var errorRate float64
	if mc.totalRequests > 0 {
		errorRate = float64(mc.totalErrors) / float64(mc.totalRequests)
	}
	var avgDBTime time.Duration
	if mc.totalDBQueries > 0 {
		avgDBTime = mc.totalDBTime / time.Duration(mc.totalDBQueries)
	}

	return map[string]interface{}{
		"totalRequests":  mc.totalRequests,
		"totalErrors":    mc.totalErrors,
		"errorRate":      errorRate,
		"totalDBQueries": mc.totalDBQueries,
		"totalDBTime":    mc.totalDBTime.String(),
		"avgDBTime":      avgDBTime.String(),
		"windowStart":    mc.windowStart,
		"routeCount":     len(mc.routeMetrics),
		"traceCount":     len(mc.traces),
	}
}

var (
	objectIDPattern = regexp.MustCompile(`/[0-9a-fA-F]{24}(/|$)`)
	uuidPattern     = regexp.MustCompile(`/[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}(/|$)`)
)

// normalizeRoutePath replaces ids in a path with {id} so routes group, e.g.
// /api/casos/507f1f77bcf86cd799439011/formulario -> /api/casos/{id}/formulario
func normalizeRoutePath(path string) string {
	path = objectIDPattern.ReplaceAllString(path, "/{id}$1")
	path = uuidPattern.ReplaceAllString(path, "/{id}$1")
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

type requestTraceContextKey struct{}

type requestTraceContext struct {
	trace *RequestTrace
	mu    sync.Mutex
}

// WithRequestTrace adds request trace to context
func WithRequestTrace(ctx context.Context, trace *RequestTrace) context.Context {
	return context.WithValue(ctx, requestTraceContextKey{}, &requestTraceContext{trace: trace})
}

// RecordDBQueryFromContext appends a database call to the trace carried by
// ctx. Contexts without a trace are ignored.
func RecordDBQueryFromContext(ctx context.Context, operation, collection string, duration time.Duration, err error) {
	if ctx == nil {
		return
	}
	rt, ok := ctx.Value(requestTraceContextKey{}).(*requestTraceContext)
	if !ok || rt.trace == nil {
		return
	}

	q := DBQueryTrace{
		Operation:  operation,
		Collection: collection,
		Duration:   duration,
		Timestamp:  time.Now(),
	}
	if err != nil {
		q.Error = err.Error()
	}
	rt.mu.Lock()
	rt.trace.DBQueries = append(rt.trace.DBQueries, q)
	rt.trace.DBTotalTime += duration
	rt.mu.Unlock()
}
