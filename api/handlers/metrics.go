package handlers

import (
	"net/http"
	"strconv"

	"github.com/rvi-ar/casos-api/metrics"
)

func formatRouteMetrics(routes []metrics.RouteMetrics) []map[string]interface{} {
	result := make([]map[string]interface{}, len(routes))
	for i, route := range routes {
		result[i] = map[string]interface{}{
			"method":      route.Method,
			"path":        route.Path,
			"count":       route.Count,
			"errorCount":  route.ErrorCount,
			"avgTime":     route.AvgTime.Milliseconds(),
			"minTime":     route.MinTime.Milliseconds(),
			"maxTime":     route.MaxTime.Milliseconds(),
			"dbAvgTime":   route.DBAvgTime.Milliseconds(),
			"lastRequest": route.LastRequest,
		}
	}
	return result
}

// Metrics serves the request metrics collected by api.MetricsMiddleware
type Metrics struct {
	Collector *metrics.Collector
}

// SummaryHandler returns the overall summary and the slowest routes
func (m Metrics) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	collector := m.Collector
	if collector == nil {
		collector = metrics.Get()
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"summary":       collector.Summary(),
		"slowestRoutes": formatRouteMetrics(collector.SlowestRoutes(limit)),
	})
}
