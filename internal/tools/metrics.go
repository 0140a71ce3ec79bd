package tools

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	toolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xppkb",
		Subsystem: "tools",
		Name:      "calls_total",
		Help:      "Tool calls by tool and outcome code",
	}, []string{"tool", "code"})

	toolDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "xppkb",
		Subsystem: "tools",
		Name:      "duration_seconds",
		Help:      "Tool call latency",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"tool"})
)

// observe counts a finished call under its error code, or OK.
func observe(tool string, res *Result, elapsed time.Duration) {
	code := "OK"
	if res != nil && res.IsError && res.Response != nil && res.Response.Error != nil {
		code = string(res.Response.Error.Code)
	}
	toolCalls.WithLabelValues(tool, code).Inc()
	toolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}
