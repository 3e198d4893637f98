// Package metrics exposes Prometheus collectors for analysis runs.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/imyousuf/rubyagent/internal/analyzer"
)

const namespace = "rubyagent"

var (
	// runsTotal counts analysis runs by outcome.
	// Labels: status (success, error)
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "analysis",
		Name:      "runs_total",
		Help:      "Total analysis runs by status",
	}, []string{"status"})

	// runDurationSeconds measures wall time of whole runs, both passes.
	runDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "analysis",
		Name:      "duration_seconds",
		Help:      "Wall time of analysis runs",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	// classesTotal counts class records produced.
	classesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "classes_total",
		Help:      "Total class records produced by analysis runs",
	})

	// filesTotal counts files analyzed.
	filesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "files_total",
		Help:      "Total Ruby files analyzed",
	})

	// callsResolvedTotal counts call records by whether a defining file was
	// found.
	// Labels: resolved (true, false)
	callsResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "calls_resolved_total",
		Help:      "Call records by resolution outcome",
	}, []string{"resolved"})
)

// ObserveRun records one analysis. res may be nil when err is set.
func ObserveRun(res *analyzer.Result, dur time.Duration, err error) {
	runDurationSeconds.Observe(dur.Seconds())
	if err != nil || res == nil {
		runsTotal.WithLabelValues("error").Inc()
		return
	}
	runsTotal.WithLabelValues("success").Inc()
	filesTotal.Add(float64(len(res.Files)))
	classesTotal.Add(float64(len(res.Classes)))

	var resolved, unresolved int
	for _, class := range res.Classes {
		for _, method := range class.Methods {
			for _, call := range method.Calls {
				if call.Resolution.Resolved() {
					resolved++
				} else {
					unresolved++
				}
			}
		}
	}
	callsResolvedTotal.WithLabelValues(strconv.FormatBool(true)).Add(float64(resolved))
	callsResolvedTotal.WithLabelValues(strconv.FormatBool(false)).Add(float64(unresolved))
}
