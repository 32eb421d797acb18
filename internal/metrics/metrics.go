/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the pool backend's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "piron",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "piron",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "piron",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	depositsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "piron",
			Subsystem: "deposits",
			Name:      "recorded_total",
			Help:      "Deposits processed, by outcome.",
		},
		[]string{"result"},
	)

	poolSyncs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "piron",
			Subsystem: "sync",
			Name:      "pool_syncs_total",
			Help:      "Chain reconciliations of pool records.",
		},
		[]string{"success"},
	)

	poolSyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "piron",
			Subsystem: "sync",
			Name:      "pool_sync_duration_seconds",
			Help:      "Duration of a single pool reconciliation.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
	)

	epochCloses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "piron",
			Subsystem: "chain",
			Name:      "epoch_closes_total",
			Help:      "closeEpoch transactions sent by the operator.",
		},
		[]string{"success"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		depositsRecorded,
		poolSyncs,
		poolSyncDuration,
		epochCloses,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps next with request count, latency and in-flight metrics.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordDeposit counts a deposit outcome: recorded, duplicate, warning or failed.
func RecordDeposit(result string) {
	depositsRecorded.WithLabelValues(result).Inc()
}

func RecordPoolSync(duration time.Duration, success bool) {
	poolSyncs.WithLabelValues(strconv.FormatBool(success)).Inc()
	poolSyncDuration.Observe(duration.Seconds())
}

func RecordEpochClose(success bool) {
	epochCloses.WithLabelValues(strconv.FormatBool(success)).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// canonicalPath collapses ids out of API paths so label cardinality stays bounded.
// /api/v1/pools/3f2a.../sync becomes /api/v1/pools/:id/sync.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}

	parts := strings.Split(trimmed, "/")
	for i, part := range parts {
		if looksLikeId(part) {
			parts[i] = ":id"
		}
	}
	return "/" + strings.Join(parts, "/")
}

func looksLikeId(part string) bool {
	if strings.HasPrefix(part, "0x") && len(part) > 10 {
		return true
	}
	return len(part) == 36 && strings.Count(part, "-") == 4
}
