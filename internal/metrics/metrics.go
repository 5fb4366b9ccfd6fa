// Package metrics exposes Prometheus instrumentation for the refresh engine
// and the HTTP API.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	refreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "peoplesync_refreshes_total",
		Help: "Total number of collection refreshes, by service type and outcome.",
	}, []string{"service_type", "outcome"})

	refreshDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "peoplesync_refresh_duration_seconds",
		Help:    "Histogram of end-to-end refresh durations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"service_type"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "peoplesync_http_requests_total",
		Help: "Total number of API requests processed.",
	}, []string{"method", "status"})
)

// Refresh outcomes recorded by ObserveRefresh.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeAccountGone = "account_gone"
)

// ObserveRefresh records one finished refresh run.
func ObserveRefresh(serviceType, outcome string, d time.Duration) {
	refreshesTotal.WithLabelValues(serviceType, outcome).Inc()
	refreshDuration.WithLabelValues(serviceType).Observe(d.Seconds())
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware counts API requests by method and response status.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		httpRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(sw.status)).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Hijack keeps websocket upgrades working through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}
