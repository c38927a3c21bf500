package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codesync",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests received",
	}, []string{"method", "path", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "codesync",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	httpInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "codesync",
		Name:      "http_in_flight_requests",
		Help:      "Current number of in-flight HTTP requests",
	})

	connections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "codesync",
		Name:      "active_connections",
		Help:      "Current number of live websocket connections",
	})

	rooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "codesync",
		Name:      "active_rooms",
		Help:      "Current number of rooms with at least one member",
	})

	eventsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codesync",
		Name:      "events_dispatched_total",
		Help:      "Inbound events routed by the coordinator",
	}, []string{"event"})

	framesDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codesync",
		Name:      "frames_delivered_total",
		Help:      "Outbound frames handed to the transport",
	}, []string{"event"})
)

func SetConnections(n int) { connections.Set(float64(n)) }
func SetRooms(n int)       { rooms.Set(float64(n)) }

func IncEvent(event string)     { eventsDispatched.WithLabelValues(event).Inc() }
func IncDelivered(event string) { framesDelivered.WithLabelValues(event).Inc() }

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack must pass through so the websocket upgrade keeps working behind
// this middleware.
func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := r.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, fmt.Errorf("metrics: underlying ResponseWriter does not support hijacking")
}

// Middleware records request metrics with Prometheus labels.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		labels := prometheus.Labels{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": strconv.Itoa(rec.status),
		}
		httpRequests.With(labels).Inc()
		httpLatency.With(labels).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the default Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
