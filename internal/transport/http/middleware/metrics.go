package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const unmatchedRoute = "unmatched"

var (
	requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "http_requests_total",
		Help:      "HTTP requests by engine, route template, method and status.",
	}, []string{"server", "route", "method", "status"})

	latency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "auth",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by engine and route template.",
		// bcrypt dominates login, so the upper buckets matter
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"server", "route", "method"})

	inFlight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "auth",
		Name:      "http_requests_in_flight",
		Help:      "Requests currently being served.",
	}, []string{"server"})
)

func init() { prometheus.MustRegister(requests, latency, inFlight) }

// Metrics records per-route counters for one engine. Routes are labelled
// by template, so /users/:id is a single series and unknown paths collapse
// into "unmatched".
func Metrics(server string) gin.HandlerFunc {
	gauge := inFlight.WithLabelValues(server)
	return func(c *gin.Context) {
		gauge.Inc()
		start := time.Now()
		c.Next()
		gauge.Dec()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method
		requests.WithLabelValues(server, route, method, strconv.Itoa(c.Writer.Status())).Inc()
		latency.WithLabelValues(server, route, method).Observe(time.Since(start).Seconds())
	}
}
