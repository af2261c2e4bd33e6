package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the service's collectors. It is separate from the default registry
	// so tests can read values without global state from other packages.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "channel_partner",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "channel_partner",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	applications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "channel_partner",
			Subsystem: "applications",
			Name:      "events_total",
			Help:      "Application workflow events by outcome.",
		},
		[]string{"outcome"},
	)

	credits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "channel_partner",
			Subsystem: "ledger",
			Name:      "credits_total",
			Help:      "Credits moved through the ledger by entry type.",
		},
		[]string{"type"},
	)

	otpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "channel_partner",
			Subsystem: "otp",
			Name:      "requests_total",
			Help:      "OTP issue and verify attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		applications,
		credits,
		otpRequests,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency keyed by the matched route pattern.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		httpRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

func RecordApplication(outcome string) {
	applications.WithLabelValues(outcome).Inc()
}

// RecordCredits adds the absolute amount moved under the entry type.
func RecordCredits(entryType string, amount int) {
	if amount < 0 {
		amount = -amount
	}
	credits.WithLabelValues(entryType).Add(float64(amount))
}

func RecordOTP(outcome string) {
	otpRequests.WithLabelValues(outcome).Inc()
}
