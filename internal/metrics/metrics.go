package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BatchesProduced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sijuk_production_batches_total",
		Help: "Production batches recorded",
	})

	UnitsProduced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sijuk_units_produced_total",
		Help: "Finished packs produced across all batches",
	})

	TransactionsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sijuk_distribution_transactions_total",
			Help: "Warung visits recorded, by price scheme and payment status",
		},
		[]string{"scheme", "payment_status"},
	)

	AmountBilled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sijuk_billed_amount_total",
		Help: "Sum of total_bill over recorded transactions (rupiah)",
	})

	LowMarginTransactions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sijuk_low_margin_transactions_total",
		Help: "Transactions whose margin fell under the alert threshold",
	})
)

// Middleware records request count and latency per route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}

		// route pattern, bukan path mentah, supaya label tidak meledak
		path := c.Route().Path
		RequestCounter.WithLabelValues(c.Method(), path, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(c.Method(), path).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler exposes the default registry.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
