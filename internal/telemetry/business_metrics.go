package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for the checkout pipeline.
// Store-scoped metrics carry a store_id label for per-tenant dashboards.
// A nil *BusinessMetrics is valid and records nothing.
type BusinessMetrics struct {
	// Orders
	OrdersCreated   *prometheus.CounterVec
	OrderValue      *prometheus.HistogramVec
	OrderItemCount  *prometheus.HistogramVec
	OrdersCancelled *prometheus.CounterVec

	// Checkout
	CheckoutFailures *prometheus.CounterVec
	GuestIdentities  *prometheus.CounterVec
	StockConflicts   *prometheus.CounterVec

	// Discounts
	DiscountRedemptions *prometheus.CounterVec

	// Documents
	AllocationRetries    *prometheus.CounterVec
	InvoicesMaterialized *prometheus.CounterVec

	// Background jobs
	JobsProcessed *prometheus.CounterVec
	JobsFailed    *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec
}

// NewBusinessMetrics creates all business metrics and registers them with reg.
// A nil reg registers with the default registerer.
func NewBusinessMetrics(reg prometheus.Registerer, namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "freyja"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	subsystem := "checkout"
	factory := promauto.With(reg)

	return &BusinessMetrics{
		// =======================================================================
		// Orders
		// =======================================================================
		OrdersCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_created_total",
				Help:      "Total orders committed",
			},
			[]string{"store_id"},
		),
		OrderValue: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_value",
				Help:      "Committed order totals",
				Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
			},
			[]string{"store_id"},
		),
		OrderItemCount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_item_count",
				Help:      "Line items per committed order",
				Buckets:   []float64{1, 2, 3, 5, 10, 20, 50},
			},
			[]string{"store_id"},
		),
		OrdersCancelled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_cancelled_total",
				Help:      "Total orders transitioned to cancelled",
			},
			[]string{"store_id"},
		),

		// =======================================================================
		// Checkout
		// =======================================================================
		CheckoutFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "failures_total",
				Help:      "Total failed checkouts by error code",
			},
			[]string{"store_id", "reason"}, // reason: invalid, conflict, not_found, internal
		),
		GuestIdentities: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "identities_resolved_total",
				Help:      "Checkout identities resolved by kind",
			},
			[]string{"kind"}, // kind: logged_in, existing_email, new_email, synthesized
		),
		StockConflicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stock_conflicts_total",
				Help:      "Reservations rejected for insufficient stock",
			},
			[]string{"store_id"},
		),

		// =======================================================================
		// Discounts
		// =======================================================================
		DiscountRedemptions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "discount_redemptions_total",
				Help:      "Discount redemption attempts by result",
			},
			[]string{"store_id", "result"}, // result: redeemed, exhausted, not_found, error
		),

		// =======================================================================
		// Documents
		// =======================================================================
		AllocationRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "allocation_retries_total",
				Help:      "Document identifier collisions that forced a retry",
			},
			[]string{"kind"}, // kind: invoice_number, share_token
		),
		InvoicesMaterialized: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "invoices_materialized_total",
				Help:      "Total invoices issued",
			},
			[]string{"store_id"},
		),

		// =======================================================================
		// Background Jobs
		// =======================================================================
		JobsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "jobs_processed_total",
				Help:      "Total background jobs completed",
			},
			[]string{"job_type"},
		),
		JobsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "jobs_failed_total",
				Help:      "Total background jobs failed",
			},
			[]string{"job_type"},
		),
		JobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "job_duration_seconds",
				Help:      "Background job processing time",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"job_type"},
		),
	}
}

// RecordOrderCreated records a committed order.
func (m *BusinessMetrics) RecordOrderCreated(storeID string, total float64, items int) {
	if m == nil {
		return
	}
	m.OrdersCreated.WithLabelValues(storeID).Inc()
	m.OrderValue.WithLabelValues(storeID).Observe(total)
	m.OrderItemCount.WithLabelValues(storeID).Observe(float64(items))
}

// RecordOrderCancelled records a cancellation transition.
func (m *BusinessMetrics) RecordOrderCancelled(storeID string) {
	if m == nil {
		return
	}
	m.OrdersCancelled.WithLabelValues(storeID).Inc()
}

// RecordCheckoutFailure records a failed checkout by error code.
func (m *BusinessMetrics) RecordCheckoutFailure(storeID, reason string) {
	if m == nil {
		return
	}
	m.CheckoutFailures.WithLabelValues(storeID, reason).Inc()
}

// RecordStockConflict records a rejected reservation.
func (m *BusinessMetrics) RecordStockConflict(storeID string) {
	if m == nil {
		return
	}
	m.StockConflicts.WithLabelValues(storeID).Inc()
}

// RecordIdentity records how a checkout identity was resolved.
func (m *BusinessMetrics) RecordIdentity(kind string) {
	if m == nil {
		return
	}
	m.GuestIdentities.WithLabelValues(kind).Inc()
}

// RecordDiscountRedemption records a redemption attempt.
func (m *BusinessMetrics) RecordDiscountRedemption(storeID, result string) {
	if m == nil {
		return
	}
	m.DiscountRedemptions.WithLabelValues(storeID, result).Inc()
}

// RecordAllocationRetry records an identifier collision.
func (m *BusinessMetrics) RecordAllocationRetry(kind string) {
	if m == nil {
		return
	}
	m.AllocationRetries.WithLabelValues(kind).Inc()
}

// RecordInvoiceMaterialized records an issued invoice.
func (m *BusinessMetrics) RecordInvoiceMaterialized(storeID string) {
	if m == nil {
		return
	}
	m.InvoicesMaterialized.WithLabelValues(storeID).Inc()
}

// RecordJob records a finished background job.
func (m *BusinessMetrics) RecordJob(jobType string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.JobDuration.WithLabelValues(jobType).Observe(seconds)
	if err != nil {
		m.JobsFailed.WithLabelValues(jobType).Inc()
		return
	}
	m.JobsProcessed.WithLabelValues(jobType).Inc()
}
