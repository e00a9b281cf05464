package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CommerceMetrics counts order, stock and payment outcomes.
type CommerceMetrics struct {
	ordersCreated   *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	stockDeductions *prometheus.CounterVec
	refundFailures  *prometheus.CounterVec
	paymentVerify   *prometheus.HistogramVec
}

// NewCommerceMetrics registers the commerce metrics on reg. A nil registerer
// yields a recorder that drops everything.
func NewCommerceMetrics(reg prometheus.Registerer) *CommerceMetrics {
	if reg == nil {
		return &CommerceMetrics{}
	}
	m := &CommerceMetrics{
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders persisted, by order kind.",
		}, []string{"kind"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "Order status transitions, by order kind and target status.",
		}, []string{"kind", "to"}),
		stockDeductions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stock_deductions_total",
			Help: "Multi-line stock deductions, by result.",
		}, []string{"result"}),
		refundFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_refund_failures_total",
			Help: "Refunds the payment processor rejected after a cancellation.",
		}, []string{"kind"}),
		paymentVerify: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "payment_verify_duration_seconds",
			Help:    "Latency of payment confirmation checks, by result.",
			Buckets: prometheus.DefBuckets,
		}, []string{"result"}),
	}
	reg.MustRegister(m.ordersCreated, m.transitions, m.stockDeductions, m.refundFailures, m.paymentVerify)
	return m
}

func (m *CommerceMetrics) OrderCreated(kind string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *CommerceMetrics) StatusTransition(kind, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(kind), normalizeLabel(to)).Inc()
}

func (m *CommerceMetrics) StockDeduction(ok bool) {
	if m == nil || m.stockDeductions == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "insufficient"
	}
	m.stockDeductions.WithLabelValues(result).Inc()
}

func (m *CommerceMetrics) RefundFailed(kind string) {
	if m == nil || m.refundFailures == nil {
		return
	}
	m.refundFailures.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *CommerceMetrics) ObservePaymentVerify(result string, d time.Duration) {
	if m == nil || m.paymentVerify == nil {
		return
	}
	m.paymentVerify.WithLabelValues(normalizeLabel(result)).Observe(d.Seconds())
}
