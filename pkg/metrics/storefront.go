package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "storefront"

// Checkout outcome label values.
const (
	OutcomeSuccess           = "success"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeEmptyCart         = "empty_cart"
	OutcomeError             = "error"
)

// Outbox publish result label values.
const (
	PublishOK           = "published"
	PublishRetry        = "retry"
	PublishDeadLettered = "dead_lettered"
)

// Storefront holds the business counters of the inventory and order flow.
type Storefront struct {
	checkouts  *prometheus.CounterVec
	rejections *prometheus.CounterVec
	publishes  *prometheus.CounterVec
}

// NewStorefront registers the storefront counters. A nil registerer yields a no-op recorder.
func NewStorefront(reg prometheus.Registerer) *Storefront {
	if reg == nil {
		return &Storefront{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_total",
		Help:      "Checkout attempts by outcome.",
	}, []string{"outcome"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_rejections_total",
		Help:      "Conditional stock decrements that found too little stock.",
	}, []string{"target"})
	publishes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "publish_total",
		Help:      "Outbox publish attempts by event type and result.",
	}, []string{"event_type", "result"})
	reg.MustRegister(checkouts, rejections, publishes)
	return &Storefront{
		checkouts:  checkouts,
		rejections: rejections,
		publishes:  publishes,
	}
}

func (m *Storefront) CheckoutOutcome(outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// StockRejected counts a refused decrement; target is "product" or "variation".
func (m *Storefront) StockRejected(target string) {
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.WithLabelValues(normalizeLabel(target)).Inc()
}

func (m *Storefront) OutboxPublish(eventType, result string) {
	if m == nil || m.publishes == nil {
		return
	}
	m.publishes.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}
