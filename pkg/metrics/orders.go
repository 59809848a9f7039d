package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// OrderMetrics tracks checkout volume and status movement.
type OrderMetrics struct {
	placed      prometheus.Counter
	revenue     prometheus.Counter
	transitions *prometheus.CounterVec
}

// NewOrderMetrics registers the order counters on reg.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	placed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders created from a cart.",
	})
	revenue := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_amount_total",
		Help: "Sum of order totals at placement time.",
	})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Order status changes applied by staff.",
	}, []string{"from", "to"})
	reg.MustRegister(placed, revenue, transitions)
	return &OrderMetrics{placed: placed, revenue: revenue, transitions: transitions}
}

// ObservePlaced records one order and its total.
func (m *OrderMetrics) ObservePlaced(total decimal.Decimal) {
	if m == nil || m.placed == nil {
		return
	}
	m.placed.Inc()
	amount, _ := total.Float64()
	if amount > 0 {
		m.revenue.Add(amount)
	}
}

// ObserveTransition records a status change.
func (m *OrderMetrics) ObserveTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}
