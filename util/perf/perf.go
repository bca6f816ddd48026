package perf

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lottery/proc"
)

const NAMESPACE = "lottery"

// Metrics exports scheduler activity to prometheus. A nil *Metrics is a
// valid no-op collector.
type Metrics struct {
	reg        *prometheus.Registry
	userTicks  *prometheus.CounterVec
	demand     *prometheus.GaugeVec
	weight     *prometheus.GaugeVec
	dispatches prometheus.Counter
	idle       prometheus.Counter
	critical   prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		userTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Name:      "user_ticks_total",
			Help:      "Quanta charged to each user.",
		}, []string{"uid"}),
		demand: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: NAMESPACE,
			Name:      "user_demand_tickets",
			Help:      "Tickets held by a user's runnable procs at the last draw.",
		}, []string{"uid"}),
		weight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: NAMESPACE,
			Name:      "user_capped_weight_tickets",
			Help:      "A user's weight in the inter-user draw at the last draw.",
		}, []string{"uid"}),
		dispatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Name:      "dispatches_total",
			Help:      "Quanta in which a proc was dispatched.",
		}),
		idle: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Name:      "idle_quanta_total",
			Help:      "Quanta in which no user had weight.",
		}),
		critical: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: NAMESPACE,
			Name:      "quantum_critical_seconds",
			Help:      "Time spent holding the scheduler lock per quantum boundary.",
			Buckets:   prometheus.ExponentialBuckets(1e-7, 4, 10),
		}),
	}
	m.reg.MustRegister(m.userTicks, m.demand, m.weight, m.dispatches, m.idle, m.critical)
	return m
}

func uidLabel(uid proc.Tuid) string {
	return strconv.Itoa(int(uid))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) Charge(uid proc.Tuid) {
	if m == nil {
		return
	}
	m.userTicks.WithLabelValues(uidLabel(uid)).Inc()
}

func (m *Metrics) SetWeight(uid proc.Tuid, demand proc.Ttickets, weight proc.Tweight) {
	if m == nil {
		return
	}
	m.demand.WithLabelValues(uidLabel(uid)).Set(float64(demand))
	m.weight.WithLabelValues(uidLabel(uid)).Set(float64(weight))
}

// ResetWeights clears the per-user gauges before a new draw publishes
// its candidates, so users that dropped out stop reporting stale values.
func (m *Metrics) ResetWeights() {
	if m == nil {
		return
	}
	m.demand.Reset()
	m.weight.Reset()
}

func (m *Metrics) Dispatch() {
	if m == nil {
		return
	}
	m.dispatches.Inc()
}

func (m *Metrics) Idle() {
	if m == nil {
		return
	}
	m.idle.Inc()
}

func (m *Metrics) ObserveCritical(d time.Duration) {
	if m == nil {
		return
	}
	m.critical.Observe(d.Seconds())
}
