package parking

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PromMetrics exposes slot state and billing on the Prometheus registry
// scraped at /metrics.
type PromMetrics struct {
	slots      *prometheus.GaugeVec
	revenue    prometheus.Gauge
	bills      *prometheus.CounterVec
	billed     *prometheus.CounterVec
	rejections *prometheus.CounterVec
}

// NewPromMetrics registers on reg, reusing collectors that are already
// registered. A nil reg uses the default registerer.
func NewPromMetrics(reg prometheus.Registerer) (*PromMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	slots := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "parking_slots",
		Help: "Number of slots per state",
	}, []string{"state"})
	revenue := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "parking_resident_revenue",
		Help: "Sum of charges held by currently occupied slots",
	})
	bills := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_bills_total",
		Help: "Number of bills issued on release",
	}, []string{"vehicle_type"})
	billed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_billed_revenue_total",
		Help: "Sum of bill totals issued on release",
	}, []string{"vehicle_type"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_rejections_total",
		Help: "Operations refused by the engine",
	}, []string{"operation", "reason"})

	var err error
	if slots, err = register(reg, slots); err != nil {
		return nil, err
	}
	if revenue, err = register(reg, revenue); err != nil {
		return nil, err
	}
	if bills, err = register(reg, bills); err != nil {
		return nil, err
	}
	if billed, err = register(reg, billed); err != nil {
		return nil, err
	}
	if rejections, err = register(reg, rejections); err != nil {
		return nil, err
	}

	return &PromMetrics{
		slots:      slots,
		revenue:    revenue,
		bills:      bills,
		billed:     billed,
		rejections: rejections,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *PromMetrics) ObserveStats(st Stats) {
	if m == nil {
		return
	}
	m.slots.WithLabelValues(SlotEmpty.String()).Set(float64(st.Available))
	m.slots.WithLabelValues(SlotOccupied.String()).Set(float64(st.Occupied))
	m.slots.WithLabelValues(SlotReserved.String()).Set(float64(st.Reserved))
	m.revenue.Set(st.Revenue)
}

func (m *PromMetrics) RecordBill(b Bill) {
	if m == nil {
		return
	}
	m.bills.WithLabelValues(string(b.Vehicle.Type)).Inc()
	m.billed.WithLabelValues(string(b.Vehicle.Type)).Add(b.Total)
}

func (m *PromMetrics) RecordRejection(operation string, err error) {
	if m == nil || err == nil {
		return
	}
	m.rejections.WithLabelValues(operation, statusOf(err)).Inc()
}
