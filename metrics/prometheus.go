package metrics

import (
	"github.com/krisalay/qrstore/types"
	"github.com/prometheus/client_golang/prometheus"
)

var _ types.Metrics = (*Prometheus)(nil)

// Prometheus implements types.Metrics with counters.
type Prometheus struct {
	reads   *prometheus.CounterVec
	writes  *prometheus.CounterVec
	expired prometheus.Counter
	swept   prometheus.Counter
}

// NewPrometheus creates the collectors and registers them with reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		reads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qrstore_reads_total",
				Help: "Reads by result (hit, miss)",
			},
			[]string{"result"},
		),
		writes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qrstore_writes_total",
				Help: "Writes by result (ok, rate_limited, invalid)",
			},
			[]string{"result"},
		),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qrstore_expired_reads_total",
			Help: "Reads that found an entry past its data TTL",
		}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qrstore_swept_slots_total",
			Help: "Expired slots reclaimed by the sweeper",
		}),
	}

	reg.MustRegister(p.reads, p.writes, p.expired, p.swept)
	return p
}

func (p *Prometheus) Hit()         { p.reads.WithLabelValues("hit").Inc() }
func (p *Prometheus) Miss()        { p.reads.WithLabelValues("miss").Inc() }
func (p *Prometheus) Expire()      { p.expired.Inc() }
func (p *Prometheus) Write()       { p.writes.WithLabelValues("ok").Inc() }
func (p *Prometheus) RateLimited() { p.writes.WithLabelValues("rate_limited").Inc() }
func (p *Prometheus) Invalid()     { p.writes.WithLabelValues("invalid").Inc() }
func (p *Prometheus) Swept(n int)  { p.swept.Add(float64(n)) }
