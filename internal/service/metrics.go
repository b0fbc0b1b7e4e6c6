package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts blob store operations issued by the content lifecycle.
// A nil *Metrics records nothing.
type Metrics struct {
	blobOps *prometheus.CounterVec
}

// NewMetrics registers the lifecycle counters on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		blobOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_blob_operations_total",
				Help: "Blob store operations issued by the content lifecycle.",
			},
			[]string{"op", "result"},
		),
	}
	if err := reg.Register(m.blobOps); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.blobOps.WithLabelValues(op, result).Inc()
}
