package dataset

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ZanzyTHEbar/tokprep/tokprep/preprocess"
)

// Metrics counts mapped records and batches. A nil *Metrics records nothing.
type Metrics struct {
	records prometheus.Counter
	batches prometheus.Counter
	errors  prometheus.Counter
	tokens  prometheus.Histogram
}

// NewMetrics registers the map collectors on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		records: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_mapped_total",
			Help:      "Total number of records mapped",
		}),
		batches: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_mapped_total",
			Help:      "Total number of batches mapped",
		}),
		errors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "map_errors_total",
			Help:      "Total number of failed batches",
		}),
		tokens: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tokens_per_record",
			Help:      "Unpadded token count per mapped record",
			Buckets:   prometheus.ExponentialBuckets(8, 2, 10),
		}),
	}
}

func (m *Metrics) observeBatch(rows []preprocess.Record) {
	if m == nil {
		return
	}
	m.batches.Inc()
	m.records.Add(float64(len(rows)))
	for _, row := range rows {
		if n, ok := recordLength(row); ok {
			m.tokens.Observe(float64(n))
		}
	}
}

func (m *Metrics) observeError() {
	if m == nil {
		return
	}
	m.errors.Inc()
}

// recordLength counts unpadded tokens from the attention mask and falls back to
// the input id count.
func recordLength(row preprocess.Record) (int, bool) {
	if mask, ok := row[preprocess.FieldAttentionMask].([]int); ok {
		n := 0
		for _, m := range mask {
			n += m
		}
		return n, true
	}
	if ids, ok := row[preprocess.FieldInputIDs].([]int); ok {
		return len(ids), true
	}
	return 0, false
}
