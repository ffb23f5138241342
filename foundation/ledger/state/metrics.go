package state

import (
	"errors"

	"github.com/ardanlabs/docledger/foundation/ledger/database"
	"github.com/ardanlabs/docledger/foundation/ledger/proof"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "docledger"

// metrics holds the ledger collectors. They are only exposed when a
// registerer is provided.
type metrics struct {
	seals         prometheus.Counter
	sealFailures  *prometheus.CounterVec
	documents     prometheus.Counter
	pending       prometheus.Gauge
	chainLength   prometheus.Gauge
	proofDuration prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := metrics{
		seals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_sealed_total",
			Help:      "Number of blocks sealed and stored.",
		}),
		sealFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seal_failures_total",
			Help:      "Number of failed seal attempts by reason.",
		}, []string{"reason"}),
		documents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_submitted_total",
			Help:      "Number of documents accepted into the pending set.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "documents_pending",
			Help:      "Number of documents waiting for the next block.",
		}),
		chainLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chain_length",
			Help:      "Number of blocks in the chain including genesis.",
		}),
		proofDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "proof_search_seconds",
			Help:      "Time spent searching for a proof.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}

	if reg == nil {
		return &m, nil
	}

	collectors := []prometheus.Collector{m.seals, m.sealFailures, m.documents, m.pending, m.chainLength, m.proofDuration}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return &m, nil
}

// failure counts a failed seal under a reason derived from the error.
func (m *metrics) failure(err error) {
	reason := "other"

	switch {
	case errors.Is(err, ErrSealInProgress):
		reason = "in_progress"
	case errors.Is(err, proof.ErrProofSearchTimeout):
		reason = "proof_timeout"
	case errors.Is(err, proof.ErrProofSearchExhausted):
		reason = "proof_exhausted"
	case errors.Is(err, database.ErrStoreWriteConflict):
		reason = "store_conflict"
	case errors.Is(err, database.ErrStoreUnavailable):
		reason = "store_unavailable"
	}

	m.sealFailures.WithLabelValues(reason).Inc()
}
