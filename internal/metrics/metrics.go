// Package metrics contains the prometheus instrumentation for commit
// creation and verification.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Verification results recorded by Verification.
const (
	ResultOK         = "ok"
	ResultMalformed  = "malformed"
	ResultSchema     = "schema"
	ResultDifficulty = "difficulty"
	ResultSignature  = "signature"
	ResultMismatch   = "mismatch"
)

// CommitMetrics holds the collectors for the commit engine. All methods are
// safe to call on a nil receiver, which records nothing.
type CommitMetrics struct {
	// Total nonces tried by the miner.
	miningAttempts prometheus.Counter

	// Wall-clock time of each mining run, partitioned by difficulty.
	miningDuration *prometheus.HistogramVec

	// Commits produced, partitioned by payload type and status.
	created *prometheus.CounterVec

	// Verification outcomes, partitioned by result.
	verifications *prometheus.CounterVec
}

// NewDefaultCommitMetrics registers the commit collectors with the default
// prometheus registry, reusing collectors that are already registered.
func NewDefaultCommitMetrics() *CommitMetrics {
	return NewCommitMetrics(prometheus.DefaultRegisterer)
}

// NewCommitMetrics registers the commit collectors with reg.
func NewCommitMetrics(reg prometheus.Registerer) *CommitMetrics {
	m := &CommitMetrics{
		miningAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "commit_mining_attempts_total",
			Help: "How many nonces the proof-of-work miner has hashed.",
		}),
		miningDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "commit_mining_duration_seconds",
				Help:    "How long a proof-of-work search takes, partitioned by difficulty.",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"difficulty"}, // Labels.
		),
		created: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commit_created_total",
				Help: "How many commits were assembled, partitioned by payload type and status.",
			},
			[]string{"type", "status"}, // Labels.
		),
		verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commit_verifications_total",
				Help: "How many commits were verified, partitioned by result.",
			},
			[]string{"result"}, // Labels.
		),
	}
	m.miningAttempts = registerOnce(reg, m.miningAttempts).(prometheus.Counter)
	m.miningDuration = registerOnce(reg, m.miningDuration).(*prometheus.HistogramVec)
	m.created = registerOnce(reg, m.created).(*prometheus.CounterVec)
	m.verifications = registerOnce(reg, m.verifications).(*prometheus.CounterVec)
	return m
}

// ObserveMining records one finished (or abandoned) mining run.
func (m *CommitMetrics) ObserveMining(difficulty int, attempts uint64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.miningAttempts.Add(float64(attempts))
	m.miningDuration.WithLabelValues(strconv.Itoa(difficulty)).Observe(elapsed.Seconds())
}

// CommitCreated counts an assembled commit. status is "ok" or "error".
func (m *CommitMetrics) CommitCreated(payloadType, status string) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(payloadType, status).Inc()
}

// Verification counts one verification outcome.
func (m *CommitMetrics) Verification(result string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(result).Inc()
}
