// Package metrics exports Prometheus counters for list store calls and
// viewer state transitions.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"staffDirectoryViewer/internal/models"
	"staffDirectoryViewer/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns a private registry so tests can create as many as they need.
type Recorder struct {
	registry       *prometheus.Registry
	remoteCalls    *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
	transitions    *prometheus.CounterVec
}

// NewRecorder registers the viewer metrics plus the Go runtime and process
// collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		remoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "staff_viewer",
			Name:      "remote_calls_total",
			Help:      "List store calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		remoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "staff_viewer",
			Name:      "remote_call_duration_seconds",
			Help:      "Latency of list store calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "staff_viewer",
			Name:      "state_transitions_total",
			Help:      "Viewer state transitions.",
		}, []string{"from", "to"}),
	}

	r.registry.MustRegister(
		r.remoteCalls,
		r.remoteDuration,
		r.transitions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveTransition counts one state change.
func (r *Recorder) ObserveTransition(from, to string) {
	r.transitions.WithLabelValues(from, to).Inc()
}

// Observe records one store call.
func (r *Recorder) Observe(operation string, err error, duration time.Duration) {
	r.remoteCalls.WithLabelValues(operation, outcome(err)).Inc()
	r.remoteDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// Instrument wraps a store so every call is timed and counted.
func (r *Recorder) Instrument(next store.RemoteStore) store.RemoteStore {
	return &instrumentedStore{next: next, recorder: r, now: time.Now}
}

type instrumentedStore struct {
	next     store.RemoteStore
	recorder *Recorder
	now      func() time.Time
}

func (s *instrumentedStore) FetchAll(ctx context.Context, listName string) ([]models.RemoteRow, error) {
	start := s.now()
	rows, err := s.next.FetchAll(ctx, listName)
	s.recorder.Observe("fetch_all", err, s.now().Sub(start))
	return rows, err
}

func (s *instrumentedStore) UpdateByID(ctx context.Context, listName string, id int, patch models.RemotePatch) error {
	start := s.now()
	err := s.next.UpdateByID(ctx, listName, id, patch)
	s.recorder.Observe("update_by_id", err, s.now().Sub(start))
	return err
}
