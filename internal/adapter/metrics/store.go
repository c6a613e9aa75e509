package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pscheid92/rtspoverlay/internal/domain"
)

// StoreMetrics tracks Document Store calls and, for PostgreSQL, individual queries.
type StoreMetrics struct {
	OperationDuration *prometheus.HistogramVec
	OperationsTotal   *prometheus.CounterVec
	QueryDuration     *prometheus.HistogramVec
	QueryErrors       *prometheus.CounterVec
}

func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Duration of Document Store operations in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "operation"}),
		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total number of Document Store operations, by outcome.",
		}, []string{"backend", "operation", "outcome"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Duration of PostgreSQL queries in seconds, by statement verb.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
		QueryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of failed PostgreSQL queries, by statement verb.",
		}, []string{"query"}),
	}

	reg.MustRegister(m.OperationDuration, m.OperationsTotal, m.QueryDuration, m.QueryErrors)
	return m
}

// InstrumentedRepository records timing and outcome for every repository call.
type InstrumentedRepository struct {
	next    domain.OverlayRepository
	backend string
	m       *StoreMetrics
}

var _ domain.OverlayRepository = (*InstrumentedRepository)(nil)

func NewInstrumentedRepository(next domain.OverlayRepository, backend string, m *StoreMetrics) *InstrumentedRepository {
	return &InstrumentedRepository{next: next, backend: backend, m: m}
}

func (r *InstrumentedRepository) List(ctx context.Context) ([]domain.Overlay, error) {
	defer r.observe("list", time.Now())
	overlays, err := r.next.List(ctx)
	r.count("list", err)
	return overlays, err
}

func (r *InstrumentedRepository) Insert(ctx context.Context, fields domain.Fields) (*domain.Overlay, error) {
	defer r.observe("insert", time.Now())
	overlay, err := r.next.Insert(ctx, fields)
	r.count("insert", err)
	return overlay, err
}

func (r *InstrumentedRepository) Merge(ctx context.Context, id string, patch domain.Fields) (*domain.Overlay, error) {
	defer r.observe("merge", time.Now())
	overlay, err := r.next.Merge(ctx, id, patch)
	r.count("merge", err)
	return overlay, err
}

func (r *InstrumentedRepository) Delete(ctx context.Context, id string) error {
	defer r.observe("delete", time.Now())
	err := r.next.Delete(ctx, id)
	r.count("delete", err)
	return err
}

func (r *InstrumentedRepository) observe(op string, start time.Time) {
	r.m.OperationDuration.WithLabelValues(r.backend, op).Observe(time.Since(start).Seconds())
}

func (r *InstrumentedRepository) count(op string, err error) {
	outcome := "success"
	switch {
	case errors.Is(err, domain.ErrOverlayNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	r.m.OperationsTotal.WithLabelValues(r.backend, op, outcome).Inc()
}
