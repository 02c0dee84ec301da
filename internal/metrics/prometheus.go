// Package metrics exports pipeline outcomes to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mediaflow"

// Observer counts uploads, enqueues and status lookups and times each
// pipeline operation.
type Observer struct {
	uploads  *prometheus.CounterVec
	enqueues *prometheus.CounterVec
	lookups  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewObserver registers the collectors on reg, or the default registerer when
// reg is nil. Registering twice reuses the collectors already present.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &Observer{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Uploads by outcome.",
		}, []string{"outcome"}),
		enqueues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enqueues_total",
			Help:      "Processing requests by outcome and where the job id came from.",
		}, []string{"outcome", "id_source"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_lookups_total",
			Help:      "Status lookups by reported status.",
		}, []string{"status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of pipeline operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	var err error
	if o.uploads, err = register(reg, o.uploads); err != nil {
		return nil, err
	}
	if o.enqueues, err = register(reg, o.enqueues); err != nil {
		return nil, err
	}
	if o.lookups, err = register(reg, o.lookups); err != nil {
		return nil, err
	}
	if o.duration, err = register(reg, o.duration); err != nil {
		return nil, err
	}
	return o, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, fmt.Errorf("register collector: %w", err)
}

func (o *Observer) Upload(outcome string) {
	o.uploads.WithLabelValues(outcome).Inc()
}

func (o *Observer) Enqueue(outcome, idSource string) {
	o.enqueues.WithLabelValues(outcome, idSource).Inc()
}

func (o *Observer) StatusLookup(status string) {
	o.lookups.WithLabelValues(status).Inc()
}

func (o *Observer) Duration(operation string, d time.Duration) {
	o.duration.WithLabelValues(operation).Observe(d.Seconds())
}
