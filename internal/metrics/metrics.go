// Package metrics exposes the wallet core's prometheus collectors.
package metrics

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wallet"

// Service holds the collectors. A nil *Service is valid and records nothing.
type Service struct {
	Transfers *prometheus.CounterVec
	Failovers *prometheus.CounterVec
	Confirm   *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Service, error) {
	s := &Service{
		Transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_total",
			Help:      "Transfers by chain and final status.",
		}, []string{"chain", "status"}),
		Failovers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_failovers_total",
			Help:      "Times a transfer moved to the next RPC endpoint.",
		}, []string{"chain"}),
		Confirm: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "confirm_seconds",
			Help:      "Time from broadcast acceptance to a final status.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 45, 60},
		}, []string{"chain"}),
	}

	if reg == nil {
		return s, nil
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		s.gatherer = g
	}

	for _, c := range []prometheus.Collector{s.Transfers, s.Failovers, s.Confirm} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "failed to register metrics")
		}
	}

	return s, nil
}

// NewRegistry returns a fresh registry, used as the default Registerer.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// WriteTextfile writes every gathered family to path in the text exposition
// format, as read by node_exporter's textfile collector. It fails when the
// collectors were registered on something that cannot be gathered.
func (s *Service) WriteTextfile(path string) error {
	if s == nil || s.gatherer == nil {
		return errors.New("metrics registry cannot be gathered")
	}
	if err := prometheus.WriteToTextfile(path, s.gatherer); err != nil {
		return errors.Wrapf(err, "failed to write metrics to %s", path)
	}
	return nil
}

// TransferFinished counts a transfer outcome.
func (s *Service) TransferFinished(chain string, status string) {
	if s == nil {
		return
	}
	s.Transfers.WithLabelValues(chain, status).Inc()
}

// Failover counts a switch to the next endpoint.
func (s *Service) Failover(chain string) {
	if s == nil {
		return
	}
	s.Failovers.WithLabelValues(chain).Inc()
}

// ObserveConfirm records the time spent waiting for confirmation.
func (s *Service) ObserveConfirm(chain string, d time.Duration) {
	if s == nil {
		return
	}
	s.Confirm.WithLabelValues(chain).Observe(d.Seconds())
}
