package postgres

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	attemptResultSuccess = "success"
	attemptResultFailure = "failure"
)

type metrics struct {
	attempts *prometheus.CounterVec
	state    prometheus.Gauge
}

// newMetrics returns nil when reg is nil; all metrics methods are nil-safe.
func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		return nil, nil //nolint:nilnil
	}

	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "diaspora",
		Subsystem: "db",
		Name:      "connection_attempts_total",
		Help:      "Database connection attempts by result.",
	}, []string{"result"})

	state := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "diaspora",
		Subsystem: "db",
		Name:      "connection_state",
		Help:      "Database connection state (0=disconnected, 1=connecting, 2=connected, 3=failed).",
	})

	var err error

	if attempts, err = register(reg, attempts); err != nil {
		return nil, err
	}

	if state, err = register(reg, state); err != nil {
		return nil, err
	}

	return &metrics{attempts: attempts, state: state}, nil
}

// register reuses an identical collector that is already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}

		return c, err
	}

	return c, nil
}

func (m *metrics) observeAttempt(result string) {
	if m == nil {
		return
	}

	m.attempts.WithLabelValues(result).Inc()
}

func (m *metrics) setState(s State) {
	if m == nil {
		return
	}

	m.state.Set(float64(s))
}
