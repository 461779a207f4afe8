package observer

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dotcommander/errtrap/internal/models"
)

// Metrics counts occurrences by kind and severity.
type Metrics struct {
	errors *prometheus.CounterVec
}

// NewMetrics registers errtrap_errors_total on reg. Registering twice on the
// same registerer reuses the existing collector.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errtrap_errors_total",
			Help: "Total number of handled errors",
		},
		[]string{"kind", "severity"},
	)
	if err := reg.Register(counter); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		counter = existing
	}
	return &Metrics{errors: counter}, nil
}

func (*Metrics) Name() string { return "metrics" }

func (m *Metrics) Notify(_ context.Context, ec *models.ErrorContext) error {
	m.errors.WithLabelValues(string(ec.Kind()), ec.Severity().String()).Inc()
	return nil
}
