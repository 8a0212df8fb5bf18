package service

import (
	"fmt"

	"github.com/emrgen/panorama/internal/metrics"
	"github.com/sirupsen/logrus"
)

// CascadeResult collects the follow-up steps of an operation that failed
// after its primary change was persisted. The operation still succeeds; the
// warnings describe what is left inconsistent.
type CascadeResult struct {
	Warnings []error `json:"-"`
}

// Complete reports whether every follow-up step succeeded.
func (r *CascadeResult) Complete() bool {
	return len(r.Warnings) == 0
}

func (r *CascadeResult) warn(op string, err error) {
	logrus.Warnf("%s: %v", op, err)
	metrics.CascadeWarnings.WithLabelValues(op).Inc()
	r.Warnings = append(r.Warnings, fmt.Errorf("%s: %w", op, err))
}

func (r *CascadeResult) merge(other CascadeResult) {
	r.Warnings = append(r.Warnings, other.Warnings...)
}
