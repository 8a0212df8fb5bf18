// Package metrics exposes prometheus counters for link mutations and for the
// best-effort cascade steps that were skipped.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var (
	// LinkMutations counts link entries written or removed, by operation.
	LinkMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panorama_link_mutations_total",
			Help: "Link entries upserted or removed on a panophoto",
		},
		[]string{"op"},
	)

	// CascadeWarnings counts cascade steps that failed after the primary change was applied.
	CascadeWarnings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panorama_cascade_warnings_total",
			Help: "Best-effort cascade steps that failed",
		},
		[]string{"op"},
	)

	// LinkRepairs counts link entries fixed by the repair job, by kind.
	LinkRepairs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panorama_link_repairs_total",
			Help: "Link entries repaired by the consistency job",
		},
		[]string{"kind"},
	)
)

//nolint:gochecknoinits // collectors are registered once per process
func init() {
	registry.MustRegister(LinkMutations, CascadeWarnings, LinkRepairs)
}

// Handler serves the registry in the prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}
