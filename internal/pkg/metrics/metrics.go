// Package metrics exposes the service counters on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PoliciesIssued counts successfully persisted policies.
	PoliciesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rumbia_policies_issued_total",
		Help: "Number of policies issued and persisted.",
	})

	// DocumentRenders counts document pipeline runs by outcome.
	DocumentRenders = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rumbia_document_renders_total",
		Help: "Document pipeline runs by outcome.",
	}, []string{"status"})

	// ChannelDispatches counts delivery attempts per channel and outcome.
	ChannelDispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rumbia_channel_dispatch_total",
		Help: "Delivery channel attempts by channel and outcome.",
	}, []string{"channel", "status"})
)

// Handler returns the prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
