package securityheaders

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for security header processing.
type Metrics struct {
	// ResponsesTotal counts processed responses by hook (after, error) and
	// whether the HTML rules ran.
	ResponsesTotal *prometheus.CounterVec
	// RulesAppliedTotal counts rule applications by rule id.
	RulesAppliedTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the metrics. A nil registry uses
// prometheus.DefaultRegisterer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		ResponsesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "securityheaders_responses_total",
				Help: "Total number of responses processed by the security headers middleware",
			},
			[]string{"hook", "html"},
		),
		RulesAppliedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "securityheaders_rules_applied_total",
				Help: "Total number of security header rule applications",
			},
			[]string{"rule"},
		),
	}
}

func (m *Metrics) observeResponse(hook string, html bool) {
	m.ResponsesTotal.WithLabelValues(hook, strconv.FormatBool(html)).Inc()
}

func (m *Metrics) observeRule(id RuleID) {
	m.RulesAppliedTotal.WithLabelValues(string(id)).Inc()
}
