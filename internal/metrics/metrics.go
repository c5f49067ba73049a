// Package metrics exposes Prometheus counters for the pipeline's
// per-packet decisions: rule matches, batch releases, trigger
// activations, ack emissions, and parse/modifier failures.
//
// Grounded on
// ghalamif-AegisFlow/internal/adapters/observability/prom_metrics.go's
// shape (prometheus.New*/MustRegister at construction, small wrapper
// methods named after the event they record) adapted from that
// package's name-keyed map-of-collectors to typed fields, since this
// package's metric set is small and fixed rather than dynamically
// registered.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the full set of counters the pipeline driver updates.
type Metrics struct {
	ruleMatches        *prometheus.CounterVec
	batchReleases      *prometheus.CounterVec
	triggerActivations prometheus.Counter
	triggerExpirations prometheus.Counter
	ackEmissions       prometheus.Counter
	parseFailures      prometheus.Counter
	modifierFailures   prometheus.Counter
	pluginFailures     prometheus.Counter
}

// New builds and registers every collector against the default
// registry.
func New() *Metrics {
	m := &Metrics{
		ruleMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "madbridge_rule_matches_total",
			Help: "Packets matched per rule.",
		}, []string{"rule"}),
		batchReleases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "madbridge_batch_releases_total",
			Help: "Batch group releases by reason (quorum, timeout_forward).",
		}, []string{"reason"}),
		triggerActivations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "madbridge_trigger_activations_total",
			Help: "Rule activations fired by a trigger.",
		}),
		triggerExpirations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "madbridge_trigger_expirations_total",
			Help: "Rule activations disabled by the trigger reaper.",
		}),
		ackEmissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "madbridge_ack_emissions_total",
			Help: "Synthesized ACK messages sent.",
		}),
		parseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "madbridge_parse_failures_total",
			Help: "Frames that failed to parse and were forwarded raw.",
		}),
		modifierFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "madbridge_modifier_failures_total",
			Help: "Modifier invocations that fell back to the unmodified message.",
		}),
		pluginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "madbridge_plugin_failures_total",
			Help: "Plugin invocations that returned an error.",
		}),
	}
	prometheus.MustRegister(
		m.ruleMatches, m.batchReleases, m.triggerActivations, m.triggerExpirations,
		m.ackEmissions, m.parseFailures, m.modifierFailures, m.pluginFailures,
	)
	return m
}

func (m *Metrics) RuleMatched(rule string)  { m.ruleMatches.WithLabelValues(rule).Inc() }
func (m *Metrics) BatchReleased(reason string) { m.batchReleases.WithLabelValues(reason).Inc() }
func (m *Metrics) TriggerActivated()        { m.triggerActivations.Inc() }
func (m *Metrics) TriggerExpired()          { m.triggerExpirations.Inc() }
func (m *Metrics) AckEmitted()              { m.ackEmissions.Inc() }
func (m *Metrics) ParseFailed()             { m.parseFailures.Inc() }
func (m *Metrics) ModifierFailed()          { m.modifierFailures.Inc() }
func (m *Metrics) PluginFailed()            { m.pluginFailures.Inc() }
