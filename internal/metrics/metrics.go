// Package metrics exposes Prometheus counters and gauges driven by the
// core event stream. Unlike a package-level init() registration, New
// constructs an isolated prometheus.Registry per call so tests can assert
// on metric values without colliding with the global default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/use-sonar/open-sonar/internal/events"
	"github.com/use-sonar/open-sonar/internal/loopdetect"
	"github.com/use-sonar/open-sonar/internal/ptysup"
	"github.com/use-sonar/open-sonar/internal/transcript"
)

// Metrics holds every gauge and counter the core publishes.
type Metrics struct {
	registry *prometheus.Registry

	SessionCostUSDTotal *prometheus.CounterVec
	SessionTokensTotal  *prometheus.CounterVec
	ToolCallsTotal      *prometheus.CounterVec
	LoopAlertsTotal     *prometheus.CounterVec
	PTYSessionsActive   prometheus.Gauge
	DailyCostUSD        prometheus.Gauge
}

// New constructs a Metrics bound to its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		SessionCostUSDTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sonar_session_cost_usd_total",
			Help: "Cumulative cost in USD attributed to an agent's transcript.",
		}, []string{"agent"}),
		SessionTokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sonar_session_tokens_total",
			Help: "Cumulative tokens folded for an agent, by token kind.",
		}, []string{"agent", "kind"}),
		ToolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sonar_tool_calls_total",
			Help: "Tool invocations observed in an agent's transcript.",
		}, []string{"agent"}),
		LoopAlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sonar_loop_alerts_total",
			Help: "Loop alerts raised for an agent.",
		}, []string{"agent"}),
		PTYSessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sonar_pty_sessions_active",
			Help: "Number of currently live PTY sessions.",
		}),
		DailyCostUSD: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sonar_daily_cost_usd",
			Help: "Total cost in USD accrued today, as last observed.",
		}),
	}

	reg.MustRegister(
		m.SessionCostUSDTotal,
		m.SessionTokensTotal,
		m.ToolCallsTotal,
		m.LoopAlertsTotal,
		m.PTYSessionsActive,
		m.DailyCostUSD,
	)

	return m
}

// Handler returns the HTTP handler serving this Metrics' registry in the
// Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Sink returns an events.Sink that updates these metrics from the core
// event stream. It is additive only: counters never decrease, matching
// what a cumulative fold (session-update) or an append-only alert stream
// (loop-alert) actually represents. PTYSessionsActive is the one gauge
// that moves in both directions, tracking pty-output/pty-exit transitions.
func (m *Metrics) Sink() events.Sink {
	seenTokens := make(map[string]transcript.TokenUsage)
	seenCost := make(map[string]float64)
	seenTools := make(map[string]int)
	liveAgents := make(map[string]bool)

	return events.SinkFunc(func(topic events.Topic, payload any) {
		switch topic {
		case events.TopicSessionUpdate:
			p, ok := payload.(transcript.SessionUpdatePayload)
			if !ok {
				return
			}
			m.addTokenDelta(p.AgentID, p.Usage, seenTokens)
			if delta := p.TotalCost - seenCost[p.AgentID]; delta > 0 {
				m.SessionCostUSDTotal.WithLabelValues(p.AgentID).Add(delta)
				seenCost[p.AgentID] = p.TotalCost
			}
			if delta := len(p.ToolCalls) - seenTools[p.AgentID]; delta > 0 {
				m.ToolCallsTotal.WithLabelValues(p.AgentID).Add(float64(delta))
				seenTools[p.AgentID] = len(p.ToolCalls)
			}

		case events.TopicLoopAlert:
			p, ok := payload.(loopdetect.LoopAlertPayload)
			if !ok {
				return
			}
			m.LoopAlertsTotal.WithLabelValues(p.AgentID).Inc()

		case events.TopicPTYOutput:
			p, ok := payload.(ptysup.PTYOutputPayload)
			if !ok {
				return
			}
			if !liveAgents[p.AgentID] {
				liveAgents[p.AgentID] = true
				m.PTYSessionsActive.Inc()
			}

		case events.TopicPTYExit:
			p, ok := payload.(ptysup.PTYExitPayload)
			if !ok {
				return
			}
			if liveAgents[p.AgentID] {
				delete(liveAgents, p.AgentID)
				m.PTYSessionsActive.Dec()
			}
		}
	})
}

// addTokenDelta reports only the increase in each usage field since the
// last observed cumulative snapshot, so Prometheus counters (which must
// never decrease) stay correct even though SessionUpdatePayload always
// carries the full running total.
func (m *Metrics) addTokenDelta(agentID string, usage transcript.TokenUsage, seen map[string]transcript.TokenUsage) {
	prev := seen[agentID]
	if d := usage.InputTokens - prev.InputTokens; d > 0 {
		m.SessionTokensTotal.WithLabelValues(agentID, "input").Add(float64(d))
	}
	if d := usage.OutputTokens - prev.OutputTokens; d > 0 {
		m.SessionTokensTotal.WithLabelValues(agentID, "output").Add(float64(d))
	}
	if d := usage.CacheReadTokens - prev.CacheReadTokens; d > 0 {
		m.SessionTokensTotal.WithLabelValues(agentID, "cache_read").Add(float64(d))
	}
	if d := usage.CacheCreationTokens - prev.CacheCreationTokens; d > 0 {
		m.SessionTokensTotal.WithLabelValues(agentID, "cache_creation").Add(float64(d))
	}
	seen[agentID] = usage
}
