package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/use-sonar/open-sonar/internal/events"
	"github.com/use-sonar/open-sonar/internal/loopdetect"
	"github.com/use-sonar/open-sonar/internal/ptysup"
	"github.com/use-sonar/open-sonar/internal/transcript"
)

func TestSinkTracksSessionUpdateAsDeltas(t *testing.T) {
	m := New()
	sink := m.Sink()

	sink.Emit(events.TopicSessionUpdate, transcript.SessionUpdatePayload{
		AgentID:     "a1",
		TotalCost:   0.01,
		ToolCalls:   []string{"bash"},
		Usage:       transcript.TokenUsage{OutputTokens: 100},
	})
	sink.Emit(events.TopicSessionUpdate, transcript.SessionUpdatePayload{
		AgentID:     "a1",
		TotalCost:   0.03,
		ToolCalls:   []string{"bash", "read"},
		Usage:       transcript.TokenUsage{OutputTokens: 300},
	})

	if got := testutil.ToFloat64(m.SessionCostUSDTotal.WithLabelValues("a1")); got != 0.03 {
		t.Fatalf("cost total = %v, want 0.03", got)
	}
	if got := testutil.ToFloat64(m.SessionTokensTotal.WithLabelValues("a1", "output")); got != 300 {
		t.Fatalf("token total = %v, want 300", got)
	}
	if got := testutil.ToFloat64(m.ToolCallsTotal.WithLabelValues("a1")); got != 2 {
		t.Fatalf("tool calls total = %v, want 2", got)
	}
}

func TestSinkTracksLoopAlerts(t *testing.T) {
	m := New()
	sink := m.Sink()

	sink.Emit(events.TopicLoopAlert, loopdetect.LoopAlertPayload{AgentID: "a1"})
	sink.Emit(events.TopicLoopAlert, loopdetect.LoopAlertPayload{AgentID: "a1"})

	if got := testutil.ToFloat64(m.LoopAlertsTotal.WithLabelValues("a1")); got != 2 {
		t.Fatalf("loop alerts total = %v, want 2", got)
	}
}

func TestSinkTracksPTYSessionLifecycle(t *testing.T) {
	m := New()
	sink := m.Sink()

	sink.Emit(events.TopicPTYOutput, ptysup.PTYOutputPayload{AgentID: "a1", Data: "hi"})
	sink.Emit(events.TopicPTYOutput, ptysup.PTYOutputPayload{AgentID: "a1", Data: "more"})
	if got := testutil.ToFloat64(m.PTYSessionsActive); got != 1 {
		t.Fatalf("active sessions = %v, want 1 (repeated output shouldn't double count)", got)
	}

	sink.Emit(events.TopicPTYExit, ptysup.PTYExitPayload{AgentID: "a1"})
	if got := testutil.ToFloat64(m.PTYSessionsActive); got != 0 {
		t.Fatalf("active sessions after exit = %v, want 0", got)
	}
}
