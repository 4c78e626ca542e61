package app

import (
	"sync"
	"time"

	"github.com/use-sonar/open-sonar/internal/events"
	"github.com/use-sonar/open-sonar/internal/loopdetect"
	"github.com/use-sonar/open-sonar/internal/ptysup"
	"github.com/use-sonar/open-sonar/internal/transcript"
)

// burnTracker estimates each agent's current burn rate (USD per wall-clock
// second) from consecutive session-update cost snapshots, then feeds raw
// pty output through the loop detector using that estimate. The detector
// only needs a rate at the instant a chunk arrives; it has no notion of
// cost itself, matching spec's "burn rate is the caller's estimate".
type burnTracker struct {
	detector *loopdetect.Detector

	mu    sync.Mutex
	state map[string]*agentBurn
}

type agentBurn struct {
	prevCost float64
	prevTime time.Time
	rate     float64
}

func newBurnTracker(detector *loopdetect.Detector) *burnTracker {
	return &burnTracker{detector: detector, state: make(map[string]*agentBurn)}
}

// Emit implements events.Sink.
func (b *burnTracker) Emit(topic events.Topic, payload any) {
	switch topic {
	case events.TopicSessionUpdate:
		update, ok := payload.(transcript.SessionUpdatePayload)
		if !ok {
			return
		}
		b.recordCost(update.AgentID, update.TotalCost)
	case events.TopicPTYOutput:
		output, ok := payload.(ptysup.PTYOutputPayload)
		if !ok {
			return
		}
		b.detector.Feed(output.AgentID, output.Data, b.rateFor(output.AgentID))
	}
}

func (b *burnTracker) recordCost(agentID string, cost float64) {
	now := time.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	ab, ok := b.state[agentID]
	if !ok {
		b.state[agentID] = &agentBurn{prevCost: cost, prevTime: now}
		return
	}

	if dt := now.Sub(ab.prevTime).Seconds(); dt > 0 {
		if delta := cost - ab.prevCost; delta > 0 {
			ab.rate = delta / dt
		}
	}
	ab.prevCost = cost
	ab.prevTime = now
}

func (b *burnTracker) rateFor(agentID string) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ab, ok := b.state[agentID]; ok {
		return ab.rate
	}
	return 0
}
