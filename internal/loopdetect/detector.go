// Package loopdetect watches an agent's terminal output for repetitive
// chunks that suggest it is stuck in a loop, burning tokens without making
// progress.
package loopdetect

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/use-sonar/open-sonar/internal/events"
)

const (
	defaultWindowSize      = 10
	defaultRepeatThreshold = 3
	defaultMinChunkLength  = 50
	wastedSeconds          = 30.0
)

// agentWindow is the sliding-window state kept per agent id.
type agentWindow struct {
	chunks       []string
	loopDetected bool
	loopCount    int
}

// Limits configures the window size, repeat threshold, and minimum chunk
// length a Detector uses. The zero value is not valid; use
// DefaultLimits() as a starting point.
type Limits struct {
	WindowSize      int
	RepeatThreshold int
	MinChunkLength  int
}

// DefaultLimits returns the reference configuration: window size 10,
// repeat threshold 3, minimum chunk length 50.
func DefaultLimits() Limits {
	return Limits{
		WindowSize:      defaultWindowSize,
		RepeatThreshold: defaultRepeatThreshold,
		MinChunkLength:  defaultMinChunkLength,
	}
}

// Detector tracks one sliding window of normalized output chunks per agent.
// A single mutex guards the whole windows map; critical sections never
// touch I/O, so contention is never a concern.
type Detector struct {
	sink    events.Sink
	privacy events.PrivacyFilter
	limits  Limits

	mu      sync.Mutex
	windows map[string]*agentWindow
}

// New constructs a Detector with the default limits, publishing loop-alert
// events to sink. Pass nil to discard alerts.
func New(sink events.Sink, privacy events.PrivacyFilter) *Detector {
	return NewWithLimits(sink, privacy, DefaultLimits())
}

// NewWithLimits constructs a Detector using a caller-supplied configuration,
// letting a config file override the reference window size, repeat
// threshold, and minimum chunk length. privacy masks the AgentID field of
// every emitted alert; the windows map itself always keys on the real
// agent id, since Feed/Reset/IsLooping callers always pass it unmasked.
func NewWithLimits(sink events.Sink, privacy events.PrivacyFilter, limits Limits) *Detector {
	if sink == nil {
		sink = events.Discard
	}
	return &Detector{
		sink:    sink,
		privacy: privacy,
		limits:  limits,
		windows: make(map[string]*agentWindow),
	}
}

// Feed folds one output chunk into agentID's window. If the chunk (after
// normalization) is shorter than the minimum, it is ignored. If folding it
// in reveals at least repeatThreshold consecutive similar chunks (newest
// first), Feed sets the sticky loop flag, emits a loop-alert event, and
// returns the alert; otherwise it returns nil.
func (d *Detector) Feed(agentID, output string, burnRatePerSec float64) *LoopAlertPayload {
	normalized := normalize(output)
	if len(normalized) < d.limits.MinChunkLength {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	w, ok := d.windows[agentID]
	if !ok {
		w = &agentWindow{}
		d.windows[agentID] = w
	}

	w.chunks = append(w.chunks, normalized)
	if len(w.chunks) > d.limits.WindowSize {
		w.chunks = w.chunks[1:]
	}

	if len(w.chunks) < d.limits.RepeatThreshold {
		return nil
	}

	last := w.chunks[len(w.chunks)-1]
	repeatCount := 0
	for i := len(w.chunks) - 1; i >= 0; i-- {
		if similarity(w.chunks[i], last) <= 0.8 {
			break
		}
		repeatCount++
	}

	if repeatCount < d.limits.RepeatThreshold {
		return nil
	}

	w.loopDetected = true
	w.loopCount++

	alert := LoopAlertPayload{
		AgentID:           d.privacy.MaskAgentID(agentID),
		Pattern:           truncate(last, 100),
		RepeatCount:       repeatCount,
		EstimatedWasteUSD: burnRatePerSec * wastedSeconds * float64(repeatCount),
	}
	d.sink.Emit(events.TopicLoopAlert, alert)
	return &alert
}

// Reset drops agentID's window entirely, clearing the sticky loop flag.
func (d *Detector) Reset(agentID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.windows, agentID)
}

// IsLooping reports the sticky loop_detected flag for agentID.
func (d *Detector) IsLooping(agentID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.windows[agentID]
	return ok && w.loopDetected
}

// normalize lowercases output and drops every whitespace rune except a
// literal space. Tabs, newlines, and other whitespace vanish entirely
// rather than collapsing to a space, so a chunk padded with blank lines
// normalizes the same as one with none.
func normalize(output string) string {
	var sb strings.Builder
	sb.Grow(len(output))
	for _, r := range output {
		if unicode.IsSpace(r) && r != ' ' {
			continue
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}

// similarity is position-wise matching character count divided by the
// longer string's length. Deliberately O(n) and tolerant of tail drift;
// this is not Levenshtein distance.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	ar := []rune(a)
	br := []rune(b)
	maxLen := len(ar)
	if len(br) > maxLen {
		maxLen = len(br)
	}

	matching := 0
	n := len(ar)
	if len(br) < n {
		n = len(br)
	}
	for i := 0; i < n; i++ {
		if ar[i] == br[i] {
			matching++
		}
	}
	return float64(matching) / float64(maxLen)
}

// truncate shortens s to max runes, appending "..." when it does.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return fmt.Sprintf("%s...", string(r[:max]))
}
