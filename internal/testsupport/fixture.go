// Package testsupport builds small NDJSON transcript fixtures so tests
// need not hand-roll JSON line literals. It mirrors the shape internal/mock/generator.go used
// in the teacher repo to synthesize session activity, scaled down to just
// the fields transcript.ParseLine reads.
package testsupport

import (
	"encoding/json"
	"strings"
)

// Usage is the subset of transcript.TokenUsage a fixture line reports,
// duplicated here (rather than imported) so this package stays free of a
// dependency on internal/transcript and can be imported by it in tests.
type Usage struct {
	InputTokens         int
	OutputTokens        int
	CacheReadTokens     int
	CacheCreationTokens int
}

// TranscriptBuilder accumulates NDJSON lines for one session id.
type TranscriptBuilder struct {
	sessionID string
	lines     []string
}

// NewTranscript starts a builder for sessionID.
func NewTranscript(sessionID string) *TranscriptBuilder {
	return &TranscriptBuilder{sessionID: sessionID}
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Name string `json:"name,omitempty"`
}

type usagePayload struct {
	InputTokens         int `json:"input_tokens"`
	OutputTokens        int `json:"output_tokens"`
	CacheReadTokens     int `json:"cache_read_input_tokens"`
	CacheCreationTokens int `json:"cache_creation_input_tokens"`
}

type messagePayload struct {
	Model   string         `json:"model,omitempty"`
	Usage   *usagePayload  `json:"usage,omitempty"`
	Content []contentBlock `json:"content,omitempty"`
}

type entryPayload struct {
	Type      string         `json:"type"`
	SessionID string         `json:"sessionId"`
	Timestamp string         `json:"timestamp"`
	Message   messagePayload `json:"message"`
}

// AssistantMessage appends an assistant-turn line carrying usage, an
// optional text reply, and zero or more tool invocations.
func (b *TranscriptBuilder) AssistantMessage(timestamp, model string, usage Usage, text string, toolNames ...string) *TranscriptBuilder {
	blocks := make([]contentBlock, 0, len(toolNames)+1)
	if text != "" {
		blocks = append(blocks, contentBlock{Type: "text", Text: text})
	}
	for _, name := range toolNames {
		blocks = append(blocks, contentBlock{Type: "tool_use", Name: name})
	}

	entry := entryPayload{
		Type:      "assistant",
		SessionID: b.sessionID,
		Timestamp: timestamp,
		Message: messagePayload{
			Model: model,
			Usage: &usagePayload{
				InputTokens:         usage.InputTokens,
				OutputTokens:        usage.OutputTokens,
				CacheReadTokens:     usage.CacheReadTokens,
				CacheCreationTokens: usage.CacheCreationTokens,
			},
			Content: blocks,
		},
	}
	b.append(entry)
	return b
}

// UserMessage appends a user-turn line with no usage, matching the first
// line of a real transcript (used to exercise agent-detection logic).
func (b *TranscriptBuilder) UserMessage(timestamp, text string) *TranscriptBuilder {
	entry := entryPayload{
		Type:      "user",
		SessionID: b.sessionID,
		Timestamp: timestamp,
		Message: messagePayload{
			Content: []contentBlock{{Type: "text", Text: text}},
		},
	}
	b.append(entry)
	return b
}

func (b *TranscriptBuilder) append(entry entryPayload) {
	raw, err := json.Marshal(entry)
	if err != nil {
		panic(err) // fixture construction is compile-time-shaped, never user input
	}
	b.lines = append(b.lines, string(raw))
}

// Lines returns the accumulated NDJSON lines in append order.
func (b *TranscriptBuilder) Lines() []string {
	return b.lines
}

// Bytes returns the accumulated lines joined into one NDJSON blob, newline
// terminated, ready to be written straight to a transcript file.
func (b *TranscriptBuilder) Bytes() []byte {
	if len(b.lines) == 0 {
		return nil
	}
	return []byte(strings.Join(b.lines, "\n") + "\n")
}
