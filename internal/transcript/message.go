// Package transcript tails the NDJSON session logs a coding agent writes
// under its transcript directory, folds per-message token usage into
// per-file cumulative counters, and attributes each file to the agent
// that owns its working directory.
package transcript

// TokenUsage is the four-way token breakdown reported on a single
// assistant message. All fields are non-negative and additive: summing
// two TokenUsage values component-wise yields a valid TokenUsage, and
// the zero value is the additive identity.
type TokenUsage struct {
	InputTokens          int `json:"input_tokens"`
	OutputTokens         int `json:"output_tokens"`
	CacheReadTokens      int `json:"cache_read_input_tokens"`
	CacheCreationTokens  int `json:"cache_creation_input_tokens"`
}

// Total returns the sum of all four token counts.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens + u.CacheReadTokens + u.CacheCreationTokens
}

// Add returns the component-wise sum of u and o.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:         u.InputTokens + o.InputTokens,
		OutputTokens:        u.OutputTokens + o.OutputTokens,
		CacheReadTokens:     u.CacheReadTokens + o.CacheReadTokens,
		CacheCreationTokens: u.CacheCreationTokens + o.CacheCreationTokens,
	}
}

// ParsedMessage is the neutral result of decoding one transcript line.
// Model, Usage, and ContentText are nil/empty when the line omitted them;
// ToolCalls is always non-nil but may be empty.
type ParsedMessage struct {
	MessageType string
	SessionID   string
	Timestamp   string
	Model       string
	Usage       *TokenUsage
	ContentText string
	ToolCalls   []string
}

// HasUsage reports whether the message carried token usage.
func (m *ParsedMessage) HasUsage() bool {
	return m.Usage != nil
}
