package transcript

import "testing"

func TestParseLineBoundaries(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"not json", "not json at all"},
		{"no type field", `{"sessionId":"abc"}`},
		{"file history snapshot", `{"type":"file-history-snapshot","sessionId":"abc"}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ParseLine([]byte(c.line)); got != nil {
				t.Fatalf("expected nil, got %+v", got)
			}
		})
	}
}

func TestParseLineEmptySessionIDStillParses(t *testing.T) {
	msg := ParseLine([]byte(`{"type":"user","timestamp":"2026-01-01T00:00:00Z"}`))
	if msg == nil {
		t.Fatal("expected a parsed message")
	}
	if msg.SessionID != "" {
		t.Fatalf("expected empty session id, got %q", msg.SessionID)
	}
}

func TestParseLineUsageAndModel(t *testing.T) {
	line := `{"type":"assistant","sessionId":"s1","timestamp":"2026-01-01T00:00:00Z",
		"message":{"model":"claude-opus-4","usage":{"input_tokens":100,"output_tokens":50,
		"cache_read_input_tokens":10,"cache_creation_input_tokens":5},
		"content":[{"type":"text","text":"first"},{"type":"tool_use","name":"Read"},
		{"type":"text","text":"last"},{"type":"tool_use","name":"Bash"}]}}`

	msg := ParseLine([]byte(line))
	if msg == nil {
		t.Fatal("expected a parsed message")
	}
	if msg.Model != "claude-opus-4" {
		t.Fatalf("model = %q", msg.Model)
	}
	if msg.Usage == nil || msg.Usage.Total() != 165 {
		t.Fatalf("usage = %+v", msg.Usage)
	}
	if msg.ContentText != "last" {
		t.Fatalf("content text should be the LAST text block, got %q", msg.ContentText)
	}
	if len(msg.ToolCalls) != 2 || msg.ToolCalls[0] != "Read" || msg.ToolCalls[1] != "Bash" {
		t.Fatalf("tool calls out of order or missing: %v", msg.ToolCalls)
	}
}

func TestParseLineStringContent(t *testing.T) {
	line := `{"type":"user","sessionId":"s1","message":{"content":"plain text"}}`
	msg := ParseLine([]byte(line))
	if msg == nil || msg.ContentText != "plain text" {
		t.Fatalf("expected plain string content, got %+v", msg)
	}
}

func TestTokenUsageAddAndTotal(t *testing.T) {
	a := TokenUsage{InputTokens: 1, OutputTokens: 2, CacheReadTokens: 3, CacheCreationTokens: 4}
	b := TokenUsage{InputTokens: 10, OutputTokens: 20, CacheReadTokens: 30, CacheCreationTokens: 40}
	sum := a.Add(b)
	if sum.Total() != 110 {
		t.Fatalf("total = %d, want 110", sum.Total())
	}
}
