package testsupport

import (
	"strings"
	"testing"
)

func TestAssistantMessageProducesParsableLine(t *testing.T) {
	b := NewTranscript("sess-1").
		AssistantMessage("2026-01-01T00:00:00Z", "sonnet", Usage{InputTokens: 10, OutputTokens: 20}, "hi", "Bash")

	lines := b.Lines()
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(lines))
	}
	if !strings.Contains(lines[0], `"sessionId":"sess-1"`) {
		t.Fatalf("line missing sessionId: %s", lines[0])
	}
	if !strings.Contains(lines[0], `"name":"Bash"`) {
		t.Fatalf("line missing tool_use block: %s", lines[0])
	}
}

func TestBytesJoinsWithTrailingNewline(t *testing.T) {
	b := NewTranscript("s").UserMessage("2026-01-01T00:00:00Z", "start")
	out := b.Bytes()
	if !strings.HasSuffix(string(out), "\n") {
		t.Fatalf("Bytes() does not end with newline: %q", out)
	}
}

func TestEmptyBuilderProducesNilBytes(t *testing.T) {
	if NewTranscript("s").Bytes() != nil {
		t.Fatal("expected nil bytes for empty builder")
	}
}
