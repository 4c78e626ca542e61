package transcript

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/use-sonar/open-sonar/internal/events"
)

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	for _, l := range lines {
		if _, err := f.WriteString(l + "\n"); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCollectorTailThenAppend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.jsonl")

	registry := NewRegistry()
	registry.Register("A", dir)

	var updates []SessionUpdatePayload
	sink := events.SinkFunc(func(topic events.Topic, payload any) {
		if topic == events.TopicSessionUpdate {
			updates = append(updates, payload.(SessionUpdatePayload))
		}
	})

	c := NewCollector(dir, registry, sink, events.PrivacyFilter{})

	line := `{"type":"assistant","sessionId":"s1","message":{"model":"sonnet","usage":{"input_tokens":0,"output_tokens":100,"cache_read_input_tokens":0,"cache_creation_input_tokens":0}}}`
	writeLines(t, path, line)

	if err := c.Process(path); err != nil {
		t.Fatal(err)
	}
	if len(updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(updates))
	}
	if updates[0].TotalTokens != 100 {
		t.Fatalf("total tokens = %d, want 100", updates[0].TotalTokens)
	}

	writeLines(t, path, line, line)
	if err := c.Process(path); err != nil {
		t.Fatal(err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}
	if updates[1].TotalTokens != 300 {
		t.Fatalf("total tokens after 3rd line = %d, want 300", updates[1].TotalTokens)
	}
	if updates[1].TotalCost <= updates[0].TotalCost {
		t.Fatal("cost should have increased monotonically")
	}
}

func TestCollectorUnattributedFileIsIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.jsonl")
	writeLines(t, path, `{"type":"user","sessionId":"s1"}`)

	registry := NewRegistry() // nothing registered
	c := NewCollector(dir, registry, nil, events.PrivacyFilter{})

	if err := c.Process(path); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Snapshot(path); ok {
		t.Fatal("unattributed file should not be tracked")
	}
}

func TestCollectorFirstUserMessageEmitsAgentDetected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.jsonl")
	registry := NewRegistry()
	registry.Register("A", dir)

	var detected []AgentDetectedPayload
	sink := events.SinkFunc(func(topic events.Topic, payload any) {
		if topic == events.TopicAgentDetected {
			detected = append(detected, payload.(AgentDetectedPayload))
		}
	})
	c := NewCollector(dir, registry, sink, events.PrivacyFilter{})

	writeLines(t, path, `{"type":"user","sessionId":"s1","message":{"content":"Refactor the auth module to use tokens"}}`)
	if err := c.Process(path); err != nil {
		t.Fatal(err)
	}
	if len(detected) != 1 {
		t.Fatalf("expected 1 agent-detected event, got %d", len(detected))
	}
	if detected[0].Task != "Refactor the auth module to use tokens" {
		t.Fatalf("task = %q", detected[0].Task)
	}
}

func TestCollectorMalformedLineStillAdvancesOffset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.jsonl")
	registry := NewRegistry()
	registry.Register("A", dir)
	c := NewCollector(dir, registry, nil, events.PrivacyFilter{})

	writeLines(t, path, "not json at all", `{"type":"user","sessionId":"s1"}`)
	if err := c.Process(path); err != nil {
		t.Fatal(err)
	}
	snap, ok := c.Snapshot(path)
	if !ok {
		t.Fatal("expected tracked file")
	}
	if snap.CumulativeMessages != 1 {
		t.Fatalf("cumulative messages = %d, want 1 (malformed line contributes nothing)", snap.CumulativeMessages)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Offset != info.Size() {
		t.Fatalf("offset = %d, want %d (malformed line must still be consumed)", snap.Offset, info.Size())
	}
}
