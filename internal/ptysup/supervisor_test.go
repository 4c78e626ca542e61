package ptysup

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/use-sonar/open-sonar/internal/events"
)

func TestSpawnShellWriteAndKill(t *testing.T) {
	var mu sync.Mutex
	var output []byte
	exited := make(chan PTYExitPayload, 1)

	sink := events.SinkFunc(func(topic events.Topic, payload any) {
		switch topic {
		case events.TopicPTYOutput:
			mu.Lock()
			output = append(output, []byte(payload.(PTYOutputPayload).Data)...)
			mu.Unlock()
		case events.TopicPTYExit:
			exited <- payload.(PTYExitPayload)
		}
	})

	sup := New(sink, events.PrivacyFilter{})
	if err := sup.SpawnShell("shell-1", t.TempDir(), 24, 80); err != nil {
		t.Fatalf("SpawnShell: %v", err)
	}
	if !sup.IsAlive("shell-1") {
		t.Fatal("expected session to be alive after spawn")
	}

	if err := sup.Write("shell-1", []byte("echo hello-from-sonar\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		mu.Lock()
		got := string(output)
		mu.Unlock()
		if strings.Contains(got, "hello-from-sonar") {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for echo output, got %q", got)
		case <-time.After(20 * time.Millisecond):
		}
	}

	if err := sup.Kill("shell-1"); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pty-exit event")
	}

	if sup.IsAlive("shell-1") {
		t.Fatal("expected session to be removed after exit")
	}
}

func TestUnknownAgentOperationsFail(t *testing.T) {
	sup := New(nil, events.PrivacyFilter{})

	if err := sup.Write("ghost", []byte("x")); !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("Write on unknown agent = %v, want ErrUnknownAgent", err)
	}
	if err := sup.Resize("ghost", 10, 10); !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("Resize on unknown agent = %v, want ErrUnknownAgent", err)
	}
	if err := sup.Kill("ghost"); !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("Kill on unknown agent = %v, want ErrUnknownAgent", err)
	}
	if sup.IsAlive("ghost") {
		t.Fatal("expected IsAlive(ghost) to be false")
	}
}

func TestToValidUTF8ReplacesInvalidSequences(t *testing.T) {
	got := toValidUTF8([]byte{'h', 'i', 0xff, 0xfe})
	if len(got) == 0 {
		t.Fatal("expected non-empty output")
	}
	if got[:2] != "hi" {
		t.Fatalf("got = %q, want prefix \"hi\"", got)
	}
}
