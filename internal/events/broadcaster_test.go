package events

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startTestServer(t *testing.T, b *Broadcaster, origins []string) *httptest.Server {
	t.Helper()
	srv := NewServer(b, origins)
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBroadcastDeliversEnvelopeToClient(t *testing.T) {
	b := NewBroadcaster(0)
	ts := startTestServer(t, b, nil)
	conn := dial(t, ts)

	deadline := time.Now().Add(2 * time.Second)
	for b.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 connected client, got %d", b.ClientCount())
	}

	b.Emit(TopicLoopAlert, map[string]any{"agent_id": "a1"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Topic != TopicLoopAlert {
		t.Fatalf("topic = %q, want %q", env.Topic, TopicLoopAlert)
	}
	if env.Seq != 1 {
		t.Fatalf("seq = %d, want 1", env.Seq)
	}
}

func TestMaxConnsRejectsExtraClient(t *testing.T) {
	b := NewBroadcaster(1)
	ts := startTestServer(t, b, nil)

	_ = dial(t, ts)
	time.Sleep(50 * time.Millisecond)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected second connection to be rejected")
	}
	if resp != nil {
		resp.Body.Close()
	}
}

func TestPrivacyFilterZeroValueIsNoop(t *testing.T) {
	f := PrivacyFilter{MaskAgentIDs: true}
	if f.IsNoop() {
		t.Fatal("filter with MaskAgentIDs set should not be a no-op")
	}

	noop := PrivacyFilter{}
	if got := noop.MaskAgentID("agent-123"); got != "agent-123" {
		t.Fatalf("no-op filter should not alter agent id, got %q", got)
	}
}

func TestPrivacyFilterMasksAgentID(t *testing.T) {
	f := PrivacyFilter{MaskAgentIDs: true}
	masked := f.MaskAgentID("agent-123")
	if masked == "agent-123" || masked == "" {
		t.Fatalf("expected agent id to be masked, got %q", masked)
	}
}
