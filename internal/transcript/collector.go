package transcript

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/use-sonar/open-sonar/internal/events"
	"github.com/use-sonar/open-sonar/internal/pricing"
)

// ErrNoTranscriptRoot is returned by LocateRoot when neither of the two
// well-known transcript directories exists.
var ErrNoTranscriptRoot = errors.New("transcript: no ~/.config/claude/projects or ~/.claude/projects directory found")

// LocateRoot finds the transcript root by trying the XDG-style config path
// first, then the legacy dotfile path. It fails fast (ErrNoTranscriptRoot)
// if neither exists, since there is nothing for the collector to watch.
func LocateRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	candidates := []string{
		filepath.Join(home, ".config", "claude", "projects"),
		filepath.Join(home, ".claude", "projects"),
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return c, nil
		}
	}
	return "", ErrNoTranscriptRoot
}

// Collector watches a transcript root directory for appended NDJSON lines,
// attributes each file to a registered agent, and folds usage into
// per-file cumulative counters. The tracked-files map is the only mutable
// state shared with the watcher callback goroutine; it is guarded by mu
// for the duration of each process() call, matching the "single mutex,
// held for the whole process(path)" discipline spec.md requires.
type Collector struct {
	root     string
	registry *Registry
	sink     events.Sink
	privacy  events.PrivacyFilter

	mu      sync.Mutex
	tracked map[string]*TrackedFile // keyed by absolute file path

	watcher *fsnotify.Watcher
}

// NewCollector constructs a collector rooted at root, attributing files via
// registry and publishing events to sink. Pass events.Discard for sink if
// no events are needed (e.g. in tests exercising only process()). privacy
// masks the AgentID field of every emitted payload; the zero value never
// masks anything, so internal lookups (which always use the real agent
// id) are unaffected.
func NewCollector(root string, registry *Registry, sink events.Sink, privacy events.PrivacyFilter) *Collector {
	if sink == nil {
		sink = events.Discard
	}
	return &Collector{
		root:     root,
		registry: registry,
		sink:     sink,
		privacy:  privacy,
		tracked:  make(map[string]*TrackedFile),
	}
}

// Start installs a recursive filesystem watch on the collector's root and
// processes events until ctx is cancelled. It returns once the watcher is
// installed; events are handled on a goroutine that Start launches itself,
// so callers invoke Start directly.
func (c *Collector) Start(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	c.watcher = w

	if err := addRecursive(w, c.root); err != nil {
		w.Close()
		return err
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				c.handleEvent(ev)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Printf("transcript: watcher error: %v", err)
			}
		}
	}()

	return nil
}

// addRecursive walks dir and adds every subdirectory (including dir
// itself) to w. fsnotify has no native recursive mode, so new project
// directories created after Start must be picked up via handleEvent's
// Create handling below.
func addRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

func (c *Collector) handleEvent(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create) != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := c.watcher.Add(ev.Name); err != nil {
				log.Printf("transcript: failed to watch new dir %s: %v", ev.Name, err)
			}
			return
		}
	}

	if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	if !strings.HasSuffix(ev.Name, ".jsonl") {
		return
	}

	if err := c.process(ev.Name); err != nil {
		log.Printf("transcript: process(%s): %v", ev.Name, err)
	}
}

// process attributes path, tails newly appended lines, folds them into the
// file's cumulative counters, and emits a session-update event if any new
// message was folded. It holds the tracked-files lock for its entire
// duration: cross-file processing has no ordering guarantee, but a single
// file's counters never interleave two concurrent updates.
func (c *Collector) process(path string) error {
	agentID, ok := c.registry.Resolve(path)
	if !ok {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tf, ok := c.tracked[path]
	if !ok {
		tf = &TrackedFile{AgentID: agentID, ToolCalls: []string{}}
		c.tracked[path] = tf
	}
	tf.AgentID = agentID

	f, err := os.Open(path)
	if err != nil {
		// I/O errors surface to the caller but the TrackedFile is not
		// evicted; the next event retries from the last good offset.
		return err
	}
	defer f.Close()

	if _, err := f.Seek(tf.Offset, io.SeekStart); err != nil {
		return err
	}

	reader := bufio.NewReader(f)
	newMessages := 0

	for {
		line, err := reader.ReadBytes('\n')
		// Only a complete, newline-terminated line is safe to fold and
		// advance the offset past: a partial trailing line means the
		// writer hasn't finished appending it yet, and will be re-read
		// in full on the next event.
		if len(line) > 0 && line[len(line)-1] == '\n' {
			c.foldLine(tf, agentID, line[:len(line)-1], &newMessages)
			tf.Offset += int64(len(line))
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
	}

	if newMessages > 0 {
		c.sink.Emit(events.TopicSessionUpdate, SessionUpdatePayload{
			AgentID:      c.privacy.MaskAgentID(agentID),
			Model:        tf.LastModel,
			TotalTokens:  tf.CumulativeTokens,
			TotalCost:    tf.CumulativeCost,
			MessageCount: tf.CumulativeMessages,
			ToolCalls:    append([]string(nil), tf.ToolCalls...),
			Usage:        tf.CumulativeUsage,
		})
	}

	return nil
}

// foldLine parses one complete line and, if it carries a non-empty session
// id, folds it into tf. Malformed or session-less lines still advance the
// caller's offset (handled by process) but contribute nothing here.
func (c *Collector) foldLine(tf *TrackedFile, agentID string, line []byte, newMessages *int) {
	parsed := ParseLine(line)
	if parsed == nil || parsed.SessionID == "" {
		return
	}

	if parsed.Model != "" {
		tf.LastModel = parsed.Model
	}

	if parsed.Usage != nil {
		tf.CumulativeUsage = tf.CumulativeUsage.Add(*parsed.Usage)
		tf.CumulativeTokens += parsed.Usage.Total()
		if tf.LastModel != "" {
			tf.CumulativeCost += pricing.Cost(*parsed.Usage, tf.LastModel)
		}
	}

	tf.ToolCalls = append(tf.ToolCalls, parsed.ToolCalls...)
	tf.CumulativeMessages++
	*newMessages++

	if tf.CumulativeMessages == 1 && parsed.MessageType == "user" {
		task := truncateRunes(parsed.ContentText, 80)
		c.sink.Emit(events.TopicAgentDetected, AgentDetectedPayload{
			AgentID:   c.privacy.MaskAgentID(agentID),
			SessionID: parsed.SessionID,
			Task:      task,
		})
	}
}

// truncateRunes shortens s to at most max runes, leaving it unchanged if
// it is already within budget. Slicing by byte index would cut a
// multi-byte UTF-8 character in half; this counts runes instead.
func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// Snapshot returns a copy of the tracked file state for path, if any.
func (c *Collector) Snapshot(path string) (TrackedFile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tf, ok := c.tracked[path]
	if !ok {
		return TrackedFile{}, false
	}
	return tf.Snapshot(), true
}

// Process exposes process for callers (e.g. tests) that need to force a synchronous tail without waiting on a filesystem event.
func (c *Collector) Process(path string) error {
	return c.process(path)
}

// SnapshotByAgent returns a copy of the tracked file state attributed to
// agentID, if any. Iteration order over the tracked map is unspecified;
// callers that register exactly one directory per agent id (the only
// supported usage) never observe more than one match.
func (c *Collector) SnapshotByAgent(agentID string) (TrackedFile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tf := range c.tracked {
		if tf.AgentID == agentID {
			return tf.Snapshot(), true
		}
	}
	return TrackedFile{}, false
}
