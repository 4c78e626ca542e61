package app

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/use-sonar/open-sonar/internal/pricing"
	"github.com/use-sonar/open-sonar/internal/store"
	"github.com/use-sonar/open-sonar/internal/transcript"
)

const previewMaxLen = 200

// ImportHistory enumerates every first-level subdirectory under the
// transcript root and folds any .jsonl file whose stem looks like a real
// session id (non-empty, not prefixed "agent-") and is not already present
// in the store. It returns the number of sessions imported.
func (a *App) ImportHistory() (int, error) {
	entries, err := os.ReadDir(a.transcriptRoot())
	if err != nil {
		return 0, err
	}

	imported := 0
	for _, dirEntry := range entries {
		if !dirEntry.IsDir() {
			continue
		}
		projectDir := filepath.Join(a.transcriptRoot(), dirEntry.Name())
		files, err := os.ReadDir(projectDir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".jsonl") {
				continue
			}
			id := strings.TrimSuffix(f.Name(), ".jsonl")
			if id == "" || strings.HasPrefix(id, "agent-") {
				continue
			}

			exists, err := a.Store.SessionExists(id)
			if err != nil {
				return imported, err
			}
			if exists {
				continue
			}

			if err := a.importSession(filepath.Join(projectDir, f.Name()), id, transcript.DecodeProjectDir(dirEntry.Name())); err != nil {
				return imported, err
			}
			imported++
		}
	}
	return imported, nil
}

func (a *App) transcriptRoot() string {
	if a.Config.Transcript.RootOverride != "" {
		return a.Config.Transcript.RootOverride
	}
	root, err := transcript.LocateRoot()
	if err != nil {
		return ""
	}
	return root
}

// importSession folds one transcript file through the same parse and cost
// path the live collector uses, additionally persisting one MessageRecord
// per message that carries usage, then upserts the resulting SessionRecord.
// As in the collector, usage is priced with the most recently seen model,
// and usage seen before any model costs nothing.
func (a *App) importSession(path, sessionID, project string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rec := store.SessionRecord{
		ID:      sessionID,
		AgentID: "imported",
		Project: project,
		Model:   "unknown",
		Status:  "completed",
	}

	var firstTS, lastTS time.Time
	var usage transcript.TokenUsage
	var totalCost float64
	lastModel := ""
	toolCalls := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		parsed := transcript.ParseLine(scanner.Bytes())
		if parsed == nil || parsed.SessionID == "" {
			continue
		}

		ts, tsErr := time.Parse(time.RFC3339, parsed.Timestamp)
		if tsErr == nil {
			if firstTS.IsZero() || ts.Before(firstTS) {
				firstTS = ts
			}
			if ts.After(lastTS) {
				lastTS = ts
			}
		}

		if parsed.Model != "" {
			rec.Model = parsed.Model
			lastModel = parsed.Model
		}
		toolCalls += len(parsed.ToolCalls)

		if parsed.Usage == nil {
			continue
		}
		usage = usage.Add(*parsed.Usage)
		var cost float64
		if lastModel != "" {
			cost = pricing.Cost(*parsed.Usage, lastModel)
		}
		totalCost += cost

		var preview *string
		if parsed.ContentText != "" {
			p := truncatePreview(parsed.ContentText)
			preview = &p
		}
		var toolName *string
		if len(parsed.ToolCalls) > 0 {
			toolName = &parsed.ToolCalls[0]
		}

		if _, err := a.Store.InsertMessage(store.MessageRecord{
			SessionID:           sessionID,
			InputTokens:         parsed.Usage.InputTokens,
			OutputTokens:        parsed.Usage.OutputTokens,
			CacheReadTokens:     parsed.Usage.CacheReadTokens,
			CacheCreationTokens: parsed.Usage.CacheCreationTokens,
			Cost:                cost,
			Preview:             preview,
			ToolName:            toolName,
			Timestamp:           parsed.Timestamp,
		}); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	rec.InputTokens = usage.InputTokens
	rec.OutputTokens = usage.OutputTokens
	rec.CacheReadTokens = usage.CacheReadTokens
	rec.CacheCreationTokens = usage.CacheCreationTokens
	rec.TotalTokens = usage.Total()
	rec.TotalCost = totalCost
	rec.ToolCalls = toolCalls
	if !firstTS.IsZero() {
		rec.StartedAt = firstTS.Format(time.RFC3339)
	}
	if !lastTS.IsZero() {
		durationMs := lastTS.Sub(firstTS).Milliseconds()
		if durationMs < 0 {
			durationMs = 0
		}
		rec.DurationMs = durationMs
		ended := lastTS.Format(time.RFC3339)
		rec.EndedAt = &ended
	}

	return a.Store.UpsertSession(rec)
}

func truncatePreview(s string) string {
	r := []rune(s)
	if len(r) <= previewMaxLen {
		return s
	}
	return string(r[:previewMaxLen])
}
