package transcript

import "encoding/json"

// rawEntry mirrors the fields of a transcript NDJSON record that we care
// about; everything else is ignored. message is decoded lazily via
// RawMessage since its shape is itself agent-defined.
type rawEntry struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Timestamp string          `json:"timestamp"`
	Message   json.RawMessage `json:"message"`
}

type rawMessage struct {
	Model   string          `json:"model"`
	Usage   *rawUsage       `json:"usage"`
	Content json.RawMessage `json:"content"`
}

type rawUsage struct {
	InputTokens         int `json:"input_tokens"`
	OutputTokens        int `json:"output_tokens"`
	CacheReadTokens      int `json:"cache_read_input_tokens"`
	CacheCreationTokens int `json:"cache_creation_input_tokens"`
}

type rawContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
	Name string `json:"name"`
}

// ParseLine decodes one NDJSON transcript line. It returns nil if the line
// is not a JSON object, has no "type" field, or is a file-history-snapshot
// record. Missing optional fields map to zero values rather than errors:
// the parser is tolerant by design, matching the append-only log it reads
// from an agent that may be mid-write.
func ParseLine(line []byte) *ParsedMessage {
	var entry rawEntry
	if err := json.Unmarshal(line, &entry); err != nil {
		return nil
	}
	if entry.Type == "" || entry.Type == "file-history-snapshot" {
		return nil
	}

	msg := ParsedMessage{
		MessageType: entry.Type,
		SessionID:   entry.SessionID,
		Timestamp:   entry.Timestamp,
		ToolCalls:   []string{},
	}

	if len(entry.Message) == 0 {
		return &msg
	}

	var rm rawMessage
	if err := json.Unmarshal(entry.Message, &rm); err != nil {
		// Malformed message body: still return the envelope fields we
		// already decoded successfully.
		return &msg
	}

	msg.Model = rm.Model
	if rm.Usage != nil {
		msg.Usage = &TokenUsage{
			InputTokens:         rm.Usage.InputTokens,
			OutputTokens:        rm.Usage.OutputTokens,
			CacheReadTokens:      rm.Usage.CacheReadTokens,
			CacheCreationTokens: rm.Usage.CacheCreationTokens,
		}
	}

	if len(rm.Content) > 0 {
		parseContent(rm.Content, &msg)
	}

	return &msg
}

// parseContent extracts the last text block and every tool_use name, in
// input order, from a message's content field. Content may be either an
// array of typed blocks or a bare string (older transcript formats).
func parseContent(raw json.RawMessage, msg *ParsedMessage) {
	var blocks []rawContentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		for _, b := range blocks {
			switch b.Type {
			case "text":
				if b.Text != "" {
					msg.ContentText = b.Text
				}
			case "tool_use":
				if b.Name != "" {
					msg.ToolCalls = append(msg.ToolCalls, b.Name)
				}
			}
		}
		return
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		msg.ContentText = s
	}
}
