package transcript

// TrackedFile is the collector's fold state for one transcript file. It is
// created on the first observed modification of a file and lives until the
// collector is torn down; offsets never rewind.
type TrackedFile struct {
	Offset             int64
	AgentID            string
	CumulativeTokens   int
	CumulativeCost     float64
	CumulativeMessages int
	ToolCalls          []string
	LastModel          string
	CumulativeUsage    TokenUsage
}

// Snapshot returns a value copy of the tracked file's current state, safe
// to hand to an event payload without risking a data race on later writes.
func (t *TrackedFile) Snapshot() TrackedFile {
	cp := *t
	cp.ToolCalls = append([]string(nil), t.ToolCalls...)
	return cp
}
