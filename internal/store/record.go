package store

// SessionRecord is one row of the sessions table. Invariant: TotalTokens
// equals the sum of the four token-kind fields.
type SessionRecord struct {
	ID                  string
	AgentID             string
	Project             string
	Model               string
	TotalCost           float64
	TotalTokens         int
	InputTokens         int
	OutputTokens        int
	CacheReadTokens     int
	CacheCreationTokens int
	DurationMs          int64
	Status              string
	ToolCalls           int
	StartedAt           string
	EndedAt             *string
}

// MessageRecord is one append-only row of the messages table.
type MessageRecord struct {
	ID                  int64
	SessionID           string
	InputTokens         int
	OutputTokens        int
	CacheReadTokens     int
	CacheCreationTokens int
	Cost                float64
	Preview             *string
	ToolName            *string
	Timestamp           string
}

// DailyCost is one row of the daily_costs aggregate.
type DailyCost struct {
	Date        string
	TotalCost   float64
	TotalTokens int
	Count       int
}

// ModelStat is one row of the model_stats aggregate, excluding the
// "unknown" model.
type ModelStat struct {
	Model       string
	TotalCost   float64
	TotalTokens int
	Count       int
	AvgCost     float64
	AvgTokens   float64
}
