package model

import "time"

// LLMCall tracks each generation attempt against an LLM provider for cost
// monitoring and diagnostics. One row per attempt, not per request.
type LLMCall struct {
	ID             int64     `db:"id" json:"id"`
	RequestContext string    `db:"request_context" json:"request_context"`
	Provider       string    `db:"provider" json:"provider"`
	Model          string    `db:"model" json:"model"`
	Schema         string    `db:"schema_name" json:"schema"`
	Attempt        int       `db:"attempt" json:"attempt"`
	Temperature    float64   `db:"temperature" json:"temperature"`
	Success        bool      `db:"success" json:"success"`
	ErrorMessage   *string   `db:"error_message" json:"error_message,omitempty"`
	DurationMs     *int64    `db:"duration_ms" json:"duration_ms,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ProviderCallCount is one row of the per-provider breakdown.
type ProviderCallCount struct {
	Provider string `db:"provider" json:"provider"`
	Total    int64  `db:"total" json:"total"`
	Failed   int64  `db:"failed" json:"failed"`
}

// LLMCallStats summarizes the call ledger for the admin endpoint.
type LLMCallStats struct {
	Total      int64               `json:"total"`
	Succeeded  int64               `json:"succeeded"`
	Failed     int64               `json:"failed"`
	ByProvider []ProviderCallCount `json:"by_provider"`
}
