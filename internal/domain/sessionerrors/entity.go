package sessionerrors

import "time"

// SessionError represents a persisted analyzer or pipeline failure entry.
// One row per failed AnalysisResult plus one per pipeline-level failure, so
// partial failures stay auditable after the session leaves memory.
type SessionError struct {
	ID          int64     `json:"id"`
	TenantID    string    `json:"tenant_id"`
	SessionID   string    `json:"session_id"`
	AgentID     string    `json:"agent_id,omitempty"`
	Phase       string    `json:"phase,omitempty"` // analyzer | pipeline
	Message     string    `json:"message"`
	DetailsJSON string    `json:"details_json,omitempty"` // raw JSON string
	CreatedAt   time.Time `json:"created_at"`
}
