package analysis

import "time"

// SessionView is the wire shape served to callers. Both status paths, the
// live in-memory registry and the durable-store reconstruction, must go
// through NewSessionView so they can never diverge.
type SessionView struct {
	SessionID      string           `json:"session_id"`
	Status         string           `json:"status"`
	Progress       int              `json:"progress"`
	CurrentPhase   string           `json:"current_phase"`
	AgentsInvolved []string         `json:"agents_involved"`
	TaskCount      int              `json:"task_count"`
	CompletedTasks int              `json:"completed_tasks"`
	FailedTasks    int              `json:"failed_tasks"`
	Results        []AnalysisResult `json:"results"`
	Insights       []string         `json:"insights"`
	Connections    []Connection     `json:"connections_discovered"`
	ErrorMessage   string           `json:"error_message,omitempty"`
	ReportURL      string           `json:"report_url,omitempty"`
	StartedAt      time.Time        `json:"started_at"`
	CompletedAt    *time.Time       `json:"completed_at"`
	EstimatedDone  time.Time        `json:"estimated_completion"`
}

// NewSessionView builds the caller-facing snapshot of a session.
func NewSessionView(s *Session) SessionView {
	completed, failed := 0, 0
	for _, r := range s.Results {
		if r.Success {
			completed++
		} else {
			failed++
		}
	}
	v := SessionView{
		SessionID:      string(s.ID),
		Status:         string(s.Status),
		Progress:       s.Progress,
		CurrentPhase:   s.Phase,
		AgentsInvolved: s.AgentsInvolved,
		TaskCount:      len(s.AgentsInvolved),
		CompletedTasks: completed,
		FailedTasks:    failed,
		Results:        s.Results,
		Insights:       s.Insights,
		Connections:    s.Connections,
		ErrorMessage:   s.ErrorMessage,
		ReportURL:      s.ReportURL,
		StartedAt:      s.StartedAt,
		CompletedAt:    s.CompletedAt,
		EstimatedDone:  s.EstimatedDone,
	}
	if v.Results == nil {
		v.Results = []AnalysisResult{}
	}
	if v.Insights == nil {
		v.Insights = []string{}
	}
	if v.Connections == nil {
		v.Connections = []Connection{}
	}
	return v
}
