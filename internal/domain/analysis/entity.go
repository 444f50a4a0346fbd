package analysis

import (
	"time"
)

// ID tipe untuk Session
type SessionID string

// AnalysisType enum
type AnalysisType string

const (
	TypeComprehensive AnalysisType = "comprehensive"
	TypeTargeted      AnalysisType = "targeted"
	TypeCollaborative AnalysisType = "collaborative"
)

// Status enum; terminal states never revert
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether a status can still change
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Pipeline phases, fixed order
const (
	PhaseInitializing  = "initializing"
	PhaseFileAnalysis  = "file_analysis"
	PhaseSteganalysis  = "steganalysis"
	PhaseCryptanalysis = "cryptanalysis"
	PhaseSynthesis     = "intelligence_synthesis"
	PhaseFinalizing    = "finalizing"
	PhaseDone          = "completed"
)

// Analyzer identifiers
const (
	AgentFileAnalysis  = "file_analysis"
	AgentSteganography = "steganography"
	AgentCryptanalysis = "cryptanalysis"
	AgentIntelligence  = "intelligence"
)

// DefaultAgents is the full pipeline in execution order.
func DefaultAgents() []string {
	return []string{AgentFileAnalysis, AgentSteganography, AgentCryptanalysis, AgentIntelligence}
}

// Aggregate Root: Session, one orchestration run against one artifact
type Session struct {
	ID             SessionID        `json:"id"`
	TenantID       string           `json:"tenant_id"`
	OperatorID     string           `json:"operator_id,omitempty"`
	ArtifactPath   string           `json:"artifact_path"`
	AnalysisType   AnalysisType     `json:"analysis_type"`
	Priority       string           `json:"priority,omitempty"`
	Status         Status           `json:"status"`
	Phase          string           `json:"phase"`
	Progress       int              `json:"progress"`
	Entropy        float64          `json:"entropy"`
	AgentsInvolved []string         `json:"agents_involved"`
	Results        []AnalysisResult `json:"results"`
	Insights       []string         `json:"insights"`
	Connections    []Connection     `json:"connections"`
	ErrorMessage   string           `json:"error_message,omitempty"`
	ReportURL      string           `json:"report_url,omitempty"`
	StartedAt      time.Time        `json:"started_at"`
	CompletedAt    *time.Time       `json:"completed_at"`
	EstimatedDone  time.Time        `json:"estimated_completion"`
}

// Clone returns a deep-enough copy for snapshot reads: slices are copied so
// the pipeline goroutine can keep appending to its own instance.
func (s *Session) Clone() *Session {
	c := *s
	c.AgentsInvolved = append([]string(nil), s.AgentsInvolved...)
	c.Results = append([]AnalysisResult(nil), s.Results...)
	c.Insights = append([]string(nil), s.Insights...)
	c.Connections = append([]Connection(nil), s.Connections...)
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// AnalysisResult is the envelope for one analyzer invocation.
// Appended once per scheduled analyzer, never mutated afterwards.
type AnalysisResult struct {
	AgentID       string  `json:"agent_id"`
	ResultType    string  `json:"result_type"`
	Success       bool    `json:"success"`
	Confidence    float64 `json:"confidence_score"`
	ExecutionSecs float64 `json:"execution_time_seconds"`
	OutputData    any     `json:"output_data,omitempty"`
	ErrorMessage  string  `json:"error_message,omitempty"`
}

// Finding is one scored candidate from cryptanalysis or steganalysis.
// DecodedContent is a bounded preview, never the full payload.
type Finding struct {
	Method         string  `json:"method"`
	KeyOrShift     int     `json:"key_or_shift,omitempty"`
	DecodedContent string  `json:"decoded_content"`
	Confidence     float64 `json:"confidence"`
	ReadableRatio  float64 `json:"readable_ratio"`
}

// Connection links the current session to another discovery
// (a steganography method, a prior artifact with similar entropy).
type Connection struct {
	Kind        string  `json:"kind"`
	Description string  `json:"description"`
	Source      string  `json:"source,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// ==== analyzer output payloads ====

// FileReport hasil File-Characteristics Analyzer
type FileReport struct {
	FileType             string            `json:"file_type"`
	Size                 int64             `json:"size"`
	Entropy              float64           `json:"entropy"`
	Metadata             map[string]string `json:"metadata,omitempty"`
	SuspicionScore       float64           `json:"suspicion_score"`
	SuspiciousIndicators []string          `json:"suspicious_indicators"`
}

// TextLike reports whether the artifact should be treated as text for
// downstream method selection (Caesar only makes sense on text).
func (f FileReport) TextLike() bool {
	return f.FileType == "text" || f.Entropy < 5.5
}

// ImageLike reports whether steganalysis applies.
func (f FileReport) ImageLike() bool {
	switch f.FileType {
	case "png", "jpeg", "gif", "bmp", "image":
		return true
	}
	return false
}

// CryptoReport hasil Cryptanalysis Analyzer
type CryptoReport struct {
	XORFindings    []Finding `json:"xor_findings"`
	CaesarFindings []Finding `json:"caesar_findings"`
	Base64Findings []Finding `json:"base64_findings"`
	KeysTested     int       `json:"keys_tested"`
}

// StegReport hasil Steganalysis Analyzer
type StegReport struct {
	Applicable  bool              `json:"applicable"`
	LSBFindings []Finding         `json:"lsb_findings"`
	ToolOutputs map[string]string `json:"tool_outputs,omitempty"`
}

// SynthesisReport hasil Intelligence Synthesis
type SynthesisReport struct {
	Insights        []string     `json:"insights"`
	Connections     []Connection `json:"connections_discovered"`
	Patterns        []string     `json:"patterns_detected"`
	Recommendations []string     `json:"recommendations"`
	Confidence      float64      `json:"confidence_assessment"`
}
