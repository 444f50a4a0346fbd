package analysis

import (
	"context"
	"time"
)

// Repository port (interface untuk persistence)
type Repository interface {
	Save(ctx context.Context, s *Session) error
	UpdatePhase(ctx context.Context, tenant string, id SessionID, phase string, progress int) error
	UpdateStatus(ctx context.Context, tenant string, id SessionID, status Status, errMsg string) error
	SaveResults(ctx context.Context, tenant string, id SessionID, results []AnalysisResult) error
	Get(ctx context.Context, tenant string, id SessionID) (*Session, error)
	ResultsFor(ctx context.Context, tenant string, id SessionID) ([]AnalysisResult, error)
	Latest(ctx context.Context, tenant string, limit int) ([]*Session, error)
	Summary(ctx context.Context, tenant string, sinceDays int) (total, completed, failed, running int, err error)

	// tolerance-band lookup for the synthesis cross-reference; implementations
	// must bound the result set (limit); the historical table grows forever
	NearEntropy(ctx context.Context, tenant string, entropy, epsilon float64, limit int) ([]*Session, error)
}

// AnalyzerRequest carries everything one analyzer needs: the artifact and the
// results of every analyzer that already ran in this session.
type AnalyzerRequest struct {
	TenantID     string
	SessionID    SessionID
	ArtifactPath string
	Prior        []AnalysisResult
}

// Analyzer port: one heuristic module producing one AnalysisResult per
// session. Run never returns an error: failures are recorded in the envelope
// (Success=false, Confidence=0) so the pipeline can advance past them.
type Analyzer interface {
	ID() string
	Run(ctx context.Context, req AnalyzerRequest) AnalysisResult
}

// MetadataInspector port: optional external file inspector (exiftool, file).
// A nil or failing inspector degrades to "unknown", never to an error.
type MetadataInspector interface {
	Inspect(ctx context.Context, path string) (fileType string, metadata map[string]string, err error)
}

// SteganographyProbe port: optional external stego tool. Output is folded in
// opportunistically; absence, timeout, or non-zero exit mean "no contribution".
type SteganographyProbe interface {
	Name() string
	Probe(ctx context.Context, path string) (string, error)
}

// ArtifactStore port (interface untuk penyimpanan laporan/artefak)
type ArtifactStore interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
	UploadAndCleanup(ctx context.Context, localPath, key string) (string, error)
}

// InsightClient port: optional LLM narrative on top of rule-based synthesis.
type InsightClient interface {
	Narrative(ctx context.Context, summary string) (string, error)
}

// FindPrior returns the prior result for the given agent, or nil.
func FindPrior(prior []AnalysisResult, agentID string) *AnalysisResult {
	for i := range prior {
		if prior[i].AgentID == agentID {
			return &prior[i]
		}
	}
	return nil
}

// EstimateCompletion computes the never-revised completion estimate from the
// analysis type and artifact size at session creation time.
func EstimateCompletion(now time.Time, typ AnalysisType, size int64) time.Time {
	base := 30 * time.Second
	switch typ {
	case TypeComprehensive:
		base = 90 * time.Second
	case TypeCollaborative:
		base = 60 * time.Second
	}
	// one extra second per megabyte, capped so huge uploads don't promise hours
	extra := time.Duration(size/(1<<20)) * time.Second
	if extra > 5*time.Minute {
		extra = 5 * time.Minute
	}
	return now.Add(base + extra)
}
