// Package analyzers holds the concrete analyzer implementations run by the
// session orchestrator. Each analyzer owns its envelope: failures come back
// as Success=false results, never as errors, so one broken stage cannot take
// the whole session down.
package analyzers

import (
	"sort"
	"time"

	domain "github.com/bryanwahyu/artifact-triage/internal/domain/analysis"
)

const previewLimit = 100

func failedResult(agentID, resultType string, start time.Time, err error) domain.AnalysisResult {
	return domain.AnalysisResult{
		AgentID:       agentID,
		ResultType:    resultType,
		Success:       false,
		Confidence:    0,
		ExecutionSecs: time.Since(start).Seconds(),
		ErrorMessage:  err.Error(),
	}
}

// topFindings sorts descending by confidence and truncates to n.
func topFindings(findings []domain.Finding, n int) []domain.Finding {
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Confidence > findings[j].Confidence
	})
	if len(findings) > n {
		findings = findings[:n]
	}
	return findings
}

func preview(s string) string {
	if len(s) > previewLimit {
		return s[:previewLimit]
	}
	return s
}

// fileReportFrom digs the FileReport out of a prior result, if any.
func fileReportFrom(prior []domain.AnalysisResult) (domain.FileReport, bool) {
	r := domain.FindPrior(prior, domain.AgentFileAnalysis)
	if r == nil || !r.Success {
		return domain.FileReport{}, false
	}
	report, ok := r.OutputData.(domain.FileReport)
	return report, ok
}
