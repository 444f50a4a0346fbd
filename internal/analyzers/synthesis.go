package analyzers

import (
	"context"
	"fmt"
	"strings"
	"time"

	domain "github.com/bryanwahyu/artifact-triage/internal/domain/analysis"
)

const (
	entropyEpsilon   = 0.5
	entropyBandLimit = 25
)

// SynthesisAnalyzer derives insights, connections, patterns, and
// recommendations from the results of the preceding analyzers. It is
// rule-based; the repository cross-reference and the optional LLM narrative
// are both best-effort and degrade to the rule-based output alone.
type SynthesisAnalyzer struct {
	Repo    domain.Repository
	Insight domain.InsightClient
}

func NewSynthesisAnalyzer(repo domain.Repository, insight domain.InsightClient) *SynthesisAnalyzer {
	return &SynthesisAnalyzer{Repo: repo, Insight: insight}
}

func (a *SynthesisAnalyzer) ID() string { return domain.AgentIntelligence }

func (a *SynthesisAnalyzer) Run(ctx context.Context, req domain.AnalyzerRequest) domain.AnalysisResult {
	start := time.Now()

	report := domain.SynthesisReport{
		Insights:        []string{},
		Connections:     []domain.Connection{},
		Patterns:        []string{},
		Recommendations: []string{},
	}

	for _, prior := range req.Prior {
		switch out := prior.OutputData.(type) {
		case domain.FileReport:
			a.synthesizeFile(&report, out)
		case domain.StegReport:
			a.synthesizeSteg(&report, out)
		case domain.CryptoReport:
			a.synthesizeCrypto(&report, out)
		}
	}

	a.crossReference(ctx, &report, req)

	// mean confidence over everything that ran before this stage
	report.Confidence = meanConfidence(req.Prior)

	if len(report.Insights) == 0 {
		report.Insights = append(report.Insights, "no notable characteristics detected; artifact appears unremarkable")
	}

	a.enrichNarrative(ctx, &report)

	return domain.AnalysisResult{
		AgentID:       a.ID(),
		ResultType:    "intelligence_synthesis",
		Success:       true,
		Confidence:    report.Confidence,
		ExecutionSecs: time.Since(start).Seconds(),
		OutputData:    report,
	}
}

func (a *SynthesisAnalyzer) synthesizeFile(report *domain.SynthesisReport, fr domain.FileReport) {
	if fr.Entropy > 7.0 {
		report.Insights = append(report.Insights,
			fmt.Sprintf("entropy %.2f indicates encrypted or compressed content", fr.Entropy))
		report.Patterns = append(report.Patterns, "high_entropy")
	}
	if fr.SuspicionScore > 0.5 {
		report.Insights = append(report.Insights,
			fmt.Sprintf("suspicion score %.2f: %s", fr.SuspicionScore, strings.Join(fr.SuspiciousIndicators, "; ")))
		report.Recommendations = append(report.Recommendations,
			"escalate artifact for manual review")
	}
	if fr.FileType == "unknown" {
		report.Recommendations = append(report.Recommendations,
			"attempt deeper format identification with additional tooling")
	}
}

func (a *SynthesisAnalyzer) synthesizeSteg(report *domain.SynthesisReport, sr domain.StegReport) {
	if !sr.Applicable {
		return
	}
	for _, f := range sr.LSBFindings {
		report.Insights = append(report.Insights,
			fmt.Sprintf("steganographic content recovered via %s (confidence %.2f)", f.Method, f.Confidence))
		report.Connections = append(report.Connections, domain.Connection{
			Kind:        "steganography",
			Description: fmt.Sprintf("hidden payload surfaced by %s", f.Method),
			Source:      f.Method,
			Confidence:  f.Confidence,
		})
	}
	if len(sr.LSBFindings) > 0 {
		report.Patterns = append(report.Patterns, "steganography")
		report.Recommendations = append(report.Recommendations,
			"extract and preserve the full hidden payload")
	}
}

func (a *SynthesisAnalyzer) synthesizeCrypto(report *domain.SynthesisReport, cr domain.CryptoReport) {
	families := []struct {
		name     string
		findings []domain.Finding
	}{
		{"single-byte XOR", cr.XORFindings},
		{"Caesar shift", cr.CaesarFindings},
		{"base64", cr.Base64Findings},
	}
	for _, fam := range families {
		if len(fam.findings) == 0 {
			continue
		}
		best := fam.findings[0]
		report.Insights = append(report.Insights,
			fmt.Sprintf("%s decoding succeeded (confidence %.2f): %q", fam.name, best.Confidence, best.DecodedContent))
		report.Patterns = append(report.Patterns, "encoded_content")
		if best.KeyOrShift != 0 {
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("decode the full artifact with %s key %d", fam.name, best.KeyOrShift))
		} else {
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("decode the full artifact as %s", fam.name))
		}
	}
}

// crossReference surfaces previously analyzed artifacts with entropy in a
// tolerance band around the current one. Lookup errors degrade to no
// connections; they never fail the synthesis stage.
func (a *SynthesisAnalyzer) crossReference(ctx context.Context, report *domain.SynthesisReport, req domain.AnalyzerRequest) {
	fr, ok := fileReportFrom(req.Prior)
	if !ok || a.Repo == nil {
		return
	}
	similar, err := a.Repo.NearEntropy(ctx, req.TenantID, fr.Entropy, entropyEpsilon, entropyBandLimit)
	if err != nil {
		return
	}
	for _, s := range similar {
		if s.ID == req.SessionID {
			continue
		}
		report.Connections = append(report.Connections, domain.Connection{
			Kind:        "similar_entropy",
			Description: fmt.Sprintf("entropy %.2f within %.1f bits of session %s", s.Entropy, entropyEpsilon, s.ID),
			Source:      string(s.ID),
			Confidence:  0.4,
		})
	}
}

// enrichNarrative asks the optional LLM for a one-paragraph assessment.
func (a *SynthesisAnalyzer) enrichNarrative(ctx context.Context, report *domain.SynthesisReport) {
	if a.Insight == nil {
		return
	}
	summary := strings.Join(report.Insights, ". ")
	narrative, err := a.Insight.Narrative(ctx, summary)
	if err != nil || strings.TrimSpace(narrative) == "" {
		return
	}
	report.Insights = append(report.Insights, narrative)
}

func meanConfidence(results []domain.AnalysisResult) float64 {
	if len(results) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range results {
		sum += r.Confidence
	}
	return sum / float64(len(results))
}
