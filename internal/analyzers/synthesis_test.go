package analyzers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/artifact-triage/internal/domain/analysis"
)

// entropyRepo stubs only the cross-reference lookup; nothing else is used by
// the synthesis stage.
type entropyRepo struct {
	domain.Repository
	sessions []*domain.Session
	err      error
}

func (r *entropyRepo) NearEntropy(ctx context.Context, tenant string, entropy, epsilon float64, limit int) ([]*domain.Session, error) {
	return r.sessions, r.err
}

func synthPrior() []domain.AnalysisResult {
	return []domain.AnalysisResult{
		{
			AgentID:    domain.AgentFileAnalysis,
			Success:    true,
			Confidence: 0.9,
			OutputData: domain.FileReport{FileType: "png", Entropy: 7.8, SuspicionScore: 0.6,
				SuspiciousIndicators: []string{"very high entropy, likely encrypted or compressed"}},
		},
		{
			AgentID:    domain.AgentSteganography,
			Success:    true,
			Confidence: 0.8,
			OutputData: domain.StegReport{Applicable: true, LSBFindings: []domain.Finding{
				{Method: "lsb_extraction", DecodedContent: "secret", Confidence: 0.8, ReadableRatio: 0.95},
			}},
		},
		{
			AgentID:    domain.AgentCryptanalysis,
			Success:    true,
			Confidence: 0.7,
			OutputData: domain.CryptoReport{XORFindings: []domain.Finding{
				{Method: "xor_single_byte", KeyOrShift: 42, DecodedContent: "plaintext", Confidence: 0.9},
			}},
		},
	}
}

func TestSynthesisRuleBasedInsights(t *testing.T) {
	repo := &entropyRepo{sessions: []*domain.Session{
		{ID: "other-session", Entropy: 7.7},
	}}

	res := NewSynthesisAnalyzer(repo, nil).Run(context.Background(), domain.AnalyzerRequest{
		TenantID:  "acme",
		SessionID: "this-session",
		Prior:     synthPrior(),
	})
	require.True(t, res.Success)

	report, ok := res.OutputData.(domain.SynthesisReport)
	require.True(t, ok)

	assert.NotEmpty(t, report.Insights)
	assert.Contains(t, report.Patterns, "high_entropy")
	assert.Contains(t, report.Patterns, "steganography")
	assert.Contains(t, report.Patterns, "encoded_content")

	kinds := map[string]bool{}
	for _, c := range report.Connections {
		kinds[c.Kind] = true
	}
	assert.True(t, kinds["steganography"])
	assert.True(t, kinds["similar_entropy"])

	// mean of 0.9, 0.8, 0.7
	assert.InDelta(t, 0.8, report.Confidence, 0.001)
	assert.InDelta(t, 0.8, res.Confidence, 0.001)

	assert.NotEmpty(t, report.Recommendations)
}

func TestSynthesisSkipsSelfInCrossReference(t *testing.T) {
	repo := &entropyRepo{sessions: []*domain.Session{
		{ID: "this-session", Entropy: 7.8},
	}}

	res := NewSynthesisAnalyzer(repo, nil).Run(context.Background(), domain.AnalyzerRequest{
		TenantID:  "acme",
		SessionID: "this-session",
		Prior:     synthPrior(),
	})
	report := res.OutputData.(domain.SynthesisReport)
	for _, c := range report.Connections {
		assert.NotEqual(t, "this-session", c.Source)
	}
}

func TestSynthesisCrossReferenceErrorDegrades(t *testing.T) {
	repo := &entropyRepo{err: errors.New("db down")}

	res := NewSynthesisAnalyzer(repo, nil).Run(context.Background(), domain.AnalyzerRequest{
		TenantID: "acme",
		Prior:    synthPrior(),
	})
	require.True(t, res.Success)
	report := res.OutputData.(domain.SynthesisReport)
	for _, c := range report.Connections {
		assert.NotEqual(t, "similar_entropy", c.Kind)
	}
}

func TestSynthesisNoPriorResults(t *testing.T) {
	res := NewSynthesisAnalyzer(nil, nil).Run(context.Background(), domain.AnalyzerRequest{})
	require.True(t, res.Success)
	report := res.OutputData.(domain.SynthesisReport)
	assert.Equal(t, 0.0, report.Confidence)
	assert.Len(t, report.Insights, 1)
}

type fakeInsight struct {
	text string
	err  error
}

func (f *fakeInsight) Narrative(ctx context.Context, summary string) (string, error) {
	return f.text, f.err
}

func TestSynthesisNarrativeEnrichment(t *testing.T) {
	res := NewSynthesisAnalyzer(nil, &fakeInsight{text: "likely an encrypted container"}).
		Run(context.Background(), domain.AnalyzerRequest{Prior: synthPrior()})
	report := res.OutputData.(domain.SynthesisReport)
	assert.Contains(t, report.Insights, "likely an encrypted container")
}

func TestSynthesisNarrativeErrorIgnored(t *testing.T) {
	res := NewSynthesisAnalyzer(nil, &fakeInsight{err: errors.New("quota exceeded")}).
		Run(context.Background(), domain.AnalyzerRequest{Prior: synthPrior()})
	require.True(t, res.Success)
	report := res.OutputData.(domain.SynthesisReport)
	for _, in := range report.Insights {
		assert.NotContains(t, in, "quota")
	}
}
