package analyzers

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/artifact-triage/internal/domain/analysis"
)

// lsbCarrier builds a byte stream whose least significant bits spell msg.
func lsbCarrier(msg string) []byte {
	carrier := make([]byte, 0, len(msg)*8)
	for _, b := range []byte(msg) {
		for bit := 7; bit >= 0; bit-- {
			c := byte(0xA0)
			if b>>uint(bit)&1 == 1 {
				c |= 1
			}
			carrier = append(carrier, c)
		}
	}
	return carrier
}

func TestStegNonImageNoOp(t *testing.T) {
	// artifact path deliberately does not exist: the no-op branch must not
	// touch the LSB extraction path at all
	res := NewStegAnalyzer().Run(context.Background(), domain.AnalyzerRequest{
		ArtifactPath: filepath.Join(t.TempDir(), "missing.txt"),
		Prior:        textPrior("text"),
	})

	require.True(t, res.Success)
	assert.Equal(t, 1.0, res.Confidence)
	report, ok := res.OutputData.(domain.StegReport)
	require.True(t, ok)
	assert.False(t, report.Applicable)
	assert.Empty(t, report.LSBFindings)
}

func TestStegLSBRoundTrip(t *testing.T) {
	msg := "Hidden message in the noise"
	path := writeArtifact(t, "carrier.png", lsbCarrier(msg))

	res := NewStegAnalyzer().Run(context.Background(), domain.AnalyzerRequest{
		ArtifactPath: path,
		Prior:        textPrior("png"),
	})
	require.True(t, res.Success)

	report := res.OutputData.(domain.StegReport)
	assert.True(t, report.Applicable)
	require.NotEmpty(t, report.LSBFindings)
	assert.Equal(t, "lsb_extraction", report.LSBFindings[0].Method)
	assert.Equal(t, msg, report.LSBFindings[0].DecodedContent)
	assert.Greater(t, res.Confidence, 0.7)
}

func TestStegNoFindingsModerateConfidence(t *testing.T) {
	// even bytes only: the LSB plane is all zeros, nothing to extract
	data := make([]byte, 512)
	for i := range data {
		data[i] = byte(i * 2)
	}
	path := writeArtifact(t, "plain.png", data)

	res := NewStegAnalyzer().Run(context.Background(), domain.AnalyzerRequest{
		ArtifactPath: path,
		Prior:        textPrior("png"),
	})
	require.True(t, res.Success)
	report := res.OutputData.(domain.StegReport)
	assert.True(t, report.Applicable)
	assert.Equal(t, stegBaseConfidence, res.Confidence)
}

type fakeProbe struct {
	name string
	out  string
	err  error
}

func (p *fakeProbe) Name() string { return p.name }
func (p *fakeProbe) Probe(ctx context.Context, path string) (string, error) {
	return p.out, p.err
}

func TestStegExternalProbes(t *testing.T) {
	path := writeArtifact(t, "img.png", make([]byte, 256))

	res := NewStegAnalyzer(
		&fakeProbe{name: "steghide", out: "extracted secret payload"},
		&fakeProbe{name: "zsteg", err: errors.New("not installed")},
	).Run(context.Background(), domain.AnalyzerRequest{
		ArtifactPath: path,
		Prior:        textPrior("png"),
	})

	require.True(t, res.Success)
	report := res.OutputData.(domain.StegReport)
	assert.Equal(t, "extracted secret payload", report.ToolOutputs["steghide"])
	assert.NotContains(t, report.ToolOutputs, "zsteg")
}

func TestStegMissingArtifact(t *testing.T) {
	res := NewStegAnalyzer().Run(context.Background(), domain.AnalyzerRequest{
		ArtifactPath: filepath.Join(t.TempDir(), "gone.png"),
		Prior:        textPrior("png"),
	})
	assert.False(t, res.Success)
	assert.Equal(t, 0.0, res.Confidence)
}
