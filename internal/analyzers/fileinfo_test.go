package analyzers

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/artifact-triage/internal/domain/analysis"
)

func TestFileAnalyzerTextArtifact(t *testing.T) {
	path := writeArtifact(t, "note.txt", []byte("just a short note"))

	res := NewFileAnalyzer(nil).Run(context.Background(), domain.AnalyzerRequest{ArtifactPath: path})
	require.True(t, res.Success)

	report, ok := res.OutputData.(domain.FileReport)
	require.True(t, ok)
	assert.Equal(t, "text", report.FileType)
	assert.Equal(t, int64(17), report.Size)
	assert.GreaterOrEqual(t, report.Entropy, 0.0)
	assert.LessOrEqual(t, report.Entropy, 8.0)
	// only the small-file rule fires
	assert.InDelta(t, 0.1, report.SuspicionScore, 0.001)
}

func TestFileAnalyzerHighEntropyUnknown(t *testing.T) {
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte((i*167 + 13) % 256)
	}
	path := writeArtifact(t, "blob.bin", data)

	res := NewFileAnalyzer(nil).Run(context.Background(), domain.AnalyzerRequest{ArtifactPath: path})
	require.True(t, res.Success)

	report := res.OutputData.(domain.FileReport)
	assert.Equal(t, "unknown", report.FileType)
	assert.Greater(t, report.Entropy, 7.5)
	// very high entropy (+0.4) plus unresolved type (+0.3)
	assert.InDelta(t, 0.7, report.SuspicionScore, 0.001)
	assert.Len(t, report.SuspiciousIndicators, 2)
}

func TestFileAnalyzerMagicBytes(t *testing.T) {
	png := append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 64)...)
	path := writeArtifact(t, "img.png", png)

	res := NewFileAnalyzer(nil).Run(context.Background(), domain.AnalyzerRequest{ArtifactPath: path})
	require.True(t, res.Success)
	report := res.OutputData.(domain.FileReport)
	assert.Equal(t, "png", report.FileType)
	assert.True(t, report.ImageLike())
}

func TestFileAnalyzerMissingArtifact(t *testing.T) {
	res := NewFileAnalyzer(nil).Run(context.Background(), domain.AnalyzerRequest{
		ArtifactPath: filepath.Join(t.TempDir(), "missing.bin"),
	})
	assert.False(t, res.Success)
	assert.Equal(t, 0.0, res.Confidence)
	assert.NotEmpty(t, res.ErrorMessage)
}

type fakeInspector struct {
	fileType string
	meta     map[string]string
	err      error
}

func (f *fakeInspector) Inspect(ctx context.Context, path string) (string, map[string]string, error) {
	return f.fileType, f.meta, f.err
}

func TestFileAnalyzerInspectorOverride(t *testing.T) {
	path := writeArtifact(t, "photo", []byte("not really an image"))

	res := NewFileAnalyzer(&fakeInspector{
		fileType: "jpeg",
		meta:     map[string]string{"Make": "Canon"},
	}).Run(context.Background(), domain.AnalyzerRequest{ArtifactPath: path})

	require.True(t, res.Success)
	report := res.OutputData.(domain.FileReport)
	assert.Equal(t, "jpeg", report.FileType)
	assert.Equal(t, "Canon", report.Metadata["Make"])
	assert.Equal(t, 0.9, res.Confidence)
}

func TestFileAnalyzerInspectorFailureFallsBack(t *testing.T) {
	path := writeArtifact(t, "note2.txt", []byte("plain readable text content here"))

	res := NewFileAnalyzer(&fakeInspector{err: assert.AnError}).
		Run(context.Background(), domain.AnalyzerRequest{ArtifactPath: path})

	require.True(t, res.Success)
	report := res.OutputData.(domain.FileReport)
	assert.Equal(t, "text", report.FileType)
	assert.Equal(t, 0.7, res.Confidence)
}
