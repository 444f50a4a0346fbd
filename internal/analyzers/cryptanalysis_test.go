package analyzers

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/artifact-triage/internal/domain/analysis"
)

func writeArtifact(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func textPrior(fileType string) []domain.AnalysisResult {
	return []domain.AnalysisResult{{
		AgentID:    domain.AgentFileAnalysis,
		ResultType: "file_analysis",
		Success:    true,
		Confidence: 0.9,
		OutputData: domain.FileReport{FileType: fileType, Entropy: 4.2},
	}}
}

func TestCryptoXORRoundTrip(t *testing.T) {
	plaintext := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 5)
	const key = 0x5A
	cipher := make([]byte, len(plaintext))
	for i := range plaintext {
		cipher[i] = plaintext[i] ^ key
	}
	path := writeArtifact(t, "xor.bin", cipher)

	res := NewCryptoAnalyzer().Run(context.Background(), domain.AnalyzerRequest{ArtifactPath: path})
	require.True(t, res.Success)

	report, ok := res.OutputData.(domain.CryptoReport)
	require.True(t, ok)
	require.NotEmpty(t, report.XORFindings)

	best := report.XORFindings[0]
	assert.Equal(t, key, best.KeyOrShift)
	assert.Equal(t, "xor_single_byte", best.Method)
	assert.True(t, strings.HasPrefix(plaintext, best.DecodedContent))
	assert.Greater(t, best.ReadableRatio, 0.7)
	assert.LessOrEqual(t, len(report.XORFindings), 5)
}

func TestCryptoCaesarRoundTrip(t *testing.T) {
	original := "the cat and the dog went to the park and the sun was warm and the day was long"
	const shift = 3
	cipher := rotateLetters(original, shift)
	path := writeArtifact(t, "caesar.txt", []byte(cipher))

	res := NewCryptoAnalyzer().Run(context.Background(), domain.AnalyzerRequest{
		ArtifactPath: path,
		Prior:        textPrior("text"),
	})
	require.True(t, res.Success)

	report, ok := res.OutputData.(domain.CryptoReport)
	require.True(t, ok)
	require.NotEmpty(t, report.CaesarFindings)
	assert.LessOrEqual(t, len(report.CaesarFindings), 3)

	// recovering the plaintext means rotating by 26-shift
	best := report.CaesarFindings[0]
	assert.Equal(t, 26-shift, best.KeyOrShift)
	assert.True(t, strings.HasPrefix(original, best.DecodedContent))
}

func TestCryptoCaesarSkippedForBinary(t *testing.T) {
	path := writeArtifact(t, "bin.dat", []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x80})

	res := NewCryptoAnalyzer().Run(context.Background(), domain.AnalyzerRequest{
		ArtifactPath: path,
		Prior: []domain.AnalysisResult{{
			AgentID:    domain.AgentFileAnalysis,
			Success:    true,
			OutputData: domain.FileReport{FileType: "elf", Entropy: 7.9},
		}},
	})
	require.True(t, res.Success)
	report := res.OutputData.(domain.CryptoReport)
	assert.Empty(t, report.CaesarFindings)
	assert.Equal(t, 255, report.KeysTested)
}

func TestCryptoBase64Carving(t *testing.T) {
	secret := "This is a hidden secret message inside the binary blob"
	encoded := base64.StdEncoding.EncodeToString([]byte(secret))
	require.GreaterOrEqual(t, len(encoded), 20)

	// base64 run embedded between bytes outside the base64 alphabet
	padding := []byte{0xFF, 0xFE, 0x80, 0x81, 0x82, 0x00, 0x01}
	data := append(append(append([]byte{}, padding...), []byte(encoded)...), padding...)
	path := writeArtifact(t, "carved.bin", data)

	res := NewCryptoAnalyzer().Run(context.Background(), domain.AnalyzerRequest{ArtifactPath: path})
	require.True(t, res.Success)

	report := res.OutputData.(domain.CryptoReport)
	require.NotEmpty(t, report.Base64Findings)
	assert.Equal(t, secret, report.Base64Findings[0].DecodedContent)
	assert.Greater(t, report.Base64Findings[0].Confidence, 0.7)
}

func TestCryptoMissingArtifact(t *testing.T) {
	res := NewCryptoAnalyzer().Run(context.Background(), domain.AnalyzerRequest{
		ArtifactPath: filepath.Join(t.TempDir(), "nope.bin"),
	})
	assert.False(t, res.Success)
	assert.Equal(t, 0.0, res.Confidence)
	assert.NotEmpty(t, res.ErrorMessage)
}

func TestRotateLetters(t *testing.T) {
	assert.Equal(t, "bcd", rotateLetters("abc", 1))
	assert.Equal(t, "abc", rotateLetters("zab", 1))
	assert.Equal(t, "ABC xyz!", rotateLetters("ABC xyz!", 26))
}
