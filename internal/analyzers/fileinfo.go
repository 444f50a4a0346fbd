package analyzers

import (
	"bytes"
	"context"
	"os"
	"time"
	"unicode/utf8"

	"github.com/bryanwahyu/artifact-triage/internal/analyzers/score"
	domain "github.com/bryanwahyu/artifact-triage/internal/domain/analysis"
)

// FileAnalyzer inspects one artifact: size, coarse type, entropy, metadata,
// and a heuristic suspicion score. Metadata extraction goes through an
// optional external inspector and degrades to built-in signature sniffing.
type FileAnalyzer struct {
	Inspector domain.MetadataInspector
}

func NewFileAnalyzer(inspector domain.MetadataInspector) *FileAnalyzer {
	return &FileAnalyzer{Inspector: inspector}
}

func (a *FileAnalyzer) ID() string { return domain.AgentFileAnalysis }

func (a *FileAnalyzer) Run(ctx context.Context, req domain.AnalyzerRequest) domain.AnalysisResult {
	start := time.Now()

	data, err := os.ReadFile(req.ArtifactPath)
	if err != nil {
		return failedResult(a.ID(), "file_analysis", start, err)
	}

	report := domain.FileReport{
		Size:     int64(len(data)),
		Entropy:  score.Entropy(data),
		FileType: sniffFileType(data),
		Metadata: map[string]string{},
	}

	// best-effort external inspector; absence or failure keeps the sniffed type
	if a.Inspector != nil {
		if ft, meta, ierr := a.Inspector.Inspect(ctx, req.ArtifactPath); ierr == nil {
			if ft != "" {
				report.FileType = ft
			}
			if len(meta) > 0 {
				report.Metadata = meta
			}
		}
	}

	report.SuspicionScore, report.SuspiciousIndicators = suspicion(report)

	confidence := 0.7
	if len(report.Metadata) > 0 {
		confidence = 0.9
	}
	return domain.AnalysisResult{
		AgentID:       a.ID(),
		ResultType:    "file_analysis",
		Success:       true,
		Confidence:    confidence,
		ExecutionSecs: time.Since(start).Seconds(),
		OutputData:    report,
	}
}

// suspicion is a weighted sum capped at 1.0, one indicator string per rule hit.
func suspicion(r domain.FileReport) (float64, []string) {
	s := 0.0
	indicators := []string{}
	switch {
	case r.Entropy > 7.5:
		s += 0.4
		indicators = append(indicators, "very high entropy, likely encrypted or compressed")
	case r.Entropy > 7.0:
		s += 0.2
		indicators = append(indicators, "elevated entropy")
	}
	if r.Size > 100*1024*1024 {
		s += 0.1
		indicators = append(indicators, "unusually large file")
	}
	if r.Size < 100 && r.Size > 0 {
		s += 0.1
		indicators = append(indicators, "unusually small file")
	}
	if r.FileType == "unknown" {
		s += 0.3
		indicators = append(indicators, "unrecognized file type")
	}
	if s > 1.0 {
		s = 1.0
	}
	return s, indicators
}

var magicSignatures = []struct {
	prefix []byte
	ftype  string
}{
	{[]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, "png"},
	{[]byte{0xFF, 0xD8, 0xFF}, "jpeg"},
	{[]byte("GIF87a"), "gif"},
	{[]byte("GIF89a"), "gif"},
	{[]byte("BM"), "bmp"},
	{[]byte("%PDF"), "pdf"},
	{[]byte("PK\x03\x04"), "zip"},
	{[]byte{0x1F, 0x8B}, "gzip"},
	{[]byte{0x7F, 'E', 'L', 'F'}, "elf"},
	{[]byte("MZ"), "exe"},
}

// sniffFileType is the built-in fallback when no external inspector is wired.
func sniffFileType(data []byte) string {
	for _, sig := range magicSignatures {
		if bytes.HasPrefix(data, sig.prefix) {
			return sig.ftype
		}
	}
	if looksLikeText(data) {
		return "text"
	}
	return "unknown"
}

func looksLikeText(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	sample := data
	if len(sample) > 512 {
		sample = sample[:512]
	}
	if !utf8.Valid(sample) {
		return false
	}
	return score.ReadableRatio(string(sample)) > 0.9
}
