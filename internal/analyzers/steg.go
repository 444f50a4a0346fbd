package analyzers

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/bryanwahyu/artifact-triage/internal/analyzers/score"
	domain "github.com/bryanwahyu/artifact-triage/internal/domain/analysis"
)

const (
	lsbByteLimit = 8192
	lsbMinRatio  = 0.7
	// reported when the artifact is an image but nothing concrete surfaced
	stegBaseConfidence = 0.5
)

// StegAnalyzer runs least-significant-bit extraction over image-typed
// artifacts and folds in the output of any configured external stego tools.
// Non-image artifacts are a defined no-op, not a failure.
type StegAnalyzer struct {
	Probes []domain.SteganographyProbe
}

func NewStegAnalyzer(probes ...domain.SteganographyProbe) *StegAnalyzer {
	return &StegAnalyzer{Probes: probes}
}

func (a *StegAnalyzer) ID() string { return domain.AgentSteganography }

func (a *StegAnalyzer) Run(ctx context.Context, req domain.AnalyzerRequest) domain.AnalysisResult {
	start := time.Now()

	fr, ok := fileReportFrom(req.Prior)
	if !ok || !fr.ImageLike() {
		return domain.AnalysisResult{
			AgentID:       a.ID(),
			ResultType:    "steganalysis",
			Success:       true,
			Confidence:    1.0,
			ExecutionSecs: time.Since(start).Seconds(),
			OutputData:    domain.StegReport{Applicable: false},
		}
	}

	data, err := os.ReadFile(req.ArtifactPath)
	if err != nil {
		return failedResult(a.ID(), "steganalysis", start, err)
	}

	report := domain.StegReport{Applicable: true, ToolOutputs: map[string]string{}}

	if f, found := extractLSB(data); found {
		report.LSBFindings = append(report.LSBFindings, f)
	}

	// external tools are best-effort collaborators: a missing binary, timeout,
	// or non-zero exit only omits that tool's contribution
	for _, probe := range a.Probes {
		out, perr := probe.Probe(ctx, req.ArtifactPath)
		if perr != nil {
			continue
		}
		out = strings.TrimSpace(out)
		if out == "" {
			continue
		}
		report.ToolOutputs[probe.Name()] = out
		report.LSBFindings = append(report.LSBFindings, domain.Finding{
			Method:         probe.Name(),
			DecodedContent: preview(out),
			Confidence:     0.6,
			ReadableRatio:  score.ReadableRatio(out),
		})
	}
	report.LSBFindings = topFindings(report.LSBFindings, maxXORFindings)

	confidence := stegBaseConfidence
	for _, f := range report.LSBFindings {
		if f.Confidence > confidence {
			confidence = f.Confidence
		}
	}

	return domain.AnalysisResult{
		AgentID:       a.ID(),
		ResultType:    "steganalysis",
		Success:       true,
		Confidence:    confidence,
		ExecutionSecs: time.Since(start).Seconds(),
		OutputData:    report,
	}
}

// extractLSB packs the least significant bit of each input byte, MSB first,
// into candidate bytes and checks whether they read as text.
func extractLSB(data []byte) (domain.Finding, bool) {
	if len(data) > lsbByteLimit {
		data = data[:lsbByteLimit]
	}
	candidate := make([]byte, 0, len(data)/8)
	for i := 0; i+8 <= len(data); i += 8 {
		var b byte
		for j := 0; j < 8; j++ {
			b = b<<1 | data[i+j]&1
		}
		candidate = append(candidate, b)
	}
	text := strings.TrimRight(string(candidate), "\x00")
	ratio := score.ReadableRatio(text)
	if ratio <= lsbMinRatio || len(text) == 0 {
		return domain.Finding{}, false
	}
	return domain.Finding{
		Method:         "lsb_extraction",
		DecodedContent: preview(text),
		Confidence:     ratio,
		ReadableRatio:  ratio,
	}, true
}
