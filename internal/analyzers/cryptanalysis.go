package analyzers

import (
	"context"
	"encoding/base64"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/bryanwahyu/artifact-triage/internal/analyzers/score"
	domain "github.com/bryanwahyu/artifact-triage/internal/domain/analysis"
)

const (
	xorBufferLimit  = 4096
	xorScoreWindow  = 1000
	xorMinRatio     = 0.7
	caesarMinRatio  = 0.8
	base64MinRatio  = 0.7
	maxXORFindings  = 5
	maxCaesarFinds  = 3
	maxB64Findings  = 5
)

var base64RunPattern = regexp.MustCompile(`[A-Za-z0-9+/]{20,}={0,2}`)

// CryptoAnalyzer brute-forces single-byte XOR, Caesar shifts, and carves
// base64 runs out of the artifact. All three methods always run: independent
// encodings may coexist in one artifact, so there is no short-circuit on the
// first hit.
type CryptoAnalyzer struct{}

func NewCryptoAnalyzer() *CryptoAnalyzer { return &CryptoAnalyzer{} }

func (a *CryptoAnalyzer) ID() string { return domain.AgentCryptanalysis }

func (a *CryptoAnalyzer) Run(ctx context.Context, req domain.AnalyzerRequest) domain.AnalysisResult {
	start := time.Now()

	data, err := os.ReadFile(req.ArtifactPath)
	if err != nil {
		return failedResult(a.ID(), "cryptanalysis", start, err)
	}

	report := domain.CryptoReport{
		XORFindings:    bruteForceXOR(data),
		Base64Findings: carveBase64(data),
		KeysTested:     255,
	}

	// Caesar only makes sense on text-like artifacts
	if fr, ok := fileReportFrom(req.Prior); ok && fr.TextLike() {
		report.CaesarFindings = bruteForceCaesar(string(data))
		report.KeysTested += 25
	}

	confidence := 0.3
	for _, fs := range [][]domain.Finding{report.XORFindings, report.CaesarFindings, report.Base64Findings} {
		for _, f := range fs {
			if f.Confidence > confidence {
				confidence = f.Confidence
			}
		}
	}

	return domain.AnalysisResult{
		AgentID:       a.ID(),
		ResultType:    "cryptanalysis",
		Success:       true,
		Confidence:    confidence,
		ExecutionSecs: time.Since(start).Seconds(),
		OutputData:    report,
	}
}

// bruteForceXOR tries every non-zero single-byte key and keeps candidates
// whose decode reads as plausible text.
func bruteForceXOR(data []byte) []domain.Finding {
	buf := data
	if len(buf) > xorBufferLimit {
		buf = buf[:xorBufferLimit]
	}
	var findings []domain.Finding
	decoded := make([]byte, len(buf))
	for key := 1; key <= 255; key++ {
		for i, b := range buf {
			decoded[i] = b ^ byte(key)
		}
		window := decoded
		if len(window) > xorScoreWindow {
			window = window[:xorScoreWindow]
		}
		text := string(window)
		ratio := score.ReadableRatio(text)
		if ratio > xorMinRatio {
			// low-bit key variants of the true key often stay fully readable;
			// blending in English-likeness separates the real decode from them
			conf := 0.5*ratio + 0.5*englishness(text)
			findings = append(findings, domain.Finding{
				Method:         "xor_single_byte",
				KeyOrShift:     key,
				DecodedContent: preview(text),
				Confidence:     conf,
				ReadableRatio:  ratio,
			})
		}
	}
	return topFindings(findings, maxXORFindings)
}

// bruteForceCaesar rotates letters through every shift. Rotation keeps
// letters in the readable class, so the ratio alone cannot rank shifts; the
// confidence blends it with an English-likeness score to pick the real one.
func bruteForceCaesar(text string) []domain.Finding {
	if len(text) > xorBufferLimit {
		text = text[:xorBufferLimit]
	}
	var findings []domain.Finding
	for shift := 1; shift <= 25; shift++ {
		rotated := rotateLetters(text, shift)
		ratio := score.ReadableRatio(rotated)
		if ratio > caesarMinRatio {
			conf := 0.5*ratio + 0.5*englishness(rotated)
			findings = append(findings, domain.Finding{
				Method:         "caesar_shift",
				KeyOrShift:     shift,
				DecodedContent: preview(rotated),
				Confidence:     conf,
				ReadableRatio:  ratio,
			})
		}
	}
	return topFindings(findings, maxCaesarFinds)
}

// carveBase64 scans for base64 alphabet runs and scores their decodes.
func carveBase64(data []byte) []domain.Finding {
	var findings []domain.Finding
	for _, run := range base64RunPattern.FindAllString(string(data), -1) {
		decoded, err := decodeBase64(run)
		if err != nil {
			continue
		}
		text := string(decoded)
		ratio := score.ReadableRatio(text)
		if ratio > base64MinRatio {
			findings = append(findings, domain.Finding{
				Method:         "base64",
				DecodedContent: preview(text),
				Confidence:     ratio,
				ReadableRatio:  ratio,
			})
		}
	}
	return topFindings(findings, maxB64Findings)
}

func decodeBase64(run string) ([]byte, error) {
	if len(run)%4 == 0 {
		if out, err := base64.StdEncoding.DecodeString(run); err == nil {
			return out, nil
		}
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(run, "="))
}

func rotateLetters(text string, shift int) string {
	out := []byte(text)
	for i, c := range out {
		switch {
		case c >= 'a' && c <= 'z':
			out[i] = 'a' + (c-'a'+byte(shift))%26
		case c >= 'A' && c <= 'Z':
			out[i] = 'A' + (c-'A'+byte(shift))%26
		}
	}
	return string(out)
}

var commonWords = []string{" the ", " and ", " to ", " of ", " in ", " is ", " that ", " for ", " it ", " on "}

// englishness is a cheap frequency heuristic: common-word hits plus how close
// the vowel share is to typical English prose.
func englishness(text string) float64 {
	lower := strings.ToLower(text)
	hits := 0
	for _, w := range commonWords {
		hits += strings.Count(lower, w)
	}
	wordScore := float64(hits) / (float64(len(lower))/25.0 + 1.0)
	if wordScore > 1 {
		wordScore = 1
	}

	letters, vowels := 0, 0
	for _, r := range lower {
		if r >= 'a' && r <= 'z' {
			letters++
			switch r {
			case 'a', 'e', 'i', 'o', 'u':
				vowels++
			}
		}
	}
	vowelScore := 0.0
	if letters > 0 {
		dev := float64(vowels)/float64(letters) - 0.38
		if dev < 0 {
			dev = -dev
		}
		vowelScore = 1 - dev*4
		if vowelScore < 0 {
			vowelScore = 0
		}
	}
	return 0.6*wordScore + 0.4*vowelScore
}
