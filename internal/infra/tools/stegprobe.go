package tools

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	domain "github.com/bryanwahyu/artifact-triage/internal/domain/analysis"
)

// StegProbe shells out to one external steganography tool. The command shape
// is fixed per tool; stdout is handed back raw for opportunistic parsing.
type StegProbe struct {
	ToolName string
	Binary   string
	Timeout  time.Duration
}

func (p *StegProbe) Name() string { return p.ToolName }

func (p *StegProbe) timeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return defaultToolTimeout
}

func (p *StegProbe) Probe(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	var cmd *exec.Cmd
	switch p.ToolName {
	case "steghide":
		// extraction with an empty passphrase; most unprotected embeds
		outFile := filepath.Join(os.TempDir(), fmt.Sprintf("steghide-%d.out", time.Now().UnixNano()))
		defer os.Remove(outFile)
		cmd = exec.CommandContext(ctx, p.Binary, "extract", "-sf", path, "-p", "", "-xf", outFile, "-f")
		if _, err := cmd.CombinedOutput(); err != nil {
			return "", err
		}
		data, err := os.ReadFile(outFile)
		if err != nil {
			return "", err
		}
		return string(data), nil

	case "zsteg":
		cmd = exec.CommandContext(ctx, p.Binary, "-a", path)

	case "binwalk":
		cmd = exec.CommandContext(ctx, p.Binary, "-B", path)

	default:
		cmd = exec.CommandContext(ctx, p.Binary, path)
	}

	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// DefaultProbes returns the standard best-effort probe set. Tools that are
// not installed simply fail at invocation time and contribute nothing.
func DefaultProbes(timeout time.Duration) []domain.SteganographyProbe {
	names := []string{"steghide", "zsteg", "binwalk"}
	probes := make([]domain.SteganographyProbe, 0, len(names))
	for _, n := range names {
		probes = append(probes, &StegProbe{ToolName: n, Binary: n, Timeout: timeout})
	}
	return probes
}
