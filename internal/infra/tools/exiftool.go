// Package tools wraps the optional external forensic binaries. Every adapter
// runs with a bounded timeout; a missing binary, timeout, or non-zero exit is
// reported as an error for the caller to swallow, so the pipeline keeps its
// correctness without any of these tools installed.
package tools

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

const defaultToolTimeout = 30 * time.Second

// ExifInspector extracts file type and metadata through exiftool, falling
// back to file(1) for the type when exiftool is absent.
type ExifInspector struct {
	ExiftoolPath string
	FilePath     string
	Timeout      time.Duration
}

func NewExifInspector() *ExifInspector {
	return &ExifInspector{ExiftoolPath: "exiftool", FilePath: "file", Timeout: defaultToolTimeout}
}

func (e *ExifInspector) timeout() time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	return defaultToolTimeout
}

func (e *ExifInspector) Inspect(ctx context.Context, path string) (string, map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout())
	defer cancel()

	meta := map[string]string{}
	fileType := ""

	out, err := exec.CommandContext(ctx, e.ExiftoolPath, "-S", "-fast", path).Output()
	if err == nil {
		meta = parseExiftool(string(out))
		fileType = normalizeType(meta["FileType"])
	}

	if fileType == "" {
		out, ferr := exec.CommandContext(ctx, e.FilePath, "-b", "--mime-type", path).Output()
		if ferr != nil {
			if err != nil {
				// neither tool available
				return "", nil, ferr
			}
		} else {
			fileType = normalizeType(strings.TrimSpace(string(out)))
		}
	}

	return fileType, meta, nil
}

// parseExiftool reads "Key: value" lines from exiftool -S output.
func parseExiftool(out string) map[string]string {
	meta := map[string]string{}
	for _, line := range strings.Split(out, "\n") {
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k != "" && v != "" {
			meta[k] = v
		}
	}
	return meta
}

// normalizeType maps tool output onto the coarse type labels the analyzers
// branch on.
func normalizeType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case t == "":
		return ""
	case strings.Contains(t, "png"):
		return "png"
	case strings.Contains(t, "jpeg"), strings.Contains(t, "jpg"):
		return "jpeg"
	case strings.Contains(t, "gif"):
		return "gif"
	case strings.Contains(t, "bmp"):
		return "bmp"
	case strings.HasPrefix(t, "image/"):
		return "image"
	case strings.Contains(t, "text"):
		return "text"
	case strings.Contains(t, "pdf"):
		return "pdf"
	case strings.Contains(t, "zip"):
		return "zip"
	}
	return t
}
