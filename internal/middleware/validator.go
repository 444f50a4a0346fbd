package middleware

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Input validation and sanitization utilities

// ValidateAnalysisType checks if the analysis type is in the allowed set
func ValidateAnalysisType(typ string) error {
	if typ == "" {
		return nil // Optional field, orchestrator applies the default
	}
	allowed := map[string]bool{
		"comprehensive": true,
		"targeted":      true,
		"collaborative": true,
	}

	if !allowed[strings.ToLower(typ)] {
		return fmt.Errorf("invalid analysis type: %s (allowed: comprehensive, targeted, collaborative)", typ)
	}
	return nil
}

// ValidatePriority checks the session priority label
func ValidatePriority(priority string) error {
	if priority == "" {
		return nil // Optional field
	}
	allowed := map[string]bool{
		"low":    true,
		"normal": true,
		"high":   true,
		"urgent": true,
	}
	if !allowed[strings.ToLower(priority)] {
		return fmt.Errorf("invalid priority: %s (allowed: low, normal, high, urgent)", priority)
	}
	return nil
}

// ValidateAgents checks that requested agent identifiers are known
func ValidateAgents(agents []string) error {
	allowed := map[string]bool{
		"file_analysis": true,
		"steganography": true,
		"cryptanalysis": true,
		"intelligence":  true,
	}
	for _, a := range agents {
		if !allowed[a] {
			return fmt.Errorf("unknown agent: %s", a)
		}
	}
	return nil
}

// ValidateArtifactPath validates artifact file paths (for security)
func ValidateArtifactPath(path string) error {
	if path == "" {
		return fmt.Errorf("artifact path cannot be empty")
	}

	// Clean the path
	cleaned := filepath.Clean(path)

	// Block path traversal attempts
	if strings.Contains(cleaned, "..") {
		return fmt.Errorf("path traversal detected")
	}

	// Block absolute paths to sensitive directories
	blocked := []string{"/etc", "/proc", "/sys", "/dev", "/root", "/boot"}
	for _, b := range blocked {
		if strings.HasPrefix(cleaned, b) {
			return fmt.Errorf("access to %s is not allowed", b)
		}
	}

	// Block dangerous patterns
	dangerous := []string{"$(", "`", "&", "|", ";", "\n", "\r", "&&", "||"}
	for _, d := range dangerous {
		if strings.Contains(path, d) {
			return fmt.Errorf("invalid characters in path")
		}
	}

	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateTenantID validates tenant ID format
func ValidateTenantID(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("tenant ID cannot be empty")
	}

	// Allow alphanumeric, dash, underscore (max 64 chars)
	pattern := `^[a-zA-Z0-9_-]{1,64}$`
	matched, _ := regexp.MatchString(pattern, tenant)
	if !matched {
		return fmt.Errorf("invalid tenant ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}

	return nil
}

// ValidateSessionID validates session ID format (UUID)
func ValidateSessionID(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}

	pattern := `^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`
	matched, _ := regexp.MatchString(pattern, sessionID)
	if !matched {
		return fmt.Errorf("invalid session ID format")
	}

	return nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidateDays validates days parameter
func ValidateDays(days int) int {
	if days <= 0 {
		return 7 // default
	}
	if days > 365 {
		return 365 // max 1 year
	}
	return days
}
