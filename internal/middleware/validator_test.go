package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAnalysisType(t *testing.T) {
	assert.NoError(t, ValidateAnalysisType(""))
	assert.NoError(t, ValidateAnalysisType("comprehensive"))
	assert.NoError(t, ValidateAnalysisType("Targeted"))
	assert.Error(t, ValidateAnalysisType("exhaustive"))
}

func TestValidatePriority(t *testing.T) {
	assert.NoError(t, ValidatePriority(""))
	assert.NoError(t, ValidatePriority("urgent"))
	assert.Error(t, ValidatePriority("critical"))
}

func TestValidateAgents(t *testing.T) {
	assert.NoError(t, ValidateAgents(nil))
	assert.NoError(t, ValidateAgents([]string{"file_analysis", "intelligence"}))
	assert.Error(t, ValidateAgents([]string{"file_analysis", "quantum_oracle"}))
}

func TestValidateArtifactPath(t *testing.T) {
	assert.NoError(t, ValidateArtifactPath("/data/uploads/sample.bin"))
	assert.Error(t, ValidateArtifactPath(""))
	assert.Error(t, ValidateArtifactPath("/data/../etc/passwd"))
	assert.Error(t, ValidateArtifactPath("/etc/shadow"))
	assert.Error(t, ValidateArtifactPath("/proc/self/environ"))
	assert.Error(t, ValidateArtifactPath("/data/a;rm -rf /"))
	assert.Error(t, ValidateArtifactPath("/data/$(whoami).bin"))
	assert.Error(t, ValidateArtifactPath("/data/a`id`.bin"))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello", SanitizeString("  hello\x00  "))
	assert.Equal(t, "a\tb", SanitizeString("a\tb\x01\x02"))
}

func TestValidateTenantID(t *testing.T) {
	assert.NoError(t, ValidateTenantID("acme-corp_01"))
	assert.Error(t, ValidateTenantID(""))
	assert.Error(t, ValidateTenantID("has space"))
	assert.Error(t, ValidateTenantID("no/slash"))
}

func TestValidateSessionID(t *testing.T) {
	assert.NoError(t, ValidateSessionID("0f8fad5b-d9cb-469f-a165-70867728950e"))
	assert.Error(t, ValidateSessionID(""))
	assert.Error(t, ValidateSessionID("not-a-uuid"))
	assert.Error(t, ValidateSessionID("0F8FAD5B-D9CB-469F-A165-70867728950E"))
}

func TestValidateLimitAndDays(t *testing.T) {
	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 100, ValidateLimit(5000))
	assert.Equal(t, 42, ValidateLimit(42))

	assert.Equal(t, 7, ValidateDays(-1))
	assert.Equal(t, 365, ValidateDays(1000))
	assert.Equal(t, 30, ValidateDays(30))
}
