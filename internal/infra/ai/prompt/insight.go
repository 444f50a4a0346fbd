package prompt

import "fmt"

// GetSystemPrompt constrains the model to a short plain-text assessment.
func GetSystemPrompt() string {
	return `You are a senior digital-forensics analyst. You will receive a terse summary of heuristic findings for one artifact (entropy, suspected encodings, steganography hits). Reply with one short plain-text paragraph (no markdown, no lists, at most 80 words) assessing what the artifact most likely contains and what an investigator should do next. Be conservative; do not invent findings that are not in the summary.`
}

// GetUserPrompt wraps the rule-based synthesis summary.
func GetUserPrompt(summary string) string {
	return fmt.Sprintf("Heuristic findings for the artifact under analysis: %s", summary)
}
