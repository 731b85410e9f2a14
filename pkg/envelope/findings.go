package envelope

import (
	"encoding/json"
	"strings"
)

// findingsDoc matches the preferred model output shape: {"findings": [...]}.
type findingsDoc struct {
	Findings []Finding `json:"findings"`
}

// ParseFindings extracts structured findings from model output. It accepts,
// in order of preference: a JSON object with a "findings" key, a bare JSON
// array of findings, or a bare JSON array of strings. Non-JSON text is
// wrapped as a single note finding so content is never silently dropped.
// Empty or whitespace-only output parses to zero findings.
func ParseFindings(content string) []Finding {
	text := stripCodeFence(strings.TrimSpace(content))
	if text == "" {
		return nil
	}

	var doc findingsDoc
	if err := json.Unmarshal([]byte(text), &doc); err == nil && doc.Findings != nil {
		return doc.Findings
	}

	var findings []Finding
	if err := json.Unmarshal([]byte(text), &findings); err == nil {
		// Reject arrays of non-objects that decoded to empty summaries.
		valid := true
		for i := range findings {
			if findings[i].Summary == "" {
				valid = false
				break
			}
		}
		if valid {
			return findings
		}
	}

	var lines []string
	if err := json.Unmarshal([]byte(text), &lines); err == nil {
		findings = make([]Finding, 0, len(lines))
		for _, line := range lines {
			if strings.TrimSpace(line) == "" {
				continue
			}
			findings = append(findings, Finding{Summary: line})
		}
		return findings
	}

	return []Finding{{Category: "note", Summary: text}}
}

// stripCodeFence removes a surrounding markdown code fence, which models
// frequently wrap JSON output in despite instructions.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	trimmed := strings.TrimPrefix(text, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
