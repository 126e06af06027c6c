package pipeline

import (
	"fmt"
	"strings"
)

// TruncationMarker is appended to documents cut to the prompt budget
const TruncationMarker = "... [truncated]"

const promptTemplate = `### INSTRUCTIONS ###
1. %s
2. Return ONLY a valid JSON object.
3. Do not include any other text or explanation.
4. Do not use markdown; output the bare JSON.
5. The structure must be exactly:
{
  "perfil": "Short summary (max. 2 lines)",
  "skills": ["Skill1", "Skill2", ...],
  "experiencia": "Concise description",
  "seniority": "Junior | Semi-Senior | Senior",
  "area_profesional": "Suggested professional area",
  "match": %s
}

### CV ###
%s
`

// BuildPrompt renders the analysis prompt. text must already be truncated.
func BuildPrompt(text, role string) string {
	role = strings.TrimSpace(role)
	if role == "" {
		return fmt.Sprintf(promptTemplate,
			"Analyze the CV to detect the candidate's professional area. There is no specific target role.",
			`"100"`,
			text)
	}
	return fmt.Sprintf(promptTemplate,
		fmt.Sprintf("Analyze the CV for the specific role: %q and score how well the candidate fits it.", role),
		`"Percentage (0-100)"`,
		text)
}

// TruncateText cuts text to maxChars runes and appends TruncationMarker when
// anything was removed. maxChars <= 0 disables truncation.
func TruncateText(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	cut, ok := cutRunes(text, maxChars)
	if !ok {
		return text
	}
	return cut + TruncationMarker
}

// truncateRaw keeps the first maxChars runes of a reply for diagnostics
func truncateRaw(raw string, maxChars int) string {
	if maxChars <= 0 {
		return raw
	}
	cut, ok := cutRunes(raw, maxChars)
	if !ok {
		return raw
	}
	return cut + "..."
}

// cutRunes returns the first n runes of s and whether anything was cut
func cutRunes(s string, n int) (string, bool) {
	if len(s) <= n {
		return s, false
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i], true
		}
		count++
	}
	return s, false
}
