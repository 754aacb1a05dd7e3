package service

import (
	"strings"
	"unicode/utf8"
)

const defaultSourceBudget = 4000

// PrepareSource cleans a user draft before fan-out: whitespace runs are
// collapsed, repeated lines are dropped and the result is capped at the
// character budget so one oversized draft cannot blow up every generation
// request.
func PrepareSource(text string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = defaultSourceBudget
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	cleaned := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))

	for _, line := range lines {
		normalized := strings.Join(strings.Fields(line), " ")
		if normalized == "" {
			// Preserve at most one blank line between paragraphs.
			if len(cleaned) > 0 && cleaned[len(cleaned)-1] != "" {
				cleaned = append(cleaned, "")
			}
			continue
		}
		key := strings.ToLower(normalized)
		if _, duplicate := seen[key]; duplicate {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, normalized)
	}

	prepared := strings.TrimSpace(strings.Join(cleaned, "\n"))
	if utf8.RuneCountInString(prepared) <= maxChars {
		return prepared
	}

	runes := []rune(prepared)
	return strings.TrimSpace(string(runes[:maxChars]))
}
