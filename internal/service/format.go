package service

import (
	"regexp"
	"strings"
)

var (
	boldRunPattern    = regexp.MustCompile(`\*{1,2}([^*\n]+?)\*{1,2}`)
	hashRunPattern    = regexp.MustCompile(`#{2,}`)
	blankRunPattern   = regexp.MustCompile(`\n{3,}`)
	spaceRunPattern   = regexp.MustCompile(`[ \t]{2,}`)
	trailingWSPattern = regexp.MustCompile(`[ \t]+\n`)
)

// FormatPlatformContent applies the deterministic presentation transform to
// generated copy: double-asterisk bold markers, single-hash hashtag markers
// and normalized paragraph breaks. The transform is pure and idempotent;
// formatting already-formatted text never double-wraps it.
func FormatPlatformContent(text string) string {
	formatted := strings.ReplaceAll(text, "\r\n", "\n")
	formatted = trailingWSPattern.ReplaceAllString(formatted, "\n")
	formatted = spaceRunPattern.ReplaceAllString(formatted, " ")

	// *emphasis* and **emphasis** both normalize to the double marker, so a
	// second pass leaves the text unchanged.
	formatted = boldRunPattern.ReplaceAllString(formatted, "**$1**")
	formatted = hashRunPattern.ReplaceAllString(formatted, "#")
	formatted = blankRunPattern.ReplaceAllString(formatted, "\n\n")

	return strings.TrimSpace(formatted)
}
