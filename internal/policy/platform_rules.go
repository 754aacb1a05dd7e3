package policy

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/renata/social-console-back/internal/domain"
)

var ErrContentPolicyViolation = errors.New("content policy violation")

type Violation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Evaluation struct {
	Allowed    bool        `json:"allowed"`
	Violations []Violation `json:"violations,omitempty"`
}

type PolicyViolationError struct {
	Platform   domain.Platform
	Violations []Violation
}

func (e *PolicyViolationError) Error() string {
	if len(e.Violations) == 0 {
		return ErrContentPolicyViolation.Error()
	}
	return "content policy violation on " + string(e.Platform) + ": " + e.Violations[0].Message
}

func (e *PolicyViolationError) Unwrap() error {
	return ErrContentPolicyViolation
}

// PlatformRules are the per-network limits applied to generated copy before
// it is stored or dispatched.
type PlatformRules struct {
	MaxChars    int
	MaxHashtags int
}

var rulesByPlatform = map[domain.Platform]PlatformRules{
	domain.PlatformTwitter:   {MaxChars: 280, MaxHashtags: 5},
	domain.PlatformFacebook:  {MaxChars: 8000, MaxHashtags: 10},
	domain.PlatformInstagram: {MaxChars: 2200, MaxHashtags: 30},
	domain.PlatformLinkedIn:  {MaxChars: 3000, MaxHashtags: 10},
	domain.PlatformTikTok:    {MaxChars: 2200, MaxHashtags: 10},
	domain.PlatformYouTube:   {MaxChars: 5000, MaxHashtags: 15},
}

var defaultRules = PlatformRules{MaxChars: 2000, MaxHashtags: 10}

func RulesFor(platform domain.Platform) PlatformRules {
	if rules, ok := rulesByPlatform[platform]; ok {
		return rules
	}
	return defaultRules
}

// EnforcePlatformRules validates text against the platform limits.
func EnforcePlatformRules(platform domain.Platform, text string) error {
	evaluation := EvaluatePlatformRules(platform, text)
	if evaluation.Allowed {
		return nil
	}
	return &PolicyViolationError{Platform: platform, Violations: evaluation.Violations}
}

func EvaluatePlatformRules(platform domain.Platform, text string) Evaluation {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Evaluation{
			Allowed: false,
			Violations: []Violation{{
				Code:    "empty_content",
				Message: "generated content is empty",
			}},
		}
	}

	rules := RulesFor(platform)
	violations := make([]Violation, 0, 2)

	if utf8.RuneCountInString(trimmed) > rules.MaxChars {
		violations = append(violations, Violation{
			Code:    "content_too_long",
			Message: "content exceeds the platform character limit",
		})
	}
	if countHashtags(trimmed) > rules.MaxHashtags {
		violations = append(violations, Violation{
			Code:    "too_many_hashtags",
			Message: "content exceeds the platform hashtag limit",
		})
	}

	if len(violations) == 0 {
		return Evaluation{Allowed: true}
	}
	return Evaluation{Allowed: false, Violations: violations}
}

// FitToPlatform truncates text at a rune boundary so it satisfies the
// platform character limit, preferring to cut at the last full word.
func FitToPlatform(platform domain.Platform, text string) string {
	trimmed := strings.TrimSpace(text)
	rules := RulesFor(platform)
	if utf8.RuneCountInString(trimmed) <= rules.MaxChars {
		return trimmed
	}

	runes := []rune(trimmed)
	cut := string(runes[:rules.MaxChars])
	if lastSpace := strings.LastIndexAny(cut, " \n\t"); lastSpace > rules.MaxChars/2 {
		cut = cut[:lastSpace]
	}
	return strings.TrimSpace(cut)
}

func countHashtags(text string) int {
	count := 0
	for _, field := range strings.Fields(text) {
		if strings.HasPrefix(field, "#") && len(field) > 1 {
			count++
		}
	}
	return count
}
