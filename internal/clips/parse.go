package clips

import (
	"strings"

	"github.com/renata/social-console-back/internal/domain"
)

// ParseClips converts raw clip payloads into typed results. Absent or blank
// optional fields become explicit nulls, never empty strings, so consumers
// can rely on key presence to mean "the service provided this".
func ParseClips(raw []RawClip) []domain.ClipResult {
	results := make([]domain.ClipResult, 0, len(raw))
	for _, clip := range raw {
		results = append(results, parseClip(clip))
	}
	return results
}

func parseClip(raw RawClip) domain.ClipResult {
	result := domain.ClipResult{
		ID:        strings.TrimSpace(raw.ID),
		SourceURL: strings.TrimSpace(raw.SourceURL),
	}

	if raw.DurationMs != nil && *raw.DurationMs > 0 {
		result.DurationMs = *raw.DurationMs
	}
	if raw.ViralScore != nil {
		score := *raw.ViralScore
		result.ViralScore = &score
	}
	if len(raw.Topics) > 0 {
		topics := make([]string, 0, len(raw.Topics))
		for _, topic := range raw.Topics {
			if trimmed := strings.TrimSpace(topic); trimmed != "" {
				topics = append(topics, trimmed)
			}
		}
		if len(topics) > 0 {
			result.Topics = topics
		}
	}
	result.Transcript = optionalText(raw.Transcript)
	result.Title = optionalText(raw.Title)
	result.Rationale = optionalText(raw.Rationale)

	return result
}

func optionalText(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
