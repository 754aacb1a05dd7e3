package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/renata/social-console-back/internal/ai"
	"github.com/renata/social-console-back/internal/cache"
	"github.com/renata/social-console-back/internal/domain"
	"github.com/renata/social-console-back/internal/policy"
)

var ErrNoPlatforms = errors.New("at least one platform is required")

type GenerationDependencies struct {
	Generator    ai.TextGenerator
	Cache        *cache.ResultCache
	SourceBudget int
	Logger       *log.Logger
}

// GenerationService fans one draft out to per-platform generation requests
// and joins the outcomes by platform key.
type GenerationService struct {
	generator    ai.TextGenerator
	cache        *cache.ResultCache
	sourceBudget int
	logger       *log.Logger
}

func NewGenerationService(deps GenerationDependencies) *GenerationService {
	if deps.Cache == nil {
		deps.Cache = cache.NewResultCache(cache.Config{})
	}
	if deps.SourceBudget <= 0 {
		deps.SourceBudget = defaultSourceBudget
	}
	return &GenerationService{
		generator:    deps.Generator,
		cache:        deps.Cache,
		sourceBudget: deps.SourceBudget,
		logger:       deps.Logger,
	}
}

type GenerationInput struct {
	SourceText string
	Variant    domain.SourceVariant
	SourceURL  string
	ImageURL   string
	StyleUser  string
	Platforms  []domain.Platform
}

// PlatformFailure records one per-platform generation failure. It never
// aborts sibling platforms.
type PlatformFailure struct {
	Platform domain.Platform `json:"platform"`
	Message  string          `json:"message"`
}

type GenerationOutput struct {
	Content  domain.PlatformContent
	Failures []PlatformFailure
}

// Generate issues one request per platform concurrently and waits for every
// task to reach a terminal state; a partial result is a valid outcome, not
// an overall failure.
func (s *GenerationService) Generate(ctx context.Context, input GenerationInput) (GenerationOutput, error) {
	platforms := dedupePlatforms(input.Platforms)
	if len(platforms) == 0 {
		return GenerationOutput{}, ErrNoPlatforms
	}
	if input.Variant == "" {
		input.Variant = domain.VariantText
	}

	source := PrepareSource(input.SourceText, s.sourceBudget)
	if source == "" && input.Variant == domain.VariantText {
		return GenerationOutput{}, errors.New("source text is required")
	}

	tasks := make([]domain.GenerationTask, len(platforms))
	var wg sync.WaitGroup
	for index, platform := range platforms {
		tasks[index] = domain.GenerationTask{Platform: platform, Status: domain.GenerationPending}

		wg.Add(1)
		go func(slot int, platform domain.Platform) {
			defer wg.Done()
			text, err := s.generateForPlatform(ctx, platform, input, source)
			if err != nil {
				tasks[slot].Status = domain.GenerationFailed
				tasks[slot].Err = err
				return
			}
			tasks[slot].Status = domain.GenerationDone
			tasks[slot].Result = text
		}(index, platform)
	}
	wg.Wait()

	output := GenerationOutput{Content: make(domain.PlatformContent, len(platforms))}
	for _, task := range tasks {
		if task.Status == domain.GenerationFailed {
			s.logf("generation failed platform=%s err=%v", task.Platform, task.Err)
			output.Failures = append(output.Failures, PlatformFailure{
				Platform: task.Platform,
				Message:  task.Err.Error(),
			})
			continue
		}
		output.Content[task.Platform] = task.Result
	}
	return output, nil
}

func (s *GenerationService) generateForPlatform(
	ctx context.Context,
	platform domain.Platform,
	input GenerationInput,
	source string,
) (string, error) {
	signature := s.cache.BuildSignature(
		string(platform),
		string(input.Variant),
		source,
		input.SourceURL,
		input.ImageURL,
		input.StyleUser,
	)
	if cached, ok := s.cache.Get(signature); ok {
		return cached.Text, nil
	}

	if s.generator == nil || !s.generator.Available() {
		return "", ai.ErrGeneratorUnavailable
	}

	result, err := s.generator.Generate(ctx, ai.GenerateRequest{
		Platform:   platform,
		Variant:    input.Variant,
		SourceText: source,
		SourceURL:  input.SourceURL,
		ImageURL:   input.ImageURL,
		StyleUser:  input.StyleUser,
	})
	if err != nil {
		return "", fmt.Errorf("generate for %s: %w", platform, err)
	}

	formatted := policy.FitToPlatform(platform, FormatPlatformContent(result.Text))
	if err := policy.EnforcePlatformRules(platform, formatted); err != nil {
		return "", err
	}

	s.cache.Set(signature, formatted)
	return formatted, nil
}

func dedupePlatforms(platforms []domain.Platform) []domain.Platform {
	seen := make(map[domain.Platform]struct{}, len(platforms))
	result := make([]domain.Platform, 0, len(platforms))
	for _, raw := range platforms {
		platform, ok := domain.ParsePlatform(string(raw))
		if !ok {
			continue
		}
		if _, duplicate := seen[platform]; duplicate {
			continue
		}
		seen[platform] = struct{}{}
		result = append(result, platform)
	}
	return result
}

func (s *GenerationService) logf(format string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Printf(format, args...)
}
