package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/renata/social-console-back/internal/ai"
	"github.com/renata/social-console-back/internal/cache"
	"github.com/renata/social-console-back/internal/domain"
)

type fakeGenerator struct {
	mu        sync.Mutex
	calls     []domain.Platform
	responses map[domain.Platform]string
	failures  map[domain.Platform]error
	down      bool
}

func (f *fakeGenerator) Generate(_ context.Context, request ai.GenerateRequest) (ai.GenerateResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, request.Platform)
	f.mu.Unlock()

	if err, ok := f.failures[request.Platform]; ok {
		return ai.GenerateResult{}, err
	}
	return ai.GenerateResult{Text: f.responses[request.Platform]}, nil
}

func (f *fakeGenerator) Available() bool {
	return !f.down
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestGeneratePartialFailureKeepsSurvivors(t *testing.T) {
	gen := &fakeGenerator{
		responses: map[domain.Platform]string{
			domain.PlatformLinkedIn: "Resultado pronto para o LinkedIn",
		},
		failures: map[domain.Platform]error{
			domain.PlatformTwitter: errors.New("upstream rejected the request"),
		},
	}
	svc := NewGenerationService(GenerationDependencies{Generator: gen})

	output, err := svc.Generate(context.Background(), GenerationInput{
		SourceText: "novo lancamento chegando",
		Platforms:  []domain.Platform{domain.PlatformTwitter, domain.PlatformLinkedIn},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(output.Content) != 1 {
		t.Fatalf("expected 1 platform in content, got %d", len(output.Content))
	}
	if _, ok := output.Content[domain.PlatformLinkedIn]; !ok {
		t.Fatal("expected linkedin content to survive the twitter failure")
	}
	if _, ok := output.Content[domain.PlatformTwitter]; ok {
		t.Fatal("failed platform must not appear in content")
	}

	if len(output.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(output.Failures))
	}
	if output.Failures[0].Platform != domain.PlatformTwitter {
		t.Fatalf("failure should name twitter, got %s", output.Failures[0].Platform)
	}
}

func TestGenerateRequiresPlatforms(t *testing.T) {
	svc := NewGenerationService(GenerationDependencies{Generator: &fakeGenerator{}})

	_, err := svc.Generate(context.Background(), GenerationInput{SourceText: "texto"})
	if !errors.Is(err, ErrNoPlatforms) {
		t.Fatalf("expected ErrNoPlatforms, got %v", err)
	}
}

func TestGenerateDropsUnknownAndDuplicatePlatforms(t *testing.T) {
	gen := &fakeGenerator{
		responses: map[domain.Platform]string{
			domain.PlatformFacebook: "conteudo",
		},
	}
	svc := NewGenerationService(GenerationDependencies{Generator: gen})

	output, err := svc.Generate(context.Background(), GenerationInput{
		SourceText: "texto base",
		Platforms: []domain.Platform{
			domain.PlatformFacebook,
			domain.Platform("myspace"),
			domain.PlatformFacebook,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.callCount() != 1 {
		t.Fatalf("expected a single upstream call, got %d", gen.callCount())
	}
	if len(output.Content) != 1 {
		t.Fatalf("expected 1 platform in content, got %d", len(output.Content))
	}
}

func TestGenerateServesRepeatFromCache(t *testing.T) {
	gen := &fakeGenerator{
		responses: map[domain.Platform]string{
			domain.PlatformInstagram: "post fresquinho",
		},
	}
	svc := NewGenerationService(GenerationDependencies{
		Generator: gen,
		Cache:     cache.NewResultCache(cache.Config{}),
	})

	input := GenerationInput{
		SourceText: "mesmo rascunho",
		Platforms:  []domain.Platform{domain.PlatformInstagram},
	}
	first, err := svc.Generate(context.Background(), input)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := svc.Generate(context.Background(), input)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if gen.callCount() != 1 {
		t.Fatalf("repeat input should hit the cache, got %d upstream calls", gen.callCount())
	}
	if first.Content[domain.PlatformInstagram] != second.Content[domain.PlatformInstagram] {
		t.Fatal("cached result differs from the original")
	}
}

func TestGenerateReportsUnavailableGenerator(t *testing.T) {
	svc := NewGenerationService(GenerationDependencies{Generator: &fakeGenerator{down: true}})

	output, err := svc.Generate(context.Background(), GenerationInput{
		SourceText: "texto",
		Platforms:  []domain.Platform{domain.PlatformTwitter},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(output.Failures))
	}
	if output.Failures[0].Message != ai.ErrGeneratorUnavailable.Error() {
		t.Fatalf("unexpected failure message: %s", output.Failures[0].Message)
	}
}
