package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/renata/social-console-back/internal/domain"
	"github.com/renata/social-console-back/internal/remote"
)

var ErrGeneratorUnavailable = errors.New("text generation service unavailable")

type GenerateRequest struct {
	Platform   domain.Platform
	Variant    domain.SourceVariant
	SourceText string

	// SourceURL, ImageURL and StyleUser feed the non-text variants and are
	// ignored by the plain-text endpoint.
	SourceURL string
	ImageURL  string
	StyleUser string
}

type GenerateResult struct {
	Text string
}

// TextGenerator produces platform copy from a source draft.
type TextGenerator interface {
	Generate(ctx context.Context, request GenerateRequest) (GenerateResult, error)
	Available() bool
}

type HTTPGeneratorConfig struct {
	Client *remote.Client
	Router *EndpointRouter
}

// HTTPGenerator calls the per-platform generation endpoints. A transient
// failure is retried within the profile's budget; the caller sees only the
// final outcome.
type HTTPGenerator struct {
	client *remote.Client
	router *EndpointRouter
}

func NewHTTPGenerator(config HTTPGeneratorConfig) *HTTPGenerator {
	router := config.Router
	if router == nil {
		router = NewEndpointRouter(EndpointRouterConfig{})
	}
	return &HTTPGenerator{client: config.Client, router: router}
}

func (g *HTTPGenerator) Available() bool {
	return g.client != nil && g.client.Available()
}

func (g *HTTPGenerator) Generate(ctx context.Context, request GenerateRequest) (GenerateResult, error) {
	if !g.Available() {
		return GenerateResult{}, ErrGeneratorUnavailable
	}
	if _, ok := domain.ParsePlatform(string(request.Platform)); !ok {
		return GenerateResult{}, fmt.Errorf("unknown platform: %q", request.Platform)
	}
	if request.Variant == "" {
		request.Variant = domain.VariantText
	}
	if strings.TrimSpace(request.SourceText) == "" && request.Variant == domain.VariantText {
		return GenerateResult{}, errors.New("source text is required")
	}

	profile := g.router.Select(request.Platform, request.Variant)
	payload := buildPayload(request)

	var lastErr error
	for attempt := 0; attempt <= profile.MaxRetries; attempt++ {
		var response struct {
			GeneratedText string `json:"generated_text"`
		}
		callErr := g.client.PostJSON(ctx, profile.Path, payload, &response)
		if callErr == nil {
			text := strings.TrimSpace(response.GeneratedText)
			if text == "" {
				return GenerateResult{}, fmt.Errorf("%s returned no text", profile.Path)
			}
			return GenerateResult{Text: text}, nil
		}
		lastErr = callErr

		if !remote.IsTransient(callErr) || attempt == profile.MaxRetries {
			break
		}

		backoff := time.Duration(350*(attempt+1)) * time.Millisecond
		select {
		case <-ctx.Done():
			return GenerateResult{}, ctx.Err()
		case <-time.After(backoff):
		}
	}

	if lastErr == nil {
		lastErr = errors.New("unknown generation error")
	}
	return GenerateResult{}, lastErr
}

func buildPayload(request GenerateRequest) map[string]any {
	payload := map[string]any{
		"source_text": request.SourceText,
	}
	switch request.Variant {
	case domain.VariantURL:
		payload["source_url"] = request.SourceURL
	case domain.VariantImage:
		payload["image_url"] = request.ImageURL
	case domain.VariantStyle:
		payload["style_user"] = request.StyleUser
	}
	return payload
}
