package ai

import (
	"fmt"

	"github.com/renata/social-console-back/internal/domain"
)

// EndpointProfile describes the generation endpoint serving one platform and
// source variant, plus the retry budget the client applies to it.
type EndpointProfile struct {
	Path       string
	MaxRetries int
}

type EndpointRouterConfig struct {
	// PathPrefix prepends every routed path, e.g. "/api" for deployments
	// that mount the generation service under a sub-path.
	PathPrefix string
	MaxRetries int
}

// EndpointRouter selects the remote generation endpoint for a platform and
// variant. Each platform has its own endpoint, with sibling variants for
// "from URL", "from image" and "from another user's style".
type EndpointRouter struct {
	config EndpointRouterConfig
}

func NewEndpointRouter(config EndpointRouterConfig) *EndpointRouter {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 2
	}
	return &EndpointRouter{config: config}
}

func (r *EndpointRouter) Select(platform domain.Platform, variant domain.SourceVariant) EndpointProfile {
	segment := "generate"
	switch variant {
	case domain.VariantURL:
		segment = "generate-from-url"
	case domain.VariantImage:
		segment = "generate-from-image"
	case domain.VariantStyle:
		segment = "generate-from-style"
	}

	return EndpointProfile{
		Path:       fmt.Sprintf("%s/v1/%s/%s", r.config.PathPrefix, segment, platform),
		MaxRetries: r.config.MaxRetries,
	}
}
