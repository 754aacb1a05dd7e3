package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/renata/social-console-back/internal/domain"
	"github.com/renata/social-console-back/internal/remote"
)

// BrandDirectory answers which platforms a brand has connected.
type BrandDirectory interface {
	Connections(ctx context.Context) (map[string][]domain.Platform, error)
}

type HTTPBrandDirectoryConfig struct {
	Client   *remote.Client
	CacheTTL time.Duration
}

// HTTPBrandDirectory proxies the brand-connections collaborator with a
// short-lived cache so a publish-plus-schedule burst does not hammer it.
type HTTPBrandDirectory struct {
	client   *remote.Client
	cacheTTL time.Duration

	mu        sync.Mutex
	cached    map[string][]domain.Platform
	fetchedAt time.Time
}

func NewHTTPBrandDirectory(config HTTPBrandDirectoryConfig) *HTTPBrandDirectory {
	if config.CacheTTL <= 0 {
		config.CacheTTL = 60 * time.Second
	}
	return &HTTPBrandDirectory{client: config.Client, cacheTTL: config.CacheTTL}
}

func (d *HTTPBrandDirectory) Connections(ctx context.Context) (map[string][]domain.Platform, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cached != nil && time.Since(d.fetchedAt) < d.cacheTTL {
		return cloneConnections(d.cached), nil
	}

	var response struct {
		Brands map[string][]string `json:"brands"`
	}
	if err := d.client.GetJSON(ctx, "/v1/brands/connections", &response); err != nil {
		if d.cached != nil {
			// A stale map beats failing the dispatch precondition check.
			return cloneConnections(d.cached), nil
		}
		return nil, fmt.Errorf("load brand connections: %w", err)
	}

	connections := make(map[string][]domain.Platform, len(response.Brands))
	for brand, platforms := range response.Brands {
		name := strings.TrimSpace(brand)
		if name == "" {
			continue
		}
		for _, raw := range platforms {
			if platform, ok := domain.ParsePlatform(raw); ok {
				connections[name] = append(connections[name], platform)
			}
		}
	}

	d.cached = connections
	d.fetchedAt = time.Now().UTC()
	return cloneConnections(connections), nil
}

// BrandHasPlatform reports whether brandName has platform connected.
func BrandHasPlatform(connections map[string][]domain.Platform, brandName string, platform domain.Platform) bool {
	for _, connected := range connections[strings.TrimSpace(brandName)] {
		if connected == platform {
			return true
		}
	}
	return false
}

func cloneConnections(source map[string][]domain.Platform) map[string][]domain.Platform {
	clone := make(map[string][]domain.Platform, len(source))
	for brand, platforms := range source {
		clone[brand] = append([]domain.Platform(nil), platforms...)
	}
	return clone
}
