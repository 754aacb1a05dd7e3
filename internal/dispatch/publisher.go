package dispatch

import (
	"context"
	"fmt"

	"github.com/renata/social-console-back/internal/domain"
	"github.com/renata/social-console-back/internal/remote"
)

// Error is terminal for one dispatch attempt and always names the target
// platform so the user can correct a missing connection.
type Error struct {
	Platform domain.Platform
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("dispatch to %s failed: %v", e.Platform, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Publisher performs the single dispatch call for a finalized payload.
type Publisher interface {
	Publish(ctx context.Context, request domain.DispatchRequest) error
}

type HTTPPublisher struct {
	client *remote.Client
}

func NewHTTPPublisher(client *remote.Client) *HTTPPublisher {
	return &HTTPPublisher{client: client}
}

func (p *HTTPPublisher) Publish(ctx context.Context, request domain.DispatchRequest) error {
	payload := map[string]any{
		"platform":   string(request.Platform),
		"brand_name": request.BrandName,
		"text":       request.Text,
	}
	// The publish API distinguishes "no media field" from "media field with
	// zero entries"; an empty list must omit the field entirely.
	if len(request.MediaURLs) > 0 {
		payload["media_urls"] = request.MediaURLs
	}

	if err := p.client.PostJSON(ctx, "/v1/publish", payload, nil); err != nil {
		return &Error{Platform: request.Platform, Err: err}
	}
	return nil
}
