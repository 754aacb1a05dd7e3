package media

import (
	"context"
	"fmt"

	"github.com/renata/social-console-back/internal/domain"
	"github.com/renata/social-console-back/internal/remote"
)

// HTTPConverter talks to the media conversion service, one endpoint per
// media kind.
type HTTPConverter struct {
	client *remote.Client
}

func NewHTTPConverter(client *remote.Client) *HTTPConverter {
	return &HTTPConverter{client: client}
}

func (c *HTTPConverter) Convert(ctx context.Context, kind domain.MediaKind, base64Payload string) (string, error) {
	path, err := conversionPath(kind)
	if err != nil {
		return "", err
	}

	var response struct {
		DurableURL string `json:"durable_url"`
	}
	if err := c.client.PostJSON(ctx, path, map[string]string{
		"base64_payload": base64Payload,
	}, &response); err != nil {
		return "", err
	}
	return response.DurableURL, nil
}

func conversionPath(kind domain.MediaKind) (string, error) {
	switch kind {
	case domain.MediaKindImage:
		return "/v1/convert/image", nil
	case domain.MediaKindVideo:
		return "/v1/convert/video", nil
	case domain.MediaKindPDF:
		return "/v1/convert/pdf", nil
	default:
		return "", fmt.Errorf("unsupported media kind: %q", kind)
	}
}
