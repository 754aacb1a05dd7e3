package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/renata/social-console-back/internal/domain"
)

var ErrEmptyReference = errors.New("media reference has no payload")

// ConversionError wraps a failed conversion for one asset. It is per-asset
// and non-fatal to sibling assets.
type ConversionError struct {
	Kind domain.MediaKind
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %s media: %v", e.Kind, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Converter uploads a base64 payload and returns a durable URL. One endpoint
// exists per media kind.
type Converter interface {
	Convert(ctx context.Context, kind domain.MediaKind, base64Payload string) (string, error)
}

// Normalizer resolves ephemeral media references into durable URLs right
// before dispatch.
type Normalizer struct {
	converter Converter
}

func NewNormalizer(converter Converter) *Normalizer {
	return &Normalizer{converter: converter}
}

// Normalize returns a durable URL for ref. Durable references pass through
// without any network call; local and inline references are converted. The
// input reference is never mutated.
func (n *Normalizer) Normalize(ctx context.Context, ref domain.MediaReference) (string, error) {
	switch ref.Kind {
	case domain.MediaRefDurable:
		url := strings.TrimSpace(ref.URL)
		if url == "" {
			return "", ErrEmptyReference
		}
		return url, nil

	case domain.MediaRefLocal:
		if len(ref.Data) == 0 {
			return "", ErrEmptyReference
		}
		kind := domain.MediaKindFor(ref.MimeType)
		payload := base64.StdEncoding.EncodeToString(ref.Data)
		return n.convert(ctx, kind, payload)

	case domain.MediaRefInline:
		kind, payload, err := decodeDataURI(ref.DataURI)
		if err != nil {
			return "", err
		}
		return n.convert(ctx, kind, payload)

	default:
		return "", fmt.Errorf("unknown media reference kind: %q", ref.Kind)
	}
}

// Outcome is the per-item result of normalizing a collection.
type Outcome struct {
	Index int
	URL   string
	Err   error
}

// NormalizeAll runs every conversion and collects per-item outcomes instead
// of short-circuiting: one failed asset must not block its siblings.
func (n *Normalizer) NormalizeAll(ctx context.Context, refs []domain.MediaReference) []Outcome {
	outcomes := make([]Outcome, 0, len(refs))
	for index, ref := range refs {
		url, err := n.Normalize(ctx, ref)
		outcomes = append(outcomes, Outcome{Index: index, URL: url, Err: err})
	}
	return outcomes
}

func (n *Normalizer) convert(ctx context.Context, kind domain.MediaKind, payload string) (string, error) {
	if n.converter == nil {
		return "", &ConversionError{Kind: kind, Err: errors.New("no converter configured")}
	}
	url, err := n.converter.Convert(ctx, kind, payload)
	if err != nil {
		return "", &ConversionError{Kind: kind, Err: err}
	}
	if strings.TrimSpace(url) == "" {
		return "", &ConversionError{Kind: kind, Err: errors.New("conversion returned empty url")}
	}
	return url, nil
}

// decodeDataURI strips the "data:<mime>;base64," prefix and returns the raw
// base64 payload with its inferred media kind.
func decodeDataURI(dataURI string) (domain.MediaKind, string, error) {
	trimmed := strings.TrimSpace(dataURI)
	if trimmed == "" {
		return "", "", ErrEmptyReference
	}

	if !strings.HasPrefix(trimmed, "data:") {
		// Already a bare base64 payload; assume image.
		return domain.MediaKindImage, trimmed, nil
	}

	header, payload, ok := strings.Cut(trimmed, ",")
	if !ok || payload == "" {
		return "", "", fmt.Errorf("malformed data uri")
	}

	mimeType := strings.TrimPrefix(header, "data:")
	if index := strings.Index(mimeType, ";"); index >= 0 {
		mimeType = mimeType[:index]
	}
	return domain.MediaKindFor(mimeType), payload, nil
}
