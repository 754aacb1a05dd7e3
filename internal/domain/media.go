package domain

import "strings"

type MediaRefKind string

const (
	MediaRefDurable MediaRefKind = "durable"
	MediaRefLocal   MediaRefKind = "local"
	MediaRefInline  MediaRefKind = "inline"
)

type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
	MediaKindPDF   MediaKind = "pdf"
)

// MediaReference is a tagged union over the three ways the console can hold
// a media asset. Only durable references may appear in a dispatch payload;
// normalization produces a new durable reference and never mutates in place.
type MediaReference struct {
	Kind MediaRefKind `json:"kind"`

	// URL is set only for durable references.
	URL string `json:"url,omitempty"`

	// Data holds raw bytes for local references.
	Data     []byte `json:"data,omitempty"`
	MimeType string `json:"mime_type,omitempty"`

	// DataURI holds the embedded payload for inline references
	// ("data:image/png;base64,....").
	DataURI string `json:"data_uri,omitempty"`
}

// MediaKindFor maps a MIME type to the conversion endpoint family.
func MediaKindFor(mimeType string) MediaKind {
	normalized := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(normalized, "video/"):
		return MediaKindVideo
	case normalized == "application/pdf":
		return MediaKindPDF
	default:
		return MediaKindImage
	}
}
