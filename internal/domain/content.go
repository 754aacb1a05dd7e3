package domain

import "strings"

type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
)

var knownPlatforms = map[Platform]struct{}{
	PlatformTwitter:   {},
	PlatformFacebook:  {},
	PlatformInstagram: {},
	PlatformLinkedIn:  {},
	PlatformTikTok:    {},
	PlatformYouTube:   {},
}

func ParsePlatform(value string) (Platform, bool) {
	platform := Platform(strings.ToLower(strings.TrimSpace(value)))
	_, ok := knownPlatforms[platform]
	return platform, ok
}

// PlatformContent maps a platform to its generated text body. Join order is
// by platform key; completion order of the producing requests is irrelevant.
type PlatformContent map[Platform]string

// SourceVariant selects which generation endpoint family produced the draft.
type SourceVariant string

const (
	VariantText  SourceVariant = "text"
	VariantURL   SourceVariant = "url"
	VariantImage SourceVariant = "image"
	VariantStyle SourceVariant = "style"
)

type GenerationTaskStatus string

const (
	GenerationPending GenerationTaskStatus = "pending"
	GenerationDone    GenerationTaskStatus = "done"
	GenerationFailed  GenerationTaskStatus = "failed"
)

// GenerationTask tracks one outstanding per-platform generation request.
// Tasks are independent of their siblings and terminal once done or failed.
type GenerationTask struct {
	Platform Platform
	Status   GenerationTaskStatus
	Result   string
	Err      error
}
