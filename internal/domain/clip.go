package domain

import "time"

type ClipJobStatus string

const (
	ClipJobSubmitted ClipJobStatus = "submitted"
	ClipJobPolling   ClipJobStatus = "polling"
	ClipJobSucceeded ClipJobStatus = "succeeded"
	ClipJobFailed    ClipJobStatus = "failed"
	ClipJobTimedOut  ClipJobStatus = "timed_out"
)

// Terminal reports whether no further transition can occur for the job.
func (s ClipJobStatus) Terminal() bool {
	switch s {
	case ClipJobSucceeded, ClipJobFailed, ClipJobTimedOut:
		return true
	default:
		return false
	}
}

// ClipJob is one submitted long-running clip extraction. It is owned by the
// poller until terminal; transitions are monotonic.
type ClipJob struct {
	ID           string
	RemoteJobID  string
	SubmittedAt  time.Time
	Attempt      int
	Status       ClipJobStatus
	ErrorMessage string
	Results      []ClipResult
	UpdatedAt    time.Time
}

// ClipJobSpec carries the submission parameters for the clip service.
type ClipJobSpec struct {
	VideoSource      string   `json:"video_source"`
	Language         string   `json:"language"`
	LengthPreference string   `json:"length_preference"`
	Subtitles        bool     `json:"subtitles"`
	Headlines        bool     `json:"headlines"`
	MaxClips         int      `json:"max_clips"`
	Keywords         []string `json:"keywords,omitempty"`
	ProjectName      string   `json:"project_name"`
}

// ClipResult is the typed output parsed from one raw clip. Optional fields
// are pointers so absent upstream values serialize as explicit null, never
// as empty strings; consumers can rely on key presence.
type ClipResult struct {
	ID         string   `json:"id"`
	SourceURL  string   `json:"source_url"`
	DurationMs int64    `json:"duration_ms"`
	ViralScore *float64 `json:"viral_score"`
	Topics     []string `json:"topics"`
	Transcript *string  `json:"transcript"`
	Title      *string  `json:"title"`
	Rationale  *string  `json:"rationale"`
}
