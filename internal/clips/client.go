package clips

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/renata/social-console-back/internal/domain"
	"github.com/renata/social-console-back/internal/remote"
)

// RawClip mirrors one clip as the clip service reports it. Optional fields
// stay pointers so "not provided" is distinguishable from "empty".
type RawClip struct {
	ID         string   `json:"id"`
	SourceURL  string   `json:"source_url"`
	DurationMs *int64   `json:"duration_ms"`
	ViralScore *float64 `json:"viral_score"`
	Topics     []string `json:"topics"`
	Transcript *string  `json:"transcript"`
	Title      *string  `json:"title"`
	Rationale  *string  `json:"rationale"`
}

// StatusReport is one poll answer from the clip service.
type StatusReport struct {
	Ready   bool
	Failed  bool
	Message string
	Results []RawClip
}

// Service is the boundary to the clip extraction collaborator.
type Service interface {
	Submit(ctx context.Context, spec domain.ClipJobSpec) (string, error)
	Status(ctx context.Context, remoteJobID string) (StatusReport, error)
}

type HTTPServiceConfig struct {
	Client        *remote.Client
	StatusTimeout time.Duration
}

// HTTPService talks to the clip-job submission and status endpoints. Status
// calls carry a longer timeout than the default because the backend may sit
// on the request while checking job state.
type HTTPService struct {
	client        *remote.Client
	statusTimeout time.Duration
}

func NewHTTPService(config HTTPServiceConfig) *HTTPService {
	if config.StatusTimeout <= 0 {
		config.StatusTimeout = 100 * time.Second
	}
	return &HTTPService{client: config.Client, statusTimeout: config.StatusTimeout}
}

func (s *HTTPService) Submit(ctx context.Context, spec domain.ClipJobSpec) (string, error) {
	if strings.TrimSpace(spec.VideoSource) == "" {
		return "", errors.New("video source is required")
	}
	if spec.MaxClips <= 0 {
		spec.MaxClips = 10
	}

	var response struct {
		JobID string `json:"job_id"`
	}
	if err := s.client.PostJSON(ctx, "/v1/clip-jobs", spec, &response); err != nil {
		return "", fmt.Errorf("submit clip job: %w", err)
	}
	if strings.TrimSpace(response.JobID) == "" {
		return "", errors.New("clip service returned no job id")
	}
	return response.JobID, nil
}

func (s *HTTPService) Status(ctx context.Context, remoteJobID string) (StatusReport, error) {
	var response struct {
		Ready   bool      `json:"ready"`
		Failed  bool      `json:"failed"`
		Error   string    `json:"error"`
		Results []RawClip `json:"results"`
	}
	err := s.client.PostJSONTimeout(ctx, "/v1/clip-jobs/status", map[string]string{
		"job_id": remoteJobID,
	}, &response, s.statusTimeout)
	if err != nil {
		return StatusReport{}, err
	}

	return StatusReport{
		Ready:   response.Ready,
		Failed:  response.Failed,
		Message: strings.TrimSpace(response.Error),
		Results: response.Results,
	}, nil
}
