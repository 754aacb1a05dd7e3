package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/renata/social-console-back/internal/clips"
	"github.com/renata/social-console-back/internal/domain"
)

// ClipsService owns the in-flight clip jobs of this process. Jobs are not
// persisted: abandoning the console drops observation, the backend keeps
// computing, and a fresh submission starts a new job.
type ClipsService struct {
	poller *clips.Poller
	base   context.Context
	logger *log.Logger

	mu   sync.RWMutex
	jobs map[string]domain.ClipJob
}

func NewClipsService(base context.Context, poller *clips.Poller, logger *log.Logger) *ClipsService {
	if base == nil {
		base = context.Background()
	}
	return &ClipsService{
		poller: poller,
		base:   base,
		logger: logger,
		jobs:   make(map[string]domain.ClipJob),
	}
}

// SubmitJob starts the submit-and-poll pipeline for spec and returns the
// local job id immediately. The poller runs detached from the caller's
// request context: closing the browser tab must not cancel polling.
func (s *ClipsService) SubmitJob(spec domain.ClipJobSpec) (string, error) {
	if s.poller == nil {
		return "", errors.New("clip service is not configured")
	}

	jobID := uuid.NewString()
	s.store(jobID, domain.ClipJob{
		ID:          jobID,
		Status:      domain.ClipJobSubmitted,
		SubmittedAt: time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	})

	go func() {
		_, err := s.poller.SubmitAndAwait(s.base, spec, func(snapshot domain.ClipJob) {
			snapshot.ID = jobID
			s.store(jobID, snapshot)
		})
		if err != nil && s.logger != nil {
			s.logger.Printf("clip job finished with error job_id=%s err=%v", jobID, err)
		}
	}()

	return jobID, nil
}

func (s *ClipsService) GetJob(jobID string) (domain.ClipJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	return job, ok
}

func (s *ClipsService) store(jobID string, job domain.ClipJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[jobID] = job
}
