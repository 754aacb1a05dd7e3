package clips

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/renata/social-console-back/internal/domain"
	"github.com/renata/social-console-back/internal/remote"
)

// Sleeper waits for the backoff delay; injected so tests run without timers.
type Sleeper func(ctx context.Context, delay time.Duration) error

func defaultSleeper(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type PollerConfig struct {
	BaseDelay    time.Duration
	GrowthFactor float64
	MaxDelay     time.Duration
	MaxAttempts  int
	Sleep        Sleeper
	Logger       *log.Logger
}

// Poller drives one clip job from submission to a terminal state. Submission
// happens exactly once; only the status check retries. Polls are strictly
// sequential: the next one starts only after the previous resolves plus the
// backoff delay.
type Poller struct {
	service      Service
	baseDelay    time.Duration
	growthFactor float64
	maxDelay     time.Duration
	maxAttempts  int
	sleep        Sleeper
	logger       *log.Logger
}

func NewPoller(service Service, config PollerConfig) *Poller {
	if config.BaseDelay <= 0 {
		config.BaseDelay = 3 * time.Second
	}
	if config.GrowthFactor <= 1 {
		config.GrowthFactor = 1.5
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 15 * time.Second
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 100
	}
	if config.Sleep == nil {
		config.Sleep = defaultSleeper
	}
	return &Poller{
		service:      service,
		baseDelay:    config.BaseDelay,
		growthFactor: config.GrowthFactor,
		maxDelay:     config.MaxDelay,
		maxAttempts:  config.MaxAttempts,
		sleep:        config.Sleep,
		logger:       config.Logger,
	}
}

// Delay returns the backoff before status check attempt+1:
// min(baseDelay * growthFactor^(attempt-1), maxDelay).
func (p *Poller) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := time.Duration(float64(p.baseDelay) * math.Pow(p.growthFactor, float64(attempt-1)))
	if delay > p.maxDelay {
		delay = p.maxDelay
	}
	return delay
}

// SubmitAndAwait submits spec and polls until the job is terminal. Each state
// transition is reported through observe (nil allowed). The returned error is
// nil only for succeeded jobs; failed and timed-out jobs carry their typed
// error alongside the final job snapshot.
func (p *Poller) SubmitAndAwait(
	ctx context.Context,
	spec domain.ClipJobSpec,
	observe func(domain.ClipJob),
) (domain.ClipJob, error) {
	notify := observe
	if notify == nil {
		notify = func(domain.ClipJob) {}
	}

	job := domain.ClipJob{
		SubmittedAt: time.Now().UTC(),
		Status:      domain.ClipJobSubmitted,
		UpdatedAt:   time.Now().UTC(),
	}
	notify(job)

	remoteJobID, err := p.service.Submit(ctx, spec)
	if err != nil {
		// Submission failure terminates without a single poll.
		job.Status = domain.ClipJobFailed
		job.ErrorMessage = err.Error()
		job.UpdatedAt = time.Now().UTC()
		notify(job)
		return job, &JobFailedError{JobID: job.RemoteJobID, Message: err.Error()}
	}

	job.RemoteJobID = remoteJobID
	job.Status = domain.ClipJobPolling
	job.UpdatedAt = time.Now().UTC()
	notify(job)

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		job.Attempt = attempt
		job.UpdatedAt = time.Now().UTC()
		notify(job)

		report, statusErr := p.service.Status(ctx, remoteJobID)
		switch {
		case statusErr == nil && report.Failed:
			job.Status = domain.ClipJobFailed
			job.ErrorMessage = report.Message
			job.UpdatedAt = time.Now().UTC()
			notify(job)
			return job, &JobFailedError{JobID: remoteJobID, Message: report.Message}

		case statusErr == nil && report.Ready:
			job.Status = domain.ClipJobSucceeded
			job.Results = ParseClips(report.Results)
			job.UpdatedAt = time.Now().UTC()
			notify(job)
			return job, nil

		case statusErr != nil && !remote.IsTransient(statusErr):
			job.Status = domain.ClipJobFailed
			job.ErrorMessage = statusErr.Error()
			job.UpdatedAt = time.Now().UTC()
			notify(job)
			return job, &JobFailedError{JobID: remoteJobID, Message: statusErr.Error()}

		case statusErr != nil:
			// Transient: same treatment as "not ready yet".
			p.logf("clip job %s poll attempt %d transient error: %v", remoteJobID, attempt, statusErr)
		}

		if attempt == p.maxAttempts {
			break
		}
		if sleepErr := p.sleep(ctx, p.Delay(attempt)); sleepErr != nil {
			job.Status = domain.ClipJobFailed
			job.ErrorMessage = sleepErr.Error()
			job.UpdatedAt = time.Now().UTC()
			notify(job)
			return job, fmt.Errorf("await clip job %s: %w", remoteJobID, sleepErr)
		}
	}

	job.Status = domain.ClipJobTimedOut
	timeout := &JobTimedOutError{JobID: remoteJobID, Attempts: p.maxAttempts}
	job.ErrorMessage = timeout.Error()
	job.UpdatedAt = time.Now().UTC()
	notify(job)
	return job, timeout
}

func (p *Poller) logf(format string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Printf(format, args...)
}
