package clips

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/renata/social-console-back/internal/domain"
	"github.com/renata/social-console-back/internal/remote"
)

type scriptedService struct {
	mu          sync.Mutex
	submitErr   error
	submitCalls int
	reports     []func() (StatusReport, error)
	statusCalls int
}

func (s *scriptedService) Submit(context.Context, domain.ClipJobSpec) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitCalls++
	if s.submitErr != nil {
		return "", s.submitErr
	}
	return "remote-42", nil
}

func (s *scriptedService) Status(context.Context, string) (StatusReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	index := s.statusCalls
	s.statusCalls++
	if index >= len(s.reports) {
		return StatusReport{}, nil
	}
	return s.reports[index]()
}

func notReady() (StatusReport, error) {
	return StatusReport{Ready: false}, nil
}

func ready(results []RawClip) func() (StatusReport, error) {
	return func() (StatusReport, error) {
		return StatusReport{Ready: true, Results: results}, nil
	}
}

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, delay time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, delay)
	return nil
}

func TestPollerSucceedsAfterFiveNotReadyWithBackoffSchedule(t *testing.T) {
	title := "Melhor momento"
	service := &scriptedService{
		reports: []func() (StatusReport, error){
			notReady, notReady, notReady, notReady, notReady,
			ready([]RawClip{{ID: "c1", SourceURL: "https://clips.example.com/c1", Title: &title}}),
		},
	}
	sleeper := &recordingSleeper{}
	poller := NewPoller(service, PollerConfig{Sleep: sleeper.sleep})

	job, err := poller.SubmitAndAwait(context.Background(), domain.ClipJobSpec{VideoSource: "https://v"}, nil)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if job.Status != domain.ClipJobSucceeded {
		t.Fatalf("expected succeeded, got %s", job.Status)
	}
	if service.statusCalls != 6 {
		t.Fatalf("expected exactly 6 status calls, got %d", service.statusCalls)
	}
	if service.submitCalls != 1 {
		t.Fatalf("submission must happen exactly once, got %d", service.submitCalls)
	}
	if len(job.Results) != 1 || job.Results[0].Title == nil || *job.Results[0].Title != title {
		t.Fatalf("unexpected parsed results: %+v", job.Results)
	}

	expected := []time.Duration{
		3000 * time.Millisecond,
		4500 * time.Millisecond,
		6750 * time.Millisecond,
		10125 * time.Millisecond,
		15 * time.Second, // 15187ms capped
	}
	if len(sleeper.delays) != len(expected) {
		t.Fatalf("expected %d sleeps, got %d", len(expected), len(sleeper.delays))
	}
	for index, want := range expected {
		if sleeper.delays[index] != want {
			t.Fatalf("delay %d: expected %v, got %v", index+1, want, sleeper.delays[index])
		}
	}
}

func TestPollerDelayIsCappedAtMax(t *testing.T) {
	poller := NewPoller(&scriptedService{}, PollerConfig{})
	if got := poller.Delay(1); got != 3*time.Second {
		t.Fatalf("first delay should be the base, got %v", got)
	}
	if got := poller.Delay(50); got != 15*time.Second {
		t.Fatalf("late delays should cap at 15s, got %v", got)
	}
}

func TestPollerTimesOutAfterMaxAttempts(t *testing.T) {
	service := &scriptedService{}
	sleeper := &recordingSleeper{}
	poller := NewPoller(service, PollerConfig{MaxAttempts: 7, Sleep: sleeper.sleep})

	job, err := poller.SubmitAndAwait(context.Background(), domain.ClipJobSpec{VideoSource: "https://v"}, nil)
	if job.Status != domain.ClipJobTimedOut {
		t.Fatalf("expected timed_out, got %s", job.Status)
	}
	var timeout *JobTimedOutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected JobTimedOutError, got %T: %v", err, err)
	}
	if service.statusCalls != 7 {
		t.Fatalf("expected %d status calls, got %d", 7, service.statusCalls)
	}
	// No sleep after the final attempt.
	if len(sleeper.delays) != 6 {
		t.Fatalf("expected 6 sleeps, got %d", len(sleeper.delays))
	}
}

func TestPollerTreatsTransientErrorsAsNotReady(t *testing.T) {
	transient := func() (StatusReport, error) {
		return StatusReport{}, &remote.HTTPError{Endpoint: "/v1/clip-jobs/status", StatusCode: http.StatusBadGateway}
	}
	service := &scriptedService{
		reports: []func() (StatusReport, error){
			transient,
			transient,
			ready(nil),
		},
	}
	sleeper := &recordingSleeper{}
	poller := NewPoller(service, PollerConfig{Sleep: sleeper.sleep})

	job, err := poller.SubmitAndAwait(context.Background(), domain.ClipJobSpec{VideoSource: "https://v"}, nil)
	if err != nil {
		t.Fatalf("transient errors must not terminate the machine: %v", err)
	}
	if job.Status != domain.ClipJobSucceeded {
		t.Fatalf("expected succeeded, got %s", job.Status)
	}
	if service.statusCalls != 3 {
		t.Fatalf("expected 3 status calls, got %d", service.statusCalls)
	}
	if service.submitCalls != 1 {
		t.Fatalf("poll failures must never resubmit")
	}
}

func TestPollerFailsFastOnBackendReportedFailure(t *testing.T) {
	service := &scriptedService{
		reports: []func() (StatusReport, error){
			notReady,
			func() (StatusReport, error) {
				return StatusReport{Failed: true, Message: "source video unreadable"}, nil
			},
		},
	}
	poller := NewPoller(service, PollerConfig{Sleep: (&recordingSleeper{}).sleep})

	job, err := poller.SubmitAndAwait(context.Background(), domain.ClipJobSpec{VideoSource: "https://v"}, nil)
	if job.Status != domain.ClipJobFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	var failed *JobFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected JobFailedError, got %T", err)
	}
	if failed.Message != "source video unreadable" {
		t.Fatalf("failure should carry the backend message, got %q", failed.Message)
	}
	if service.statusCalls != 2 {
		t.Fatalf("fatal failure must skip remaining attempts, got %d calls", service.statusCalls)
	}
}

func TestPollerSubmissionFailureSkipsPolling(t *testing.T) {
	service := &scriptedService{submitErr: errors.New("quota exceeded")}
	poller := NewPoller(service, PollerConfig{Sleep: (&recordingSleeper{}).sleep})

	var observed []domain.ClipJobStatus
	job, err := poller.SubmitAndAwait(context.Background(), domain.ClipJobSpec{VideoSource: "https://v"},
		func(snapshot domain.ClipJob) {
			observed = append(observed, snapshot.Status)
		})
	if job.Status != domain.ClipJobFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	var failed *JobFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected JobFailedError, got %T", err)
	}
	if service.statusCalls != 0 {
		t.Fatalf("no status call may happen when submission fails")
	}
	if observed[0] != domain.ClipJobSubmitted || observed[len(observed)-1] != domain.ClipJobFailed {
		t.Fatalf("unexpected transition sequence: %v", observed)
	}
}

func TestPollerStopsWhenContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	service := &scriptedService{}
	poller := NewPoller(service, PollerConfig{
		Sleep: func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		},
	})

	job, err := poller.SubmitAndAwait(ctx, domain.ClipJobSpec{VideoSource: "https://v"}, nil)
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
	if !job.Status.Terminal() {
		t.Fatalf("job must land in a terminal state, got %s", job.Status)
	}
}
