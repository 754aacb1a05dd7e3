package clips

import "fmt"

// JobFailedError is terminal: the backend explicitly reported the job as
// failed. The UI can offer "try again".
type JobFailedError struct {
	JobID   string
	Message string
}

func (e *JobFailedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("clip job %s failed", e.JobID)
	}
	return fmt.Sprintf("clip job %s failed: %s", e.JobID, e.Message)
}

// JobTimedOutError is terminal for the poller but distinct from a hard
// failure: the job may still complete server-side, so the UI should suggest
// checking back later instead of resubmitting.
type JobTimedOutError struct {
	JobID    string
	Attempts int
}

func (e *JobTimedOutError) Error() string {
	return fmt.Sprintf(
		"clip job %s not ready after %d status checks; it may still complete server-side",
		e.JobID, e.Attempts,
	)
}
