package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/renata/social-console-back/internal/domain"
)

func (api *API) SubmitClipJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if len(idempotencyKey) < 16 {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "Idempotency-Key header is required")
		return
	}

	var spec domain.ClipJobSpec
	if err := decodeJSON(r, &spec); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}
	if strings.TrimSpace(spec.VideoSource) == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "video_source is required")
		return
	}

	// Re-submitting the same payload (a page reload, a double click) must
	// not start a second remote job.
	payloadHash := hashPayload(spec)
	if entry, exists := api.idempotency.Get(idempotencyKey); exists {
		if entry.PayloadHash != payloadHash {
			writeError(w, r, http.StatusConflict, "idempotency_conflict", "Idempotency-Key already used with different payload")
			return
		}
		writeClipAccepted(w, entry.JobID, entry.CreatedAt)
		return
	}

	jobID, err := api.clips.SubmitJob(spec)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to submit clip job")
		return
	}

	api.idempotency.Put(idempotencyKey, payloadHash, jobID)
	writeClipAccepted(w, jobID, time.Now().UTC())
}

func writeClipAccepted(w http.ResponseWriter, jobID string, acceptedAt time.Time) {
	w.Header().Set("Retry-After", "3")
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":      jobID,
		"status":      string(domain.ClipJobSubmitted),
		"status_url":  "/v1/clips/" + jobID,
		"accepted_at": acceptedAt.Format(time.RFC3339Nano),
	})
}

func (api *API) ClipJobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	jobID := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/v1/clips/"))
	if jobID == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "job_id is required")
		return
	}

	job, ok := api.clips.GetJob(jobID)
	if !ok {
		writeError(w, r, http.StatusNotFound, "not_found", "clip job not found")
		return
	}

	response := map[string]any{
		"job_id":     job.ID,
		"status":     job.Status,
		"attempt":    job.Attempt,
		"updated_at": job.UpdatedAt,
	}
	if job.Status == domain.ClipJobSucceeded {
		response["clips"] = job.Results
	}
	if strings.TrimSpace(job.ErrorMessage) != "" {
		response["error"] = map[string]any{
			"code":    "processing_error",
			"message": job.ErrorMessage,
		}
	}
	writeJSON(w, http.StatusOK, response)
}
