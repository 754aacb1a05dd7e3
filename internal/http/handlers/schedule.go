package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/renata/social-console-back/internal/domain"
	"github.com/renata/social-console-back/internal/service"
)

func (api *API) Schedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var request scheduleRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}
	if err := validateDispatchFields(request.Platform, request.BrandName, request.Text); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "platform, brand_name and text are required")
		return
	}

	at, err := time.Parse(time.RFC3339, strings.TrimSpace(request.ScheduledAt))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "scheduled_at must be RFC3339")
		return
	}

	platform, _ := domain.ParsePlatform(request.Platform)
	outcome, err := api.publishing.Schedule(r.Context(), service.PublishInput{
		Platform:      platform,
		BrandName:     request.BrandName,
		Text:          request.Text,
		Media:         request.Media,
		MediaRequired: request.MediaRequired,
	}, at)
	if err != nil {
		writePublishError(w, r, err)
		return
	}

	response := map[string]any{
		"post_id":          outcome.PostID,
		"status":           "scheduled",
		"deliver_at":       outcome.DeliverAt,
		"media_urls":       outcome.MediaURLs,
		"calendar_written": outcome.CalendarWritten,
	}
	if len(outcome.Warnings) > 0 {
		response["media_warnings"] = outcome.Warnings
	}
	writeJSON(w, http.StatusCreated, response)
}

func (api *API) Calendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	now := time.Now().UTC()
	year := queryInt(r, "year", now.Year())
	month := queryInt(r, "month", int(now.Month()))
	if month < 1 || month > 12 {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "month must be between 1 and 12")
		return
	}

	entries, err := api.publishing.Calendar(r.Context(), year, month)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to load calendar")
		return
	}

	items := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		items = append(items, map[string]any{
			"id":         entry.ID,
			"post_id":    entry.PostID,
			"platform":   entry.Platform,
			"brand_name": entry.BrandName,
			"title":      entry.Title,
			"deliver_at": entry.DeliverAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":    year,
		"month":   month,
		"entries": items,
	})
}
