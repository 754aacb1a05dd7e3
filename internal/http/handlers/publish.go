package handlers

import (
	"errors"
	"net/http"

	"github.com/renata/social-console-back/internal/dispatch"
	"github.com/renata/social-console-back/internal/domain"
	"github.com/renata/social-console-back/internal/service"
)

func (api *API) Publish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var request publishRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}
	if err := validateDispatchFields(request.Platform, request.BrandName, request.Text); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "platform, brand_name and text are required")
		return
	}

	platform, _ := domain.ParsePlatform(request.Platform)
	outcome, err := api.publishing.Publish(r.Context(), service.PublishInput{
		Platform:      platform,
		BrandName:     request.BrandName,
		Text:          request.Text,
		Media:         request.Media,
		MediaRequired: request.MediaRequired,
	})
	if err != nil {
		writePublishError(w, r, err)
		return
	}

	response := map[string]any{
		"status":     "published",
		"media_urls": outcome.MediaURLs,
	}
	if len(outcome.Warnings) > 0 {
		response["media_warnings"] = outcome.Warnings
	}
	writeJSON(w, http.StatusOK, response)
}

func writePublishError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrPastSchedule) {
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if errors.Is(err, service.ErrNoUsableMedia) {
		writeError(w, r, http.StatusUnprocessableEntity, "no_usable_media", err.Error())
		return
	}
	var dispatchErr *dispatch.Error
	if errors.As(err, &dispatchErr) {
		writeError(w, r, http.StatusUnprocessableEntity, "dispatch_failed", dispatchErr.Error())
		return
	}
	writeError(w, r, http.StatusBadGateway, "upstream_error", err.Error())
}
