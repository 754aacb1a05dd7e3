package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/renata/social-console-back/internal/domain"
	"github.com/renata/social-console-back/internal/service"
)

func (api *API) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var request generateRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}

	platforms, err := parsePlatforms(request.Platforms)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "platforms must name known platforms")
		return
	}

	variant := domain.SourceVariant(strings.TrimSpace(request.Variant))
	if variant == "" {
		variant = domain.VariantText
	}
	switch variant {
	case domain.VariantText, domain.VariantURL, domain.VariantImage, domain.VariantStyle:
	default:
		writeError(w, r, http.StatusBadRequest, "invalid_request", "unknown variant")
		return
	}

	output, err := api.generation.Generate(r.Context(), service.GenerationInput{
		SourceText: request.SourceText,
		Variant:    variant,
		SourceURL:  request.SourceURL,
		ImageURL:   request.ImageURL,
		StyleUser:  request.StyleUser,
		Platforms:  platforms,
	})
	if err != nil {
		if errors.Is(err, service.ErrNoPlatforms) {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "at least one platform is required")
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	response := map[string]any{
		"content": output.Content,
	}
	if len(output.Failures) > 0 {
		response["failures"] = output.Failures
	}
	writeJSON(w, http.StatusOK, response)
}
