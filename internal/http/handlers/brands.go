package handlers

import "net/http"

func (api *API) Brands(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	connections, err := api.publishing.BrandConnections(r.Context())
	if err != nil {
		writeError(w, r, http.StatusBadGateway, "upstream_error", "failed to load brand connections")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"brands": connections})
}
