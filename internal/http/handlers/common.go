package handlers

import (
	"encoding/json"
	"errors"
	"hash/fnv"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/renata/social-console-back/internal/domain"
	"github.com/renata/social-console-back/internal/http/middleware"
	"github.com/renata/social-console-back/internal/service"
)

var errInvalidPayload = errors.New("invalid payload")

type API struct {
	generation  *service.GenerationService
	publishing  *service.PublishingService
	clips       *service.ClipsService
	idempotency *idempotencyStore
}

func NewAPI(
	generation *service.GenerationService,
	publishing *service.PublishingService,
	clips *service.ClipsService,
) *API {
	return &API{
		generation:  generation,
		publishing:  publishing,
		clips:       clips,
		idempotency: newIdempotencyStore(),
	}
}

type generateRequest struct {
	SourceText string   `json:"source_text"`
	Variant    string   `json:"variant,omitempty"`
	SourceURL  string   `json:"source_url,omitempty"`
	ImageURL   string   `json:"image_url,omitempty"`
	StyleUser  string   `json:"style_user,omitempty"`
	Platforms  []string `json:"platforms"`
}

type publishRequest struct {
	Platform      string                  `json:"platform"`
	BrandName     string                  `json:"brand_name"`
	Text          string                  `json:"text"`
	Media         []domain.MediaReference `json:"media,omitempty"`
	MediaRequired bool                    `json:"media_required,omitempty"`
}

type scheduleRequest struct {
	publishRequest
	ScheduledAt string `json:"scheduled_at"`
}

type errorPayload struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func writeJSON(w http.ResponseWriter, statusCode int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	payload := errorPayload{RequestID: middleware.GetRequestID(r.Context())}
	payload.Error.Code = code
	payload.Error.Message = message
	writeJSON(w, statusCode, payload)
}

func decodeJSON(r *http.Request, value any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(value); err != nil {
		return errInvalidPayload
	}
	return nil
}

func parsePlatforms(values []string) ([]domain.Platform, error) {
	if len(values) == 0 {
		return nil, errInvalidPayload
	}
	platforms := make([]domain.Platform, 0, len(values))
	for _, value := range values {
		platform, ok := domain.ParsePlatform(value)
		if !ok {
			return nil, errInvalidPayload
		}
		platforms = append(platforms, platform)
	}
	return platforms, nil
}

func validateDispatchFields(platform, brandName, text string) error {
	if _, ok := domain.ParsePlatform(platform); !ok {
		return errInvalidPayload
	}
	if strings.TrimSpace(brandName) == "" || len(brandName) > 128 {
		return errInvalidPayload
	}
	if strings.TrimSpace(text) == "" {
		return errInvalidPayload
	}
	return nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

type idempotencyEntry struct {
	PayloadHash uint64
	JobID       string
	CreatedAt   time.Time
}

type idempotencyStore struct {
	mu      sync.Mutex
	entries map[string]idempotencyEntry
}

func newIdempotencyStore() *idempotencyStore {
	return &idempotencyStore{
		entries: make(map[string]idempotencyEntry),
	}
}

func (s *idempotencyStore) Get(key string) (idempotencyEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	return entry, ok
}

func (s *idempotencyStore) Put(key string, payloadHash uint64, jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = idempotencyEntry{
		PayloadHash: payloadHash,
		JobID:       jobID,
		CreatedAt:   time.Now().UTC(),
	}
}

func hashPayload(value any) uint64 {
	payload, _ := json.Marshal(value)
	hasher := fnv.New64a()
	_, _ = hasher.Write(payload)
	return hasher.Sum64()
}
