package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/renata/social-console-back/internal/ai"
	"github.com/renata/social-console-back/internal/cache"
	"github.com/renata/social-console-back/internal/clips"
	"github.com/renata/social-console-back/internal/dispatch"
	httpserver "github.com/renata/social-console-back/internal/http"
	"github.com/renata/social-console-back/internal/http/handlers"
	"github.com/renata/social-console-back/internal/media"
	"github.com/renata/social-console-back/internal/remote"
	"github.com/renata/social-console-back/internal/repository"
	"github.com/renata/social-console-back/internal/service"
)

type integrationRuntime struct {
	server   *httptest.Server
	upstream *httptest.Server
	cancel   context.CancelFunc
}

// fakeUpstream stands in for every external collaborator: generation,
// media conversion, publish, brand lookup and the clip service.
func fakeUpstream(clipPollsUntilReady int32) http.Handler {
	var clipPolls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/generate/", func(w http.ResponseWriter, r *http.Request) {
		platform := strings.TrimPrefix(r.URL.Path, "/v1/generate/")
		writeUpstreamJSON(w, map[string]any{
			"generated_text": "Conteudo gerado para " + platform,
		})
	})
	mux.HandleFunc("/v1/convert/", func(w http.ResponseWriter, r *http.Request) {
		kind := strings.TrimPrefix(r.URL.Path, "/v1/convert/")
		writeUpstreamJSON(w, map[string]any{
			"durable_url": "https://cdn.example.com/" + kind + "/converted-1",
		})
	})
	mux.HandleFunc("/v1/publish", func(w http.ResponseWriter, r *http.Request) {
		writeUpstreamJSON(w, map[string]any{"status": "ok"})
	})
	mux.HandleFunc("/v1/brands/connections", func(w http.ResponseWriter, r *http.Request) {
		writeUpstreamJSON(w, map[string]any{
			"brands": map[string][]string{
				"Acme": {"twitter", "instagram", "linkedin"},
			},
		})
	})
	mux.HandleFunc("/v1/clip-jobs", func(w http.ResponseWriter, r *http.Request) {
		writeUpstreamJSON(w, map[string]any{"job_id": "remote-clip-1"})
	})
	mux.HandleFunc("/v1/clip-jobs/status", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&clipPolls, 1) < clipPollsUntilReady {
			writeUpstreamJSON(w, map[string]any{"ready": false})
			return
		}
		writeUpstreamJSON(w, map[string]any{
			"ready": true,
			"results": []map[string]any{
				{
					"id":          "clip-1",
					"source_url":  "https://clips.example.com/clip-1.mp4",
					"duration_ms": 42000,
					"viral_score": 0.87,
					"topics":      []string{"lancamento"},
				},
			},
		})
	})
	return mux
}

func writeUpstreamJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(value)
}

func startIntegrationRuntime(t *testing.T) integrationRuntime {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	logger := log.New(io.Discard, "", 0)
	repo := repository.NewMemoryPostsRepository()

	upstream := httptest.NewServer(fakeUpstream(3))
	newClient := func() *remote.Client {
		return remote.NewClient(remote.ClientConfig{
			BaseURL:     upstream.URL,
			Credentials: remote.StaticCredential("test-token"),
			Timeout:     5 * time.Second,
		})
	}

	generation := service.NewGenerationService(service.GenerationDependencies{
		Generator: ai.NewHTTPGenerator(ai.HTTPGeneratorConfig{Client: newClient()}),
		Cache:     cache.NewResultCache(cache.Config{TTL: 10 * time.Minute, MaxEntries: 4000}),
		Logger:    logger,
	})

	publishing := service.NewPublishingService(service.PublishingDependencies{
		Normalizer: media.NewNormalizer(media.NewHTTPConverter(newClient())),
		Publisher:  dispatch.NewHTTPPublisher(newClient()),
		Brands:     dispatch.NewHTTPBrandDirectory(dispatch.HTTPBrandDirectoryConfig{Client: newClient()}),
		Repo:       repo,
		Logger:     logger,
	})

	poller := clips.NewPoller(clips.NewHTTPService(clips.HTTPServiceConfig{Client: newClient()}), clips.PollerConfig{
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		MaxAttempts: 20,
		Logger:      logger,
	})
	clipsService := service.NewClipsService(ctx, poller, logger)

	api := handlers.NewAPI(generation, publishing, clipsService)
	router := httpserver.NewRouter(httpserver.RouterDependencies{
		API:            api,
		Logger:         logger,
		AuthToken:      "",
		RateLimitRPS:   20000,
		RateLimitBurst: 20000,
	})

	server := httptest.NewServer(router)
	return integrationRuntime{
		server:   server,
		upstream: upstream,
		cancel: func() {
			cancel()
			server.Close()
			upstream.Close()
		},
	}
}

func postJSON(
	t *testing.T,
	client *http.Client,
	url string,
	payload any,
	headers map[string]string,
) (int, map[string]any) {
	t.Helper()

	encoded, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	request, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	for key, value := range headers {
		request.Header.Set(key, value)
	}

	response, err := client.Do(request)
	if err != nil {
		t.Fatalf("execute request: %v", err)
	}
	defer response.Body.Close()

	raw, _ := io.ReadAll(response.Body)
	if len(raw) == 0 {
		return response.StatusCode, map[string]any{}
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode response body (%d): %s", response.StatusCode, string(raw))
	}

	return response.StatusCode, decoded
}

func getJSON(t *testing.T, client *http.Client, url string) (int, map[string]any) {
	t.Helper()
	request, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("build get request: %v", err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := client.Do(request)
	if err != nil {
		t.Fatalf("execute get request: %v", err)
	}
	defer response.Body.Close()

	raw, _ := io.ReadAll(response.Body)
	if len(raw) == 0 {
		return response.StatusCode, map[string]any{}
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode get response body (%d): %s", response.StatusCode, string(raw))
	}

	return response.StatusCode, decoded
}

func TestGeneratePublishScheduleFlow(t *testing.T) {
	runtime := startIntegrationRuntime(t)
	defer runtime.cancel()

	client := runtime.server.Client()
	baseURL := runtime.server.URL

	generateStatus, generateBody := postJSON(t, client, baseURL+"/v1/generate", map[string]any{
		"source_text": "lancamento do produto novo nesta sexta",
		"platforms":   []string{"twitter", "linkedin"},
	}, nil)
	if generateStatus != http.StatusOK {
		t.Fatalf("expected 200 from generate, got %d body=%+v", generateStatus, generateBody)
	}
	content, ok := generateBody["content"].(map[string]any)
	if !ok || len(content) != 2 {
		t.Fatalf("expected content for both platforms, got %+v", generateBody)
	}
	if _, exists := generateBody["failures"]; exists {
		t.Fatalf("no failures expected, got %+v", generateBody["failures"])
	}

	publishStatus, publishBody := postJSON(t, client, baseURL+"/v1/publish", map[string]any{
		"platform":   "twitter",
		"brand_name": "Acme",
		"text":       fmt.Sprintf("%v", content["twitter"]),
		"media": []map[string]any{
			{"kind": "inline", "data_uri": "data:image/png;base64,aGVsbG8="},
		},
	}, nil)
	if publishStatus != http.StatusOK {
		t.Fatalf("expected 200 from publish, got %d body=%+v", publishStatus, publishBody)
	}
	mediaURLs, ok := publishBody["media_urls"].([]any)
	if !ok || len(mediaURLs) != 1 {
		t.Fatalf("expected one normalized media url, got %+v", publishBody)
	}
	if !strings.HasPrefix(fmt.Sprintf("%v", mediaURLs[0]), "https://cdn.example.com/") {
		t.Fatalf("expected durable url from converter, got %v", mediaURLs[0])
	}

	at := time.Now().UTC().Add(72 * time.Hour)
	scheduleStatus, scheduleBody := postJSON(t, client, baseURL+"/v1/schedule", map[string]any{
		"platform":     "linkedin",
		"brand_name":   "Acme",
		"text":         fmt.Sprintf("%v", content["linkedin"]),
		"scheduled_at": at.Format(time.RFC3339),
	}, nil)
	if scheduleStatus != http.StatusCreated {
		t.Fatalf("expected 201 from schedule, got %d body=%+v", scheduleStatus, scheduleBody)
	}
	if written, _ := scheduleBody["calendar_written"].(bool); !written {
		t.Fatalf("expected calendar_written=true, got %+v", scheduleBody)
	}

	calendarURL := fmt.Sprintf("%s/v1/calendar?year=%d&month=%d", baseURL, at.Year(), int(at.Month()))
	calendarStatus, calendarBody := getJSON(t, client, calendarURL)
	if calendarStatus != http.StatusOK {
		t.Fatalf("expected 200 from calendar, got %d body=%+v", calendarStatus, calendarBody)
	}
	entries, ok := calendarBody["entries"].([]any)
	if !ok || len(entries) != 1 {
		t.Fatalf("expected one calendar entry, got %+v", calendarBody)
	}
}

func TestPublishRejectsDisconnectedPlatform(t *testing.T) {
	runtime := startIntegrationRuntime(t)
	defer runtime.cancel()

	client := runtime.server.Client()
	status, body := postJSON(t, client, runtime.server.URL+"/v1/publish", map[string]any{
		"platform":   "tiktok",
		"brand_name": "Acme",
		"text":       "sem conexao",
	}, nil)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for disconnected platform, got %d body=%+v", status, body)
	}
	envelope, ok := body["error"].(map[string]any)
	if !ok || fmt.Sprintf("%v", envelope["code"]) != "dispatch_failed" {
		t.Fatalf("expected dispatch_failed envelope, got %+v", body)
	}
	if !strings.Contains(fmt.Sprintf("%v", envelope["message"]), "tiktok") {
		t.Fatalf("error message should name the platform: %+v", envelope)
	}
}

func TestClipJobLifecycleAndIdempotency(t *testing.T) {
	runtime := startIntegrationRuntime(t)
	defer runtime.cancel()

	client := runtime.server.Client()
	baseURL := runtime.server.URL
	headers := map[string]string{"Idempotency-Key": "clip-e2e-flow-0001"}
	payload := map[string]any{
		"video_source": "https://videos.example.com/full.mp4",
		"language":     "pt-BR",
		"max_clips":    5,
	}

	submitStatus, submitBody := postJSON(t, client, baseURL+"/v1/clips", payload, headers)
	if submitStatus != http.StatusAccepted {
		t.Fatalf("expected 202 from clip submit, got %d body=%+v", submitStatus, submitBody)
	}
	jobID, _ := submitBody["job_id"].(string)
	if strings.TrimSpace(jobID) == "" {
		t.Fatalf("expected clip job id, got %+v", submitBody)
	}

	// Re-posting the same payload with the same key must not start a new job.
	repeatStatus, repeatBody := postJSON(t, client, baseURL+"/v1/clips", payload, headers)
	if repeatStatus != http.StatusAccepted {
		t.Fatalf("expected 202 from repeated submit, got %d body=%+v", repeatStatus, repeatBody)
	}
	if repeatID, _ := repeatBody["job_id"].(string); repeatID != jobID {
		t.Fatalf("repeated submit returned a different job id: %s vs %s", repeatID, jobID)
	}

	conflictStatus, _ := postJSON(t, client, baseURL+"/v1/clips", map[string]any{
		"video_source": "https://videos.example.com/other.mp4",
	}, headers)
	if conflictStatus != http.StatusConflict {
		t.Fatalf("expected 409 for reused key with new payload, got %d", conflictStatus)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		statusCode, body := getJSON(t, client, baseURL+"/v1/clips/"+jobID)
		if statusCode != http.StatusOK {
			t.Fatalf("expected 200 from clip status, got %d body=%+v", statusCode, body)
		}
		switch fmt.Sprintf("%v", body["status"]) {
		case "succeeded":
			clipsList, ok := body["clips"].([]any)
			if !ok || len(clipsList) != 1 {
				t.Fatalf("expected one clip in result, got %+v", body)
			}
			clip := clipsList[0].(map[string]any)
			if _, present := clip["viral_score"]; !present {
				t.Fatalf("expected viral_score key in clip payload: %+v", clip)
			}
			return
		case "failed", "timed_out":
			t.Fatalf("clip job ended in %v: %+v", body["status"], body)
		}
		if time.Now().After(deadline) {
			t.Fatal("clip job never reached a terminal state")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
