package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/renata/social-console-back/internal/ai"
	"github.com/renata/social-console-back/internal/cache"
	"github.com/renata/social-console-back/internal/dispatch"
	httpserver "github.com/renata/social-console-back/internal/http"
	"github.com/renata/social-console-back/internal/http/handlers"
	"github.com/renata/social-console-back/internal/media"
	"github.com/renata/social-console-back/internal/remote"
	"github.com/renata/social-console-back/internal/repository"
	"github.com/renata/social-console-back/internal/service"
)

type scenarioResult struct {
	Name          string   `json:"name"`
	Total         int      `json:"total"`
	Success       int      `json:"success"`
	Errors        int      `json:"errors"`
	P50MS         float64  `json:"p50_ms"`
	P95MS         float64  `json:"p95_ms"`
	P99MS         float64  `json:"p99_ms"`
	MaxMS         float64  `json:"max_ms"`
	ThroughputRPS float64  `json:"throughput_rps"`
	ErrorSamples  []string `json:"error_samples,omitempty"`
}

type cacheResult struct {
	UpstreamCalls int     `json:"upstream_calls"`
	TotalRequests int     `json:"total_requests"`
	HitRatePct    float64 `json:"hit_rate_pct"`
}

type runResult struct {
	GeneratedAtUTC string           `json:"generated_at_utc"`
	Environment    string           `json:"environment"`
	Results        []scenarioResult `json:"results"`
	ResultCache    cacheResult      `json:"result_cache"`
	SLOEvaluation  map[string]bool  `json:"slo_evaluation"`
}

type benchmarkEnv struct {
	server        *httptest.Server
	upstream      *httptest.Server
	upstreamCalls *int64
	cancel        func()
}

func main() {
	generateTotal := flag.Int("generate-total", 260, "total generate requests")
	generateConcurrency := flag.Int("generate-concurrency", 24, "concurrency for generate requests")
	publishTotal := flag.Int("publish-total", 180, "total publish requests")
	publishConcurrency := flag.Int("publish-concurrency", 28, "concurrency for publish requests")
	scheduleTotal := flag.Int("schedule-total", 180, "total schedule requests")
	scheduleConcurrency := flag.Int("schedule-concurrency", 28, "concurrency for schedule requests")
	calendarTotal := flag.Int("calendar-total", 120, "total calendar list requests")
	calendarConcurrency := flag.Int("calendar-concurrency", 20, "concurrency for calendar list requests")
	outputPath := flag.String("output", "", "optional path to persist benchmark results JSON")
	flag.Parse()

	env, err := startBenchmarkEnvironment()
	if err != nil {
		log.Fatalf("failed to start local benchmark environment: %v", err)
	}
	defer env.cancel()

	client := &http.Client{Timeout: 10 * time.Second}

	generateScenario := runScenario("generate_fanout", *generateTotal, *generateConcurrency, func(index int) error {
		payload := map[string]any{
			"source_text": fmt.Sprintf("rascunho de campanha numero %d para a proxima semana", index%32),
			"platforms":   []string{"twitter", "linkedin", "instagram"},
		}
		return postJSON(client, env.server.URL+"/v1/generate", payload, nil, http.StatusOK)
	})

	publishScenario := runScenario("publish_now", *publishTotal, *publishConcurrency, func(index int) error {
		payload := map[string]any{
			"platform":   "twitter",
			"brand_name": "Acme",
			"text":       fmt.Sprintf("publicacao imediata %d", index),
		}
		return postJSON(client, env.server.URL+"/v1/publish", payload, nil, http.StatusOK)
	})

	scheduleBase := time.Now().UTC().Add(24 * time.Hour)
	scheduleScenario := runScenario("schedule_future", *scheduleTotal, *scheduleConcurrency, func(index int) error {
		payload := map[string]any{
			"platform":     "instagram",
			"brand_name":   "Acme",
			"text":         fmt.Sprintf("publicacao agendada %d", index),
			"scheduled_at": scheduleBase.Add(time.Duration(index) * time.Minute).Format(time.RFC3339),
		}
		return postJSON(client, env.server.URL+"/v1/schedule", payload, nil, http.StatusCreated)
	})

	calendarScenario := runScenario("calendar_list", *calendarTotal, *calendarConcurrency, func(index int) error {
		query := fmt.Sprintf(
			"%s/v1/calendar?year=%d&month=%d",
			env.server.URL,
			scheduleBase.Year(),
			int(scheduleBase.Month()),
		)
		return getJSON(client, query, http.StatusOK)
	})

	cacheStats := runCacheScenario(client, env)

	results := []scenarioResult{
		generateScenario,
		publishScenario,
		scheduleScenario,
		calendarScenario,
	}

	slo := map[string]bool{
		"generate_endpoint_p95_le_5000ms": generateScenario.P95MS <= 5000,
		"publish_endpoint_p95_le_2000ms":  publishScenario.P95MS <= 2000,
	}

	report := runResult{
		GeneratedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
		Environment:    "local-httptest",
		Results:        results,
		ResultCache:    cacheStats,
		SLOEvaluation:  slo,
	}

	encoded, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal benchmark report: %v", err)
	}

	if *outputPath != "" {
		if err := os.WriteFile(*outputPath, encoded, 0o644); err != nil {
			log.Fatalf("failed to write output file: %v", err)
		}
	}

	_, _ = fmt.Fprintln(os.Stdout, string(encoded))
}

func startBenchmarkEnvironment() (*benchmarkEnv, error) {
	logger := log.New(io.Discard, "", 0)

	var upstreamCalls int64
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/generate/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&upstreamCalls, 1)
		platform := strings.TrimPrefix(r.URL.Path, "/v1/generate/")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"generated_text": "Conteudo gerado para " + platform,
		})
	})
	mux.HandleFunc("/v1/publish", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	})
	mux.HandleFunc("/v1/brands/connections", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"brands": map[string][]string{
				"Acme": {"twitter", "instagram", "linkedin"},
			},
		})
	})
	upstream := httptest.NewServer(mux)

	newClient := func() *remote.Client {
		return remote.NewClient(remote.ClientConfig{
			BaseURL:     upstream.URL,
			Credentials: remote.StaticCredential("bench-token"),
			Timeout:     5 * time.Second,
		})
	}

	repo := repository.NewMemoryPostsRepository()
	generation := service.NewGenerationService(service.GenerationDependencies{
		Generator: ai.NewHTTPGenerator(ai.HTTPGeneratorConfig{Client: newClient()}),
		Cache:     cache.NewResultCache(cache.Config{TTL: 10 * time.Minute, MaxEntries: 4000}),
		Logger:    logger,
	})
	publishing := service.NewPublishingService(service.PublishingDependencies{
		Normalizer: media.NewNormalizer(nil),
		Publisher:  dispatch.NewHTTPPublisher(newClient()),
		Brands:     dispatch.NewHTTPBrandDirectory(dispatch.HTTPBrandDirectoryConfig{Client: newClient()}),
		Repo:       repo,
		Logger:     logger,
	})

	api := handlers.NewAPI(generation, publishing, nil)
	router := httpserver.NewRouter(httpserver.RouterDependencies{
		API:            api,
		Logger:         logger,
		AuthToken:      "",
		RateLimitRPS:   20000,
		RateLimitBurst: 20000,
	})

	server := httptest.NewServer(router)
	return &benchmarkEnv{
		server:        server,
		upstream:      upstream,
		upstreamCalls: &upstreamCalls,
		cancel: func() {
			server.Close()
			upstream.Close()
		},
	}, nil
}

// runCacheScenario fires the same draft repeatedly and reports how many
// requests were answered from the result cache instead of the upstream.
func runCacheScenario(client *http.Client, env *benchmarkEnv) cacheResult {
	const total = 60
	payload := map[string]any{
		"source_text": "rascunho fixo usado para medir o cache de resultados",
		"platforms":   []string{"twitter"},
	}

	before := atomic.LoadInt64(env.upstreamCalls)
	for i := 0; i < total; i++ {
		_ = postJSON(client, env.server.URL+"/v1/generate", payload, nil, http.StatusOK)
	}
	upstream := int(atomic.LoadInt64(env.upstreamCalls) - before)

	hitRate := 0.0
	if total > 0 {
		hitRate = float64(total-upstream) / float64(total) * 100
	}
	return cacheResult{
		UpstreamCalls: upstream,
		TotalRequests: total,
		HitRatePct:    round2(hitRate),
	}
}

func runScenario(
	name string,
	total int,
	concurrency int,
	requestFn func(index int) error,
) scenarioResult {
	if total <= 0 {
		return scenarioResult{Name: name}
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	startedAt := time.Now()
	type sample struct {
		durationMS float64
		err        string
	}

	jobs := make(chan int, total)
	results := make(chan sample, total)
	for i := 0; i < total; i++ {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				requestStart := time.Now()
				err := requestFn(index)
				s := sample{
					durationMS: float64(time.Since(requestStart).Microseconds()) / 1000.0,
				}
				if err != nil {
					s.err = err.Error()
				}
				results <- s
			}
		}()
	}
	wg.Wait()
	close(results)

	durations := make([]float64, 0, total)
	errorSamples := make([]string, 0, 5)
	success := 0
	errorsCount := 0
	for item := range results {
		durations = append(durations, item.durationMS)
		if item.err == "" {
			success++
			continue
		}
		errorsCount++
		if len(errorSamples) < 5 {
			errorSamples = append(errorSamples, item.err)
		}
	}

	sort.Float64s(durations)
	elapsedSeconds := time.Since(startedAt).Seconds()
	throughput := 0.0
	if elapsedSeconds > 0 {
		throughput = float64(total) / elapsedSeconds
	}

	result := scenarioResult{
		Name:          name,
		Total:         total,
		Success:       success,
		Errors:        errorsCount,
		P50MS:         percentile(durations, 0.50),
		P95MS:         percentile(durations, 0.95),
		P99MS:         percentile(durations, 0.99),
		MaxMS:         percentile(durations, 1.00),
		ThroughputRPS: round2(throughput),
		ErrorSamples:  errorSamples,
	}
	return result
}

func postJSON(
	client *http.Client,
	url string,
	payload any,
	headers map[string]string,
	expectedStatus int,
) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	request, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	for key, value := range headers {
		request.Header.Set(key, value)
	}

	response, err := client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != expectedStatus {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 1024))
		return fmt.Errorf("unexpected status %d (expected %d): %s", response.StatusCode, expectedStatus, string(body))
	}
	_, _ = io.Copy(io.Discard, response.Body)
	return nil
}

func getJSON(client *http.Client, url string, expectedStatus int) error {
	request, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != expectedStatus {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 1024))
		return fmt.Errorf("unexpected status %d (expected %d): %s", response.StatusCode, expectedStatus, string(body))
	}
	_, _ = io.Copy(io.Discard, response.Body)
	return nil
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if p <= 0 {
		return round2(values[0])
	}
	if p >= 1 {
		return round2(values[len(values)-1])
	}
	rank := int(math.Ceil(float64(len(values))*p)) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(values) {
		rank = len(values) - 1
	}
	return round2(values[rank])
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
