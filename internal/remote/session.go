package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// CredentialSource yields a valid bearer credential or fails. Callers never
// see refresh timing; acquisition is on demand inside each call.
type CredentialSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticCredential wraps a fixed API token.
type StaticCredential string

func (c StaticCredential) Token(context.Context) (string, error) {
	return string(c), nil
}

// TokenExchange obtains a fresh bearer token from the session collaborator.
type TokenExchange interface {
	Exchange(ctx context.Context) (token string, expiresAt time.Time, err error)
}

// Session caches a bearer token and re-exchanges it shortly before expiry.
// It replaces module-level refresh timers with an explicit accessor.
type Session struct {
	exchange TokenExchange
	leeway   time.Duration

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewSession(exchange TokenExchange) *Session {
	return &Session{
		exchange: exchange,
		leeway:   30 * time.Second,
	}
}

func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().UTC().Before(s.expiresAt.Add(-s.leeway)) {
		return s.token, nil
	}

	token, expiresAt, err := s.exchange.Exchange(ctx)
	if err != nil {
		if s.token != "" && time.Now().UTC().Before(s.expiresAt) {
			// Still valid without leeway; use it rather than failing the call.
			return s.token, nil
		}
		return "", fmt.Errorf("exchange session token: %w", err)
	}

	s.token = token
	s.expiresAt = expiresAt
	return s.token, nil
}

type HTTPTokenExchangeConfig struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
}

// HTTPTokenExchange trades a long-lived API key for a short-lived bearer
// token at the session endpoint.
type HTTPTokenExchange struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPTokenExchange(config HTTPTokenExchangeConfig) *HTTPTokenExchange {
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPTokenExchange{
		url:        config.URL,
		apiKey:     config.APIKey,
		httpClient: config.HTTPClient,
	}
}

func (e *HTTPTokenExchange) Exchange(ctx context.Context) (string, time.Time, error) {
	body, err := json.Marshal(map[string]string{"api_key": e.apiKey})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("encode exchange request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build exchange request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := e.httpClient.Do(request)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("call token exchange: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(response.Body, 700))
		return "", time.Time{}, &HTTPError{
			Endpoint:   e.url,
			StatusCode: response.StatusCode,
			Message:    string(raw),
		}
	}

	var payload struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
	}
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return "", time.Time{}, fmt.Errorf("decode exchange response: %w", err)
	}
	if payload.ExpiresIn <= 0 {
		payload.ExpiresIn = 300
	}
	expiresAt := time.Now().UTC().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return payload.Token, expiresAt, nil
}
