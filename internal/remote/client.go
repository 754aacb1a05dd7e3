package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPError is returned for any non-2xx response from a collaborator.
type HTTPError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// IsTransient classifies an error as retryable: network/timeout failures,
// 429 and 5xx responses. Everything else is terminal for the caller.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "timeout") || strings.Contains(message, "tempor") ||
		strings.Contains(message, "connection refused") || strings.Contains(message, "connection reset")
}

type ClientConfig struct {
	BaseURL     string
	Credentials CredentialSource
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Client is the shared bearer-authenticated JSON caller used by every
// external collaborator client (generation, media conversion, clip service,
// publish, brand lookup).
type Client struct {
	baseURL     string
	credentials CredentialSource
	timeout     time.Duration
	httpClient  *http.Client
}

func NewClient(config ClientConfig) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	return &Client{
		baseURL:     strings.TrimSuffix(strings.TrimSpace(config.BaseURL), "/"),
		credentials: config.Credentials,
		timeout:     config.Timeout,
		httpClient:  config.HTTPClient,
	}
}

func (c *Client) Available() bool {
	return c.baseURL != ""
}

// PostJSON sends payload to path and decodes the JSON response into result.
// The per-call timeout bounds the whole round trip; result may be nil when
// the caller only cares about success.
func (c *Client) PostJSON(ctx context.Context, path string, payload any, result any) error {
	return c.call(ctx, http.MethodPost, path, payload, result, c.timeout)
}

// PostJSONTimeout is PostJSON with a caller-chosen timeout, used by the clip
// poller whose status calls carry a longer budget than the default.
func (c *Client) PostJSONTimeout(ctx context.Context, path string, payload any, result any, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = c.timeout
	}
	return c.call(ctx, http.MethodPost, path, payload, result, timeout)
}

func (c *Client) GetJSON(ctx context.Context, path string, result any) error {
	return c.call(ctx, http.MethodGet, path, nil, result, c.timeout)
}

func (c *Client) call(ctx context.Context, method, path string, payload, result any, timeout time.Duration) error {
	if !c.Available() {
		return fmt.Errorf("remote client for %s not configured", path)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload for %s: %w", path, err)
		}
		body = bytes.NewReader(encoded)
	}

	httpRequest, err := http.NewRequestWithContext(timeoutCtx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request for %s: %w", path, err)
	}
	httpRequest.Header.Set("Accept", "application/json")
	if payload != nil {
		httpRequest.Header.Set("Content-Type", "application/json")
	}

	if c.credentials != nil {
		token, tokenErr := c.credentials.Token(timeoutCtx)
		if tokenErr != nil {
			return fmt.Errorf("acquire credential for %s: %w", path, tokenErr)
		}
		if token != "" {
			httpRequest.Header.Set("Authorization", "Bearer "+token)
		}
	}

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s timeout: %w", path, context.DeadlineExceeded)
		}
		return fmt.Errorf("%s transport error: %w", path, err)
	}
	defer httpResponse.Body.Close()

	responseBody, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		message := strings.TrimSpace(string(responseBody))
		if len(message) > 700 {
			message = message[:700]
		}
		return &HTTPError{
			Endpoint:   path,
			StatusCode: httpResponse.StatusCode,
			Message:    message,
		}
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(responseBody, result); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
