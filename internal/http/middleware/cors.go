package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAgeSeconds  int
}

// corsPolicy is the compiled form of a CORSConfig: list normalization and
// header-value joining happen once, not per request.
type corsPolicy struct {
	origins      []string
	anyOrigin    bool
	methodsValue string
	headersValue string
	maxAgeValue  string
}

func compileCORSPolicy(cfg CORSConfig) corsPolicy {
	policy := corsPolicy{origins: trimList(cfg.AllowedOrigins)}
	for _, origin := range policy.origins {
		if origin == "*" {
			policy.anyOrigin = true
		}
	}

	methods := trimList(cfg.AllowedMethods)
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	}
	headers := trimList(cfg.AllowedHeaders)
	if len(headers) == 0 {
		headers = []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"}
	}
	maxAge := cfg.MaxAgeSeconds
	if maxAge <= 0 {
		maxAge = 600
	}

	policy.methodsValue = strings.Join(methods, ", ")
	policy.headersValue = strings.Join(headers, ", ")
	policy.maxAgeValue = strconv.Itoa(maxAge)
	return policy
}

func (p corsPolicy) allows(origin string) bool {
	if p.anyOrigin {
		return true
	}
	for _, allowed := range p.origins {
		if strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// CORS admits browser requests from the console's configured origins. A
// request from any other origin passes through without CORS headers; the
// browser enforces the denial.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	policy := compileCORSPolicy(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" || !policy.allows(origin) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Add("Vary", "Origin")
			if policy.anyOrigin {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}

			if r.Method == http.MethodOptions {
				w.Header().Add("Vary", "Access-Control-Request-Method")
				w.Header().Add("Vary", "Access-Control-Request-Headers")
				w.Header().Set("Access-Control-Allow-Methods", policy.methodsValue)
				w.Header().Set("Access-Control-Allow-Headers", policy.headersValue)
				w.Header().Set("Access-Control-Max-Age", policy.maxAgeValue)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func trimList(values []string) []string {
	result := make([]string, 0, len(values))
	for _, raw := range values {
		if value := strings.TrimSpace(raw); value != "" {
			result = append(result, value)
		}
	}
	return result
}
