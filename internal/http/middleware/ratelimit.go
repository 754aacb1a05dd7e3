package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterPool hands out one token bucket per client IP and drops buckets
// that have been idle long enough to be irrelevant.
type limiterPool struct {
	mu       sync.Mutex
	buckets  map[string]*clientBucket
	rps      rate.Limit
	burst    int
	idleTTL  time.Duration
	lastSeen func() time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterPool(rps float64, burst int) *limiterPool {
	pool := &limiterPool{
		buckets:  make(map[string]*clientBucket),
		rps:      rate.Limit(rps),
		burst:    burst,
		idleTTL:  3 * time.Minute,
		lastSeen: time.Now,
	}
	go pool.reap()
	return pool
}

func (p *limiterPool) get(ip string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	bucket, ok := p.buckets[ip]
	if !ok {
		bucket = &clientBucket{limiter: rate.NewLimiter(p.rps, p.burst)}
		p.buckets[ip] = bucket
	}
	bucket.lastSeen = p.lastSeen()
	return bucket.limiter
}

func (p *limiterPool) reap() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		p.mu.Lock()
		for ip, bucket := range p.buckets {
			if p.lastSeen().Sub(bucket.lastSeen) > p.idleTTL {
				delete(p.buckets, ip)
			}
		}
		p.mu.Unlock()
	}
}

// RateLimit applies a per-IP token bucket across the whole API surface.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	if rps <= 0 {
		rps = 20
	}
	if burst <= 0 {
		burst = 40
	}
	pool := newLimiterPool(rps, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !pool.get(clientIP(r.RemoteAddr)).Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":{"code":"rate_limited","message":"too many requests"},"request_id":"` + GetRequestID(r.Context()) + `"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil || host == "" {
		return remoteAddr
	}
	return host
}
