package httpserver

import (
	"log"
	"net/http"

	"github.com/renata/social-console-back/internal/http/handlers"
	"github.com/renata/social-console-back/internal/http/middleware"
)

type RouterDependencies struct {
	API            *handlers.API
	Logger         *log.Logger
	AuthToken      string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(deps RouterDependencies) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", deps.API.Health)
	mux.HandleFunc("/v1/generate", deps.API.Generate)
	mux.HandleFunc("/v1/publish", deps.API.Publish)
	mux.HandleFunc("/v1/schedule", deps.API.Schedule)
	mux.HandleFunc("/v1/clips", deps.API.SubmitClipJob)
	mux.HandleFunc("/v1/clips/", deps.API.ClipJobStatus)
	mux.HandleFunc("/v1/brands", deps.API.Brands)
	mux.HandleFunc("/v1/calendar", deps.API.Calendar)

	handler := http.Handler(mux)
	handler = middleware.Auth(deps.AuthToken)(handler)
	handler = middleware.RateLimit(deps.RateLimitRPS, deps.RateLimitBurst)(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: deps.CORSOrigins,
	})(handler)
	handler = middleware.Trace(deps.Logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}
