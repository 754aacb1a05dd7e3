package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/renata/social-console-back/internal/ai"
	"github.com/renata/social-console-back/internal/cache"
	"github.com/renata/social-console-back/internal/clips"
	"github.com/renata/social-console-back/internal/config"
	"github.com/renata/social-console-back/internal/dispatch"
	httpserver "github.com/renata/social-console-back/internal/http"
	"github.com/renata/social-console-back/internal/http/handlers"
	"github.com/renata/social-console-back/internal/media"
	"github.com/renata/social-console-back/internal/queue"
	"github.com/renata/social-console-back/internal/remote"
	"github.com/renata/social-console-back/internal/repository"
	"github.com/renata/social-console-back/internal/service"
	"github.com/renata/social-console-back/internal/worker"
)

func main() {
	logger := log.New(os.Stdout, "[console-back] ", log.LstdFlags|log.LUTC|log.Lmicroseconds)
	if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		logger.Printf("failed loading .env files: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, repoCloser := setupRepository(ctx, cfg, logger)
	defer repoCloser()

	producer, consumer, queueCloser := setupQueue(ctx, cfg, logger)
	defer queueCloser()

	generationClient := remote.NewClient(remote.ClientConfig{
		BaseURL:     cfg.GenerationBaseURL,
		Credentials: remote.StaticCredential(cfg.GenerationToken),
		Timeout:     time.Duration(cfg.GenerationTimeoutMS) * time.Millisecond,
	})
	generator := ai.NewHTTPGenerator(ai.HTTPGeneratorConfig{
		Client: generationClient,
		Router: ai.NewEndpointRouter(ai.EndpointRouterConfig{
			MaxRetries: cfg.GenerationRetries,
		}),
	})
	resultCache := cache.NewResultCache(cache.Config{
		TTL:        time.Duration(cfg.ResultCacheTTLSeconds) * time.Second,
		MaxEntries: cfg.ResultCacheMaxEntries,
	})
	generation := service.NewGenerationService(service.GenerationDependencies{
		Generator:    generator,
		Cache:        resultCache,
		SourceBudget: cfg.SourceBudgetChars,
		Logger:       logger,
	})

	mediaClient := remote.NewClient(remote.ClientConfig{
		BaseURL:     cfg.MediaBaseURL,
		Credentials: remote.StaticCredential(cfg.MediaToken),
		Timeout:     time.Duration(cfg.MediaTimeoutMS) * time.Millisecond,
	})
	normalizer := media.NewNormalizer(media.NewHTTPConverter(mediaClient))

	// When a token-exchange endpoint is configured the publish and brand
	// clients share a session credential instead of fixed tokens.
	publishCredentials := remote.CredentialSource(remote.StaticCredential(cfg.PublishToken))
	brandsCredentials := remote.CredentialSource(remote.StaticCredential(cfg.BrandsToken))
	if cfg.TokenExchangeURL != "" {
		session := remote.NewSession(remote.NewHTTPTokenExchange(remote.HTTPTokenExchangeConfig{
			URL:    cfg.TokenExchangeURL,
			APIKey: cfg.TokenExchangeAPIKey,
		}))
		publishCredentials = session
		brandsCredentials = session
	}

	publishClient := remote.NewClient(remote.ClientConfig{
		BaseURL:     cfg.PublishBaseURL,
		Credentials: publishCredentials,
	})
	publisher := dispatch.NewHTTPPublisher(publishClient)

	brandsClient := remote.NewClient(remote.ClientConfig{
		BaseURL:     cfg.BrandsBaseURL,
		Credentials: brandsCredentials,
	})
	brands := dispatch.NewHTTPBrandDirectory(dispatch.HTTPBrandDirectoryConfig{
		Client:   brandsClient,
		CacheTTL: time.Duration(cfg.BrandsCacheTTLMS) * time.Millisecond,
	})

	publishing := service.NewPublishingService(service.PublishingDependencies{
		Normalizer: normalizer,
		Publisher:  publisher,
		Brands:     brands,
		Repo:       repo,
		Logger:     logger,
	})

	clipsClient := remote.NewClient(remote.ClientConfig{
		BaseURL:     cfg.ClipsBaseURL,
		Credentials: remote.StaticCredential(cfg.ClipsToken),
	})
	clipService := clips.NewHTTPService(clips.HTTPServiceConfig{
		Client:        clipsClient,
		StatusTimeout: time.Duration(cfg.ClipsStatusTimeoutMS) * time.Millisecond,
	})
	poller := clips.NewPoller(clipService, clips.PollerConfig{
		BaseDelay:    time.Duration(cfg.ClipsPollBaseMS) * time.Millisecond,
		GrowthFactor: cfg.ClipsPollGrowth,
		MaxDelay:     time.Duration(cfg.ClipsPollMaxMS) * time.Millisecond,
		MaxAttempts:  cfg.ClipsPollMaxAttempts,
		Logger:       logger,
	})
	clipsService := service.NewClipsService(ctx, poller, logger)

	api := handlers.NewAPI(generation, publishing, clipsService)

	handler := httpserver.NewRouter(httpserver.RouterDependencies{
		API:            api,
		Logger:         logger,
		AuthToken:      cfg.AuthToken,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	if cfg.WorkerEnabled {
		processor := worker.NewProcessor(consumer, repo, publisher, logger)
		go processor.Start(ctx)

		scanner := worker.NewScanner(repo, producer, worker.ScannerConfig{
			Interval:  time.Duration(cfg.ScanIntervalMS) * time.Millisecond,
			BatchSize: cfg.ScanBatchSize,
		}, logger)
		go scanner.Start(ctx)
		logger.Printf("delivery worker and scanner started")
	} else {
		logger.Printf("delivery worker disabled by configuration")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Printf("api listening on :%s", cfg.Port)
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Printf("shutdown signal received")
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server failed: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
}

func setupRepository(
	ctx context.Context,
	cfg config.Config,
	logger *log.Logger,
) (repository.PostsRepository, func()) {
	if cfg.DatabaseURL == "" {
		logger.Printf("DATABASE_URL not configured, using in-memory repository")
		return repository.NewMemoryPostsRepository(), func() {}
	}

	pgRepo, err := repository.NewPostgresPostsRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Printf("failed to initialize postgres repository, fallback to memory: %v", err)
		return repository.NewMemoryPostsRepository(), func() {}
	}
	logger.Printf("postgres repository initialized")
	return pgRepo, func() {
		pgRepo.Close()
	}
}

func setupQueue(
	ctx context.Context,
	cfg config.Config,
	logger *log.Logger,
) (queue.Producer, queue.Consumer, func()) {
	var (
		baseProducer queue.Producer
		consumer     queue.Consumer
		baseCloser   = func() {}
	)

	if cfg.RedisAddr == "" {
		logger.Printf("REDIS_ADDR not configured, using local queue fallback")
		local := queue.NewLocalQueue(cfg.LocalQueueBufSize, cfg.DeliveryRetryMax, logger)
		baseProducer = local
		consumer = local
	} else {
		streams, err := queue.NewStreamsQueue(ctx, queue.StreamsConfig{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			Stream:      cfg.RedisStream,
			DLQStream:   cfg.RedisDLQ,
			Group:       cfg.RedisGroup,
			Consumer:    cfg.RedisConsumer,
			MaxAttempts: cfg.DeliveryRetryMax,
		})
		if err != nil {
			logger.Printf("failed to initialize redis streams queue, fallback to local: %v", err)
			local := queue.NewLocalQueue(cfg.LocalQueueBufSize, cfg.DeliveryRetryMax, logger)
			baseProducer = local
			consumer = local
		} else {
			logger.Printf("redis streams queue initialized")
			baseProducer = streams
			consumer = streams
			baseCloser = func() {
				_ = streams.Close()
			}
		}
	}

	producer := baseProducer
	batchingCloser := func() {}
	if cfg.QueueBatchingEnabled {
		batching := queue.NewBatchingProducer(ctx, baseProducer, queue.BatchingConfig{
			MaxBatchSize:       cfg.QueueBatchSize,
			FlushInterval:      time.Duration(cfg.QueueBatchFlushMS) * time.Millisecond,
			FlushTimeout:       time.Duration(cfg.QueueBatchFlushTimeoutMS) * time.Millisecond,
			QueueCapacity:      cfg.QueueBatchQueueCapacity,
			MaxInFlightBatches: cfg.QueueBatchMaxInFlight,
		})
		producer = batching
		batchingCloser = batching.Close
		logger.Printf(
			"queue batching enabled size=%d flush_ms=%d queue_capacity=%d max_in_flight=%d",
			cfg.QueueBatchSize,
			cfg.QueueBatchFlushMS,
			cfg.QueueBatchQueueCapacity,
			cfg.QueueBatchMaxInFlight,
		)
	}

	return producer, consumer, func() {
		batchingCloser()
		baseCloser()
	}
}
