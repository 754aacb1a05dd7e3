package worker

import (
	"context"
	"log"
	"time"

	"github.com/renata/social-console-back/internal/domain"
	"github.com/renata/social-console-back/internal/queue"
	"github.com/renata/social-console-back/internal/repository"
)

type ScannerConfig struct {
	Interval  time.Duration
	BatchSize int
}

// Scanner periodically moves due scheduled posts onto the delivery queue.
// A post is marked queued before enqueueing so overlapping scans never
// produce duplicate deliveries.
type Scanner struct {
	repo      repository.PostsRepository
	producer  queue.Producer
	interval  time.Duration
	batchSize int
	logger    *log.Logger
}

func NewScanner(repo repository.PostsRepository, producer queue.Producer, cfg ScannerConfig, logger *log.Logger) *Scanner {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Scanner{
		repo:      repo,
		producer:  producer,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		logger:    logger,
	}
}

func (s *Scanner) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// One pass at startup picks up posts that became due while down.
	s.scanOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scanOnce(ctx)
		}
	}
}

func (s *Scanner) scanOnce(ctx context.Context) {
	due, err := s.repo.ListDuePosts(ctx, time.Now().UTC(), s.batchSize)
	if err != nil {
		if s.logger != nil {
			s.logger.Printf("scan due posts failed: %v", err)
		}
		return
	}

	for _, post := range due {
		post.Status = domain.ScheduledPostQueued
		post.UpdatedAt = time.Now().UTC()
		if err := s.repo.UpdateScheduledPost(ctx, post); err != nil {
			if s.logger != nil {
				s.logger.Printf("mark post queued failed post_id=%s err=%v", post.ID, err)
			}
			continue
		}

		message := domain.DeliveryMessage{
			PostID:      post.ID,
			Platform:    post.Platform,
			BrandName:   post.BrandName,
			Text:        post.Text,
			MediaURLs:   post.MediaURLs,
			RequestedAt: time.Now().UTC(),
		}
		if err := s.producer.Enqueue(ctx, message); err != nil {
			// Put the post back so the next scan retries it.
			post.Status = domain.ScheduledPostPending
			post.UpdatedAt = time.Now().UTC()
			_ = s.repo.UpdateScheduledPost(ctx, post)
			if s.logger != nil {
				s.logger.Printf("enqueue delivery failed post_id=%s err=%v", post.ID, err)
			}
		}
	}
}
