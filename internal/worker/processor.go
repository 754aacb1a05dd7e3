package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/renata/social-console-back/internal/dispatch"
	"github.com/renata/social-console-back/internal/domain"
	"github.com/renata/social-console-back/internal/queue"
	"github.com/renata/social-console-back/internal/repository"
)

// Processor consumes due deliveries and persists status transitions.
type Processor struct {
	consumer  queue.Consumer
	repo      repository.PostsRepository
	publisher dispatch.Publisher
	logger    *log.Logger
}

func NewProcessor(
	consumer queue.Consumer,
	repo repository.PostsRepository,
	publisher dispatch.Publisher,
	logger *log.Logger,
) *Processor {
	return &Processor{
		consumer:  consumer,
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

func (p *Processor) Start(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		err := p.consumer.Consume(ctx, p.processMessage)
		if err == nil || ctx.Err() != nil {
			return
		}
		if p.logger != nil {
			p.logger.Printf("worker consume loop error: %v", err)
		}

		timer := time.NewTimer(2 * time.Second)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (p *Processor) processMessage(ctx context.Context, message domain.DeliveryMessage) error {
	post, err := p.repo.GetScheduledPost(ctx, message.PostID)
	if err != nil {
		return fmt.Errorf("load post %s: %w", message.PostID, err)
	}
	if post.Status == domain.ScheduledPostPosted || post.Status == domain.ScheduledPostCanceled {
		// Already resolved by an earlier delivery or by the user.
		return nil
	}

	post.Attempts = message.Attempt + 1
	post.UpdatedAt = time.Now().UTC()

	request := domain.DispatchRequest{
		Platform:  message.Platform,
		BrandName: message.BrandName,
		Text:      message.Text,
		MediaURLs: message.MediaURLs,
		Mode:      domain.DispatchScheduleAt,
	}
	if publishErr := p.publisher.Publish(ctx, request); publishErr != nil {
		post.Status = domain.ScheduledPostFailed
		post.ErrorMessage = publishErr.Error()
		post.UpdatedAt = time.Now().UTC()
		_ = p.repo.UpdateScheduledPost(ctx, post)
		return publishErr
	}

	post.Status = domain.ScheduledPostPosted
	post.ErrorMessage = ""
	post.UpdatedAt = time.Now().UTC()
	if err := p.repo.UpdateScheduledPost(ctx, post); err != nil {
		return fmt.Errorf("mark posted: %w", err)
	}

	if p.logger != nil {
		p.logger.Printf("scheduled post delivered post_id=%s platform=%s", post.ID, post.Platform)
	}

	return nil
}
