package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/renata/social-console-back/internal/dispatch"
	"github.com/renata/social-console-back/internal/domain"
	"github.com/renata/social-console-back/internal/media"
	"github.com/renata/social-console-back/internal/repository"
)

var (
	ErrNoUsableMedia = errors.New("all attached media failed normalization")
	ErrPastSchedule  = errors.New("scheduled time must be in the future")
)

type PublishingDependencies struct {
	Normalizer *media.Normalizer
	Publisher  dispatch.Publisher
	Brands     dispatch.BrandDirectory
	Repo       repository.PostsRepository
	Logger     *log.Logger
}

// PublishingService is the dispatch coordinator: it resolves ephemeral media
// references into durable URLs, checks the brand/platform connection, and
// either dispatches immediately or persists a future delivery.
type PublishingService struct {
	normalizer *media.Normalizer
	publisher  dispatch.Publisher
	brands     dispatch.BrandDirectory
	repo       repository.PostsRepository
	logger     *log.Logger
}

func NewPublishingService(deps PublishingDependencies) *PublishingService {
	return &PublishingService{
		normalizer: deps.Normalizer,
		publisher:  deps.Publisher,
		brands:     deps.Brands,
		repo:       deps.Repo,
		logger:     deps.Logger,
	}
}

type PublishInput struct {
	Platform      domain.Platform
	BrandName     string
	Text          string
	Media         []domain.MediaReference
	MediaRequired bool
}

// MediaWarning reports one asset that failed normalization. Warnings are
// non-fatal: dispatch proceeds with the surviving assets.
type MediaWarning struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

type PublishOutcome struct {
	MediaURLs []string
	Warnings  []MediaWarning
}

type ScheduleOutcome struct {
	PostID          string
	DeliverAt       domain.ScheduleTime
	MediaURLs       []string
	Warnings        []MediaWarning
	CalendarWritten bool
}

// Publish finalizes and dispatches one request immediately.
func (s *PublishingService) Publish(ctx context.Context, input PublishInput) (PublishOutcome, error) {
	if err := s.checkBrandConnection(ctx, input.BrandName, input.Platform); err != nil {
		return PublishOutcome{}, err
	}

	urls, warnings, err := s.normalizeMedia(ctx, input)
	if err != nil {
		return PublishOutcome{Warnings: warnings}, err
	}

	request := domain.DispatchRequest{
		Platform:  input.Platform,
		BrandName: strings.TrimSpace(input.BrandName),
		Text:      input.Text,
		MediaURLs: urls,
		Mode:      domain.DispatchPublishNow,
	}
	if err := s.publisher.Publish(ctx, request); err != nil {
		return PublishOutcome{Warnings: warnings}, err
	}
	return PublishOutcome{MediaURLs: urls, Warnings: warnings}, nil
}

// Schedule persists the delivery request plus its calendar mirror. The
// scheduling record is the source of truth: a failed calendar write is
// logged and surfaced as CalendarWritten=false, never rolled back.
func (s *PublishingService) Schedule(ctx context.Context, input PublishInput, at time.Time) (ScheduleOutcome, error) {
	if err := s.checkBrandConnection(ctx, input.BrandName, input.Platform); err != nil {
		return ScheduleOutcome{}, err
	}
	if !at.After(time.Now().UTC()) {
		return ScheduleOutcome{}, ErrPastSchedule
	}

	urls, warnings, err := s.normalizeMedia(ctx, input)
	if err != nil {
		return ScheduleOutcome{Warnings: warnings}, err
	}

	now := time.Now().UTC()
	post := &domain.ScheduledPost{
		ID:        uuid.NewString(),
		Platform:  input.Platform,
		BrandName: strings.TrimSpace(input.BrandName),
		Text:      input.Text,
		MediaURLs: urls,
		DeliverAt: domain.ScheduleTimeOf(at),
		Status:    domain.ScheduledPostPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateScheduledPost(ctx, post); err != nil {
		return ScheduleOutcome{Warnings: warnings}, fmt.Errorf("persist schedule record: %w", err)
	}

	outcome := ScheduleOutcome{
		PostID:    post.ID,
		DeliverAt: post.DeliverAt,
		MediaURLs: urls,
		Warnings:  warnings,
	}

	entry := &domain.CalendarEntry{
		ID:        uuid.NewString(),
		PostID:    post.ID,
		Platform:  post.Platform,
		BrandName: post.BrandName,
		Title:     calendarTitle(post.Text),
		DeliverAt: post.DeliverAt,
		CreatedAt: now,
	}
	if err := s.repo.CreateCalendarEntry(ctx, entry); err != nil {
		s.logf("calendar mirror write failed post_id=%s err=%v", post.ID, err)
		return outcome, nil
	}
	outcome.CalendarWritten = true
	return outcome, nil
}

func (s *PublishingService) Calendar(ctx context.Context, year, month int) ([]domain.CalendarEntry, error) {
	return s.repo.ListCalendarEntries(ctx, year, month)
}

func (s *PublishingService) BrandConnections(ctx context.Context) (map[string][]domain.Platform, error) {
	return s.brands.Connections(ctx)
}

func (s *PublishingService) checkBrandConnection(
	ctx context.Context,
	brandName string,
	platform domain.Platform,
) error {
	connections, err := s.brands.Connections(ctx)
	if err != nil {
		return fmt.Errorf("verify brand connections: %w", err)
	}
	if !dispatch.BrandHasPlatform(connections, brandName, platform) {
		return &dispatch.Error{
			Platform: platform,
			Err:      fmt.Errorf("brand %q has no %s connection", strings.TrimSpace(brandName), platform),
		}
	}
	return nil
}

func (s *PublishingService) normalizeMedia(
	ctx context.Context,
	input PublishInput,
) ([]string, []MediaWarning, error) {
	if len(input.Media) == 0 {
		return nil, nil, nil
	}

	outcomes := s.normalizer.NormalizeAll(ctx, input.Media)
	urls := make([]string, 0, len(outcomes))
	warnings := make([]MediaWarning, 0)
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			s.logf("media normalization failed index=%d err=%v", outcome.Index, outcome.Err)
			warnings = append(warnings, MediaWarning{Index: outcome.Index, Message: outcome.Err.Error()})
			continue
		}
		urls = append(urls, outcome.URL)
	}

	if len(urls) == 0 && input.MediaRequired {
		return nil, warnings, ErrNoUsableMedia
	}
	return urls, warnings, nil
}

func calendarTitle(text string) string {
	title := strings.Join(strings.Fields(text), " ")
	if len(title) > 80 {
		title = strings.TrimSpace(title[:80])
	}
	if title == "" {
		title = "Post agendado"
	}
	return title
}

func (s *PublishingService) logf(format string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Printf(format, args...)
}
