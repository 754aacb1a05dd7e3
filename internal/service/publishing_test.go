package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/renata/social-console-back/internal/dispatch"
	"github.com/renata/social-console-back/internal/domain"
	"github.com/renata/social-console-back/internal/media"
	"github.com/renata/social-console-back/internal/repository"
)

type fakePublisher struct {
	requests []domain.DispatchRequest
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, request domain.DispatchRequest) error {
	f.requests = append(f.requests, request)
	if f.err != nil {
		return &dispatch.Error{Platform: request.Platform, Err: f.err}
	}
	return nil
}

type fakeBrands struct {
	connections map[string][]domain.Platform
	err         error
}

func (f *fakeBrands) Connections(context.Context) (map[string][]domain.Platform, error) {
	return f.connections, f.err
}

type fakeConverter struct {
	calls int
	err   error
}

func (f *fakeConverter) Convert(_ context.Context, kind domain.MediaKind, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn.example.com/" + string(kind) + "/converted", nil
}

// brokenCalendarRepo fails only the calendar mirror write.
type brokenCalendarRepo struct {
	*repository.MemoryPostsRepository
}

func (r *brokenCalendarRepo) CreateCalendarEntry(context.Context, *domain.CalendarEntry) error {
	return errors.New("calendar backend unavailable")
}

func connectedBrands() *fakeBrands {
	return &fakeBrands{connections: map[string][]domain.Platform{
		"Acme": {domain.PlatformTwitter, domain.PlatformInstagram},
	}}
}

func newPublishingService(pub *fakePublisher, brands dispatch.BrandDirectory, repo repository.PostsRepository, conv media.Converter) *PublishingService {
	return NewPublishingService(PublishingDependencies{
		Normalizer: media.NewNormalizer(conv),
		Publisher:  pub,
		Brands:     brands,
		Repo:       repo,
	})
}

func TestPublishWithoutMediaSendsNoURLs(t *testing.T) {
	pub := &fakePublisher{}
	svc := newPublishingService(pub, connectedBrands(), repository.NewMemoryPostsRepository(), &fakeConverter{})

	outcome, err := svc.Publish(context.Background(), PublishInput{
		Platform:  domain.PlatformTwitter,
		BrandName: "Acme",
		Text:      "sem anexos",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.requests) != 1 {
		t.Fatalf("expected 1 dispatch, got %d", len(pub.requests))
	}
	if pub.requests[0].MediaURLs != nil {
		t.Fatalf("expected nil media urls, got %v", pub.requests[0].MediaURLs)
	}
	if len(outcome.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", outcome.Warnings)
	}
}

func TestPublishNormalizesMediaBeforeDispatch(t *testing.T) {
	pub := &fakePublisher{}
	conv := &fakeConverter{}
	svc := newPublishingService(pub, connectedBrands(), repository.NewMemoryPostsRepository(), conv)

	_, err := svc.Publish(context.Background(), PublishInput{
		Platform:  domain.PlatformTwitter,
		BrandName: "Acme",
		Text:      "com anexos",
		Media: []domain.MediaReference{
			{Kind: domain.MediaRefDurable, URL: "https://cdn.example.com/already-durable.png"},
			{Kind: domain.MediaRefLocal, Data: []byte("bytes"), MimeType: "image/png"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conv.calls != 1 {
		t.Fatalf("durable reference must not be converted; got %d conversions", conv.calls)
	}
	got := pub.requests[0].MediaURLs
	if len(got) != 2 || got[0] != "https://cdn.example.com/already-durable.png" {
		t.Fatalf("unexpected media urls: %v", got)
	}
}

func TestPublishProceedsPastFailedAssets(t *testing.T) {
	pub := &fakePublisher{}
	conv := &fakeConverter{err: errors.New("conversion backend down")}
	svc := newPublishingService(pub, connectedBrands(), repository.NewMemoryPostsRepository(), conv)

	outcome, err := svc.Publish(context.Background(), PublishInput{
		Platform:  domain.PlatformTwitter,
		BrandName: "Acme",
		Text:      "texto",
		Media: []domain.MediaReference{
			{Kind: domain.MediaRefDurable, URL: "https://cdn.example.com/ok.png"},
			{Kind: domain.MediaRefLocal, Data: []byte("bytes"), MimeType: "image/png"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outcome.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(outcome.Warnings))
	}
	if outcome.Warnings[0].Index != 1 {
		t.Fatalf("warning should reference asset 1, got %d", outcome.Warnings[0].Index)
	}
	if len(pub.requests) != 1 || len(pub.requests[0].MediaURLs) != 1 {
		t.Fatal("dispatch should proceed with the surviving asset")
	}
}

func TestPublishRequiredMediaAllFailed(t *testing.T) {
	pub := &fakePublisher{}
	conv := &fakeConverter{err: errors.New("conversion backend down")}
	svc := newPublishingService(pub, connectedBrands(), repository.NewMemoryPostsRepository(), conv)

	_, err := svc.Publish(context.Background(), PublishInput{
		Platform:      domain.PlatformTwitter,
		BrandName:     "Acme",
		Text:          "texto",
		MediaRequired: true,
		Media: []domain.MediaReference{
			{Kind: domain.MediaRefLocal, Data: []byte("bytes"), MimeType: "image/png"},
		},
	})
	if !errors.Is(err, ErrNoUsableMedia) {
		t.Fatalf("expected ErrNoUsableMedia, got %v", err)
	}
	if len(pub.requests) != 0 {
		t.Fatal("dispatch must not happen without usable media")
	}
}

func TestPublishRejectsMissingBrandConnection(t *testing.T) {
	pub := &fakePublisher{}
	svc := newPublishingService(pub, connectedBrands(), repository.NewMemoryPostsRepository(), &fakeConverter{})

	_, err := svc.Publish(context.Background(), PublishInput{
		Platform:  domain.PlatformLinkedIn,
		BrandName: "Acme",
		Text:      "texto",
	})
	var dispatchErr *dispatch.Error
	if !errors.As(err, &dispatchErr) {
		t.Fatalf("expected dispatch.Error, got %v", err)
	}
	if dispatchErr.Platform != domain.PlatformLinkedIn {
		t.Fatalf("error should name linkedin, got %s", dispatchErr.Platform)
	}
	if !strings.Contains(err.Error(), "linkedin") {
		t.Fatalf("message should mention the platform: %s", err.Error())
	}
	if len(pub.requests) != 0 {
		t.Fatal("no dispatch expected for a disconnected platform")
	}
}

func TestScheduleWritesRecordAndMirror(t *testing.T) {
	repo := repository.NewMemoryPostsRepository()
	svc := newPublishingService(&fakePublisher{}, connectedBrands(), repo, &fakeConverter{})

	at := time.Now().UTC().Add(48 * time.Hour)
	outcome, err := svc.Schedule(context.Background(), PublishInput{
		Platform:  domain.PlatformInstagram,
		BrandName: "Acme",
		Text:      "post futuro",
	}, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.CalendarWritten {
		t.Fatal("expected the calendar mirror to be written")
	}

	post, err := repo.GetScheduledPost(context.Background(), outcome.PostID)
	if err != nil {
		t.Fatalf("schedule record missing: %v", err)
	}
	if post.Status != domain.ScheduledPostPending {
		t.Fatalf("unexpected status %s", post.Status)
	}
	if post.DeliverAt != domain.ScheduleTimeOf(at) {
		t.Fatalf("deliver time mismatch: %+v", post.DeliverAt)
	}

	entries, err := repo.ListCalendarEntries(context.Background(), at.Year(), int(at.Month()))
	if err != nil {
		t.Fatalf("list calendar: %v", err)
	}
	if len(entries) != 1 || entries[0].PostID != outcome.PostID {
		t.Fatalf("calendar mirror missing: %+v", entries)
	}
}

func TestScheduleKeepsRecordWhenMirrorFails(t *testing.T) {
	repo := &brokenCalendarRepo{MemoryPostsRepository: repository.NewMemoryPostsRepository()}
	svc := newPublishingService(&fakePublisher{}, connectedBrands(), repo, &fakeConverter{})

	at := time.Now().UTC().Add(24 * time.Hour)
	outcome, err := svc.Schedule(context.Background(), PublishInput{
		Platform:  domain.PlatformTwitter,
		BrandName: "Acme",
		Text:      "agenda sem calendario",
	}, at)
	if err != nil {
		t.Fatalf("mirror failure must not fail the schedule: %v", err)
	}
	if outcome.CalendarWritten {
		t.Fatal("expected CalendarWritten=false after mirror failure")
	}

	if _, err := repo.GetScheduledPost(context.Background(), outcome.PostID); err != nil {
		t.Fatalf("schedule record must survive the mirror failure: %v", err)
	}
}

func TestScheduleRejectsPastTime(t *testing.T) {
	svc := newPublishingService(&fakePublisher{}, connectedBrands(), repository.NewMemoryPostsRepository(), &fakeConverter{})

	_, err := svc.Schedule(context.Background(), PublishInput{
		Platform:  domain.PlatformTwitter,
		BrandName: "Acme",
		Text:      "atrasado",
	}, time.Now().UTC().Add(-time.Minute))
	if err == nil {
		t.Fatal("expected an error for a past schedule time")
	}
}
