package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/renata/social-console-back/internal/domain"
)

var ErrNotFound = errors.New("resource not found")

// PostsRepository persists scheduling records and their calendar mirror.
// The scheduled post is the source of truth; calendar entries are a display
// cache and may be missing for a post whose mirror write failed.
type PostsRepository interface {
	CreateScheduledPost(ctx context.Context, post *domain.ScheduledPost) error
	UpdateScheduledPost(ctx context.Context, post *domain.ScheduledPost) error
	GetScheduledPost(ctx context.Context, postID string) (*domain.ScheduledPost, error)
	ListDuePosts(ctx context.Context, before time.Time, limit int) ([]*domain.ScheduledPost, error)

	CreateCalendarEntry(ctx context.Context, entry *domain.CalendarEntry) error
	ListCalendarEntries(ctx context.Context, year, month int) ([]domain.CalendarEntry, error)
}

// MemoryPostsRepository stores posts in memory for local development and tests.
type MemoryPostsRepository struct {
	mu      sync.RWMutex
	posts   map[string]*domain.ScheduledPost
	entries map[string]*domain.CalendarEntry
}

func NewMemoryPostsRepository() *MemoryPostsRepository {
	return &MemoryPostsRepository{
		posts:   make(map[string]*domain.ScheduledPost),
		entries: make(map[string]*domain.CalendarEntry),
	}
}

func (r *MemoryPostsRepository) CreateScheduledPost(_ context.Context, post *domain.ScheduledPost) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[post.ID] = clonePost(post)
	return nil
}

func (r *MemoryPostsRepository) UpdateScheduledPost(_ context.Context, post *domain.ScheduledPost) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[post.ID]; !ok {
		return ErrNotFound
	}
	r.posts[post.ID] = clonePost(post)
	return nil
}

func (r *MemoryPostsRepository) GetScheduledPost(_ context.Context, postID string) (*domain.ScheduledPost, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	post, ok := r.posts[postID]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePost(post), nil
}

func (r *MemoryPostsRepository) ListDuePosts(
	_ context.Context,
	before time.Time,
	limit int,
) ([]*domain.ScheduledPost, error) {
	if limit <= 0 {
		limit = 50
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	due := make([]*domain.ScheduledPost, 0)
	for _, post := range r.posts {
		if post.Status != domain.ScheduledPostPending {
			continue
		}
		if post.DeliverAt.Time().After(before) {
			continue
		}
		due = append(due, clonePost(post))
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].DeliverAt.Time().Before(due[j].DeliverAt.Time())
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *MemoryPostsRepository) CreateCalendarEntry(_ context.Context, entry *domain.CalendarEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *entry
	r.entries[entry.ID] = &clone
	return nil
}

func (r *MemoryPostsRepository) ListCalendarEntries(
	_ context.Context,
	year, month int,
) ([]domain.CalendarEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]domain.CalendarEntry, 0)
	for _, entry := range r.entries {
		if entry.DeliverAt.Year != year || entry.DeliverAt.Month != month {
			continue
		}
		entries = append(entries, *entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].DeliverAt.Time().Before(entries[j].DeliverAt.Time())
	})
	return entries, nil
}

func clonePost(post *domain.ScheduledPost) *domain.ScheduledPost {
	if post == nil {
		return nil
	}
	clone := *post
	clone.MediaURLs = append([]string(nil), post.MediaURLs...)
	return &clone
}
