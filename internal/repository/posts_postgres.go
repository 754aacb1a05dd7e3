package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/renata/social-console-back/internal/domain"
)

type PostgresPostsRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresPostsRepository(ctx context.Context, databaseURL string) (*PostgresPostsRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pg: %w", err)
	}
	return &PostgresPostsRepository{pool: pool}, nil
}

func (r *PostgresPostsRepository) Close() {
	r.pool.Close()
}

func (r *PostgresPostsRepository) CreateScheduledPost(ctx context.Context, post *domain.ScheduledPost) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO scheduled_posts (
			id,
			platform,
			brand_name,
			text_content,
			media_urls,
			deliver_year,
			deliver_month,
			deliver_day,
			deliver_hour,
			deliver_minute,
			deliver_at,
			status,
			error_message,
			attempts,
			created_at,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`,
		post.ID,
		string(post.Platform),
		post.BrandName,
		post.Text,
		post.MediaURLs,
		post.DeliverAt.Year,
		post.DeliverAt.Month,
		post.DeliverAt.Day,
		post.DeliverAt.Hour,
		post.DeliverAt.Minute,
		post.DeliverAt.Time(),
		string(post.Status),
		post.ErrorMessage,
		post.Attempts,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert scheduled post: %w", err)
	}
	return nil
}

func (r *PostgresPostsRepository) UpdateScheduledPost(ctx context.Context, post *domain.ScheduledPost) error {
	command, err := r.pool.Exec(ctx, `
		UPDATE scheduled_posts
		SET status = $2,
			error_message = $3,
			attempts = $4,
			updated_at = $5
		WHERE id = $1
	`, post.ID, string(post.Status), post.ErrorMessage, post.Attempts, post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update scheduled post: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresPostsRepository) GetScheduledPost(ctx context.Context, postID string) (*domain.ScheduledPost, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, platform, brand_name, text_content, media_urls,
			deliver_year, deliver_month, deliver_day, deliver_hour, deliver_minute,
			status, error_message, attempts, created_at, updated_at
		FROM scheduled_posts
		WHERE id = $1
	`, postID)

	post, err := scanScheduledPost(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select scheduled post: %w", err)
	}
	return post, nil
}

func (r *PostgresPostsRepository) ListDuePosts(
	ctx context.Context,
	before time.Time,
	limit int,
) ([]*domain.ScheduledPost, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, platform, brand_name, text_content, media_urls,
			deliver_year, deliver_month, deliver_day, deliver_hour, deliver_minute,
			status, error_message, attempts, created_at, updated_at
		FROM scheduled_posts
		WHERE status = $1 AND deliver_at <= $2
		ORDER BY deliver_at ASC
		LIMIT $3
	`, string(domain.ScheduledPostPending), before, limit)
	if err != nil {
		return nil, fmt.Errorf("select due posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*domain.ScheduledPost, 0)
	for rows.Next() {
		post, scanErr := scanScheduledPost(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan due post: %w", scanErr)
		}
		posts = append(posts, post)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate due posts: %w", rows.Err())
	}
	return posts, nil
}

func (r *PostgresPostsRepository) CreateCalendarEntry(ctx context.Context, entry *domain.CalendarEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO calendar_entries (
			id,
			post_id,
			platform,
			brand_name,
			title,
			deliver_year,
			deliver_month,
			deliver_day,
			deliver_hour,
			deliver_minute,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		entry.ID,
		entry.PostID,
		string(entry.Platform),
		entry.BrandName,
		entry.Title,
		entry.DeliverAt.Year,
		entry.DeliverAt.Month,
		entry.DeliverAt.Day,
		entry.DeliverAt.Hour,
		entry.DeliverAt.Minute,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert calendar entry: %w", err)
	}
	return nil
}

func (r *PostgresPostsRepository) ListCalendarEntries(
	ctx context.Context,
	year, month int,
) ([]domain.CalendarEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, post_id, platform, brand_name, title,
			deliver_year, deliver_month, deliver_day, deliver_hour, deliver_minute,
			created_at
		FROM calendar_entries
		WHERE deliver_year = $1 AND deliver_month = $2
		ORDER BY deliver_day, deliver_hour, deliver_minute
	`, year, month)
	if err != nil {
		return nil, fmt.Errorf("select calendar entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.CalendarEntry, 0)
	for rows.Next() {
		var (
			entry    domain.CalendarEntry
			platform string
		)
		if scanErr := rows.Scan(
			&entry.ID,
			&entry.PostID,
			&platform,
			&entry.BrandName,
			&entry.Title,
			&entry.DeliverAt.Year,
			&entry.DeliverAt.Month,
			&entry.DeliverAt.Day,
			&entry.DeliverAt.Hour,
			&entry.DeliverAt.Minute,
			&entry.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("scan calendar entry: %w", scanErr)
		}
		entry.Platform = domain.Platform(platform)
		entries = append(entries, entry)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate calendar entries: %w", rows.Err())
	}
	return entries, nil
}

func scanScheduledPost(row pgx.Row) (*domain.ScheduledPost, error) {
	var (
		post     domain.ScheduledPost
		platform string
		status   string
	)
	if err := row.Scan(
		&post.ID,
		&platform,
		&post.BrandName,
		&post.Text,
		&post.MediaURLs,
		&post.DeliverAt.Year,
		&post.DeliverAt.Month,
		&post.DeliverAt.Day,
		&post.DeliverAt.Hour,
		&post.DeliverAt.Minute,
		&status,
		&post.ErrorMessage,
		&post.Attempts,
		&post.CreatedAt,
		&post.UpdatedAt,
	); err != nil {
		return nil, err
	}
	post.Platform = domain.Platform(platform)
	post.Status = domain.ScheduledPostStatus(status)
	return &post, nil
}
