package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/asocialdev/asocial/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Users ---

func (s *PostgresStore) GetDefaultUser(ctx context.Context) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, created_at FROM users WHERE username = 'default' LIMIT 1`,
	).Scan(&u.ID, &u.Username, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get default user: %w", err)
	}
	return &u, nil
}

// --- Posts ---

func (s *PostgresStore) CreatePost(ctx context.Context, post *models.Post) error {
	media := post.MediaPaths
	if media == nil {
		media = []string{}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO posts (id, user_id, content, status, media_paths, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		post.ID, post.UserID, post.Content, post.Status, media, post.CreatedAt, post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var p models.Post
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, content, status, media_paths, created_at, updated_at
		 FROM posts WHERE id = $1`, id,
	).Scan(&p.ID, &p.UserID, &p.Content, &p.Status, &p.MediaPaths, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) ListPosts(ctx context.Context, userID uuid.UUID) ([]*models.Post, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, content, status, media_paths, created_at, updated_at
		 FROM posts WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.UserID, &p.Content, &p.Status, &p.MediaPaths,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, &p)
	}
	return posts, rows.Err()
}

// --- Platforms ---

func (s *PostgresStore) UpsertPlatform(ctx context.Context, platform *models.Platform) (*models.Platform, error) {
	var result models.Platform
	err := s.pool.QueryRow(ctx,
		`INSERT INTO platforms (id, user_id, name, credentials, api_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id, name) DO UPDATE SET
		   credentials = EXCLUDED.credentials,
		   api_url = EXCLUDED.api_url,
		   updated_at = NOW()
		 RETURNING id, user_id, name, credentials, api_url, created_at, updated_at`,
		platform.ID, platform.UserID, platform.Name, platform.Credentials,
		platform.APIURL, platform.CreatedAt, platform.UpdatedAt,
	).Scan(&result.ID, &result.UserID, &result.Name, &result.Credentials,
		&result.APIURL, &result.CreatedAt, &result.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert platform: %w", err)
	}
	return &result, nil
}

func (s *PostgresStore) GetPlatform(ctx context.Context, userID uuid.UUID, name string) (*models.Platform, error) {
	var p models.Platform
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, name, credentials, api_url, created_at, updated_at
		 FROM platforms WHERE user_id = $1 AND name = $2`, userID, name,
	).Scan(&p.ID, &p.UserID, &p.Name, &p.Credentials, &p.APIURL, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get platform: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) ListPlatforms(ctx context.Context, userID uuid.UUID) ([]*models.Platform, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, credentials, api_url, created_at, updated_at
		 FROM platforms WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}
	defer rows.Close()

	var platforms []*models.Platform
	for rows.Next() {
		var p models.Platform
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Credentials, &p.APIURL,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan platform: %w", err)
		}
		platforms = append(platforms, &p)
	}
	return platforms, rows.Err()
}

// --- Jobs ---

const jobColumns = `id, post_id, platform_id, status, scheduled_for, attempt_count, last_error, created_at, processed_at`

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	err := row.Scan(&j.ID, &j.PostID, &j.PlatformID, &j.Status, &j.ScheduledFor,
		&j.AttemptCount, &j.LastError, &j.CreatedAt, &j.ProcessedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *PostgresStore) SchedulePost(ctx context.Context, postID uuid.UUID, scheduledFor time.Time, platformIDs []uuid.UUID) ([]*models.Job, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin schedule: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM posts WHERE id = $1 FOR UPDATE`, postID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock post: %w", err)
	}
	if status != models.PostStatusDraft {
		return nil, ErrNotDraft
	}

	if _, err := tx.Exec(ctx,
		`UPDATE posts SET status = $1, updated_at = NOW() WHERE id = $2`,
		models.PostStatusScheduled, postID); err != nil {
		return nil, fmt.Errorf("mark post scheduled: %w", err)
	}

	jobs := make([]*models.Job, 0, len(platformIDs))
	for _, platformID := range platformIDs {
		job, err := scanJob(tx.QueryRow(ctx,
			`INSERT INTO jobs (id, post_id, platform_id, status, scheduled_for, created_at)
			 VALUES ($1, $2, $3, $4, $5, NOW())
			 RETURNING `+jobColumns,
			uuid.New(), postID, platformID, models.JobStatusPending, scheduledFor))
		if err != nil {
			return nil, fmt.Errorf("insert job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit schedule: %w", err)
	}
	return jobs, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	job, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.PostID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("post_id = $%d", argIdx))
		args = append(args, filter.PostID)
		argIdx++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	args = append(args, limit)

	query := fmt.Sprintf(
		`SELECT `+jobColumns+` FROM jobs WHERE %s ORDER BY scheduled_for DESC LIMIT $%d`,
		strings.Join(conditions, " AND "), argIdx)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ClaimNextJob atomically selects and locks the next eligible job, skipping
// rows already locked by concurrent claimants. The row lock held by the
// inner SELECT lives only for this statement; exclusivity afterwards comes
// from the processing status, which only the outcome calls clear.
func (s *PostgresStore) ClaimNextJob(ctx context.Context) (*models.Job, error) {
	job, err := scanJob(s.pool.QueryRow(ctx,
		`UPDATE jobs
		 SET status = $1,
		     attempt_count = attempt_count + 1,
		     processed_at = NOW()
		 WHERE id = (
		     SELECT id
		     FROM jobs
		     WHERE status = $2
		       AND scheduled_for <= NOW()
		     ORDER BY scheduled_for ASC
		     FOR UPDATE SKIP LOCKED
		     LIMIT 1
		 )
		 RETURNING `+jobColumns,
		models.JobStatusProcessing, models.JobStatusPending))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

func (s *PostgresStore) GetJobPayload(ctx context.Context, jobID uuid.UUID) (*models.JobPayload, error) {
	var p models.JobPayload
	err := s.pool.QueryRow(ctx,
		`SELECT j.id AS job_id,
		        p.content,
		        pl.name AS platform_name,
		        pl.credentials,
		        pl.api_url,
		        p.media_paths
		 FROM jobs j
		 JOIN posts p ON j.post_id = p.id
		 JOIN platforms pl ON j.platform_id = pl.id
		 WHERE j.id = $1`, jobID,
	).Scan(&p.JobID, &p.Content, &p.PlatformName, &p.Credentials, &p.APIURL, &p.MediaPaths)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job payload: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) MarkJobDelivered(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, last_error = NULL
		 WHERE id = $2 AND status = $3`,
		models.JobStatusDone, id, models.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("mark job delivered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) MarkJobFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, last_error = $2
		 WHERE id = $3 AND status = $4`,
		models.JobStatusFailed, lastError, id, models.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RequeueJob returns a held job to pending so a later poll retries it.
// attempt_count keeps its value; the next claim increments it again.
func (s *PostgresStore) RequeueJob(ctx context.Context, id uuid.UUID, lastError string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, last_error = $2
		 WHERE id = $3 AND status = $4`,
		models.JobStatusPending, lastError, id, models.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("requeue job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
