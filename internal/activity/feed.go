// Package activity keeps a short rolling feed of dispatch outcomes so
// clients can show what the scheduler has done recently without querying
// the jobs table.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Entry is one recorded dispatch outcome.
type Entry struct {
	JobID      uuid.UUID `json:"job_id"`
	Platform   string    `json:"platform"`
	Status     string    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Feed records dispatch outcomes and serves the most recent ones, newest
// first. Implementations must be safe for concurrent use.
type Feed interface {
	Record(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

const feedKey = "activity:feed"

// RedisFeed implements Feed on a capped Redis list.
type RedisFeed struct {
	client *redis.Client
	size   int
}

// NewRedisFeed creates a RedisFeed from a Redis URL. size caps how many
// entries the feed retains.
func NewRedisFeed(redisURL string, size int) (*RedisFeed, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisFeed{client: redis.NewClient(opts), size: size}, nil
}

func (f *RedisFeed) Ping(ctx context.Context) error {
	return f.client.Ping(ctx).Err()
}

// Record pushes the entry and trims the list back to the retention cap in
// one pipeline.
func (f *RedisFeed) Record(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode activity entry: %w", err)
	}

	pipe := f.client.TxPipeline()
	pipe.LPush(ctx, feedKey, data)
	pipe.LTrim(ctx, feedKey, 0, int64(f.size-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

func (f *RedisFeed) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > f.size {
		limit = f.size
	}

	raw, err := f.client.LRange(ctx, feedKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read activity: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			// A malformed entry is dropped rather than failing the whole read.
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// MemoryFeed implements Feed with an in-process ring. Used in tests and
// as a fallback when Redis is unavailable.
type MemoryFeed struct {
	mu      sync.Mutex
	entries []Entry
	size    int
}

func NewMemoryFeed(size int) *MemoryFeed {
	return &MemoryFeed{size: size}
}

func (f *MemoryFeed) Record(_ context.Context, entry Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries = append([]Entry{entry}, f.entries...)
	if len(f.entries) > f.size {
		f.entries = f.entries[:f.size]
	}
	return nil
}

func (f *MemoryFeed) Recent(_ context.Context, limit int) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if limit <= 0 || limit > len(f.entries) {
		limit = len(f.entries)
	}
	out := make([]Entry, limit)
	copy(out, f.entries[:limit])
	return out, nil
}

var (
	_ Feed = (*RedisFeed)(nil)
	_ Feed = (*MemoryFeed)(nil)
)
