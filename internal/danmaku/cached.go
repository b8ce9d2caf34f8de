package danmaku

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/rg/danmakubot/internal/cache"
)

// CachedLister serves repeated task list requests from a cache.
type CachedLister struct {
	next  TaskLister
	cache cache.Cache
	ttl   time.Duration
}

func NewCachedLister(next TaskLister, c cache.Cache, ttl time.Duration) *CachedLister {
	return &CachedLister{
		next:  next,
		cache: c,
		ttl:   ttl,
	}
}

func cacheKey(status string) string {
	return "tasks:" + status
}

func (l *CachedLister) ListTasks(ctx context.Context, status string) ([]Task, error) {
	key := cacheKey(status)

	raw, err := l.cache.Get(ctx, key)
	if err == nil {
		var tasks []Task
		if err := json.Unmarshal([]byte(raw), &tasks); err == nil {
			slog.Debug("Task list served from cache", "status", status, "count", len(tasks))
			return tasks, nil
		}
		slog.Warn("Discarding undecodable cache entry", "key", key)
	} else if !errors.Is(err, cache.ErrMiss) {
		slog.Warn("Cache read failed", "key", key, "error", err)
	}

	return l.fetch(ctx, status)
}

// Refresh skips the cached copy and stores the fresh result. A failed
// refresh drops the cached copy so the next list call goes upstream.
func (l *CachedLister) Refresh(ctx context.Context, status string) ([]Task, error) {
	tasks, err := l.fetch(ctx, status)
	if err != nil {
		if derr := l.cache.Delete(ctx, cacheKey(status)); derr != nil {
			slog.Warn("Cache delete failed", "status", status, "error", derr)
		}
		return nil, err
	}
	return tasks, nil
}

func (l *CachedLister) fetch(ctx context.Context, status string) ([]Task, error) {
	tasks, err := l.next.ListTasks(ctx, status)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(tasks)
	if err != nil {
		slog.Warn("Failed to encode tasks for cache", "error", err)
		return tasks, nil
	}
	if err := l.cache.Set(ctx, cacheKey(status), string(data), l.ttl); err != nil {
		slog.Warn("Cache write failed", "status", status, "error", err)
	}
	return tasks, nil
}
