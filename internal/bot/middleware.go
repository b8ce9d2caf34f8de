package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rg/danmakubot/internal/messaging"
)

// RateLimiter is a per-user sliding window limiter.
type RateLimiter struct {
	requests map[int64][]time.Time
	mu       sync.Mutex
	limit    int
	window   time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[int64][]time.Time),
		limit:    limit,
		window:   window,
	}
}

func (rl *RateLimiter) Allow(userID int64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	var validRequests []time.Time
	for _, t := range rl.requests[userID] {
		if t.After(cutoff) {
			validRequests = append(validRequests, t)
		}
	}

	if len(validRequests) >= rl.limit {
		rl.requests[userID] = validRequests
		return false
	}

	rl.requests[userID] = append(validRequests, now)
	return true
}

// Cleanup drops users with no requests in the last two windows.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.window * 2)

	for userID, requests := range rl.requests {
		var validRequests []time.Time
		for _, t := range requests {
			if t.After(cutoff) {
				validRequests = append(validRequests, t)
			}
		}

		if len(validRequests) == 0 {
			delete(rl.requests, userID)
		} else {
			rl.requests[userID] = validRequests
		}
	}
}

type Middleware struct {
	rateLimiter *RateLimiter
}

func NewMiddleware(rateLimit int, window time.Duration) *Middleware {
	return &Middleware{
		rateLimiter: NewRateLimiter(rateLimit, window),
	}
}

func (m *Middleware) RateLimit(handler messaging.MessageHandler) messaging.MessageHandler {
	return func(msg *messaging.IncomingMessage) error {
		if !m.rateLimiter.Allow(msg.From.ID) {
			slog.Warn("Rate limit exceeded", "user_id", msg.From.ID, "chat_id", msg.ChatID)
			return nil
		}
		return handler(msg)
	}
}

func (m *Middleware) RateLimitCallback(handler messaging.CallbackHandler) messaging.CallbackHandler {
	return func(cb *messaging.CallbackQuery) error {
		if !m.rateLimiter.Allow(cb.From.ID) {
			slog.Warn("Rate limit exceeded", "user_id", cb.From.ID, "chat_id", cb.ChatID)
			return nil
		}
		return handler(cb)
	}
}

func (m *Middleware) Logger(handler messaging.MessageHandler) messaging.MessageHandler {
	return func(msg *messaging.IncomingMessage) error {
		start := time.Now()
		err := handler(msg)
		logResult("message", msg.ChatID, msg.From.ID, time.Since(start), err)
		return err
	}
}

func (m *Middleware) LoggerCallback(handler messaging.CallbackHandler) messaging.CallbackHandler {
	return func(cb *messaging.CallbackQuery) error {
		start := time.Now()
		err := handler(cb)
		logResult("callback", cb.ChatID, cb.From.ID, time.Since(start), err)
		return err
	}
}

func logResult(kind string, chatID, userID int64, duration time.Duration, err error) {
	if err != nil {
		slog.Error("Update failed", "kind", kind, "chat_id", chatID, "user_id", userID, "duration", duration, "error", err)
		return
	}
	slog.Debug("Update handled", "kind", kind, "chat_id", chatID, "user_id", userID, "duration", duration)
}

// Wrap applies rate limiting and logging to both handlers.
func (m *Middleware) Wrap(h messaging.Handlers) messaging.Handlers {
	wrapped := messaging.Handlers{}
	if h.OnMessage != nil {
		wrapped.OnMessage = m.Logger(m.RateLimit(h.OnMessage))
	}
	if h.OnCallback != nil {
		wrapped.OnCallback = m.LoggerCallback(m.RateLimitCallback(h.OnCallback))
	}
	return wrapped
}

// StartCleanupWorker prunes the limiter every interval until ctx is done.
func (m *Middleware) StartCleanupWorker(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.rateLimiter.Cleanup()
			}
		}
	}()
}
