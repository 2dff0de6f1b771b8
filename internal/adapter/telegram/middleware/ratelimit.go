package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"

	"llmexec/internal/adapter/telegram"
)

// RateLimiter restricts request frequency per user with a token bucket.
type RateLimiter struct {
	mu    sync.Mutex
	users map[int64]*rate.Limiter
	every time.Duration
	burst int
}

// NewRateLimiter allows one request per interval with the given burst.
func NewRateLimiter(every time.Duration, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{users: make(map[int64]*rate.Limiter), every: every, burst: burst}
}

func (r *RateLimiter) limiter(userID int64) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.users[userID]
	if !ok {
		l = rate.NewLimiter(rate.Every(r.every), r.burst)
		r.users[userID] = l
	}
	return l
}

// Allow returns false if user hits the limit.
func (r *RateLimiter) Allow(userID int64) bool {
	return r.AllowAt(userID, time.Now())
}

// AllowAt is Allow at the given time.
func (r *RateLimiter) AllowAt(userID int64, now time.Time) bool {
	return r.limiter(userID).AllowN(now, 1)
}

// Middleware checks rate limit before calling next handler.
func (r *RateLimiter) Middleware(next telegram.HandlerFunc) telegram.HandlerFunc {
	return func(ctx context.Context, s telegram.Sender, upd *models.Update) {
		if uid := telegram.UserID(upd); uid != 0 && !r.Allow(uid) {
			_ = telegram.Reply(ctx, s, upd, "слишком часто")
			return
		}
		next(ctx, s, upd)
	}
}
