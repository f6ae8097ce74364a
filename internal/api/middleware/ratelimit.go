package middleware

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"chat-relay/internal/auth"
	"chat-relay/internal/config"
	"chat-relay/internal/logger"

	"golang.org/x/time/rate"
)

// UserRateLimiter throttles requests per authenticated user with a token
// bucket each. It must run after the auth middleware.
type UserRateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewUserRateLimiter returns nil when cfg disables limiting
func NewUserRateLimiter(cfg config.RateLimitConfig) *UserRateLimiter {
	if cfg.ChatPerMinute <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &UserRateLimiter{
		limit:    rate.Every(time.Minute / time.Duration(cfg.ChatPerMinute)),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *UserRateLimiter) limiter(username string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[username]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[username] = lim
	}
	return lim
}

// Allow reports whether username may make another request now
func (l *UserRateLimiter) Allow(username string) bool {
	return l.limiter(username).Allow()
}

// Middleware answers 429 once a user's bucket is empty. A nil limiter
// passes everything through.
func (l *UserRateLimiter) Middleware(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if ok && !l.Allow(user.Username) {
			logger.Log.WithField("username", user.Username).Warn("Chat rate limit exceeded")
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"error":   "Too many requests",
				"code":    http.StatusTooManyRequests,
				"message": "Too many requests",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
