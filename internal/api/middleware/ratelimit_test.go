package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"chat-relay/internal/auth"
	"chat-relay/internal/config"
	"chat-relay/internal/repository/db"
)

func TestNewUserRateLimiter_Disabled(t *testing.T) {
	if l := NewUserRateLimiter(config.RateLimitConfig{ChatPerMinute: 0, Burst: 5}); l != nil {
		t.Fatalf("NewUserRateLimiter() = %v, want nil when disabled", l)
	}

	var l *UserRateLimiter
	called := 0
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called++ }))
	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/chat", nil))
	}
	if called != 3 {
		t.Errorf("handler called %d times, want 3", called)
	}
}

func TestUserRateLimiter_PerUserBuckets(t *testing.T) {
	l := NewUserRateLimiter(config.RateLimitConfig{ChatPerMinute: 1, Burst: 2})

	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	serve := func(username string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		req = req.WithContext(auth.WithUser(req.Context(), &db.User{Username: username, Role: db.RoleUser}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := serve("bob"); code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200 within burst", i, code)
		}
	}
	if code := serve("bob"); code != http.StatusTooManyRequests {
		t.Errorf("over burst status = %d, want 429", code)
	}
	if code := serve("carol"); code != http.StatusOK {
		t.Errorf("other user status = %d, want 200", code)
	}
}
