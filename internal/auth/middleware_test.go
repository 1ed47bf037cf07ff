package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const middlewareSecret = "middleware-test-secret"

func protectedEcho(t *testing.T, gotUserID *string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotUserID = UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	raw, _, err := signAccessToken([]byte(middlewareSecret), "user-42", 15*time.Minute, time.Now().UTC())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	var gotUserID string
	handler := Middleware(middlewareSecret, protectedEcho(t, &gotUserID))

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotUserID != "user-42" {
		t.Errorf("UserID = %q, want user-42", gotUserID)
	}
}

func TestMiddlewareRejectsBadRequests(t *testing.T) {
	expired, _, err := signAccessToken([]byte(middlewareSecret), "user-42", time.Minute, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer not-a-jwt"},
		{"expired token", "Bearer " + expired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUserID string
			handler := Middleware(middlewareSecret, protectedEcho(t, &gotUserID))

			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if gotUserID != "" {
				t.Errorf("handler ran with user id %q", gotUserID)
			}
		})
	}
}

func TestUserIDOutsideMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := UserID(req.Context()); id != "" {
		t.Errorf("UserID = %q, want empty", id)
	}
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiter(1, 3)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	statuses := make([]int, 5)
	for i := range statuses {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		statuses[i] = rec.Code
	}

	for i := 0; i < 3; i++ {
		if statuses[i] != http.StatusOK {
			t.Errorf("request %d status = %d, want 200", i, statuses[i])
		}
	}
	if statuses[3] != http.StatusTooManyRequests || statuses[4] != http.StatusTooManyRequests {
		t.Errorf("requests past burst = %v, want 429s", statuses[3:])
	}
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("10.0.0.1"); code != http.StatusOK {
		t.Fatalf("first client first request = %d", code)
	}
	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("first client second request = %d, want 429", code)
	}
	if code := send("10.0.0.2"); code != http.StatusOK {
		t.Fatalf("second client should have its own bucket, got %d", code)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:5000"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if ip := clientIP(req); ip != "203.0.113.9" {
		t.Errorf("clientIP = %q, want 203.0.113.9", ip)
	}

	req.Header.Del("X-Forwarded-For")
	if ip := clientIP(req); ip != "127.0.0.1:5000" {
		t.Errorf("clientIP = %q, want RemoteAddr", ip)
	}
}
