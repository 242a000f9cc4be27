package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"matching-backend/internal/services"
)

type fakeValidator map[string]int64

func (f fakeValidator) ValidateJWT(token string) (*services.Claims, error) {
	id, ok := f[token]
	if !ok {
		return nil, services.ErrUnauthorized
	}
	return &services.Claims{UserID: id}, nil
}

type fakeAdmins map[int64]bool

func (f fakeAdmins) IsAdmin(_ context.Context, userID int64) (bool, error) {
	isAdmin, ok := f[userID]
	if !ok {
		return false, errors.New("no such user")
	}
	return isAdmin, nil
}

func echoUserID(w http.ResponseWriter, r *http.Request) {
	if GetUserID(r.Context()) == 0 {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func TestAuthMiddleware(t *testing.T) {
	handler := AuthMiddleware(fakeValidator{"good": 7})(http.HandlerFunc(echoUserID))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"extra parts", "Bearer good extra", http.StatusUnauthorized},
		{"unknown token", "Bearer bad", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAdminMiddleware(t *testing.T) {
	handler := AdminMiddleware(fakeAdmins{1: true, 2: false})(http.HandlerFunc(echoUserID))

	tests := []struct {
		name   string
		userID int64
		want   int
	}{
		{"anonymous", 0, http.StatusUnauthorized},
		{"admin", 1, http.StatusOK},
		{"regular user", 2, http.StatusForbidden},
		{"lookup failure", 3, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.userID != 0 {
				req = req.WithContext(WithUserID(req.Context(), tt.userID))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRateLimitByIP(t *testing.T) {
	rl := NewIPRateLimiter(1, 3, time.Minute)
	defer rl.Stop()

	handler := RateLimitByIP(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(remoteAddr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 3; i++ {
		if code := do("10.0.0.1:1234"); code != http.StatusOK {
			t.Fatalf("request %d = %d, want 200", i, code)
		}
	}
	if code := do("10.0.0.1:5678"); code != http.StatusTooManyRequests {
		t.Fatalf("over burst = %d, want 429", code)
	}
	if code := do("10.0.0.2:1234"); code != http.StatusOK {
		t.Fatalf("other ip = %d, want 200", code)
	}
}

func TestRequestLoggerKeepsStatus(t *testing.T) {
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestTrustedRealIP(t *testing.T) {
	var seen string
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = clientIP(r)
	})

	tests := []struct {
		name    string
		trusted []string
		peer    string
		xff     string
		realIP  string
		want    string
	}{
		{"no trusted proxies", nil, "198.51.100.7:5000", "203.0.113.1", "", "198.51.100.7"},
		{"untrusted peer", []string{"10.0.0.0/8"}, "198.51.100.7:5000", "203.0.113.1", "203.0.113.2", "198.51.100.7"},
		{"trusted peer", []string{"10.0.0.0/8"}, "10.1.2.3:5000", "203.0.113.1", "", "203.0.113.1"},
		{"spoofed prefix in chain", []string{"10.0.0.0/8"}, "10.1.2.3:5000", "1.2.3.4, 203.0.113.1, 10.9.9.9", "", "203.0.113.1"},
		{"single trusted ip", []string{"127.0.0.1"}, "127.0.0.1:5000", "", "203.0.113.5", "203.0.113.5"},
		{"garbage header", []string{"10.0.0.0/8"}, "10.1.2.3:5000", "not-an-ip", "", "10.1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.peer
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			TrustedRealIP(tt.trusted)(capture).ServeHTTP(httptest.NewRecorder(), req)
			if seen != tt.want {
				t.Fatalf("client ip = %q, want %q", seen, tt.want)
			}
		})
	}
}

func TestRateLimitBehindTrustedRealIP(t *testing.T) {
	rl := NewIPRateLimiter(1, 1, time.Minute)
	defer rl.Stop()

	handler := TrustedRealIP(nil)(RateLimitByIP(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	limited := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		req.RemoteAddr = "198.51.100.7:1234"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited != 19 {
		t.Fatalf("limited = %d, want 19", limited)
	}
}
