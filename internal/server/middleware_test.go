package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetRealIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{"plain remote addr", "192.0.2.1:1234", nil, false, "192.0.2.1"},
		{"proxy headers ignored", "192.0.2.1:1234", map[string]string{"X-Forwarded-For": "198.51.100.7"}, false, "192.0.2.1"},
		{"xff trusted", "192.0.2.1:1234", map[string]string{"X-Forwarded-For": "198.51.100.7, 10.0.0.1"}, true, "198.51.100.7"},
		{"cf preferred", "192.0.2.1:1234", map[string]string{"CF-Connecting-IP": "203.0.113.9", "X-Forwarded-For": "198.51.100.7"}, true, "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			if got := GetRealIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("GetRealIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAdminAuthMiddleware(t *testing.T) {
	handler := AdminAuthMiddleware("secret", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/servers", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("wrong token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/servers", nil)
		r.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/servers", nil)
		r.Header.Set("Authorization", "Bearer secret")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	srv := &Server{
		hardLimitCount: 2,
		hardLimitWin:   time.Minute,
	}

	handler := srv.RateLimitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "192.0.2.50:4444"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("first requests = %v, want 200s", codes[:2])
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", codes[2])
	}

	// A different client IP gets its own bucket.
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.51:4444"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK {
		t.Errorf("other client = %d, want 200", rec.Code)
	}
}

// Every route wrapped by the middleware draws from the same per-IP bucket,
// wrapping twice must not hand a client a second allowance.
func TestRateLimitSharedAcrossRoutes(t *testing.T) {
	srv := &Server{
		hardLimitCount: 2,
		hardLimitWin:   time.Minute,
	}

	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	first := srv.RateLimitMiddleware(ok)
	second := srv.RateLimitMiddleware(ok)

	for i := 0; i < 2; i++ {
		r := httptest.NewRequest(http.MethodGet, "/a", nil)
		r.RemoteAddr = "192.0.2.60:4444"
		rec := httptest.NewRecorder()
		first.ServeHTTP(rec, r)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d on first route = %d, want 200", i, rec.Code)
		}
	}

	r := httptest.NewRequest(http.MethodGet, "/b", nil)
	r.RemoteAddr = "192.0.2.60:4444"
	rec := httptest.NewRecorder()
	second.ServeHTTP(rec, r)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second route = %d, want 429 from the shared bucket", rec.Code)
	}
}
