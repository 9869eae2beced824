package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/health", "/health"},
		{"/api/charettes", "/api/charettes"},
		{"/api/charettes/", "/api/charettes/"},
		{"/api/charettes/abc", "/api/charettes/{id}"},
		{"/api/charettes/abc/rooms/main/messages", "/api/charettes/{id}/rooms/{room}/messages"},
		{"/api/charettes/abc/breakout-rooms/r1/join", "/api/charettes/{id}/breakout-rooms/{room}/join"},
		{"/api/charettes/abc/breakout-rooms", "/api/charettes/{id}/breakout-rooms"},
		{"/api/charettes/abc/phase", "/api/charettes/{id}/phase"},
	}
	for _, tt := range tests {
		if got := normalizePath(tt.in); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRoutePatternUsesChiRoute(t *testing.T) {
	var pattern string
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req)
			pattern = routePattern(req)
		})
	})
	r.Get("/api/charettes/{id}", ok)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/charettes/42", nil))
	if pattern != "/api/charettes/{id}" {
		t.Errorf("expected route pattern, got %q", pattern)
	}
}

func TestEndpointClass(t *testing.T) {
	tests := []struct {
		method, path, want string
	}{
		{http.MethodGet, "/health", ""},
		{http.MethodGet, "/api/charettes", "read"},
		{http.MethodPost, "/api/charettes", "create_charette"},
		{http.MethodPost, "/api/charettes/", "create_charette"},
		{http.MethodGet, "/api/charettes/x", "read"},
		{http.MethodPatch, "/api/charettes/x", "write"},
		{http.MethodDelete, "/api/charettes/x", "write"},
		{http.MethodGet, "/api/charettes/x/rooms/main/messages", "list_messages"},
		{http.MethodPost, "/api/charettes/x/rooms/main/messages", "post_message"},
		{http.MethodPost, "/api/charettes/x/participants", "participants"},
		{http.MethodPost, "/api/charettes/x/breakout-rooms", "breakout_rooms"},
		{http.MethodPost, "/api/charettes/x/breakout-rooms/r/join", "membership"},
		{http.MethodPost, "/api/charettes/x/breakout-rooms/r/leave", "membership"},
		{http.MethodPost, "/api/charettes/x/phase", "phase"},
		{http.MethodPost, "/api/charettes/x/rooms/main/analysis", "analysis"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(tt.method, tt.path, nil)
		if got := endpointClass(r); got != tt.want {
			t.Errorf("endpointClass(%s %s) = %q, want %q", tt.method, tt.path, got, tt.want)
		}
	}
}

func TestEveryClassHasALimit(t *testing.T) {
	rl := NewRateLimiter(nil, zerolog.Nop(), RateLimiterConfig{})
	for _, class := range []string{"create_charette", "read", "list_messages", "post_message", "participants", "breakout_rooms", "membership", "phase", "analysis", "write"} {
		if rl.findLimit(class) == nil {
			t.Errorf("no limit for %q", class)
		}
	}
	if rl.findLimit("") != nil {
		t.Error("expected no limit outside the API")
	}
}

func TestUserKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/charettes/x/phase", nil)
	r.RemoteAddr = "10.0.0.7:5555"
	if got := userKey(r); got != "ratelimit:ip:10.0.0.7" {
		t.Errorf("anonymous key = %q", got)
	}
	r.Header.Set(UserHeader, "Alice")
	if got := userKey(r); got != "ratelimit:user:10.0.0.7:Alice" {
		t.Errorf("user key = %q", got)
	}
}

func TestRealIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	if got := RealIP(r); got != "192.0.2.1" {
		t.Errorf("RealIP = %q", got)
	}
	r.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	if got := RealIP(r); got != "203.0.113.5" {
		t.Errorf("RealIP = %q", got)
	}
}

func TestWhitelist(t *testing.T) {
	rl := NewRateLimiter(nil, zerolog.Nop(), RateLimiterConfig{
		Whitelist: []string{"10.1.1.1", "192.168.0.0/16", "not-a-cidr/99"},
	})
	tests := []struct {
		ip   string
		want bool
	}{
		{"10.1.1.1", true},
		{"192.168.44.2", true},
		{"10.1.1.2", false},
		{"garbage", false},
	}
	for _, tt := range tests {
		if got := rl.isWhitelisted(tt.ip); got != tt.want {
			t.Errorf("isWhitelisted(%q) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api", nil))

	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy"} {
		if rec.Header().Get(h) == "" {
			t.Errorf("missing %s", h)
		}
	}
}

func TestMaxBodySize(t *testing.T) {
	h := MaxBodySize(16)(ok)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 17))))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}")))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name, method, target, contentType, body string
		want                                    int
	}{
		{"json post", http.MethodPost, "/api/charettes", "application/json", "{}", http.StatusOK},
		{"form post", http.MethodPost, "/api/charettes", "text/plain", "hi", http.StatusUnsupportedMediaType},
		{"empty post", http.MethodPost, "/api/charettes/x/phase", "", "", http.StatusOK},
		{"traversal", http.MethodGet, "/api/charettes/../etc", "", "", http.StatusBadRequest},
		{"script query", http.MethodGet, "/api/charettes?q=%3Cscript", "", "", http.StatusOK},
		{"raw script query", http.MethodGet, "/api/charettes?q=<script", "", "", http.StatusBadRequest},
		{"charette root", http.MethodGet, "/api/charettes/", "", "", http.StatusOK},
		{"room messages", http.MethodGet, "/api/charettes/6f1c2a9e-0b1d-4c5e-9f3a-2d7b8e4a1c60/rooms/main/messages", "", "", http.StatusOK},
		{"search", http.MethodGet, "/api/charettes/abc/search?q=oak+trees", "", "", http.StatusOK},
		{"space in id", http.MethodGet, "/api/charettes/abc def", "", "", http.StatusBadRequest},
		{"quote in room", http.MethodGet, "/api/charettes/abc/rooms/ma'in/messages", "", "", http.StatusBadRequest},
		{"overlong id", http.MethodGet, "/api/charettes/" + strings.Repeat("a", 65), "", "", http.StatusBadRequest},
		{"other api path", http.MethodGet, "/api/stats", "", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/", strings.NewReader(tt.body))
			r.URL.Path, r.URL.RawQuery, _ = strings.Cut(tt.target, "?")
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			ValidateRequest(ok).ServeHTTP(rec, r)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestValidateRequestUserHeader(t *testing.T) {
	tests := []struct {
		name, user string
		want       int
	}{
		{"absent", "", http.StatusOK},
		{"display name", "Zoé Martin", http.StatusOK},
		{"control character", "Alice\x00admin", http.StatusBadRequest},
		{"too long", strings.Repeat("a", 65), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/charettes/abc", nil)
			if tt.user != "" {
				r.Header[UserHeader] = []string{tt.user}
			}
			rec := httptest.NewRecorder()
			ValidateRequest(ok).ServeHTTP(rec, r)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}
