package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/quorahub/internal/actorctx"
	"github.com/geocoder89/quorahub/internal/auth"
	"github.com/geocoder89/quorahub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeGuard struct {
	resolveFn func(ctx context.Context, token string) (auth.AuthenticatedUser, error)
	adminErr  error
}

func (f *fakeGuard) Resolve(ctx context.Context, token string) (auth.AuthenticatedUser, error) {
	return f.resolveFn(ctx, token)
}

func (f *fakeGuard) RequireAdmin(au auth.AuthenticatedUser) error {
	return f.adminErr
}

func resolveAs(id string, role user.Role, wantToken string) func(context.Context, string) (auth.AuthenticatedUser, error) {
	return func(ctx context.Context, token string) (auth.AuthenticatedUser, error) {
		if token != wantToken {
			return auth.AuthenticatedUser{}, &auth.Error{Kind: auth.ErrAuthorizationFailed, Reason: auth.ReasonTokenNotFound}
		}
		return auth.AuthenticatedUser{User: user.User{ID: id, Role: role}}, nil
	}
}

func TestTokenFromHeader(t *testing.T) {
	tests := map[string]string{
		"":              "",
		"abc":           "abc",
		"  abc  ":       "abc",
		"Bearer abc":    "abc",
		"bearer   abc ": "abc",
		"Bearer":        "Bearer",
	}

	for in, want := range tests {
		if got := TokenFromHeader(in); got != want {
			t.Fatalf("TokenFromHeader(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRequireAuth(t *testing.T) {
	g := &fakeGuard{resolveFn: resolveAs("u1", user.RoleNonAdmin, "good")}
	m := NewAuthMiddleware(g)

	r := gin.New()
	r.Use(RequestID())
	r.GET("/me", m.RequireAuth(), func(c *gin.Context) {
		au, ok := AuthUserFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		ctxID, _ := actorctx.UserIDFrom(c.Request.Context())
		c.String(http.StatusOK, au.UserID()+"/"+ctxID)
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"raw token", "good", http.StatusOK, "u1/u1"},
		{"bearer token", "Bearer good", http.StatusOK, "u1/u1"},
		{"missing", "", http.StatusUnauthorized, "token not found"},
		{"unknown", "nope", http.StatusUnauthorized, "token not found"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got %d, want %d body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Fatalf("body %s does not contain %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	g := &fakeGuard{
		resolveFn: resolveAs("u1", user.RoleNonAdmin, "good"),
		adminErr:  &auth.Error{Kind: auth.ErrAuthorizationFailed, Reason: auth.ReasonNotAdmin},
	}
	m := NewAuthMiddleware(g)

	r := gin.New()
	r.GET("/admin", m.RequireAuth(), m.RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("got %d, want 403", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not admin") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}

	g.adminErr = nil
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", w.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(60, 2)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.POST("/user/signin", rl.RateLimiterMiddleware(KeyByIP), func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/user/signin", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := do(); w.Code != http.StatusOK {
			t.Fatalf("request %d: got %d", i, w.Code)
		}
	}

	w := do()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("got %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Fatalf("got Retry-After %q", w.Header().Get("Retry-After"))
	}

	// one token refills per second at 60/min
	now = now.Add(time.Second)
	if w := do(); w.Code != http.StatusOK {
		t.Fatalf("after refill got %d", w.Code)
	}
}

func TestRateLimiter_KeyByUserOrIP(t *testing.T) {
	g := &fakeGuard{resolveFn: func(ctx context.Context, token string) (auth.AuthenticatedUser, error) {
		return auth.AuthenticatedUser{User: user.User{ID: "u-" + token}}, nil
	}}
	rl := NewRateLimiter(60, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	r := gin.New()
	limit := rl.RateLimiterMiddleware(KeyByUserOrIP)
	r.POST("/question/create", NewAuthMiddleware(g).RequireAuth(), limit, func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.POST("/anon", limit, func(c *gin.Context) { c.Status(http.StatusCreated) })

	do := func(path, token string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if token != "" {
			req.Header.Set("Authorization", token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	// same address, separate accounts: each gets its own bucket
	if code := do("/question/create", "alice"); code != http.StatusCreated {
		t.Fatalf("alice first: got %d", code)
	}
	if code := do("/question/create", "alice"); code != http.StatusTooManyRequests {
		t.Fatalf("alice second: got %d, want 429", code)
	}
	if code := do("/question/create", "bob"); code != http.StatusCreated {
		t.Fatalf("bob first: got %d", code)
	}

	// without an identity the address is the key
	if code := do("/anon", ""); code != http.StatusCreated {
		t.Fatalf("anon first: got %d", code)
	}
	if code := do("/anon", ""); code != http.StatusTooManyRequests {
		t.Fatalf("anon second: got %d, want 429", code)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		id, _ := actorctx.RequestIDFrom(c.Request.Context())
		c.String(http.StatusOK, id)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Body.String() != "req-42" || w.Header().Get("X-Request-Id") != "req-42" {
		t.Fatalf("request id not propagated: body=%s header=%s", w.Body.String(), w.Header().Get("X-Request-Id"))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Body.Len() == 0 {
		t.Fatalf("expected a generated request id")
	}
}

func TestRequireJSON(t *testing.T) {
	r := gin.New()
	r.Use(RequireJSON())
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("x"))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("got %d, want 415", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", w.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Header().Get("X-Frame-Options") != "DENY" || w.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("missing security headers: %v", w.Header())
	}
}

func TestRequestID_RejectsUnprintable(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "bad id\twith spaces")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-Id"); got == "" || strings.ContainsAny(got, " \t") {
		t.Fatalf("got request id %q", got)
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://app.example/"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := preflight("https://app.example")
	if w.Code != http.StatusNoContent {
		t.Fatalf("got %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "https://app.example" {
		t.Fatalf("origin not reflected: %v", w.Header())
	}
	if !strings.Contains(w.Header().Get("Access-Control-Expose-Headers"), "access-token") {
		t.Fatalf("access-token must be exposed: %v", w.Header())
	}

	w = preflight("https://evil.example")
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected allow origin for foreign site")
	}
}

func TestMaxBodyBytes(t *testing.T) {
	r := gin.New()
	r.Use(MaxBodyBytes(8))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"content":"too long"}`)))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("got %d, want 413", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", w.Code)
	}
}
