package integration_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/quorahub/internal/app"
	"github.com/geocoder89/quorahub/internal/config"
	apphttp "github.com/geocoder89/quorahub/internal/http"
	"github.com/geocoder89/quorahub/internal/security"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminUser     = "root"
	adminPassword = "root-password"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testServer struct {
	router http.Handler
	app    *app.App
	clock  *clock
}

func testConfig() config.Config {
	return config.Config{
		Env:              "test",
		StoreBackend:     config.BackendMemory,
		SessionTTL:       8 * time.Hour,
		SessionCacheTTL:  time.Minute,
		AdminUsername:    adminUser,
		AdminEmail:       "root@example.com",
		AdminPassword:    adminPassword,
		SigninRatePerMin: 6000,
		SigninBurst:      1000,
		WriteRatePerMin:  6000,
		WriteBurst:       1000,
		CORSOrigins:      []string{"http://localhost:3000"},
		MaxBodyBytes:     1 << 20,
	}
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clk := &clock{now: time.Now().UTC()}
	cfg := testConfig()

	a, err := app.Build(context.Background(), cfg, nil, app.Options{
		Hasher: security.NewBcryptHasher(bcrypt.MinCost),
		Now:    clk.Now,
	})
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	t.Cleanup(a.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	return &testServer{
		router: apphttp.NewRouter(logger, cfg, a.Deps),
		app:    a,
		clock:  clk,
	}
}

type statusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type errorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

// do runs a request; token goes in the authorization header when set.
func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))

	if method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) signup(t *testing.T, username string) string {
	t.Helper()

	body := `{"firstName":"` + username + `","lastName":"Tester","userName":"` + username +
		`","emailAddress":"` + username + `@example.com","password":"password-` + username + `","country":"NG"}`

	w := s.do(http.MethodPost, "/user/signup", "", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("signup %s got status %d, body=%s", username, w.Code, w.Body.String())
	}

	var resp statusResponse
	mustReadJSON(t, w, &resp)
	return resp.ID
}

func (s *testServer) signinRaw(username, password string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/user/signin", nil)
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(username+":"+password)))

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) signin(t *testing.T, username string) string {
	t.Helper()

	password := "password-" + username
	if username == adminUser {
		password = adminPassword
	}

	w := s.signinRaw(username, password)
	if w.Code != http.StatusOK {
		t.Fatalf("signin %s got status %d, body=%s", username, w.Code, w.Body.String())
	}

	token := w.Header().Get("access-token")
	if token == "" {
		t.Fatalf("signin %s returned no access-token header", username)
	}
	if bytes.Contains(w.Body.Bytes(), []byte(token)) {
		t.Fatalf("token leaked into signin body")
	}
	return token
}

func mustReadJSON[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()
	err := json.Unmarshal(w.Body.Bytes(), out)
	if err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
}

func wantError(t *testing.T, w *httptest.ResponseRecorder, status int, message string) {
	t.Helper()

	if w.Code != status {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, status, w.Body.String())
	}

	var resp errorResponse
	mustReadJSON(t, w, &resp)
	if resp.Error.Message != message {
		t.Fatalf("got message %q, want %q", resp.Error.Message, message)
	}
}

func wantStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()

	if w.Code != status {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, status, w.Body.String())
	}
}
