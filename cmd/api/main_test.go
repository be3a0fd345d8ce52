package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/cookie-auth/internal/auth"
	"github.com/yourusername/cookie-auth/internal/jobs"
	"github.com/yourusername/cookie-auth/internal/storage"
)

type fakeActivityReader struct {
	record *jobs.Record
	err    error
	asked  string
}

func (f *fakeActivityReader) GetRecord(ctx context.Context, userID string) (*jobs.Record, error) {
	f.asked = userID
	return f.record, f.err
}

func newTestRouter(t *testing.T, activity activityReader) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()
	service := auth.NewService(
		storage.NewMemoryStore(),
		auth.NewPasswordHasher(bcrypt.MinCost, 2),
		auth.NewSessionManager(time.Hour),
		nil,
		logger,
	)
	manager := auth.NewManager(service, auth.NewMetrics(registry), logger)

	router := gin.New()
	router.Use(sessions.Sessions("session", cookie.NewStore([]byte("test-key"), nil)))
	setupRoutes(router, manager, activity, registry, logger)
	return router
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// loginCookies はユーザーを登録してログインし、セッションCookieを返します。
func loginCookies(t *testing.T, router *gin.Engine) []*http.Cookie {
	t.Helper()
	form := url.Values{"user_name": {"bob"}, "user_email": {"bob@x.com"}, "user_pass": {"secret1"}}

	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if rec := serve(router, req); rec.Code != http.StatusOK {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := serve(router, req)
	if rec.Code != http.StatusFound {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	return rec.Result().Cookies()
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["status"] != "ok" {
		t.Fatalf("unexpected health body: %s", rec.Body.String())
	}

	loginCookies(t, router)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `cookie_auth_attempts_total{flow="login",outcome="success"} 1`) {
		t.Fatalf("metrics output missing login counter:\n%s", rec.Body.String())
	}
}

func TestNotFoundRoute(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "Page not found!") {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestActivityHandler(t *testing.T) {
	t.Run("requires login", func(t *testing.T) {
		router := newTestRouter(t, &fakeActivityReader{})
		rec := serve(router, httptest.NewRequest(http.MethodGet, "/activity", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		router := newTestRouter(t, nil)
		req := httptest.NewRequest(http.MethodGet, "/activity", nil)
		for _, c := range loginCookies(t, router) {
			req.AddCookie(c)
		}
		if rec := serve(router, req); rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}
	})

	t.Run("not recorded yet", func(t *testing.T) {
		router := newTestRouter(t, &fakeActivityReader{})
		req := httptest.NewRequest(http.MethodGet, "/activity", nil)
		for _, c := range loginCookies(t, router) {
			req.AddCookie(c)
		}
		if rec := serve(router, req); rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		router := newTestRouter(t, &fakeActivityReader{err: errors.New("redis down")})
		req := httptest.NewRequest(http.MethodGet, "/activity", nil)
		for _, c := range loginCookies(t, router) {
			req.AddCookie(c)
		}
		if rec := serve(router, req); rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
	})

	t.Run("found", func(t *testing.T) {
		loginAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		reader := &fakeActivityReader{record: &jobs.Record{
			UserID:      "ignored",
			LastEvent:   auth.ActivityLogin,
			LastLoginAt: &loginAt,
			LoginCount:  3,
		}}
		router := newTestRouter(t, reader)
		req := httptest.NewRequest(http.MethodGet, "/activity", nil)
		for _, c := range loginCookies(t, router) {
			req.AddCookie(c)
		}

		rec := serve(router, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if reader.asked == "" {
			t.Fatal("handler should look up the logged-in user")
		}
		var body map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["loginCount"] != float64(3) || body["lastEvent"] != "login" {
			t.Fatalf("unexpected body: %v", body)
		}
		if _, ok := body["lastLogoutAt"]; ok {
			t.Fatal("unset timestamps should be omitted")
		}
	})
}

func TestActivityHandlerLogsThroughInjectedLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/activity", nil)
	c.Set(auth.ContextUserKey, "user-1")

	activityHandler(&fakeActivityReader{err: errors.New("redis down")}, logger)(c)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	out := buf.String()
	if !strings.Contains(out, "failed to load activity") || !strings.Contains(out, `"user_id":"user-1"`) {
		t.Fatalf("expected error log on the injected logger, got %q", out)
	}
}

func TestWaitFor(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	calls := 0
	err := waitFor(context.Background(), 3, logger, "flaky", func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("waitFor = %v after %d calls, want success after 2", err, calls)
	}

	calls = 0
	err = waitFor(context.Background(), 0, logger, "down", func(context.Context) error {
		calls++
		return errors.New("down")
	})
	if err == nil || calls != 1 {
		t.Fatalf("waitFor = %v after %d calls, want failure after 1", err, calls)
	}
}
