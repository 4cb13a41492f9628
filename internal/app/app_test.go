package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/fpcollector/internal/config"
	"github.com/mx-space/fpcollector/internal/middleware"
	"github.com/mx-space/fpcollector/internal/models"
	"github.com/mx-space/fpcollector/internal/modules/auth"
	"github.com/mx-space/fpcollector/internal/modules/backup"
	"github.com/mx-space/fpcollector/internal/modules/logs"
	"github.com/mx-space/fpcollector/internal/pkg/jwt"
	"github.com/mx-space/fpcollector/internal/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "app-test-secret"

var dbSeq atomic.Int64

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
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig(t *testing.T, extra string) *config.AppConfig {
	t.Helper()
	yml := fmt.Sprintf("jwt_secret: %s\ndatabase:\n  driver: sqlite\n  dsn: \"file:app_%d?mode=memory&cache=shared\"\n%s",
		testSecret, dbSeq.Add(1), extra)
	cfg, err := config.Parse([]byte(yml))
	require.NoError(t, err)
	return cfg
}

func newTestApp(t *testing.T, cfg *config.AppConfig, clk *clock) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	a, err := New(nil, cfg, WithClock(clk.Now))
	require.NoError(t, err)
	t.Cleanup(a.Shutdown)
	return a
}

func serve(a *App, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)
	return rec
}

func postForm(a *App, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return serve(a, req)
}

func TestServesCollectorScript(t *testing.T) {
	a := newTestApp(t, testConfig(t, ""), &clock{now: time.Now()})

	req := httptest.NewRequest(http.MethodGet, "/fingerprint.js", nil)
	req.Host = "collector.test:8787"
	rec := serve(a, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, response.ContentTypeJavaScript, rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Body.String(), "https://collector.test:8787/api/fingerprint")
	assert.NotEmpty(t, rec.Header().Get(middleware.HeaderRequestID))
}

func TestPreflight(t *testing.T) {
	a := newTestApp(t, testConfig(t, ""), &clock{now: time.Now()})

	rec := serve(a, httptest.NewRequest(http.MethodOptions, "/api/fingerprint", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
}

func TestIngestPersistsRecord(t *testing.T) {
	clk := &clock{now: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)}
	a := newTestApp(t, testConfig(t, ""), clk)

	body := `{"method":"GET","path":"http://x/y","userAgent":"UA","language":"en","screen":{"width":1920,"height":1080},"timezone":"UTC"}`
	req := httptest.NewRequest(http.MethodPost, "/api/fingerprint", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(a, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	stored, err := a.Store().ListFingerprints(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	got := stored[0]
	assert.Equal(t, "GET", *got.Method)
	assert.Equal(t, "http://x/y", *got.Path)
	assert.Equal(t, "UA", *got.UserAgent)
	assert.Equal(t, "en", *got.Language)
	assert.Equal(t, int64(1920), *got.ScreenWidth)
	assert.Equal(t, int64(1080), *got.ScreenHeight)
	assert.Equal(t, "UTC", *got.Timezone)
	assert.True(t, got.CreatedAt.Equal(clk.Now()), got.CreatedAt)
}

func TestIngestMalformedBodyIs500(t *testing.T) {
	a := newTestApp(t, testConfig(t, ""), &clock{now: time.Now()})

	rec := serve(a, httptest.NewRequest(http.MethodPost, "/api/fingerprint", strings.NewReader("{not json")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
	assert.Contains(t, rec.Body.String(), `"error":"`)

	stored, err := a.Store().ListFingerprints(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestLogsWithoutSessionShowsLoginAlert(t *testing.T) {
	a := newTestApp(t, testConfig(t, ""), &clock{now: time.Now()})

	for _, cookie := range []string{"", "token=", "token=garbage", "other=1; token=a.b.c"} {
		req := httptest.NewRequest(http.MethodGet, "/logs", nil)
		if cookie != "" {
			req.Header.Set("Cookie", cookie)
		}
		rec := serve(a, req)

		assert.Equal(t, http.StatusOK, rec.Code, cookie)
		assert.Equal(t, response.ContentTypeHTML, rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), logs.UnauthenticatedAlert, cookie)
	}
}

func TestLoginMismatchSetsNoCookie(t *testing.T) {
	a := newTestApp(t, testConfig(t, ""), &clock{now: time.Now()})
	require.NoError(t, a.Store().UpsertCredential(context.Background(),
		models.Credential{Email: "a@b.com", Password: "right", Name: "Ana"}))

	rec := postForm(a, "/login", url.Values{"email": {"a@b.com"}, "password": {"wrong"}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), auth.MismatchMessage)
	assert.Empty(t, rec.Header().Get("Set-Cookie"))
}

func TestLoginThenListLogs(t *testing.T) {
	clk := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	a := newTestApp(t, testConfig(t, ""), clk)
	ctx := context.Background()
	require.NoError(t, a.Store().UpsertCredential(ctx, models.Credential{Email: "a@b.com", Password: "right", Name: "Ana"}))
	ua := "Mozilla/5.0 <script>"
	_, err := a.Store().InsertFingerprint(ctx, models.FingerprintLog{UserAgent: &ua})
	require.NoError(t, err)

	rec := postForm(a, "/login", url.Values{"email": {"a@b.com"}, "password": {"right"}})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/logs", rec.Header().Get("Location"))

	setCookie := rec.Header().Get("Set-Cookie")
	require.True(t, strings.HasPrefix(setCookie, "token="), setCookie)
	require.True(t, strings.HasSuffix(setCookie, "; HttpOnly; Path=/"), setCookie)
	token := strings.TrimSuffix(strings.TrimPrefix(setCookie, "token="), "; HttpOnly; Path=/")

	independent := jwt.New([]byte(testSecret), jwt.WithClock(clk.Now))
	subject, err := independent.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "Ana", subject)

	listReq := httptest.NewRequest(http.MethodGet, "/logs", nil)
	listReq.Header.Set("Cookie", "theme=dark; token="+token)
	list := serve(a, listReq)
	assert.Equal(t, http.StatusOK, list.Code)
	assert.NotContains(t, list.Body.String(), logs.UnauthenticatedAlert)
	assert.Contains(t, list.Body.String(), "Mozilla/5.0 &lt;script&gt;")

	clk.Advance(time.Hour)
	expired := serve(a, listReq)
	assert.Equal(t, http.StatusOK, expired.Code)
	assert.Contains(t, expired.Body.String(), logs.UnauthenticatedAlert)
}

func TestForeignSecretIsUnauthenticated(t *testing.T) {
	clk := &clock{now: time.Now()}
	a := newTestApp(t, testConfig(t, ""), clk)
	token, err := jwt.New([]byte("someone-else"), jwt.WithClock(clk.Now)).Issue("Ana")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/logs", nil)
	req.Header.Set("Cookie", "token="+token)
	rec := serve(a, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), logs.UnauthenticatedAlert)
}

func TestLoginPageAndAnnouncement(t *testing.T) {
	a := newTestApp(t, testConfig(t, "announcement:\n  heading: Olá\n  markdown: \"**Oferta** especial\"\n"), &clock{now: time.Now()})

	login := serve(a, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusOK, login.Code)
	assert.Contains(t, login.Body.String(), `name="password"`)
	assert.NotContains(t, login.Body.String(), auth.MismatchMessage)

	page := serve(a, httptest.NewRequest(http.MethodGet, "/announcement", nil))
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Equal(t, response.ContentTypeHTML, page.Header().Get("Content-Type"))
	assert.Contains(t, page.Body.String(), "Olá")
	assert.Contains(t, page.Body.String(), "<strong>Oferta</strong> especial")
}

func TestFallback(t *testing.T) {
	a := newTestApp(t, testConfig(t, ""), &clock{now: time.Now()})

	tests := []struct {
		method   string
		path     string
		status   int
		location string
		body     string
	}{
		{http.MethodGet, "/unknown/path", http.StatusFound, "/announcement", ""},
		{http.MethodGet, "/", http.StatusFound, "/announcement", ""},
		{http.MethodGet, "/logs/", http.StatusFound, "/announcement", ""},
		{http.MethodGet, "/api/fingerprint", http.StatusFound, "/announcement", ""},
		{http.MethodDelete, "/unknown/path", http.StatusNotFound, "", response.NotFoundBody},
		{http.MethodPost, "/logs", http.StatusNotFound, "", response.NotFoundBody},
		{http.MethodPut, "/api/fingerprint", http.StatusNotFound, "", response.NotFoundBody},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := serve(a, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
			assert.Equal(t, tt.body, rec.Body.String())
		})
	}
}

func TestMetricsAreOptional(t *testing.T) {
	disabled := newTestApp(t, testConfig(t, ""), &clock{now: time.Now()})
	assert.Nil(t, disabled.MetricsHandler())

	a := newTestApp(t, testConfig(t, "metrics_addr: 127.0.0.1:0\n"), &clock{now: time.Now()})
	require.NotNil(t, a.MetricsHandler())
	serve(a, httptest.NewRequest(http.MethodPost, "/api/fingerprint", strings.NewReader(`{}`)))
	serve(a, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	rec := httptest.NewRecorder()
	a.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `fpcollector_ingest_total{outcome="ok"} 1`)
	assert.Contains(t, string(body), `route="fallback"`)
}

func TestBackupJobIsScheduledWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, fmt.Sprintf("backup:\n  enable: true\n  interval: 1h\n  dir: %q\n", dir))
	a := newTestApp(t, cfg, &clock{now: time.Now()})

	jobs := a.Scheduler().Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, backup.JobName, jobs[0].Name)

	require.NoError(t, a.Scheduler().RunNow(context.Background(), backup.JobName))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNewRejectsNilConfig(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}

func TestLogsStoreFailureRendersLoginPage(t *testing.T) {
	clk := &clock{now: time.Now()}
	a := newTestApp(t, testConfig(t, ""), clk)
	token, err := a.Tokens().Issue("Ana")
	require.NoError(t, err)
	require.NoError(t, a.Store().DB().Migrator().DropTable(&models.FingerprintLog{}))

	req := httptest.NewRequest(http.MethodGet, "/logs", nil)
	req.Header.Set("Cookie", "token="+token)
	rec := serve(a, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, response.ContentTypeHTML, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), logs.UnauthenticatedAlert)
}
