package app

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plotpilot/internal/config"
	apierrors "plotpilot/internal/errors"
	"plotpilot/internal/shared/testutil"
	ws "plotpilot/internal/websocket"
)

const salesCSV = "region,units,price\nnorth,10,2.5\nsouth,,3.0\nnorth,7,\neast,12,4.0\n"

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.BaseDir = t.TempDir()
	cfg.Security.RateLimit.Enabled = false
	cfg.Telemetry.EnableTracing = false
	cfg.Telemetry.EnableMetrics = true
	cfg.Server.ShutdownTimeout = 5 * time.Second
	return cfg
}

func writeWebDir(t *testing.T, cfg *config.Config) {
	t.Helper()
	webDir := filepath.Join(cfg.Paths.BaseDir, "web")
	require.NoError(t, os.MkdirAll(filepath.Join(webDir, "static"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(webDir, "index.html"),
		[]byte(`<html><title>{{.AppName}} {{.Version}}</title></html>`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(webDir, "static", "app.js"),
		[]byte(`console.log("ok")`), 0644))
}

func newTestApp(t *testing.T) *Application {
	t.Helper()
	cfg := newTestConfig(t)
	writeWebDir(t, cfg)
	logger, _ := testutil.NewTestLogger(t)

	app, err := NewApplication(cfg, WithLogger(logger))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = app.OTelProviders.Shutdown(context.Background())
	})
	return app
}

func uploadRequest(t *testing.T, name, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/datasets", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func upload(t *testing.T, app *Application) string {
	t.Helper()
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, uploadRequest(t, "sales.csv", salesCSV))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var view struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.NotEmpty(t, view.ID)
	return view.ID
}

func TestNewApplication(t *testing.T) {
	app := newTestApp(t)

	assert.NotNil(t, app.Router)
	assert.NotNil(t, app.Server)
	assert.NotNil(t, app.Hub)
	assert.NotNil(t, app.Store)
	assert.NotNil(t, app.Metrics)
	assert.NotNil(t, app.RuntimeMetrics)
	require.NotNil(t, app.Services)
	assert.NotNil(t, app.Services.Datasets)
	assert.NotNil(t, app.Services.Health)

	assert.Equal(t, ":8080", app.Server.Addr)
	assert.Equal(t, app.Config.Server.MaxHeaderBytes, app.Server.MaxHeaderBytes)

	for _, dir := range []string{app.Paths.DataDir, app.Paths.ExportsDir, app.Paths.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir())
	}
}

func TestNewApplication_InvalidCleaningDefaults(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Cleaning.MissingValues = "guess"
	logger, _ := testutil.NewTestLogger(t)

	_, err := NewApplication(cfg, WithLogger(logger))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cleaning defaults")
}

func TestApplication_Routes(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name        string
		method      string
		path        string
		wantStatus  int
		wantType    string
		wantContain string
	}{
		{"index page", http.MethodGet, "/", http.StatusOK, "text/html", "plotpilot 1.0.0"},
		{"static asset", http.MethodGet, "/static/app.js", http.StatusOK, "", `console.log("ok")`},
		{"health", http.MethodGet, "/api/health", http.StatusOK, "application/json", `"status"`},
		{"liveness", http.MethodGet, "/api/health/live", http.StatusOK, "application/json", ""},
		{"version", http.MethodGet, "/api/version", http.StatusOK, "application/json", config.AppVersion},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK, "", "http_requests_total"},
		{"unknown route", http.MethodGet, "/nope", http.StatusNotFound, apierrors.ProblemContentType, "/errors/not-found"},
		{"unknown api route", http.MethodGet, "/api/nope", http.StatusNotFound, apierrors.ProblemContentType, ""},
		{"unknown dataset", http.MethodGet, "/api/datasets/6f1c1f7e-8d8e-4a4e-9a55-1f4b2a0c9d11", http.StatusNotFound, apierrors.ProblemContentType, "/errors/dataset/not-found"},
		{"wrong method", http.MethodPut, "/api/health", http.StatusMethodNotAllowed, apierrors.ProblemContentType, "/errors/method-not-allowed"},
	}

	// One request first so the HTTP counter exists when /metrics is scraped.
	app.Router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			app.Router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantType != "" {
				assert.Contains(t, rec.Header().Get("Content-Type"), tt.wantType)
			}
			if tt.wantContain != "" {
				assert.Contains(t, rec.Body.String(), tt.wantContain)
			}
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestApplication_SecurityHeaders(t *testing.T) {
	app := newTestApp(t)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "https://cdn.plot.ly")
}

func TestApplication_CORSPreflight(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/datasets", nil)
	req.Header.Set("Origin", "http://localhost:8080")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:8080", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestApplication_RateLimit(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Security.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 1, Burst: 1}
	logger, _ := testutil.NewTestLogger(t)
	app, err := NewApplication(cfg, WithLogger(logger))
	require.NoError(t, err)

	first := httptest.NewRecorder()
	app.Router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/health/live", nil))
	second := httptest.NewRecorder()
	app.Router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/health/live", nil))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestApplication_DatasetLifecycle(t *testing.T) {
	app := newTestApp(t)
	id := upload(t, app)

	t.Run("clean with defaults", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/datasets/"+id+"/clean", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var view struct {
			Active  string          `json:"active"`
			Cleaned json.RawMessage `json:"cleaned"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
		assert.Equal(t, "cleaned", view.Active)
		assert.NotEmpty(t, view.Cleaned)
	})

	t.Run("summary", func(t *testing.T) {
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/datasets/"+id+"/summary?preview=2", nil))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"table":"cleaned"`)
	})

	t.Run("export csv", func(t *testing.T) {
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/datasets/"+id+"/export?format=csv", nil))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
		assert.True(t, strings.HasPrefix(rec.Body.String(), "region,units,price"))
	})

	t.Run("delete", func(t *testing.T) {
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/datasets/"+id, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = httptest.NewRecorder()
		app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/datasets/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestApplication_UploadTooLarge(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Upload.MaxBytes = 64
	logger, _ := testutil.NewTestLogger(t)
	app, err := NewApplication(cfg, WithLogger(logger))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, uploadRequest(t, "big.csv", strings.Repeat("a,b\n1,2\n", 100)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), apierrors.ProblemContentType)
}

func TestApplication_EventStream(t *testing.T) {
	app := newTestApp(t)
	app.Hub.Start()
	t.Cleanup(app.Hub.Stop)

	srv := httptest.NewServer(app.Router)
	t.Cleanup(srv.Close)

	id := upload(t, app)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/datasets/" + id + "/events"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var hello ws.Message
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, ws.TypeConnection, hello.Type)

	require.Eventually(t, func() bool { return app.Hub.SessionClientCount(id) == 1 }, 2*time.Second, 10*time.Millisecond)

	req := httptest.NewRequest(http.MethodPost, "/api/datasets/"+id+"/clean", strings.NewReader(`{"missing_value_policy":"drop"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var event ws.Message
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, ws.EventCleaned, event.Type)
	assert.Equal(t, id, event.SessionID)
}

func TestApplication_ServeAndStop(t *testing.T) {
	app := newTestApp(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/api/health/live"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	_, err = http.Get(url)
	assert.Error(t, err)
}

func TestApplication_performStartupHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		app := newTestApp(t)
		assert.NoError(t, app.performStartupHealthCheck())
	})

	t.Run("missing front end", func(t *testing.T) {
		cfg := newTestConfig(t)
		logger, _ := testutil.NewTestLogger(t)
		app, err := NewApplication(cfg, WithLogger(logger))
		require.NoError(t, err)

		err = app.performStartupHealthCheck()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "index.html")
	})
}

func TestApplication_getCORSConfig(t *testing.T) {
	app := newTestApp(t)
	app.Config.Security.AllowedOrigins = []string{"http://example.test"}

	cors := app.getCORSConfig()
	assert.Equal(t, []string{"http://example.test"}, cors.AllowedOrigins)
	assert.Equal(t, 300, cors.MaxAge)
	assert.NotNil(t, cors.Logger)
}
