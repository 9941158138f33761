package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aipms/client/internal/config"
	"github.com/aipms/client/internal/navigation"
	"github.com/aipms/client/internal/testserver"
)

func testConfig(t *testing.T, backendURL string) config.Config {
	t.Helper()
	return config.Config{
		API:       config.APIConfig{BaseURL: backendURL, Timeout: 5 * time.Second},
		Storage:   config.StorageConfig{Path: filepath.Join(t.TempDir(), "nested", "client.db")},
		Transport: config.TransportConfig{Mode: config.ModeHTTP},
		Auth:      config.AuthConfig{Enabled: true, Token: "token"},
		Metrics:   config.MetricsConfig{Enabled: true},
	}
}

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	require.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	require.Equal(t, slog.LevelError, parseLogLevel("error"))
	require.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}

func TestNewLogger_ConsoleShowsWarningsOnly(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cfg := config.Config{Transport: config.TransportConfig{Mode: config.ModeConsole}, Log: config.LogConfig{Level: "debug"}}
	logger, closeLog := newLogger(cfg, &stdout, &stderr)
	defer closeLog()

	logger.Info("hidden")
	logger.Warn("shown")
	require.Empty(t, stdout.String())
	require.NotContains(t, stderr.String(), "hidden")
	require.Contains(t, stderr.String(), "shown")
}

func TestNewLogger_StdioKeepsStdoutClean(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cfg := config.Config{Transport: config.TransportConfig{Mode: config.ModeStdio}, Log: config.LogConfig{Level: "info"}}
	logger, closeLog := newLogger(cfg, &stdout, &stderr)
	defer closeLog()

	logger.Info("starting")
	require.Empty(t, stdout.String())
	require.Contains(t, stderr.String(), "starting")
}

func TestNewRuntime_HTTPHandler(t *testing.T) {
	backend := testserver.New(t)
	cfg := testConfig(t, backend.URL())

	rt, err := newRuntime(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(rt.Close)
	require.Equal(t, navigation.PathLogin, rt.startPath())

	ts := httptest.NewServer(httpHandler(rt, cfg))
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/mcp", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/metrics", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer token")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRuntime_StartsOnLandingWhenSignedIn(t *testing.T) {
	backend := testserver.New(t)
	backend.AddUser("tom", "pw", "Teacher")
	cfg := testConfig(t, backend.URL())

	rt, err := newRuntime(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(rt.Close)

	_, err = rt.app.Navigate(context.Background(), navigation.PathLogin)
	require.NoError(t, err)
	require.NoError(t, rt.app.Action(context.Background(), "login", map[string]string{"username": "tom", "password": "pw"}))
	require.Equal(t, navigation.PathTeacherDashboard, rt.startPath())
}
