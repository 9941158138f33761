package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/aipms/client/internal/api"
	"github.com/aipms/client/internal/app"
	"github.com/aipms/client/internal/config"
	"github.com/aipms/client/internal/console"
	"github.com/aipms/client/internal/domain/session"
	"github.com/aipms/client/internal/mcp"
	"github.com/aipms/client/internal/metrics"
	"github.com/aipms/client/internal/navigation"
	"github.com/aipms/client/internal/notify"
	"github.com/aipms/client/internal/screen"
	"github.com/aipms/client/internal/sqlite"
	"github.com/aipms/client/internal/tracing"
	"github.com/aipms/client/internal/transport"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog := newLogger(cfg, os.Stdout, os.Stderr)
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		closeLog()
		os.Exit(1)
	}
	defer rt.Close()

	go rt.store.Watch(ctx, cfg.Storage.WatchInterval)

	switch cfg.Transport.Mode {
	case config.ModeStdio:
		err = runStdioMode(ctx, logger, rt)
	case config.ModeHTTP:
		err = runHTTPMode(ctx, logger, rt, cfg)
	default:
		err = console.New(rt.app, rt.shell, rt.toasts, os.Stdin, os.Stdout, logger).Run(ctx)
	}
	if err != nil {
		logger.Error("client stopped with error", "error", err)
		rt.Close()
		closeLog()
		os.Exit(1)
	}
}

// newLogger writes to a rotating file when log.path is set. Otherwise
// stdio mode logs to stderr to keep stdout clean for JSON-RPC, and console
// mode only shows warnings and errors.
func newLogger(cfg config.Config, stdout, stderr io.Writer) (*slog.Logger, func()) {
	level := parseLogLevel(cfg.Log.Level)
	closeFn := func() {}

	var w io.Writer
	switch {
	case cfg.Log.Path != "":
		if err := ensureDir(cfg.Log.Path); err != nil {
			fmt.Fprintf(stderr, "log file error: %v\n", err)
			w = stderr
			break
		}
		rotator := &lumberjack.Logger{
			Filename:   cfg.Log.Path,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
		}
		w = rotator
		closeFn = func() { rotator.Close() }
	case cfg.Transport.Mode == config.ModeStdio:
		w = stderr
	case cfg.Transport.Mode == config.ModeConsole:
		w = stderr
		if level < slog.LevelWarn {
			level = slog.LevelWarn
		}
	default:
		w = stdout
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return logger, closeFn
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// runtime holds the wired client.
type runtime struct {
	db       *sqlite.DB
	store    *session.Store
	app      *app.App
	shell    *app.Shell
	toasts   *notify.Center
	registry *prometheus.Registry
	tp       *sdktrace.TracerProvider
	logger   *slog.Logger
	closed   bool
}

func newRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger) (*runtime, error) {
	if err := ensureDir(cfg.Storage.Path); err != nil {
		return nil, fmt.Errorf("prepare storage path: %w", err)
	}
	db, err := sqlite.New(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}

	store, err := session.NewStore(ctx, sqlite.NewKeyValueRepository(db), logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	rt := &runtime{db: db, store: store, toasts: notify.NewCenter(), logger: logger}

	opts := []api.Option{
		api.WithLogger(logger),
		api.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		api.WithTracer(tracing.Noop()),
	}
	if cfg.Metrics.Enabled {
		rt.registry = prometheus.NewRegistry()
		rt.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m, err := metrics.NewAPI(rt.registry)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		opts = append(opts, api.WithMetrics(m))
	}
	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		rt.tp = tp
		opts = append(opts, api.WithTracer(tracing.Tracer()))
	}

	client, err := api.New(cfg.API.BaseURL, store, opts...)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.app = app.New(store, screen.Deps{API: client, Notifier: rt.toasts}, logger, app.WithRoot(ctx))
	rt.shell = app.NewShell(rt.app, logger)
	logger.Info("client ready", "api", client.BaseURL(), "storage", cfg.Storage.Path, "mode", cfg.Transport.Mode,
		"signed_in", store.Get().Authenticated())
	return rt, nil
}

// Close unmounts the current screen and releases storage and tracing.
func (rt *runtime) Close() {
	if rt.closed {
		return
	}
	rt.closed = true
	if rt.shell != nil {
		rt.shell.Close()
	}
	if rt.app != nil {
		rt.app.Close()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracing.Shutdown(ctx, rt.tp); err != nil {
		rt.logger.Warn("tracing shutdown failed", "error", err)
	}
	rt.db.Close()
}

// startPath is the screen an MCP client sees before navigating.
func (rt *runtime) startPath() string {
	if sess := rt.store.Get(); sess.Authenticated() {
		return navigation.Landing(sess.Role)
	}
	return navigation.PathLogin
}

func (rt *runtime) mcpServer() *sdkmcp.Server {
	return mcp.NewServer(mcp.Config{
		App:     rt.app,
		Shell:   rt.shell,
		Toasts:  rt.toasts,
		Version: version,
		Logger:  rt.logger,
	})
}

func runStdioMode(ctx context.Context, logger *slog.Logger, rt *runtime) error {
	logger.Info("starting stdio transport", "auth", "disabled")
	if _, err := rt.app.Navigate(ctx, rt.startPath()); err != nil {
		return err
	}

	// Run blocks until stdin closes or ctx is cancelled.
	if err := rt.mcpServer().Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	return nil
}

func httpHandler(rt *runtime, cfg config.Config) http.Handler {
	server := rt.mcpServer()
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return server },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)

	serverCfg := transport.ServerConfig{MCP: mcpHandler, Logger: rt.logger}
	if cfg.Auth.Enabled {
		serverCfg.Auth = transport.AuthMiddleware(cfg.Auth.Token)
	}
	if rt.registry != nil {
		serverCfg.Metrics = metrics.Handler(rt.registry)
	}
	return transport.NewServer(serverCfg)
}

func runHTTPMode(ctx context.Context, logger *slog.Logger, rt *runtime, cfg config.Config) error {
	if _, err := rt.app.Navigate(ctx, rt.startPath()); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           httpHandler(rt, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "auth", cfg.Auth.Enabled, "metrics", rt.registry != nil)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func ensureDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
