package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/htmledit/dbopen"
	"github.com/hazyhaar/htmledit/editor"
	"github.com/hazyhaar/htmledit/observability"
	"github.com/hazyhaar/htmledit/session"
	"github.com/hazyhaar/htmledit/sqltrace"
)

func newServeCmd() *cobra.Command {
	var (
		cfgPath  string
		mcpStdio bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP editing service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, mcpStdio)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", env("HTMLEDIT_CONFIG", ""), "YAML config file")
	cmd.Flags().BoolVar(&mcpStdio, "mcp-stdio", false, "also serve the MCP tools on stdin/stdout")
	return cmd
}

// loadConfig reads the optional YAML file, then applies env overrides.
func loadConfig(path string) (*editor.Config, error) {
	cfg := editor.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = editor.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Listen = ":" + port
	}
	cfg.Listen = env("LISTEN", cfg.Listen)
	cfg.SessionDB = env("SESSION_DB", cfg.SessionDB)
	cfg.EventsDB = env("EVENTS_DB", cfg.EventsDB)
	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = d
	}
	if v := os.Getenv("TRACE_SQL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("TRACE_SQL: %w", err)
		}
		cfg.TraceSQL = b
	}
	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("MAX_UPLOAD_MB: %w", err)
		}
		cfg.MaxUploadMB = n
	}
	return cfg, cfg.Validate()
}

func serve(parent context.Context, cfg *editor.Config, mcpStdio bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	cfg.Logger = logger

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	store.StartSweeper(ctx, cfg.SweepEvery)

	eventsDB, closeEvents, err := openEventsDB(cfg, store.DB())
	if err != nil {
		return err
	}
	defer closeEvents()
	if err := observability.Init(eventsDB); err != nil {
		return err
	}

	svc := editor.New(store, cfg, editor.WithEvents(observability.NewEventLogger(eventsDB)))

	if mcpStdio {
		mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "htmledit", Version: "1.0.0"}, nil)
		svc.RegisterMCP(mcpSrv)
		go func() {
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				logger.Error("MCP stdio", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           newRouter(svc, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("htmledit listening", "addr", cfg.Listen, "session_db", cfg.SessionDB, "max_upload_mb", cfg.MaxUploadMB)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	return srv.Shutdown(shutdownCtx)
}

func openStore(cfg *editor.Config, logger *slog.Logger) (*session.Store, error) {
	opts := []session.Option{session.WithTTL(cfg.SessionTTL), session.WithLogger(logger)}
	if !cfg.TraceSQL {
		return session.Open(cfg.SessionDB, opts...)
	}
	db, err := dbopen.Open(cfg.SessionDB,
		dbopen.WithDriver(sqltrace.DriverName),
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(session.Schema),
	)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	return session.NewStore(db, opts...), nil
}

// openEventsDB opens the event database, sharing the session database when
// no separate path is configured.
func openEventsDB(cfg *editor.Config, shared *sql.DB) (*sql.DB, func(), error) {
	if cfg.EventsDB == "" {
		return shared, func() {}, nil
	}
	db, err := dbopen.Open(cfg.EventsDB, dbopen.WithMkdirAll())
	if err != nil {
		return nil, nil, fmt.Errorf("events db: %w", err)
	}
	return db, func() { db.Close() }, nil
}
