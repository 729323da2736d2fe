package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/withmystar/chatrelay/db"
	"github.com/withmystar/chatrelay/logstore"
	"github.com/withmystar/chatrelay/relay"
	"github.com/withmystar/chatrelay/roles"
	"github.com/withmystar/chatrelay/rpc"
	"github.com/withmystar/chatrelay/webhook"
	"github.com/withmystar/chatrelay/ws"
)

func main() {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(2)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := run(cfg); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config) error {
	policy, err := roles.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		return err
	}

	var store logstore.Store
	switch cfg.LogBackend {
	case backendSQLite:
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer database.Close()
		store = database
	default:
		store = logstore.NewMemory(logstore.DefaultCapacity)
	}

	rl := relay.New(policy, store, webhook.NewClient(cfg.WebhookTimeout))
	rl.DefaultWebhook = cfg.DefaultWebhook
	rl.LogDenials = cfg.LogDenials
	if rl.DefaultWebhook == "" {
		slog.Warn("no default webhook configured; requests must name one")
	}

	hub := ws.NewHub()
	hub.CallerID = relay.CallerID
	rl.Notify = hub
	rpc.NewRouter(hub, rl)

	api := http.NewServeMux()
	rl.Routes(api)
	api.Handle("GET /chat-log/stream", hub)

	mux := http.NewServeMux()
	base := strings.TrimRight(cfg.BasePath, "/")
	if base == "" {
		mux.Handle("/", api)
	} else {
		mux.Handle(base+"/", http.StripPrefix(base, api))
	}
	mux.HandleFunc("GET /api/health", relay.HealthHandler(cfg.Version))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           relay.WithRequestLog(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		slog.Info("chatrelay starting", "addr", cfg.ListenAddr, "basePath", base, "logBackend", cfg.LogBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
