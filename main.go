package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"kittens-server/api"
	"kittens-server/auth"
	"kittens-server/config"
	"kittens-server/dispatch"
	"kittens-server/game"
	"kittens-server/lobby"
	"kittens-server/loghandler"
	"kittens-server/session"
	"kittens-server/storage"
	"kittens-server/ws"
)

var configPath = flag.String("config", "config.yaml", "path to configuration file")

// server is the wired process without its listener.
type server struct {
	handler  http.Handler
	hub      *ws.Hub
	sessions *session.Registry
	games    *lobby.Manager
}

func newServer(cfg *config.Config, keys *auth.KeyPair, store *storage.Store, logger *zap.Logger) *server {
	games := lobby.NewManager(logger, func() int64 { return time.Now().UnixNano() })
	if store != nil {
		games.OnFinish = func(g *game.Game) {
			result := storage.ResultFromGame(g)
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := store.RecordResult(ctx, result); err != nil {
					logger.Error("record result", zap.Uint16("game", result.GameID), zap.Error(err))
				}
			}()
		}
	}

	sessions := session.NewRegistry(cfg.ReconnectGrace(), keys.Identity, logger)
	sessions.OnExpire = games.RemovePlayer

	d := dispatch.NewServer(sessions, games, keys.Public[:], cfg.MaxNameLength, cfg.MaxChatLength, logger)
	hub := ws.NewHub(cfg, d, logger)
	h := api.NewHandler(games, store, cfg.HistoryLimit, logger)

	return &server{
		handler:  api.NewRouter(h, hub.ServeWS),
		hub:      hub,
		sessions: sessions,
		games:    games,
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found; using environment variables.")
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := loghandler.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	keys, err := auth.LoadOrGenerate(cfg.ServerKey)
	if err != nil {
		logger.Fatal("server key", zap.Error(err))
	}
	if cfg.ServerKey == "" {
		logger.Warn("no server key configured; identities will change on restart")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store *storage.Store
	if cfg.DatabaseURL != "" {
		store, err = storage.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("result history disabled", zap.Error(err))
			store = nil
		} else {
			logger.Info("result history enabled")
		}
	}
	defer store.Close()

	srv := newServer(cfg, keys, store, logger)
	go srv.hub.Run(ctx)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WSPort),
		Handler: srv.handler,
	}
	go func() {
		logger.Info("listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("shutting down", zap.Stringer("signal", sig))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	srv.sessions.Close()
}
