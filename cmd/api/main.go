package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"counsel-platform/internal/audit"
	"counsel-platform/internal/auth"
	"counsel-platform/internal/calls"
	"counsel-platform/internal/config"
	"counsel-platform/internal/httpapi"
	"counsel-platform/internal/identity"
	"counsel-platform/internal/push"
	"counsel-platform/internal/reporting"
	"counsel-platform/internal/rtc"
	"counsel-platform/internal/signaling"
	"counsel-platform/pkg/logger"
	"counsel-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth, cfg.RTC)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := utils.EnsureSchema(rootCtx, db); err != nil {
		log.Error("schema init failed", "err", err)
		os.Exit(1)
	}

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	store := signaling.NewRedisStore(rdb, log)
	history := calls.NewRepository(db)
	directory := identity.NewPostgresDirectory(db)
	locker := utils.RedisLocker{RDB: rdb}
	subs := push.NewRedisSubscriptions(rdb)
	trail := audit.NewService(audit.NewPostgresRepo(db))

	notifier := push.NewNotifier(push.Config{
		VAPIDPublicKey:  cfg.Push.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.Push.VAPIDPrivateKey,
		Subscriber:      cfg.Push.Subscriber,
	}, subs, log)

	runner := &httpapi.SessionRunner{
		AppID:   cfg.RTC.AppID,
		Calls:   store,
		History: history,
		Locker:  locker,
		Audit:   trail,
		Policy:  cfg.Call,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Sessions authenticate with the access token, not the origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	if notifier.Enabled() {
		runner.Notifier = notifier
	} else {
		log.Warn("push disabled: VAPID keys not configured")
	}

	if cfg.Backend.BaseURL != "" {
		tokens := rtc.NewTokenClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
		runner.Tokens = func(_, accessToken string) rtc.TokenSource { return tokens.ForUser(accessToken) }
		runner.Resolver = identity.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, log)
	} else {
		runner.Tokens = func(userID, _ string) rtc.TokenSource {
			return rtc.TokenSourceFunc(func(ctx context.Context, channelID string, role rtc.Role) (string, error) {
				return authManager.IssueRTCToken(time.Now(), userID, channelID, string(role), httpapi.MediaUID(userID))
			})
		}
		runner.Resolver = httpapi.DirectoryResolver{Dir: directory, Log: log}
	}

	h := httpapi.Handlers{
		Auth:          authManager,
		Calls:         store,
		History:       history,
		Directory:     directory,
		Reports:       reporting.NewService(reporting.NewPostgresRepo(db)),
		Subscriptions: subs,
		Locker:        locker,
		Sessions:      runner,
		Audit:         trail,
		Policy:        cfg.Call,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	// Shutdown does not wait for hijacked session sockets.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
