// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourusername/cookie-auth/internal/auth"
	"github.com/yourusername/cookie-auth/internal/config"
	"github.com/yourusername/cookie-auth/internal/jobs"
	"github.com/yourusername/cookie-auth/internal/logging"
)

const serviceName = "cookie-auth-api"

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.Setup(serviceName, cfg.LogFormat, os.Stdout)
	slog.SetDefault(logger)

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ユーザーストアの初期化（postgres/redis は接続できるまでリトライ）
	users, closeStore, err := setupStore(ctx, cfg, logger)
	if err != nil {
		logging.LogError(logger, "failed to set up user store", err)
		os.Exit(1)
	}
	defer closeStore()

	// アクティビティ記録（QUEUE_REDIS_URL が空なら無効）
	var recorder auth.ActivityRecorder
	var jobManager *jobs.Manager
	if cfg.QueueRedisURL != "" {
		jobManager, err = setupJobs(cfg, logger)
		if err != nil {
			logging.LogError(logger, "failed to set up activity jobs", err)
			os.Exit(1)
		}
		jobManager.StartWorkers()
		defer func() {
			if err := jobManager.Shutdown(context.Background()); err != nil {
				logging.LogError(logger, "failed to stop activity jobs", err)
			}
		}()
		recorder = &activityRecorder{manager: jobManager}
	} else {
		logger.Info("activity recording disabled", "reason", "QUEUE_REDIS_URL is empty")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sessionManager := auth.NewSessionManager(cfg.SessionTTL)
	sessionManager.SetSecure(cfg.GinMode == gin.ReleaseMode)
	service := auth.NewService(
		users,
		auth.NewPasswordHasher(cfg.BcryptCost, cfg.HashConcurrency),
		sessionManager,
		recorder,
		logger,
	)
	authManager := auth.NewManager(service, auth.NewMetrics(registry), logger)

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()

	// セッションストアの設定（先頭の鍵で署名し、全ての鍵で検証する）
	store := cookie.NewStore(cfg.SessionKeyPairs()...)
	store.Options(sessionManager.CookieOptions())
	router.Use(sessions.Sessions(cfg.SessionCookieName, store))

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
	}
	router.Use(cors.New(corsConfig))

	// ルーティングの設定
	var activity activityReader
	if jobManager != nil {
		activity = jobManager
	}
	setupRoutes(router, authManager, activity, registry, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", srv.Addr, "mode", cfg.GinMode, "store", cfg.StoreDriver)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
		logger.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": serviceName,
		"version": "0.1.0",
	})
}

// setupRoutes は認証フローとその周辺のエンドポイントを配線します。
func setupRoutes(router *gin.Engine, authManager *auth.Manager, activity activityReader, registry *prometheus.Registry, logger *slog.Logger) {
	// 誰でも叩けるヘルスチェックとメトリクス
	router.GET("/health", handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// ログイン画面とログイン処理は同じパスを共有する
	router.GET("/", authManager.Root)
	router.POST("/", authManager.GuestOnlyLogin(), authManager.Login)
	router.POST("/register", authManager.GuestOnlyRegister(), authManager.Register)
	router.GET("/logout", authManager.Logout)

	router.GET("/activity", authManager.RequireLogin(), activityHandler(activity, logger))

	router.NoRoute(auth.NotFound)
}
