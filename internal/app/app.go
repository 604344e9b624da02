// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/Michelan98/sleep-society/internal/auth"
	"github.com/Michelan98/sleep-society/internal/config"
	"github.com/Michelan98/sleep-society/internal/dashboard"
	"github.com/Michelan98/sleep-society/internal/database"
	"github.com/Michelan98/sleep-society/internal/fitbit"
	"github.com/Michelan98/sleep-society/internal/handler"
	"github.com/Michelan98/sleep-society/internal/logger"
	"github.com/Michelan98/sleep-society/internal/metrics"
	"github.com/Michelan98/sleep-society/internal/middleware"
	"github.com/Michelan98/sleep-society/internal/notification"
	"github.com/Michelan98/sleep-society/internal/repository"
	"github.com/Michelan98/sleep-society/internal/security"
	"github.com/Michelan98/sleep-society/internal/sleep"
	"github.com/Michelan98/sleep-society/internal/user"
	"github.com/Michelan98/sleep-society/internal/worker/cleanup"
	"github.com/Michelan98/sleep-society/internal/worker/syncjob"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("fitbit_mode", string(cfg.FitbitMode)),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// fitbitDeps はFitbitサービス一式のワイヤリング結果。
// serveモードとworkerモードで共用する。
type fitbitDeps struct {
	service   fitbit.FitbitService
	credsRepo repository.CredentialRepository
	collector *metrics.Collector
	registry  *prometheus.Registry
}

// buildFitbitService はFitbit連携サービスの依存関係を構築する。
// FITBIT_MODE=mock の場合は外部APIを呼ばないモッククライアントを使用する。
func buildFitbitService(cfg *config.Config, db *sql.DB) (*fitbitDeps, error) {
	credsRepo := repository.NewPostgresCredentialRepo(db)
	stateRepo := repository.NewPostgresOAuthStateRepo(db)
	syncStateRepo := repository.NewPostgresSyncStateRepo(db)
	sleepRepo := repository.NewPostgresSleepRepo(db)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	var client fitbit.ProviderClient
	switch cfg.FitbitMode {
	case config.FitbitModeMock:
		client = fitbit.NewMockProviderClient()
	default:
		guard := security.NewOutboundGuard()
		if err := guard.ValidateURL(cfg.FitbitTokenURL); err != nil {
			return nil, fmt.Errorf("invalid FITBIT_TOKEN_URL: %w", err)
		}
		if err := guard.ValidateURL(cfg.FitbitAPIBaseURL); err != nil {
			return nil, fmt.Errorf("invalid FITBIT_API_BASE_URL: %w", err)
		}
		client = fitbit.NewHTTPProviderClient(fitbit.HTTPProviderClientConfig{
			ClientID:     cfg.FitbitClientID,
			ClientSecret: cfg.FitbitClientSecret,
			RedirectURL:  cfg.FitbitRedirectURL,
			TokenURL:     cfg.FitbitTokenURL,
			APIBaseURL:   cfg.FitbitAPIBaseURL,
		}, guard.NewSafeClient(cfg.ProviderTimeout), slog.Default())
	}

	syncTracker := fitbit.NewSyncTracker(syncStateRepo)
	authFlow := fitbit.NewAuthFlow(
		fitbit.AuthFlowConfig{
			AuthURL:     cfg.FitbitAuthURL,
			ClientID:    cfg.FitbitClientID,
			Scopes:      cfg.FitbitScopes,
			RedirectURL: cfg.FitbitRedirectURL,
			StateTTL:    cfg.OAuthStateTTL,
		},
		stateRepo, credsRepo, syncTracker, client, collector, slog.Default(),
	)

	service := fitbit.NewService(
		authFlow, syncTracker, client, credsRepo, sleepRepo,
		collector, slog.Default(), cfg.TokenRefreshMargin,
	)

	return &fitbitDeps{
		service:   service,
		credsRepo: credsRepo,
		collector: collector,
		registry:  registry,
	}, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	followRepo := repository.NewPostgresFollowRepo(db)
	sleepRepo := repository.NewPostgresSleepRepo(db)
	notificationRepo := repository.NewPostgresNotificationRepo(db)

	// 3. セキュリティサービスの初期化
	sanitizer := security.NewContentSanitizer()

	// 4. Fitbit連携サービスの構築
	fb, err := buildFitbitService(cfg, db)
	if err != nil {
		return fmt.Errorf("failed to build fitbit service: %w", err)
	}

	// 5. ドメインサービスの初期化
	authService := auth.NewService(userRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge})

	userService := user.NewService(userRepo, followRepo, fb.service, sanitizer)

	sleepService := sleep.NewService(sleepRepo, followRepo, sanitizer, sleep.ServiceConfig{
		FeedPageSize:    cfg.FeedPageSize,
		LeaderboardSize: cfg.LeaderboardSize,
	})

	notificationService := notification.NewService(notificationRepo)

	dashboardService := dashboard.NewService(userService, fb.service, sleepService, notificationService)

	// 6. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	// configのレート値はreq/min単位なのでreq/secに変換する
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.ConnectRate = rate.Limit(float64(cfg.RateLimitConnect) / 60.0)
	rateLimiterCfg.ConnectBurst = cfg.RateLimitConnect

	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	csrfConfig := middleware.CSRFConfig{
		CookieSecure: cfg.CookieSecure,
		CookieDomain: cfg.CookieDomain,
	}

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig:        csrfConfig,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		FitbitService:      fb.service,
		DashboardRefresher: dashboardService,
		FitbitConfig: handler.FitbitHandlerConfig{
			DashboardURL: cfg.BaseURL + "/dashboard",
		},

		DashboardService:    dashboardService,
		SleepService:        sleepService,
		UserService:         userService,
		NotificationService: notificationService,

		MetricsHandler: metrics.Handler(fb.registry),
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker は同期ワーカーモードで起動する。
// DB接続を開き、睡眠データ同期スケジューラを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. Fitbit連携サービスの構築
	fb, err := buildFitbitService(cfg, db)
	if err != nil {
		return fmt.Errorf("failed to build fitbit service: %w", err)
	}

	// 3. スケジューラの起動
	notificationService := notification.NewService(repository.NewPostgresNotificationRepo(db))
	scheduler := syncjob.NewScheduler(
		fb.credsRepo, fb.service, notificationService, slog.Default(), cfg.SyncMaxConcurrent,
	)

	// 4. クリーンアップジョブの起動（日次）
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("sync_check_interval", cfg.SyncCheckInterval),
		slog.Int("max_concurrent", cfg.SyncMaxConcurrent),
	)

	// クリーンアップジョブはバックグラウンドで日次実行
	go cleanupJob.Start(ctx, 24*time.Hour)

	// 同期スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.SyncCheckInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
