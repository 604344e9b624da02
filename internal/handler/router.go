package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Michelan98/sleep-society/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// Fitbit連携
	FitbitService      FitbitServiceInterface
	DashboardRefresher DashboardRefresher
	FitbitConfig       FitbitHandlerConfig

	// ダッシュボード
	DashboardService DashboardServiceInterface

	// 睡眠記録
	SleepService SleepServiceInterface

	// ユーザー
	UserService UserServiceInterface

	// 通知
	NotificationService NotificationServiceInterface

	// 監視
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → CSRF → SessionMiddleware → RateLimit(General)
//
// 認証ルート（/auth/*）とヘルスチェック・メトリクスはセッションミドルウェアの外に配置する。
// Fitbit接続開始にはさらに接続フロー専用のレート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	fitbitHandler := NewFitbitHandler(deps.FitbitService, deps.DashboardRefresher, deps.FitbitConfig)
	dashboardHandler := NewDashboardHandler(deps.DashboardService)
	sleepHandler := NewSleepHandler(deps.SleepService)
	userHandler := NewUserHandler(deps.UserService)
	notificationHandler := NewNotificationHandler(deps.NotificationService)

	sessionMiddleware := middleware.NewSessionMiddleware(deps.SessionFinder)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)

		// Fitbitからのリダイレクト先。セッションCookie（SameSite=Lax）は
		// トップレベルGETナビゲーションで送信されるため認証できる。
		r.With(sessionMiddleware).Get("/fitbit/callback", fitbitHandler.Callback)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(sessionMiddleware)
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ダッシュボード
		r.Get("/api/dashboard", dashboardHandler.Get)

		// Fitbit連携
		r.Route("/api/fitbit", func(r chi.Router) {
			// POST /api/fitbit/connect - 接続開始（接続フロー専用レート制限を追加）
			r.With(deps.RateLimiter.ConnectMiddleware()).Post("/connect", fitbitHandler.Connect)

			r.Post("/sync", fitbitHandler.Sync)
			r.Delete("/connection", fitbitHandler.Disconnect)
			r.Get("/status", fitbitHandler.Status)
		})

		// 睡眠記録
		r.Route("/api/sleep", func(r chi.Router) {
			r.Get("/latest", sleepHandler.Latest)
			r.Get("/history", sleepHandler.History)
			r.Post("/records", sleepHandler.CreateManualEntry)
			r.Post("/records/{recordID}/like", sleepHandler.Like)
		})

		// ソーシャル
		r.Get("/api/feed", sleepHandler.Feed)
		r.Get("/api/leaderboard", sleepHandler.Leaderboard)

		// ユーザー管理
		r.Route("/api/users", func(r chi.Router) {
			r.Get("/me", userHandler.GetMyProfile)
			r.Patch("/me", userHandler.UpdateMyProfile)
			r.Delete("/me", userHandler.Withdraw)

			r.Route("/{userID}", func(r chi.Router) {
				r.Get("/", userHandler.GetProfile)
				r.Post("/follow", userHandler.Follow)
				r.Delete("/follow", userHandler.Unfollow)
			})
		})

		// 通知
		r.Route("/api/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.List)
			r.Post("/{notificationID}/read", notificationHandler.MarkRead)
		})
	})

	return r
}
