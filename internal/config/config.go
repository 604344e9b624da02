// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// FitbitMode はFitbit連携のバッキング実装を指定する。
type FitbitMode string

const (
	// FitbitModeDirect はFitbit Web APIを直接呼び出すモード。
	FitbitModeDirect FitbitMode = "direct"
	// FitbitModeMock は固定データを返すモック実装を使用するモード。
	// ローカル開発およびプロバイダー資格情報なしでの動作確認用。
	FitbitModeMock FitbitMode = "mock"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Fitbit OAuth
	FitbitClientID     string
	FitbitClientSecret string
	FitbitRedirectURL  string
	FitbitScopes       string
	FitbitMode         FitbitMode

	// テスト・セルフホスト環境向けにオーバーライド可能なプロバイダーURL
	FitbitAuthURL    string
	FitbitTokenURL   string
	FitbitAPIBaseURL string

	// Provider HTTP
	ProviderTimeout    time.Duration
	TokenRefreshMargin time.Duration
	OAuthStateTTL      time.Duration

	// Session
	SessionMaxAge int

	// Sync worker
	SyncCheckInterval time.Duration
	SyncMaxConcurrent int

	// Rate Limit
	RateLimitGeneral int
	RateLimitConnect int

	// Feed / Leaderboard
	FeedPageSize    int
	LeaderboardSize int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

const (
	defaultFitbitAuthURL    = "https://www.fitbit.com/oauth2/authorize"
	defaultFitbitTokenURL   = "https://api.fitbit.com/oauth2/token"
	defaultFitbitAPIBaseURL = "https://api.fitbit.com"
)

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
// FITBIT_MODE=mock の場合、Fitbitのクライアント資格情報は必須ではない。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.FitbitMode = FitbitMode(getEnvString("FITBIT_MODE", string(FitbitModeDirect)))
	if cfg.FitbitMode != FitbitModeDirect && cfg.FitbitMode != FitbitModeMock {
		return nil, fmt.Errorf("invalid FITBIT_MODE: %q (allowed: direct, mock)", cfg.FitbitMode)
	}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	cfg.FitbitClientID = os.Getenv("FITBIT_CLIENT_ID")
	cfg.FitbitClientSecret = os.Getenv("FITBIT_CLIENT_SECRET")
	cfg.FitbitRedirectURL = os.Getenv("FITBIT_REDIRECT_URL")
	if cfg.FitbitMode == FitbitModeDirect {
		if cfg.FitbitClientID == "" {
			missing = append(missing, "FITBIT_CLIENT_ID")
		}
		if cfg.FitbitClientSecret == "" {
			missing = append(missing, "FITBIT_CLIENT_SECRET")
		}
		if cfg.FitbitRedirectURL == "" {
			missing = append(missing, "FITBIT_REDIRECT_URL")
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.FitbitScopes = getEnvString("FITBIT_SCOPES", "sleep")
	cfg.FitbitAuthURL = getEnvString("FITBIT_AUTH_URL", defaultFitbitAuthURL)
	cfg.FitbitTokenURL = getEnvString("FITBIT_TOKEN_URL", defaultFitbitTokenURL)
	cfg.FitbitAPIBaseURL = getEnvString("FITBIT_API_BASE_URL", defaultFitbitAPIBaseURL)
	cfg.ProviderTimeout = getEnvDuration("PROVIDER_TIMEOUT", 10*time.Second)
	cfg.TokenRefreshMargin = getEnvDuration("TOKEN_REFRESH_MARGIN", time.Minute)
	cfg.OAuthStateTTL = getEnvDuration("OAUTH_STATE_TTL", 10*time.Minute)
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.SyncCheckInterval = getEnvDuration("SYNC_CHECK_INTERVAL", time.Hour)
	cfg.SyncMaxConcurrent = getEnvInt("SYNC_MAX_CONCURRENT", 5)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitConnect = getEnvInt("RATE_LIMIT_CONNECT", 10)
	cfg.FeedPageSize = getEnvInt("FEED_PAGE_SIZE", 20)
	cfg.LeaderboardSize = getEnvInt("LEADERBOARD_SIZE", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
