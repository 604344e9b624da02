package fitbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Michelan98/sleep-society/internal/model"
)

// ErrTokenRejected はアクセストークンがプロバイダーに拒否されたことを示す。
// 呼び出し側はリフレッシュ後に1回だけ再試行できる。
var ErrTokenRejected = errors.New("fitbit: access token rejected")

// ProviderClient はFitbit Web APIとの通信インターフェース。
// 実装はHTTPProviderClient（実API）とMockProviderClient（固定データ）の2つで、
// 設定のFITBIT_MODEに応じて起動時に選択される。
type ProviderClient interface {
	// ExchangeCode は認可コードをアクセストークンに交換する。
	ExchangeCode(ctx context.Context, code string) (*model.FitbitCredentials, error)

	// RefreshToken はリフレッシュトークンで新しい資格情報を取得する。
	RefreshToken(ctx context.Context, refreshToken string) (*model.FitbitCredentials, error)

	// FetchSleep は指定日の睡眠データを取得する。
	// トークンが拒否された場合はErrTokenRejectedを返す。
	FetchSleep(ctx context.Context, accessToken string, date time.Time) (*model.FitbitSleepResponse, error)
}

// HTTPProviderClientConfig はHTTPProviderClientの設定。
type HTTPProviderClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	TokenURL     string
	APIBaseURL   string
}

// HTTPProviderClient はFitbit Web APIを直接呼び出すProviderClient実装。
type HTTPProviderClient struct {
	config     HTTPProviderClientConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPProviderClient はHTTPProviderClientの新しいインスタンスを生成する。
// httpClientにはsecurity.OutboundGuardServiceが生成したSSRF防止付き
// クライアントを渡すこと。
func NewHTTPProviderClient(config HTTPProviderClientConfig, httpClient *http.Client, logger *slog.Logger) *HTTPProviderClient {
	return &HTTPProviderClient{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
	}
}

// tokenResponse はFitbitトークンエンドポイントのレスポンス。
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	UserID       string `json:"user_id"`
}

// ExchangeCode は認可コードをアクセストークンに交換する。
// Fitbitのトークンエンドポイントはクライアント資格情報をBasic認証で受け取る。
func (c *HTTPProviderClient) ExchangeCode(ctx context.Context, code string) (*model.FitbitCredentials, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.config.RedirectURL)

	return c.requestToken(ctx, form)
}

// RefreshToken はリフレッシュトークンで新しい資格情報を取得する。
// Fitbitのリフレッシュトークンは使い捨てで、レスポンスの新しい値で置き換える。
func (c *HTTPProviderClient) RefreshToken(ctx context.Context, refreshToken string) (*model.FitbitCredentials, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	return c.requestToken(ctx, form)
}

func (c *HTTPProviderClient) requestToken(ctx context.Context, form url.Values) (*model.FitbitCredentials, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(c.config.ClientID, c.config.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("token endpoint returned non-200",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)))
		return nil, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}

	return &model.FitbitCredentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(token.ExpiresIn) * time.Second),
		FitbitUserID: token.UserID,
	}, nil
}

// FetchSleep は指定日の睡眠データを取得する。
// Fitbit Web APIの睡眠エンドポイント（v1.2）を使用する。
func (c *HTTPProviderClient) FetchSleep(ctx context.Context, accessToken string, date time.Time) (*model.FitbitSleepResponse, error) {
	endpoint := fmt.Sprintf("%s/1.2/user/-/sleep/date/%s.json",
		strings.TrimSuffix(c.config.APIBaseURL, "/"), date.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create sleep request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sleep request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrTokenRejected
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("sleep endpoint returned status %d", resp.StatusCode)
	}

	var sleepResp model.FitbitSleepResponse
	if err := json.NewDecoder(resp.Body).Decode(&sleepResp); err != nil {
		return nil, fmt.Errorf("failed to decode sleep response: %w", err)
	}

	return &sleepResp, nil
}

// compile-time interface check
var _ ProviderClient = (*HTTPProviderClient)(nil)
