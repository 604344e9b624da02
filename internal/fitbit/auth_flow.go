package fitbit

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/Michelan98/sleep-society/internal/metrics"
	"github.com/Michelan98/sleep-society/internal/model"
	"github.com/Michelan98/sleep-society/internal/repository"
)

// AuthFlowConfig はOAuth認可フローの設定。
type AuthFlowConfig struct {
	AuthURL     string
	ClientID    string
	Scopes      string
	RedirectURL string
	StateTTL    time.Duration
}

// AuthFlow はFitbit OAuth認可フローを管理する。
// CSRF対策のstateトークンはユーザーごとに1つで、検証時に結果に
// 関わらず消費される（再利用不可）。
type AuthFlow struct {
	config    AuthFlowConfig
	states    repository.OAuthStateRepository
	creds     repository.CredentialRepository
	sync      *SyncTracker
	client    ProviderClient
	collector metrics.MetricsCollector
	logger    *slog.Logger
}

// NewAuthFlow はAuthFlowの新しいインスタンスを生成する。
func NewAuthFlow(
	config AuthFlowConfig,
	states repository.OAuthStateRepository,
	creds repository.CredentialRepository,
	sync *SyncTracker,
	client ProviderClient,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *AuthFlow {
	return &AuthFlow{
		config:    config,
		states:    states,
		creds:     creds,
		sync:      sync,
		client:    client,
		collector: collector,
		logger:    logger,
	}
}

// BuildAuthorizationURL は認可リダイレクト用URLを生成する。
// 新しいstateトークンを生成・保存し、既存のstateは上書きされる。
func (f *AuthFlow) BuildAuthorizationURL(ctx context.Context, userID string) (string, error) {
	state, err := generateStateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}

	now := time.Now()
	if err := f.states.Save(ctx, &model.OAuthState{
		UserID:    userID,
		State:     state,
		ExpiresAt: now.Add(f.config.StateTTL),
		CreatedAt: now,
	}); err != nil {
		return "", fmt.Errorf("failed to save state token: %w", err)
	}

	params := url.Values{}
	params.Set("client_id", f.config.ClientID)
	params.Set("response_type", "code")
	params.Set("scope", f.config.Scopes)
	params.Set("redirect_uri", f.config.RedirectURL)
	params.Set("state", state)

	return f.config.AuthURL + "?" + params.Encode(), nil
}

// ValidateState はコールバックで返されたstateを検証する。
// 保存済みstateは検証結果に関わらず消費される。保存済みstateが
// 存在しない・期限切れ・不一致のいずれもfalse（フェイルクローズ）。
func (f *AuthFlow) ValidateState(ctx context.Context, userID, returnedState string) bool {
	stored, err := f.states.Consume(ctx, userID)
	if err != nil {
		f.logger.Error("failed to consume oauth state",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return false
	}
	if stored == nil {
		return false
	}
	if time.Now().After(stored.ExpiresAt) {
		f.logger.Warn("oauth state expired", slog.String("user_id", userID))
		return false
	}
	if returnedState == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored.State), []byte(returnedState)) == 1
}

// ExchangeCode は認可コードをトークンに交換し、資格情報を保存する。
func (f *AuthFlow) ExchangeCode(ctx context.Context, userID, code string) error {
	creds, err := f.client.ExchangeCode(ctx, code)
	if err != nil {
		f.collector.RecordExchangeFailure()
		f.logger.Warn("authorization code exchange failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return model.NewExchangeFailedError("トークンエンドポイントがコードを拒否しました")
	}

	if err := f.creds.Save(ctx, userID, creds); err != nil {
		f.collector.RecordExchangeFailure()
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	f.collector.RecordExchangeSuccess()
	f.logger.Info("fitbit connected", slog.String("user_id", userID))
	return nil
}

// Disconnect は資格情報と同期状態を削除する。
// 未連携の状態で呼ばれても成功する（冪等）。
func (f *AuthFlow) Disconnect(ctx context.Context, userID string) error {
	if err := f.creds.Clear(ctx, userID); err != nil {
		f.logger.Error("failed to clear credentials",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return model.NewDisconnectFailedError()
	}
	if err := f.sync.Clear(ctx, userID); err != nil {
		f.logger.Error("failed to clear sync state",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return model.NewDisconnectFailedError()
	}

	f.logger.Info("fitbit disconnected", slog.String("user_id", userID))
	return nil
}

// generateStateToken は32バイトの乱数から64文字のhex文字列を生成する。
func generateStateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
