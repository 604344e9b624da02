// Package fitbit はFitbit連携の中核機能を提供する。
//
// OAuth認可フロー（AuthFlow）、トークン管理付きAPIクライアント
// （ProviderClient）、睡眠データの正規化（ConvertSleepResponse）、
// 同期状態の追跡（SyncTracker）を1つのファサード（Service）の
// 背後にまとめる。ハンドラーとワーカーはFitbitServiceインターフェース
// のみに依存する。
package fitbit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Michelan98/sleep-society/internal/metrics"
	"github.com/Michelan98/sleep-society/internal/model"
	"github.com/Michelan98/sleep-society/internal/repository"
)

// FitbitService はFitbit連携機能のファサードインターフェース。
type FitbitService interface {
	// GetAuthorizationURL は認可リダイレクト用URLを生成する。
	GetAuthorizationURL(ctx context.Context, userID string) (string, error)

	// ValidateState はコールバックのstateを検証する。保存済みstateは
	// 結果に関わらず消費される。
	ValidateState(ctx context.Context, userID, returnedState string) bool

	// ExchangeCode は認可コードをトークンに交換し、資格情報を保存する。
	ExchangeCode(ctx context.Context, userID, code string) error

	// Disconnect は資格情報と同期状態を削除する（冪等）。
	Disconnect(ctx context.Context, userID string) error

	// FetchSleepData は指定日の睡眠データを取得・正規化・保存する。
	// 未連携、プロバイダー障害、データなしのいずれの場合もnilを返す。
	// プロバイダー側の失敗はここで全て吸収され、エラーとして伝播しない。
	FetchSleepData(ctx context.Context, userID string, date time.Time) *model.SleepRecord

	// Connected はFitbit連携済みかどうかを返す。
	Connected(ctx context.Context, userID string) (bool, error)

	// LastSyncTime は最終同期時刻を返す。未同期の場合はnil。
	LastSyncTime(ctx context.Context, userID string) (*time.Time, error)

	// IsSyncDue はバックグラウンド同期が必要かどうかを返す。
	IsSyncDue(ctx context.Context, userID string, now time.Time) (bool, error)
}

// Service はFitbitServiceの実装。
type Service struct {
	authFlow      *AuthFlow
	syncTracker   *SyncTracker
	client        ProviderClient
	creds         repository.CredentialRepository
	sleeps        repository.SleepRepository
	collector     metrics.MetricsCollector
	logger        *slog.Logger
	refreshMargin time.Duration
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	authFlow *AuthFlow,
	syncTracker *SyncTracker,
	client ProviderClient,
	creds repository.CredentialRepository,
	sleeps repository.SleepRepository,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	refreshMargin time.Duration,
) *Service {
	return &Service{
		authFlow:      authFlow,
		syncTracker:   syncTracker,
		client:        client,
		creds:         creds,
		sleeps:        sleeps,
		collector:     collector,
		logger:        logger,
		refreshMargin: refreshMargin,
	}
}

// GetAuthorizationURL は認可リダイレクト用URLを生成する。
func (s *Service) GetAuthorizationURL(ctx context.Context, userID string) (string, error) {
	return s.authFlow.BuildAuthorizationURL(ctx, userID)
}

// ValidateState はコールバックのstateを検証する。
func (s *Service) ValidateState(ctx context.Context, userID, returnedState string) bool {
	return s.authFlow.ValidateState(ctx, userID, returnedState)
}

// ExchangeCode は認可コードをトークンに交換し、資格情報を保存する。
func (s *Service) ExchangeCode(ctx context.Context, userID, code string) error {
	return s.authFlow.ExchangeCode(ctx, userID, code)
}

// Disconnect は資格情報と同期状態を削除する。
func (s *Service) Disconnect(ctx context.Context, userID string) error {
	return s.authFlow.Disconnect(ctx, userID)
}

// FetchSleepData は指定日の睡眠データを取得・正規化・保存する。
//
// 失敗は全てこの境界で吸収する。未連携・リフレッシュ失敗・API障害・
// データなしはいずれもnilとして呼び出し側に返り、呼び出し側は内部
// ストアへフォールバックする。フェッチ成功時は（睡眠ログが空でも）
// 同期済みとして記録する。
func (s *Service) FetchSleepData(ctx context.Context, userID string, date time.Time) *model.SleepRecord {
	creds, err := s.creds.Load(ctx, userID)
	if err != nil {
		s.recordSyncFailure(userID, "credential_load_failed", err)
		return nil
	}
	if creds == nil {
		// 未連携。失敗ではない。
		return nil
	}

	creds, err = s.ensureFreshCredentials(ctx, userID, creds)
	if err != nil {
		s.recordSyncFailure(userID, "refresh_failed", err)
		return nil
	}

	resp, err := s.fetchWithRetry(ctx, userID, creds, date)
	if err != nil {
		s.recordSyncFailure(userID, "provider_error", err)
		return nil
	}

	now := time.Now()
	if err := s.syncTracker.MarkSynced(ctx, userID, now); err != nil {
		s.recordSyncFailure(userID, "sync_state_save_failed", err)
		return nil
	}

	record := ConvertSleepResponse(resp)
	if record == nil {
		// フェッチは成功したがこの日の睡眠ログがない
		s.collector.RecordSyncSuccess()
		return nil
	}

	record.ID = uuid.New().String()
	record.UserID = userID
	record.CreatedAt = now
	if record.Date.IsZero() {
		record.Date = date
	}
	if err := s.sleeps.UpsertProviderRecord(ctx, record); err != nil {
		s.recordSyncFailure(userID, "record_save_failed", err)
		return nil
	}

	s.collector.RecordSyncSuccess()
	s.collector.RecordSleepRecordsImported(1)
	s.logger.Info("sleep data synced",
		slog.String("user_id", userID),
		slog.String("date", date.Format("2006-01-02")),
		slog.Int("energy_score", record.EnergyScore))
	return record
}

// ensureFreshCredentials は期限切れ間近の資格情報をリフレッシュする。
// リフレッシュトークンは使い捨てのため、新しい資格情報は即座に保存する。
func (s *Service) ensureFreshCredentials(ctx context.Context, userID string, creds *model.FitbitCredentials) (*model.FitbitCredentials, error) {
	if !creds.Expired(time.Now(), s.refreshMargin) {
		return creds, nil
	}

	refreshed, err := s.client.RefreshToken(ctx, creds.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	if err := s.creds.Save(ctx, userID, refreshed); err != nil {
		return nil, fmt.Errorf("failed to save refreshed credentials: %w", err)
	}

	s.logger.Debug("access token refreshed", slog.String("user_id", userID))
	return refreshed, nil
}

// fetchWithRetry は睡眠データを取得する。期限内のはずのトークンが
// 拒否された場合はリフレッシュして1回だけ再試行する。
func (s *Service) fetchWithRetry(ctx context.Context, userID string, creds *model.FitbitCredentials, date time.Time) (*model.FitbitSleepResponse, error) {
	start := time.Now()
	resp, err := s.client.FetchSleep(ctx, creds.AccessToken, date)
	s.collector.RecordFetchLatency(time.Since(start))
	if err == nil {
		return resp, nil
	}
	if !errors.Is(err, ErrTokenRejected) {
		return nil, err
	}

	refreshed, err := s.client.RefreshToken(ctx, creds.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("token refresh after rejection failed: %w", err)
	}
	if err := s.creds.Save(ctx, userID, refreshed); err != nil {
		return nil, fmt.Errorf("failed to save refreshed credentials: %w", err)
	}

	start = time.Now()
	resp, err = s.client.FetchSleep(ctx, refreshed.AccessToken, date)
	s.collector.RecordFetchLatency(time.Since(start))
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Connected はFitbit連携済みかどうかを返す。
func (s *Service) Connected(ctx context.Context, userID string) (bool, error) {
	creds, err := s.creds.Load(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load credentials: %w", err)
	}
	return creds != nil, nil
}

// LastSyncTime は最終同期時刻を返す。
func (s *Service) LastSyncTime(ctx context.Context, userID string) (*time.Time, error) {
	return s.syncTracker.LastSyncTime(ctx, userID)
}

// IsSyncDue はバックグラウンド同期が必要かどうかを返す。
func (s *Service) IsSyncDue(ctx context.Context, userID string, now time.Time) (bool, error) {
	return s.syncTracker.IsSyncDue(ctx, userID, now)
}

func (s *Service) recordSyncFailure(userID, reason string, err error) {
	s.collector.RecordSyncFailure(reason)
	s.logger.Warn("sleep data sync failed",
		slog.String("user_id", userID),
		slog.String("reason", reason),
		slog.String("error", err.Error()))
}

// compile-time interface check
var _ FitbitService = (*Service)(nil)
