// Package dashboard はダッシュボード表示用データの編成を提供する。
//
// プロフィール・Fitbit連携・内部睡眠ストアを束ね、どのデータソースが
// 値を供給したかを呼び出し側に示す。プロバイダー側の失敗は内部ストアへの
// フォールバックと通知に変換され、ダッシュボードを壊さない。
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Michelan98/sleep-society/internal/fitbit"
	"github.com/Michelan98/sleep-society/internal/model"
	"github.com/Michelan98/sleep-society/internal/notification"
)

// ProfileService はプロフィール取得の依存インターフェース。
type ProfileService interface {
	GetProfile(ctx context.Context, userID string) (*model.User, error)
}

// InternalSleepService は内部睡眠ストアの依存インターフェース。
// プロバイダーがデータを返さなかった場合のフォールバック先。
type InternalSleepService interface {
	Latest(ctx context.Context, userID string) (*model.SleepRecord, error)
}

// Data はダッシュボード1画面分のデータを表す。
// Sourceは保存値ではなく、このフェッチサイクルでどちらのバックエンドが
// Sleepを供給したかを示す導出値。
type Data struct {
	User         *model.User
	Sleep        *model.SleepRecord
	Source       model.DataSource
	LastSyncTime *time.Time
}

// Service はダッシュボードデータのオーケストレーター。
type Service struct {
	profiles ProfileService
	fitbit   fitbit.FitbitService
	internal InternalSleepService
	notifier notification.Notifier
}

// NewService はServiceを生成する。
func NewService(
	profiles ProfileService,
	fitbitSvc fitbit.FitbitService,
	internal InternalSleepService,
	notifier notification.Notifier,
) *Service {
	return &Service{
		profiles: profiles,
		fitbit:   fitbitSvc,
		internal: internal,
		notifier: notifier,
	}
}

// FetchData はダッシュボード1画面分のデータを組み立てる。
//
// プロフィール取得後、Fitbit連携済みならプロバイダーから睡眠データを
// 試行する。プロバイダーが値を返さなかった場合（未連携・障害・データなし）
// は内部ストアにフォールバックし、内部ストアの失敗は通知に変換して
// 睡眠データなしで返す。プロフィール取得の失敗のみエラーとして伝播する。
func (s *Service) FetchData(ctx context.Context, userID string) (*Data, error) {
	user, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	data := &Data{
		User:   user,
		Source: model.DataSourceInternal,
	}

	if user.Connection.Connected() {
		// FetchSleepDataは失敗を内部で吸収する。nilはフォールバックの合図。
		if record := s.fitbit.FetchSleepData(ctx, userID, time.Now()); record != nil {
			data.Sleep = record
			data.Source = model.DataSourceProvider
		}

		lastSync, err := s.fitbit.LastSyncTime(ctx, userID)
		if err != nil {
			slog.Warn("failed to load last sync time",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		} else {
			data.LastSyncTime = lastSync
		}
	}

	if data.Sleep == nil {
		record, err := s.internal.Latest(ctx, userID)
		if err != nil {
			s.notifier.NotifyError(ctx, userID, "データ取得エラー", "睡眠データの読み込みに失敗しました。")
			slog.Error("internal sleep store fallback failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			return data, nil
		}
		data.Sleep = record
	}

	return data, nil
}

// HandleConnectionChange は連携状態の変化後のデータ更新を行う。
//
// 連携解除直後は内部フォールバックで画面を即座に埋め直すため再フェッチする。
// 連携直後は再フェッチしない。プロバイダーからの初回フェッチ成功後に
// 呼び出し側が明示的にFetchDataを呼ぶ契約。
func (s *Service) HandleConnectionChange(ctx context.Context, userID string, connected bool) (*Data, error) {
	if connected {
		return nil, nil
	}
	return s.FetchData(ctx, userID)
}
