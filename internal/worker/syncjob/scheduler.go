// Package syncjob はFitbit睡眠データのバックグラウンド同期を提供する。
// 連携済みユーザーを定期的に走査し、当日分が未同期のユーザーの睡眠データを
// 取り込む。ダッシュボードを開かないユーザーの記録もフィードと
// リーダーボードに反映させるための仕組み。
package syncjob

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Michelan98/sleep-society/internal/model"
	"github.com/Michelan98/sleep-society/internal/notification"
	"github.com/Michelan98/sleep-society/internal/repository"
)

// SleepSyncer は1ユーザー分の同期実行インターフェース。
type SleepSyncer interface {
	// IsSyncDue はバックグラウンド同期が必要かどうかを返す。
	IsSyncDue(ctx context.Context, userID string, now time.Time) (bool, error)
	// FetchSleepData は指定日の睡眠データを取得・保存する。
	// 失敗は内部で吸収されるためエラーを返さない。
	FetchSleepData(ctx context.Context, userID string, date time.Time) *model.SleepRecord
}

// Scheduler は連携済みユーザーの睡眠データ同期をスケジューリングする。
// 定期ティッカーで連携済みユーザーを走査し、semaphoreパターンで
// 最大並列数を制御しながら同期を実行する。
type Scheduler struct {
	creds          repository.CredentialRepository
	syncer         SleepSyncer
	notifier       notification.Notifier
	logger         *slog.Logger
	maxConcurrency int
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値5を使用する。
func NewScheduler(
	creds repository.CredentialRepository,
	syncer SleepSyncer,
	notifier notification.Notifier,
	logger *slog.Logger,
	maxConcurrency int,
) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}
	return &Scheduler{
		creds:          creds,
		syncer:         syncer,
		notifier:       notifier,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("睡眠同期スケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("同期サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("睡眠同期スケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("同期サイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は連携済みユーザーを1回走査し、同期が必要なユーザーの
// 睡眠データを並列で取り込む。semaphoreパターンで並列数を制御する。
//
// 同一カレンダー日に同期済みのユーザーはスキップされる。手動同期や
// ダッシュボード経由の取得も同期時刻を更新するため、二重取り込みは
// 発生しない（プロバイダー記録の保存自体も冪等）。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	userIDs, err := s.creds.ListConnectedUserIDs(ctx)
	if err != nil {
		return err
	}

	if len(userIDs) == 0 {
		s.logger.Info("同期対象のユーザーはいません")
		return nil
	}

	s.logger.Info("同期サイクルを開始します",
		slog.Int("user_count", len(userIDs)),
	)

	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup
	var synced, skipped int
	var mu sync.Mutex

	for _, userID := range userIDs {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			now := time.Now()
			due, err := s.syncer.IsSyncDue(ctx, id, now)
			if err != nil {
				s.logger.Error("同期要否の判定に失敗しました",
					slog.String("user_id", id),
					slog.String("error", err.Error()),
				)
				return
			}
			if !due {
				mu.Lock()
				skipped++
				mu.Unlock()
				return
			}

			// 失敗はFetchSleepData内で吸収・記録される
			if record := s.syncer.FetchSleepData(ctx, id, now); record != nil {
				s.notifier.NotifyInfo(ctx, id, "睡眠データを同期しました",
					"Fitbitから "+record.Date.Format("2006-01-02")+" の睡眠記録を取り込みました。")
			}

			mu.Lock()
			synced++
			mu.Unlock()
		}(userID)
	}

	wg.Wait()

	s.logger.Info("同期サイクルが完了しました",
		slog.Int("synced", synced),
		slog.Int("skipped", skipped),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}
