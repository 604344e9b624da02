// Package cleanup は期限切れデータの自動削除ジョブを提供する。
// 期限切れセッション、期限切れOAuth state、保持期間（デフォルト30日）を
// 超過した通知を日次バッチで削除する。セッションとstateは読み取り時に
// 期限切れ行を無視するため機能上は無害だが、削除しないと行が溜まり続ける。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CleanupJob は期限切れデータの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	db                        Executor
	logger                    *slog.Logger
	NotificationRetentionDays int // 通知の保持日数（デフォルト: 30）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの通知保持日数は30日。
func NewCleanupJob(db Executor, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		db:                        db,
		logger:                    logger,
		NotificationRetentionDays: 30,
	}
}

// Run は期限切れデータを削除する。
//   - sessions: expires_atを過ぎた行
//   - fitbit_oauth_states: expires_atを過ぎた行（放棄された連携フローの残骸）
//   - notifications: created_atが保持期間より古い行
//
// ステップ単位で独立しており、1つが失敗しても残りは実行される。
// 最初に発生したエラーを返す。冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	steps := []struct {
		name  string
		query string
		args  []interface{}
	}{
		{
			name:  "expired_sessions",
			query: `DELETE FROM sessions WHERE expires_at < now()`,
		},
		{
			name:  "expired_oauth_states",
			query: `DELETE FROM fitbit_oauth_states WHERE expires_at < now()`,
		},
		{
			name:  "old_notifications",
			query: `DELETE FROM notifications WHERE created_at < now() - $1::interval`,
			args:  []interface{}{fmt.Sprintf("%d days", j.NotificationRetentionDays)},
		},
	}

	var firstErr error
	total := int64(0)
	for _, step := range steps {
		result, err := j.db.ExecContext(ctx, step.query, step.args...)
		if err != nil {
			j.logger.Error("クリーンアップステップの実行に失敗しました",
				slog.String("step", step.name),
				slog.String("error", err.Error()),
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("cleanup step %s failed: %w", step.name, err)
			}
			continue
		}

		deleted, err := result.RowsAffected()
		if err != nil {
			j.logger.Error("削除件数の取得に失敗しました",
				slog.String("step", step.name),
				slog.String("error", err.Error()),
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("cleanup step %s: failed to read affected rows: %w", step.name, err)
			}
			continue
		}

		total += deleted
		j.logger.Info("クリーンアップステップが完了しました",
			slog.String("step", step.name),
			slog.Int64("deleted_count", deleted),
		)
	}

	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("total_deleted", total),
		slog.Int("notification_retention_days", j.NotificationRetentionDays),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return firstErr
}

// Start は日次ティッカーでクリーンアップジョブを起動する。
// 起動直後に1回実行し、以降はintervalごとに実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	if err := j.Run(ctx); err != nil {
		j.logger.Error("クリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("クリーンアップジョブの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
