package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresSyncStateRepo はPostgreSQLを使用した同期状態リポジトリ。
type PostgresSyncStateRepo struct {
	db *sql.DB
}

// NewPostgresSyncStateRepo はPostgresSyncStateRepoを生成する。
func NewPostgresSyncStateRepo(db *sql.DB) *PostgresSyncStateRepo {
	return &PostgresSyncStateRepo{db: db}
}

// Save は最終同期時刻を保存する。既存の値は上書きされる。
func (r *PostgresSyncStateRepo) Save(ctx context.Context, userID string, syncedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO fitbit_sync_states (user_id, last_synced_at)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET last_synced_at = EXCLUDED.last_synced_at`,
		userID, syncedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save sync state: %w", err)
	}
	return nil
}

// Find は指定ユーザーの最終同期時刻を返す。未同期の場合はnilを返す。
func (r *PostgresSyncStateRepo) Find(ctx context.Context, userID string) (*time.Time, error) {
	var syncedAt time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT last_synced_at FROM fitbit_sync_states WHERE user_id = $1`,
		userID,
	).Scan(&syncedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find sync state: %w", err)
	}

	return &syncedAt, nil
}

// Delete は指定ユーザーの同期状態を削除する。存在しない場合も成功する。
func (r *PostgresSyncStateRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM fitbit_sync_states WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete sync state: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SyncStateRepository = (*PostgresSyncStateRepo)(nil)
