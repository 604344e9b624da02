package fitbit

import (
	"context"
	"fmt"
	"time"

	"github.com/Michelan98/sleep-society/internal/repository"
)

// SyncTracker はユーザーごとの最終同期時刻を追跡する。
// 同期の要否は経過時間ではなく暦日で判定する。深夜0時をまたげば
// 2分前の同期でも再同期対象になり、同じ日の23時間前の同期は対象外。
type SyncTracker struct {
	syncStates repository.SyncStateRepository
}

// NewSyncTracker はSyncTrackerの新しいインスタンスを生成する。
func NewSyncTracker(syncStates repository.SyncStateRepository) *SyncTracker {
	return &SyncTracker{syncStates: syncStates}
}

// MarkSynced は指定時刻を最終同期時刻として記録する。
func (t *SyncTracker) MarkSynced(ctx context.Context, userID string, now time.Time) error {
	if err := t.syncStates.Save(ctx, userID, now); err != nil {
		return fmt.Errorf("failed to save sync state: %w", err)
	}
	return nil
}

// LastSyncTime は最終同期時刻を返す。未同期の場合はnilを返す。
func (t *SyncTracker) LastSyncTime(ctx context.Context, userID string) (*time.Time, error) {
	syncedAt, err := t.syncStates.Find(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find sync state: %w", err)
	}
	return syncedAt, nil
}

// IsSyncDue は同期が必要かどうかを返す。
// 一度も同期していない場合、または最終同期の暦日（年・月・日）が
// nowの暦日と異なる場合にtrueを返す。
func (t *SyncTracker) IsSyncDue(ctx context.Context, userID string, now time.Time) (bool, error) {
	lastSync, err := t.LastSyncTime(ctx, userID)
	if err != nil {
		return false, err
	}
	if lastSync == nil {
		return true, nil
	}
	return !sameCalendarDate(*lastSync, now), nil
}

// Clear は同期状態を削除する。連携解除時に呼ばれる。
func (t *SyncTracker) Clear(ctx context.Context, userID string) error {
	if err := t.syncStates.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete sync state: %w", err)
	}
	return nil
}

// sameCalendarDate は2つの時刻が同じ暦日かどうかを返す。
// DBに保存された時刻はUTCで返るため、比較前にnow側のロケーションへ揃える。
func sameCalendarDate(a, b time.Time) bool {
	a = a.In(b.Location())
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
