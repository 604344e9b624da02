package fitbit

import (
	"context"
	"errors"
	"testing"
	"time"
)

// mockSyncStateRepository は関数フィールドで挙動を差し替えるモック
type mockSyncStateRepository struct {
	saveFunc   func(ctx context.Context, userID string, syncedAt time.Time) error
	findFunc   func(ctx context.Context, userID string) (*time.Time, error)
	deleteFunc func(ctx context.Context, userID string) error
}

func (m *mockSyncStateRepository) Save(ctx context.Context, userID string, syncedAt time.Time) error {
	return m.saveFunc(ctx, userID, syncedAt)
}

func (m *mockSyncStateRepository) Find(ctx context.Context, userID string) (*time.Time, error) {
	return m.findFunc(ctx, userID)
}

func (m *mockSyncStateRepository) Delete(ctx context.Context, userID string) error {
	return m.deleteFunc(ctx, userID)
}

// 暦日境界の判定を検証する。経過時間ではなく年・月・日の一致で決まる。
func TestSyncTracker_IsSyncDue(t *testing.T) {
	tests := []struct {
		name     string
		lastSync *time.Time
		now      time.Time
		want     bool
	}{
		{
			name:     "未同期なら常にdue",
			lastSync: nil,
			now:      time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC),
			want:     true,
		},
		{
			name:     "同じ日の23時間前はdueでない",
			lastSync: timePtr(time.Date(2026, 3, 15, 0, 30, 0, 0, time.UTC)),
			now:      time.Date(2026, 3, 15, 23, 30, 0, 0, time.UTC),
			want:     false,
		},
		{
			name:     "2分前でも日付をまたいでいればdue",
			lastSync: timePtr(time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)),
			now:      time.Date(2026, 3, 15, 0, 1, 0, 0, time.UTC),
			want:     true,
		},
		{
			name:     "月をまたぐ境界",
			lastSync: timePtr(time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)),
			now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			want:     true,
		},
		{
			name:     "年をまたぐ境界",
			lastSync: timePtr(time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)),
			now:      time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC),
			want:     true,
		},
		{
			name:     "直前の同期はdueでない",
			lastSync: timePtr(time.Date(2026, 3, 15, 9, 58, 0, 0, time.UTC)),
			now:      time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC),
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockSyncStateRepository{
				findFunc: func(ctx context.Context, userID string) (*time.Time, error) {
					return tt.lastSync, nil
				},
			}
			tracker := NewSyncTracker(repo)

			got, err := tracker.IsSyncDue(context.Background(), "user-1", tt.now)
			if err != nil {
				t.Fatalf("IsSyncDue() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsSyncDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

// ストレージエラーは呼び出し側に伝播する
func TestSyncTracker_IsSyncDue_RepositoryError(t *testing.T) {
	repo := &mockSyncStateRepository{
		findFunc: func(ctx context.Context, userID string) (*time.Time, error) {
			return nil, errors.New("connection refused")
		},
	}
	tracker := NewSyncTracker(repo)

	if _, err := tracker.IsSyncDue(context.Background(), "user-1", time.Now()); err == nil {
		t.Error("expected error, got nil")
	}
}

// MarkSyncedが渡された時刻をそのまま保存することを検証
func TestSyncTracker_MarkSynced(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	var savedUserID string
	var savedAt time.Time
	repo := &mockSyncStateRepository{
		saveFunc: func(ctx context.Context, userID string, syncedAt time.Time) error {
			savedUserID = userID
			savedAt = syncedAt
			return nil
		},
	}
	tracker := NewSyncTracker(repo)

	if err := tracker.MarkSynced(context.Background(), "user-1", now); err != nil {
		t.Fatalf("MarkSynced() error = %v", err)
	}
	if savedUserID != "user-1" {
		t.Errorf("saved userID = %q, want %q", savedUserID, "user-1")
	}
	if !savedAt.Equal(now) {
		t.Errorf("saved time = %v, want %v", savedAt, now)
	}
}

// UTC保存された時刻とローカル時刻の比較が暦日で行われることを検証
func TestSameCalendarDate_CrossTimezone(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)

	// UTC 2026-03-14 16:00 = JST 2026-03-15 01:00
	stored := time.Date(2026, 3, 14, 16, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 15, 9, 0, 0, 0, jst)

	if !sameCalendarDate(stored, now) {
		t.Error("expected same calendar date when converted to now's location")
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
