package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/Michelan98/sleep-society/internal/model"
)

// mockNotificationRepository は関数フィールドで挙動を差し替えるモック
type mockNotificationRepository struct {
	createFunc   func(ctx context.Context, n *model.Notification) error
	listFunc     func(ctx context.Context, userID string, limit int) ([]*model.Notification, error)
	markReadFunc func(ctx context.Context, userID, notificationID string) error
}

func (m *mockNotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return m.createFunc(ctx, n)
}

func (m *mockNotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
	return m.listFunc(ctx, userID, limit)
}

func (m *mockNotificationRepository) MarkRead(ctx context.Context, userID, notificationID string) error {
	return m.markReadFunc(ctx, userID, notificationID)
}

// エラー通知がerrorレベルで永続化されることを検証
func TestNotifyError(t *testing.T) {
	var created *model.Notification
	repo := &mockNotificationRepository{
		createFunc: func(ctx context.Context, n *model.Notification) error {
			created = n
			return nil
		},
	}
	svc := NewService(repo)

	svc.NotifyError(context.Background(), "user-1", "同期エラー", "Fitbitからのデータ取得に失敗しました。")

	if created == nil {
		t.Fatal("notification was not persisted")
	}
	if created.Level != model.NotificationError {
		t.Errorf("Level = %q, want error", created.Level)
	}
	if created.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", created.UserID)
	}
	if created.ID == "" {
		t.Error("ID must be generated")
	}
	if created.Read {
		t.Error("new notification must be unread")
	}
}

// 通知の永続化失敗が呼び出し元にパニック・エラーとして波及しないことを検証
func TestNotify_StorageFailureIsSwallowed(t *testing.T) {
	repo := &mockNotificationRepository{
		createFunc: func(ctx context.Context, n *model.Notification) error {
			return errors.New("connection refused")
		},
	}
	svc := NewService(repo)

	// エラーは返せない設計。落ちなければ成功。
	svc.NotifyInfo(context.Background(), "user-1", "同期完了", "睡眠データを更新しました。")
}

// 一覧のデフォルト件数を検証
func TestList_DefaultLimit(t *testing.T) {
	var gotLimit int
	repo := &mockNotificationRepository{
		listFunc: func(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
			gotLimit = limit
			return nil, nil
		},
	}
	svc := NewService(repo)

	if _, err := svc.List(context.Background(), "user-1", 0); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if gotLimit != 20 {
		t.Errorf("limit = %d, want default 20", gotLimit)
	}
}

// 既読化が委譲されることを検証
func TestMarkRead(t *testing.T) {
	var gotUserID, gotID string
	repo := &mockNotificationRepository{
		markReadFunc: func(ctx context.Context, userID, notificationID string) error {
			gotUserID, gotID = userID, notificationID
			return nil
		},
	}
	svc := NewService(repo)

	if err := svc.MarkRead(context.Background(), "user-1", "n-1"); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if gotUserID != "user-1" || gotID != "n-1" {
		t.Errorf("MarkRead called with %q/%q", gotUserID, gotID)
	}
}
