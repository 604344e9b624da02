// Package notification はユーザー向け通知（トースト）の作成と取得を提供する。
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Michelan98/sleep-society/internal/model"
	"github.com/Michelan98/sleep-society/internal/repository"
)

// Notifier はユーザーへの通知発行インターフェース。
// ダッシュボードオーケストレーターと同期ワーカーが失敗の可視化に使う。
type Notifier interface {
	// NotifyInfo は情報通知を発行する。
	NotifyInfo(ctx context.Context, userID, title, message string)
	// NotifyError はエラー通知を発行する。
	NotifyError(ctx context.Context, userID, title, message string)
}

// Service は通知の作成と取得を提供する。
// 通知の発行自体が失敗しても呼び出し元の処理は止めない（ログのみ）。
type Service struct {
	repo repository.NotificationRepository
}

// NewService はServiceを生成する。
func NewService(repo repository.NotificationRepository) *Service {
	return &Service{repo: repo}
}

// NotifyInfo は情報通知を発行する。
func (s *Service) NotifyInfo(ctx context.Context, userID, title, message string) {
	s.create(ctx, userID, model.NotificationInfo, title, message)
}

// NotifyError はエラー通知を発行する。
func (s *Service) NotifyError(ctx context.Context, userID, title, message string) {
	s.create(ctx, userID, model.NotificationError, title, message)
}

func (s *Service) create(ctx context.Context, userID string, level model.NotificationLevel, title, message string) {
	n := &model.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Level:     level,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		slog.Error("failed to create notification",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

// List は指定ユーザーの通知を新しい順に返す。
func (s *Service) List(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	notifications, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead は通知を既読にする。
func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	if err := s.repo.MarkRead(ctx, userID, notificationID); err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return nil
}

// compile-time interface check
var _ Notifier = (*Service)(nil)
