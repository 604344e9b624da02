// Package model はドメインモデルを定義する。
package model

import "time"

// NotificationLevel は通知の重要度を表す。
type NotificationLevel string

const (
	// NotificationInfo は情報通知を示す。
	NotificationInfo NotificationLevel = "info"
	// NotificationError はエラー通知を示す。
	NotificationError NotificationLevel = "error"
)

// Notification はユーザーに表示する通知を表す。
// ダッシュボードのトースト表示に相当し、一過性の失敗やバックグラウンド同期の
// 結果をユーザーに伝える。
type Notification struct {
	ID        string
	UserID    string
	Level     NotificationLevel
	Title     string
	Message   string
	Read      bool
	CreatedAt time.Time
}
