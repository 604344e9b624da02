// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/Michelan98/sleep-society/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成する。メールアドレス重複はエラーを返す。
	Create(ctx context.Context, user *model.User) error

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Update はユーザーのプロフィール項目を更新する。
	Update(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するsessions、follows、sleep_records、fitbit_*はCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// FollowRepository はフォロー関係の永続化インターフェース。
type FollowRepository interface {
	// Create はフォロー関係を作成する。既に存在する場合は何もしない。
	Create(ctx context.Context, follow *model.Follow) error
	// Delete はフォロー関係を削除する。存在しない場合は何もしない。
	Delete(ctx context.Context, followerID, followeeID string) error
	// CountFollowers は指定ユーザーのフォロワー数を返す。
	CountFollowers(ctx context.Context, userID string) (int, error)
	// CountFollowing は指定ユーザーのフォロー中数を返す。
	CountFollowing(ctx context.Context, userID string) (int, error)
	// ListFolloweeIDs は指定ユーザーがフォローしているユーザーIDの一覧を返す。
	ListFolloweeIDs(ctx context.Context, userID string) ([]string, error)
}

// SleepRepository は睡眠記録の永続化インターフェース。
type SleepRepository interface {
	// Create は睡眠記録を作成する。
	Create(ctx context.Context, record *model.SleepRecord) error

	// UpsertProviderRecord はプロバイダー由来の睡眠記録を冪等に保存する。
	// 同一ユーザー・同一fitbit_log_idの既存記録は上書きされる。
	UpsertProviderRecord(ctx context.Context, record *model.SleepRecord) error

	// FindLatestByUser は指定ユーザーの最新の睡眠記録を返す。見つからない場合はnil。
	FindLatestByUser(ctx context.Context, userID string) (*model.SleepRecord, error)

	// ListByUser は指定ユーザーの睡眠記録をdate降順で最大limit件返す。
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.SleepRecord, error)

	// ListFeed は指定ユーザー群の睡眠記録をユーザー情報付きでdate降順に返す。
	// limit/offsetによるページネーションを使用する。
	ListFeed(ctx context.Context, userIDs []string, limit, offset int) ([]model.FeedItem, error)

	// IncrementLikes は睡眠記録のいいね数を1増やし、更新後の値を返す。
	// 記録が存在しない場合はエラーを返す。
	IncrementLikes(ctx context.Context, recordID string) (int, error)

	// Leaderboard はユーザーごとの最新記録をエナジースコア降順で最大limit件返す。
	Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}

// CredentialRepository はFitbit OAuth資格情報の永続化インターフェース。
// ユーザーごとに1行で、行の不在は「未連携」を意味する。
type CredentialRepository interface {
	// Save は資格情報を保存する。既存の資格情報は上書きされる。
	Save(ctx context.Context, userID string, creds *model.FitbitCredentials) error
	// Load は指定ユーザーの資格情報を取得する。未連携の場合はnilを返す。
	Load(ctx context.Context, userID string) (*model.FitbitCredentials, error)
	// Clear は指定ユーザーの資格情報を削除する。存在しない場合も成功する。
	Clear(ctx context.Context, userID string) error
	// ListConnectedUserIDs は資格情報を保持する全ユーザーIDを返す。
	// バックグラウンド同期ワーカーの走査に使用する。
	ListConnectedUserIDs(ctx context.Context) ([]string, error)
}

// OAuthStateRepository はCSRF対策stateトークンの永続化インターフェース。
// stateはユーザーごとに1つで、検証時に結果に関わらず消費される。
type OAuthStateRepository interface {
	// Save はstateを保存する。既存のstateは上書きされる。
	Save(ctx context.Context, state *model.OAuthState) error
	// Consume は指定ユーザーのstateを取得と同時に削除する。
	// 存在しない場合はnilを返す。1つのstateは1回しか取得できない。
	Consume(ctx context.Context, userID string) (*model.OAuthState, error)
}

// SyncStateRepository は最終同期時刻の永続化インターフェース。
type SyncStateRepository interface {
	// Save は最終同期時刻を保存する。既存の値は上書きされる。
	Save(ctx context.Context, userID string, syncedAt time.Time) error
	// Find は指定ユーザーの最終同期時刻を返す。未同期の場合はnilを返す。
	Find(ctx context.Context, userID string) (*time.Time, error)
	// Delete は指定ユーザーの同期状態を削除する。存在しない場合も成功する。
	Delete(ctx context.Context, userID string) error
}

// NotificationRepository はユーザー通知の永続化インターフェース。
type NotificationRepository interface {
	// Create は通知を作成する。
	Create(ctx context.Context, n *model.Notification) error
	// ListByUser は指定ユーザーの通知を新しい順に最大limit件返す。
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Notification, error)
	// MarkRead は通知を既読にする。
	MarkRead(ctx context.Context, userID, notificationID string) error
}
