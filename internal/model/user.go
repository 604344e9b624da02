// Package model はドメインモデルを定義する。
package model

import "time"

// ConnectionStatus はFitbit連携の状態を表す。
type ConnectionStatus string

const (
	// ConnectionDisconnected はFitbit未連携状態を示す。
	ConnectionDisconnected ConnectionStatus = "disconnected"
	// ConnectionConnected はFitbit連携済み状態を示す。
	ConnectionConnected ConnectionStatus = "connected"
)

// FitbitConnection はユーザーとFitbitアカウントの連携状態を表す。
// Credentialsは連携済みの場合のみ非nil。booleanフラグと資格情報の
// 整合性が暗黙に壊れないよう、状態と資格情報を1つの値にまとめる。
type FitbitConnection struct {
	Status      ConnectionStatus
	Credentials *FitbitCredentials
}

// Connected は連携済みかどうかを返す。
func (c FitbitConnection) Connected() bool {
	return c.Status == ConnectionConnected
}

// User はサービス利用ユーザーを表す。
type User struct {
	ID             string
	Email          string
	Name           string
	PasswordHash   []byte
	AvatarURL      string
	Bio            string
	JoinedAt       time.Time
	FollowerCount  int
	FollowingCount int
	Connection     FitbitConnection
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProfileUpdate はプロフィール部分更新の入力を表す。
// nilフィールドは変更しない。
type ProfileUpdate struct {
	Name      *string
	AvatarURL *string
	Bio       *string
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Follow はユーザー間のフォロー関係を表す。
type Follow struct {
	FollowerID string
	FolloweeID string
	CreatedAt  time.Time
}
