// Package model はドメインモデルを定義する。
package model

import "time"

// DataSource は表示中の睡眠データをどのバックエンドが供給したかを表す。
// 保存されない導出値で、フェッチサイクルごとに計算される。
type DataSource string

const (
	// DataSourceProvider は外部プロバイダー（Fitbit）由来のデータを示す。
	DataSourceProvider DataSource = "provider"
	// DataSourceInternal は内部ストア由来のデータを示す。
	DataSourceInternal DataSource = "internal"
)

// SleepRecord は1回の睡眠セッションの正規化済みサマリを表す。
// プレゼンテーション層が消費する唯一の安定した睡眠データ形式。
type SleepRecord struct {
	ID               string
	UserID           string
	Date             time.Time
	Duration         string // "{h}h {m}m" 形式
	QualityPercent   int
	EnergyScore      int
	DeepPct          int
	RemPct           int
	LightPct         int
	AwakeMinutes     int
	AverageHeartRate int
	Note             string
	FitbitLogID      string // プロバイダー由来の場合のみ非空。重複取り込み防止に使用。
	Likes            int
	CreatedAt        time.Time
}

// FeedItem はソーシャルフィードの1エントリを表す。
// フォロー中ユーザーの睡眠サマリにユーザー情報を結合したもの。
type FeedItem struct {
	RecordID       string
	UserID         string
	UserName       string
	UserAvatarURL  string
	Date           time.Time
	Duration       string
	QualityPercent int
	Likes          int
	Note           string
}

// LeaderboardEntry はリーダーボードの1行を表す。
// 直近のエナジースコアの降順でランク付けされる。
type LeaderboardEntry struct {
	Rank           int
	UserID         string
	Name           string
	AvatarURL      string
	Score          int
	Duration       string
	QualityPercent int
}
