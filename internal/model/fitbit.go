// Package model はドメインモデルを定義する。
package model

import "time"

// FitbitCredentials はFitbit OAuthの資格情報を表す。
// コード交換成功時に作成され、リフレッシュで置き換えられ、連携解除で削除される。
// 作成時点でExpiresAtは未来の時刻であることが不変条件。
type FitbitCredentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	FitbitUserID string
}

// Expired は資格情報が期限切れかどうかを返す。
// marginだけ早めに期限切れ扱いにすることで、API呼び出し中の失効を避ける。
func (c *FitbitCredentials) Expired(now time.Time, margin time.Duration) bool {
	return !now.Add(margin).Before(c.ExpiresAt)
}

// OAuthState は認可リクエストとコールバックを結びつける1回限りのCSRF対策トークン。
// 認可URL生成時に作成され、コールバック検証時に結果に関わらず消費される。
type OAuthState struct {
	UserID    string
	State     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SleepStageSummary はFitbitが返す睡眠ステージごとの集計を表す。
type SleepStageSummary struct {
	Minutes int `json:"minutes"`
	Count   int `json:"count"`
}

// FitbitSleepLevels は睡眠ステージの内訳を表す。
type FitbitSleepLevels struct {
	Summary struct {
		Deep  SleepStageSummary `json:"deep"`
		Light SleepStageSummary `json:"light"`
		Rem   SleepStageSummary `json:"rem"`
		Wake  SleepStageSummary `json:"wake"`
	} `json:"summary"`
}

// FitbitSleepEntry はFitbit Web APIの睡眠ログ1件を表す。
// 受信後は読み取り専用として扱い、Converterの入力にのみ使用する。
type FitbitSleepEntry struct {
	LogID      int64             `json:"logId"`
	StartTime  string            `json:"startTime"`
	EndTime    string            `json:"endTime"`
	DurationMS int64             `json:"duration"`
	Efficiency int               `json:"efficiency"`
	Levels     FitbitSleepLevels `json:"levels"`
}

// FitbitSleepResponse はFitbit睡眠エンドポイントのレスポンスを表す。
// sleepは新しい順に並ぶ（上流APIの契約）。
type FitbitSleepResponse struct {
	Sleep   []FitbitSleepEntry `json:"sleep"`
	Summary struct {
		TotalMinutesAsleep int `json:"totalMinutesAsleep"`
		TotalTimeInBed     int `json:"totalTimeInBed"`
		TotalSleepRecords  int `json:"totalSleepRecords"`
	} `json:"summary"`
}
