package fitbit

import (
	"context"
	"time"

	"github.com/Michelan98/sleep-society/internal/model"
)

// MockProviderClient はFitbit APIを呼ばずに固定データを返すProviderClient実装。
// FITBIT_MODE=mock で選択され、プロバイダー資格情報なしで全フローを
// 動作させられる。交換・リフレッシュは常に成功し、睡眠データは日付から
// 決定的に生成される（同じ日付には常に同じ値）。
type MockProviderClient struct{}

// NewMockProviderClient はMockProviderClientの新しいインスタンスを生成する。
func NewMockProviderClient() *MockProviderClient {
	return &MockProviderClient{}
}

// ExchangeCode は固定の資格情報を返す。
func (c *MockProviderClient) ExchangeCode(ctx context.Context, code string) (*model.FitbitCredentials, error) {
	return c.mockCredentials(), nil
}

// RefreshToken は固定の資格情報を返す。
func (c *MockProviderClient) RefreshToken(ctx context.Context, refreshToken string) (*model.FitbitCredentials, error) {
	return c.mockCredentials(), nil
}

func (c *MockProviderClient) mockCredentials() *model.FitbitCredentials {
	return &model.FitbitCredentials{
		AccessToken:  "mock-access-token",
		RefreshToken: "mock-refresh-token",
		ExpiresAt:    time.Now().Add(8 * time.Hour),
		FitbitUserID: "MOCK01",
	}
}

// FetchSleep は日付から決定的に生成した睡眠データを返す。
// ステージ配分を日ごとに少しずらし、ダッシュボードの表示確認に
// 変化のあるデータを与える。
func (c *MockProviderClient) FetchSleep(ctx context.Context, accessToken string, date time.Time) (*model.FitbitSleepResponse, error) {
	day := date.YearDay()

	deep := 80 + day%40   // 80-119分
	light := 220 + day%50 // 220-269分
	rem := 90 + day%30    // 90-119分
	wake := 15 + day%10   // 15-24分

	totalMinutes := deep + light + rem + wake
	start := time.Date(date.Year(), date.Month(), date.Day(), 23, 0, 0, 0, date.Location()).AddDate(0, 0, -1)

	resp := &model.FitbitSleepResponse{
		Sleep: []model.FitbitSleepEntry{
			{
				LogID:      int64(date.Year())*10000 + int64(day),
				StartTime:  start.Format("2006-01-02T15:04:05.000"),
				EndTime:    start.Add(time.Duration(totalMinutes) * time.Minute).Format("2006-01-02T15:04:05.000"),
				DurationMS: int64(totalMinutes) * 60000,
				Efficiency: 85 + day%10,
			},
		},
	}
	resp.Sleep[0].Levels.Summary.Deep.Minutes = deep
	resp.Sleep[0].Levels.Summary.Light.Minutes = light
	resp.Sleep[0].Levels.Summary.Rem.Minutes = rem
	resp.Sleep[0].Levels.Summary.Wake.Minutes = wake
	resp.Summary.TotalMinutesAsleep = deep + light + rem
	resp.Summary.TotalTimeInBed = totalMinutes
	resp.Summary.TotalSleepRecords = 1

	return resp, nil
}

// compile-time interface check
var _ ProviderClient = (*MockProviderClient)(nil)
