package fitbit

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/Michelan98/sleep-society/internal/model"
)

// テスト用の無音ロガー
func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// mockStateRepository は関数フィールドで挙動を差し替えるモック
type mockStateRepository struct {
	saveFunc    func(ctx context.Context, state *model.OAuthState) error
	consumeFunc func(ctx context.Context, userID string) (*model.OAuthState, error)
}

func (m *mockStateRepository) Save(ctx context.Context, state *model.OAuthState) error {
	return m.saveFunc(ctx, state)
}

func (m *mockStateRepository) Consume(ctx context.Context, userID string) (*model.OAuthState, error) {
	return m.consumeFunc(ctx, userID)
}

// mockCredentialRepository は関数フィールドで挙動を差し替えるモック
type mockCredentialRepository struct {
	saveFunc  func(ctx context.Context, userID string, creds *model.FitbitCredentials) error
	loadFunc  func(ctx context.Context, userID string) (*model.FitbitCredentials, error)
	clearFunc func(ctx context.Context, userID string) error
	listFunc  func(ctx context.Context) ([]string, error)
}

func (m *mockCredentialRepository) Save(ctx context.Context, userID string, creds *model.FitbitCredentials) error {
	return m.saveFunc(ctx, userID, creds)
}

func (m *mockCredentialRepository) Load(ctx context.Context, userID string) (*model.FitbitCredentials, error) {
	return m.loadFunc(ctx, userID)
}

func (m *mockCredentialRepository) Clear(ctx context.Context, userID string) error {
	return m.clearFunc(ctx, userID)
}

func (m *mockCredentialRepository) ListConnectedUserIDs(ctx context.Context) ([]string, error) {
	return m.listFunc(ctx)
}

// mockSleepRepository は睡眠記録の保存のみを差し替えるモック。
// ファサードのテストで使わないメソッドは呼ばれたらパニックさせる。
type mockSleepRepository struct {
	upsertFunc func(ctx context.Context, record *model.SleepRecord) error
}

func (m *mockSleepRepository) Create(ctx context.Context, record *model.SleepRecord) error {
	panic("unexpected call to Create")
}

func (m *mockSleepRepository) UpsertProviderRecord(ctx context.Context, record *model.SleepRecord) error {
	return m.upsertFunc(ctx, record)
}

func (m *mockSleepRepository) FindLatestByUser(ctx context.Context, userID string) (*model.SleepRecord, error) {
	panic("unexpected call to FindLatestByUser")
}

func (m *mockSleepRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*model.SleepRecord, error) {
	panic("unexpected call to ListByUser")
}

func (m *mockSleepRepository) ListFeed(ctx context.Context, userIDs []string, limit, offset int) ([]model.FeedItem, error) {
	panic("unexpected call to ListFeed")
}

func (m *mockSleepRepository) IncrementLikes(ctx context.Context, recordID string) (int, error) {
	panic("unexpected call to IncrementLikes")
}

func (m *mockSleepRepository) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	panic("unexpected call to Leaderboard")
}

// mockProviderClient は関数フィールドで挙動を差し替えるモック
type mockProviderClient struct {
	exchangeFunc func(ctx context.Context, code string) (*model.FitbitCredentials, error)
	refreshFunc  func(ctx context.Context, refreshToken string) (*model.FitbitCredentials, error)
	fetchFunc    func(ctx context.Context, accessToken string, date time.Time) (*model.FitbitSleepResponse, error)
}

func (m *mockProviderClient) ExchangeCode(ctx context.Context, code string) (*model.FitbitCredentials, error) {
	return m.exchangeFunc(ctx, code)
}

func (m *mockProviderClient) RefreshToken(ctx context.Context, refreshToken string) (*model.FitbitCredentials, error) {
	return m.refreshFunc(ctx, refreshToken)
}

func (m *mockProviderClient) FetchSleep(ctx context.Context, accessToken string, date time.Time) (*model.FitbitSleepResponse, error) {
	return m.fetchFunc(ctx, accessToken, date)
}
