package fitbit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Michelan98/sleep-society/internal/metrics"
	"github.com/Michelan98/sleep-society/internal/model"
)

type serviceMocks struct {
	creds    *mockCredentialRepository
	sleeps   *mockSleepRepository
	syncRepo *mockSyncStateRepository
	client   *mockProviderClient
}

func newTestService(m *serviceMocks) *Service {
	tracker := NewSyncTracker(m.syncRepo)
	flow := NewAuthFlow(testAuthFlowConfig(), nil, m.creds, tracker, m.client, metrics.NoopCollector{}, testLogger())
	return NewService(flow, tracker, m.client, m.creds, m.sleeps, metrics.NoopCollector{}, testLogger(), time.Minute)
}

func freshCredentials() *model.FitbitCredentials {
	return &model.FitbitCredentials{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(4 * time.Hour),
		FitbitUserID: "FB123",
	}
}

// 正常系: フェッチ→変換→保存→同期記録まで行われ、正規化済み記録が返る
func TestService_FetchSleepData(t *testing.T) {
	var upserted *model.SleepRecord
	var syncSaved bool

	m := &serviceMocks{
		creds: &mockCredentialRepository{
			loadFunc: func(ctx context.Context, userID string) (*model.FitbitCredentials, error) {
				return freshCredentials(), nil
			},
		},
		sleeps: &mockSleepRepository{
			upsertFunc: func(ctx context.Context, record *model.SleepRecord) error {
				upserted = record
				return nil
			},
		},
		syncRepo: &mockSyncStateRepository{
			saveFunc: func(ctx context.Context, userID string, syncedAt time.Time) error {
				syncSaved = true
				return nil
			},
		},
		client: &mockProviderClient{
			fetchFunc: func(ctx context.Context, accessToken string, date time.Time) (*model.FitbitSleepResponse, error) {
				if accessToken != "at-1" {
					t.Errorf("accessToken = %q, want at-1", accessToken)
				}
				return sleepResponse(100, 250, 110, 20, 28800000), nil
			},
		},
	}
	svc := newTestService(m)

	record := svc.FetchSleepData(context.Background(), "user-1", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	if record == nil {
		t.Fatal("expected record, got nil")
	}
	if record.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", record.UserID)
	}
	if record.EnergyScore != 85 {
		t.Errorf("EnergyScore = %d, want 85", record.EnergyScore)
	}
	if upserted == nil {
		t.Error("record was not persisted")
	}
	if !syncSaved {
		t.Error("sync time was not recorded")
	}
}

// 変換結果にはIDと作成時刻が含まれないため、保存前にファサードが採番する。
// 空のIDのまま保存すると主キーが空文字で固定され、2件目以降の
// プロバイダー記録の保存が主キー衝突で全滅する。
func TestService_FetchSleepData_AssignsRecordIdentity(t *testing.T) {
	var upserted *model.SleepRecord

	m := &serviceMocks{
		creds: &mockCredentialRepository{
			loadFunc: func(ctx context.Context, userID string) (*model.FitbitCredentials, error) {
				return freshCredentials(), nil
			},
		},
		sleeps: &mockSleepRepository{
			upsertFunc: func(ctx context.Context, record *model.SleepRecord) error {
				upserted = record
				return nil
			},
		},
		syncRepo: &mockSyncStateRepository{
			saveFunc: func(ctx context.Context, userID string, syncedAt time.Time) error { return nil },
		},
		client: &mockProviderClient{
			fetchFunc: func(ctx context.Context, accessToken string, date time.Time) (*model.FitbitSleepResponse, error) {
				return sleepResponse(100, 250, 110, 20, 28800000), nil
			},
		},
	}
	svc := newTestService(m)

	if record := svc.FetchSleepData(context.Background(), "user-1", time.Now()); record == nil {
		t.Fatal("expected record, got nil")
	}
	if upserted == nil {
		t.Fatal("record was not persisted")
	}
	if upserted.ID == "" {
		t.Error("persisted record must have a generated ID")
	}
	if upserted.CreatedAt.IsZero() {
		t.Error("persisted record must have CreatedAt set")
	}
}

// 未連携ユーザーはnil（内部フォールバック対象）になり、プロバイダーは呼ばれない
func TestService_FetchSleepData_NotConnected(t *testing.T) {
	m := &serviceMocks{
		creds: &mockCredentialRepository{
			loadFunc: func(ctx context.Context, userID string) (*model.FitbitCredentials, error) {
				return nil, nil
			},
		},
		sleeps:   &mockSleepRepository{},
		syncRepo: &mockSyncStateRepository{},
		client: &mockProviderClient{
			fetchFunc: func(ctx context.Context, accessToken string, date time.Time) (*model.FitbitSleepResponse, error) {
				t.Error("provider must not be called when not connected")
				return nil, nil
			},
		},
	}
	svc := newTestService(m)

	if record := svc.FetchSleepData(context.Background(), "user-1", time.Now()); record != nil {
		t.Errorf("expected nil for unconnected user, got %+v", record)
	}
}

// プロバイダー障害はnilに吸収され、同期時刻は更新されない
func TestService_FetchSleepData_ProviderError(t *testing.T) {
	m := &serviceMocks{
		creds: &mockCredentialRepository{
			loadFunc: func(ctx context.Context, userID string) (*model.FitbitCredentials, error) {
				return freshCredentials(), nil
			},
		},
		sleeps: &mockSleepRepository{},
		syncRepo: &mockSyncStateRepository{
			saveFunc: func(ctx context.Context, userID string, syncedAt time.Time) error {
				t.Error("sync time must not be recorded on fetch failure")
				return nil
			},
		},
		client: &mockProviderClient{
			fetchFunc: func(ctx context.Context, accessToken string, date time.Time) (*model.FitbitSleepResponse, error) {
				return nil, errors.New("connection timeout")
			},
		},
	}
	svc := newTestService(m)

	if record := svc.FetchSleepData(context.Background(), "user-1", time.Now()); record != nil {
		t.Errorf("expected nil on provider failure, got %+v", record)
	}
}

// 睡眠ログが空の日はnilだが、フェッチ成功として同期時刻は記録される
func TestService_FetchSleepData_NoSleepLogged(t *testing.T) {
	syncSaved := false
	m := &serviceMocks{
		creds: &mockCredentialRepository{
			loadFunc: func(ctx context.Context, userID string) (*model.FitbitCredentials, error) {
				return freshCredentials(), nil
			},
		},
		sleeps: &mockSleepRepository{
			upsertFunc: func(ctx context.Context, record *model.SleepRecord) error {
				t.Error("nothing should be persisted for an empty response")
				return nil
			},
		},
		syncRepo: &mockSyncStateRepository{
			saveFunc: func(ctx context.Context, userID string, syncedAt time.Time) error {
				syncSaved = true
				return nil
			},
		},
		client: &mockProviderClient{
			fetchFunc: func(ctx context.Context, accessToken string, date time.Time) (*model.FitbitSleepResponse, error) {
				return &model.FitbitSleepResponse{}, nil
			},
		},
	}
	svc := newTestService(m)

	if record := svc.FetchSleepData(context.Background(), "user-1", time.Now()); record != nil {
		t.Errorf("expected nil for empty response, got %+v", record)
	}
	if !syncSaved {
		t.Error("successful fetch should record sync time even without sleep logs")
	}
}

// 期限切れ間近のトークンはフェッチ前にリフレッシュされ、新しい資格情報が保存される
func TestService_FetchSleepData_ProactiveRefresh(t *testing.T) {
	expiring := &model.FitbitCredentials{
		AccessToken:  "at-old",
		RefreshToken: "rt-old",
		ExpiresAt:    time.Now().Add(10 * time.Second), // margin(1m)以内
		FitbitUserID: "FB123",
	}
	refreshed := &model.FitbitCredentials{
		AccessToken:  "at-new",
		RefreshToken: "rt-new",
		ExpiresAt:    time.Now().Add(8 * time.Hour),
		FitbitUserID: "FB123",
	}

	var savedCreds *model.FitbitCredentials
	m := &serviceMocks{
		creds: &mockCredentialRepository{
			loadFunc: func(ctx context.Context, userID string) (*model.FitbitCredentials, error) {
				return expiring, nil
			},
			saveFunc: func(ctx context.Context, userID string, c *model.FitbitCredentials) error {
				savedCreds = c
				return nil
			},
		},
		sleeps: &mockSleepRepository{
			upsertFunc: func(ctx context.Context, record *model.SleepRecord) error { return nil },
		},
		syncRepo: &mockSyncStateRepository{
			saveFunc: func(ctx context.Context, userID string, syncedAt time.Time) error { return nil },
		},
		client: &mockProviderClient{
			refreshFunc: func(ctx context.Context, refreshToken string) (*model.FitbitCredentials, error) {
				if refreshToken != "rt-old" {
					t.Errorf("refreshToken = %q, want rt-old", refreshToken)
				}
				return refreshed, nil
			},
			fetchFunc: func(ctx context.Context, accessToken string, date time.Time) (*model.FitbitSleepResponse, error) {
				if accessToken != "at-new" {
					t.Errorf("fetch used token %q, want refreshed at-new", accessToken)
				}
				return sleepResponse(100, 250, 110, 20, 28800000), nil
			},
		},
	}
	svc := newTestService(m)

	if record := svc.FetchSleepData(context.Background(), "user-1", time.Now()); record == nil {
		t.Fatal("expected record after refresh, got nil")
	}
	if savedCreds != refreshed {
		t.Error("refreshed credentials were not saved")
	}
}

// トークン拒否時はリフレッシュして1回だけ再試行する
func TestService_FetchSleepData_RetryAfterRejection(t *testing.T) {
	refreshed := &model.FitbitCredentials{
		AccessToken:  "at-new",
		RefreshToken: "rt-new",
		ExpiresAt:    time.Now().Add(8 * time.Hour),
	}

	fetchCalls := 0
	m := &serviceMocks{
		creds: &mockCredentialRepository{
			loadFunc: func(ctx context.Context, userID string) (*model.FitbitCredentials, error) {
				return freshCredentials(), nil
			},
			saveFunc: func(ctx context.Context, userID string, c *model.FitbitCredentials) error { return nil },
		},
		sleeps: &mockSleepRepository{
			upsertFunc: func(ctx context.Context, record *model.SleepRecord) error { return nil },
		},
		syncRepo: &mockSyncStateRepository{
			saveFunc: func(ctx context.Context, userID string, syncedAt time.Time) error { return nil },
		},
		client: &mockProviderClient{
			refreshFunc: func(ctx context.Context, refreshToken string) (*model.FitbitCredentials, error) {
				return refreshed, nil
			},
			fetchFunc: func(ctx context.Context, accessToken string, date time.Time) (*model.FitbitSleepResponse, error) {
				fetchCalls++
				if fetchCalls == 1 {
					return nil, ErrTokenRejected
				}
				return sleepResponse(100, 250, 110, 20, 28800000), nil
			},
		},
	}
	svc := newTestService(m)

	if record := svc.FetchSleepData(context.Background(), "user-1", time.Now()); record == nil {
		t.Fatal("expected record after retry, got nil")
	}
	if fetchCalls != 2 {
		t.Errorf("fetch called %d times, want 2", fetchCalls)
	}
}

// Connectedは資格情報行の有無で判定される
func TestService_Connected(t *testing.T) {
	m := &serviceMocks{
		creds: &mockCredentialRepository{
			loadFunc: func(ctx context.Context, userID string) (*model.FitbitCredentials, error) {
				if userID == "connected-user" {
					return freshCredentials(), nil
				}
				return nil, nil
			},
		},
		sleeps:   &mockSleepRepository{},
		syncRepo: &mockSyncStateRepository{},
		client:   &mockProviderClient{},
	}
	svc := newTestService(m)

	got, err := svc.Connected(context.Background(), "connected-user")
	if err != nil || !got {
		t.Errorf("Connected(connected-user) = %v, %v; want true, nil", got, err)
	}
	got, err = svc.Connected(context.Background(), "other-user")
	if err != nil || got {
		t.Errorf("Connected(other-user) = %v, %v; want false, nil", got, err)
	}
}
