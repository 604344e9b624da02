package syncjob

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Michelan98/sleep-society/internal/model"
)

type mockCredentialLister struct {
	listConnectedUserIDsFunc func(ctx context.Context) ([]string, error)
}

func (m *mockCredentialLister) Save(ctx context.Context, userID string, creds *model.FitbitCredentials) error {
	panic("not implemented")
}

func (m *mockCredentialLister) Load(ctx context.Context, userID string) (*model.FitbitCredentials, error) {
	panic("not implemented")
}

func (m *mockCredentialLister) Clear(ctx context.Context, userID string) error {
	panic("not implemented")
}

func (m *mockCredentialLister) ListConnectedUserIDs(ctx context.Context) ([]string, error) {
	return m.listConnectedUserIDsFunc(ctx)
}

type mockSyncer struct {
	mu         sync.Mutex
	dueFunc    func(userID string) (bool, error)
	fetched    []string
	fetchDelay time.Duration
}

func (m *mockSyncer) IsSyncDue(ctx context.Context, userID string, now time.Time) (bool, error) {
	if m.dueFunc != nil {
		return m.dueFunc(userID)
	}
	return true, nil
}

func (m *mockSyncer) FetchSleepData(ctx context.Context, userID string, date time.Time) *model.SleepRecord {
	if m.fetchDelay > 0 {
		time.Sleep(m.fetchDelay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetched = append(m.fetched, userID)
	return &model.SleepRecord{UserID: userID}
}

func (m *mockSyncer) fetchedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.fetched...)
}

type fakeNotifier struct {
	mu    sync.Mutex
	infos []string
}

func (f *fakeNotifier) NotifyInfo(ctx context.Context, userID, title, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infos = append(f.infos, userID)
}

func (f *fakeNotifier) NotifyError(ctx context.Context, userID, title, message string) {}

func (f *fakeNotifier) infoUserIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.infos...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// 同期が必要なユーザーのみフェッチされる
func TestRunOnce_SyncsOnlyDueUsers(t *testing.T) {
	creds := &mockCredentialLister{
		listConnectedUserIDsFunc: func(ctx context.Context) ([]string, error) {
			return []string{"user-1", "user-2", "user-3"}, nil
		},
	}
	syncer := &mockSyncer{
		dueFunc: func(userID string) (bool, error) {
			return userID != "user-2", nil
		},
	}
	notifier := &fakeNotifier{}
	s := NewScheduler(creds, syncer, notifier, testLogger(), 3)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	fetched := syncer.fetchedIDs()
	if len(fetched) != 2 {
		t.Fatalf("fetched %d users, want 2: %v", len(fetched), fetched)
	}
	for _, id := range fetched {
		if id == "user-2" {
			t.Error("user-2 was synced despite not being due")
		}
	}
	if len(notifier.infoUserIDs()) != 2 {
		t.Errorf("notified %d users, want 2", len(notifier.infoUserIDs()))
	}
}

// 連携ユーザーがいない場合は何もしない
func TestRunOnce_NoConnectedUsers(t *testing.T) {
	creds := &mockCredentialLister{
		listConnectedUserIDsFunc: func(ctx context.Context) ([]string, error) {
			return nil, nil
		},
	}
	syncer := &mockSyncer{}
	s := NewScheduler(creds, syncer, &fakeNotifier{}, testLogger(), 3)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(syncer.fetchedIDs()) != 0 {
		t.Error("no users should be synced")
	}
}

// ユーザー一覧の取得失敗はエラーとして返る
func TestRunOnce_ListFailure(t *testing.T) {
	creds := &mockCredentialLister{
		listConnectedUserIDsFunc: func(ctx context.Context) ([]string, error) {
			return nil, errors.New("db down")
		},
	}
	s := NewScheduler(creds, &mockSyncer{}, &fakeNotifier{}, testLogger(), 3)

	if err := s.RunOnce(context.Background()); err == nil {
		t.Error("expected error when listing connected users fails")
	}
}

// 判定エラーのユーザーはスキップされ、他のユーザーの同期は続行される
func TestRunOnce_DueCheckFailureSkipsUser(t *testing.T) {
	creds := &mockCredentialLister{
		listConnectedUserIDsFunc: func(ctx context.Context) ([]string, error) {
			return []string{"user-1", "user-2"}, nil
		},
	}
	syncer := &mockSyncer{
		dueFunc: func(userID string) (bool, error) {
			if userID == "user-1" {
				return false, errors.New("sync state unavailable")
			}
			return true, nil
		},
	}
	s := NewScheduler(creds, syncer, &fakeNotifier{}, testLogger(), 2)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	fetched := syncer.fetchedIDs()
	if len(fetched) != 1 || fetched[0] != "user-2" {
		t.Errorf("fetched = %v, want [user-2]", fetched)
	}
}

// コンテキストキャンセルでStartが停止する
func TestStart_StopsOnContextCancel(t *testing.T) {
	creds := &mockCredentialLister{
		listConnectedUserIDsFunc: func(ctx context.Context) ([]string, error) {
			return nil, nil
		},
	}
	s := NewScheduler(creds, &mockSyncer{}, &fakeNotifier{}, testLogger(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx, 50*time.Millisecond)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
}
