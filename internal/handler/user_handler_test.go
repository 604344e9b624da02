package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Michelan98/sleep-society/internal/model"
)

// --- モック定義 ---

type mockUserService struct {
	getProfileFn    func(ctx context.Context, userID string) (*model.User, error)
	updateProfileFn func(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error)
	followFn        func(ctx context.Context, followerID, followeeID string) error
	unfollowFn      func(ctx context.Context, followerID, followeeID string) error
	withdrawFn      func(ctx context.Context, userID string) error
}

func (m *mockUserService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	if m.getProfileFn != nil {
		return m.getProfileFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, userID, update)
	}
	return nil, nil
}

func (m *mockUserService) Follow(ctx context.Context, followerID, followeeID string) error {
	if m.followFn != nil {
		return m.followFn(ctx, followerID, followeeID)
	}
	return nil
}

func (m *mockUserService) Unfollow(ctx context.Context, followerID, followeeID string) error {
	if m.unfollowFn != nil {
		return m.unfollowFn(ctx, followerID, followeeID)
	}
	return nil
}

func (m *mockUserService) Withdraw(ctx context.Context, userID string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID)
	}
	return nil
}

// --- テスト ---

func TestUserHandler_GetMyProfile(t *testing.T) {
	svc := &mockUserService{
		getProfileFn: func(ctx context.Context, userID string) (*model.User, error) {
			return &model.User{
				ID:             userID,
				Name:           "Alice",
				JoinedAt:       time.Now(),
				FollowerCount:  12,
				FollowingCount: 34,
				Connection:     model.FitbitConnection{Status: model.ConnectionConnected},
			}, nil
		},
	}
	h := NewUserHandler(svc)

	w := httptest.NewRecorder()
	h.GetMyProfile(w, authedRequest(http.MethodGet, "/api/users/me", "user-1", ""))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got userResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.FollowerCount != 12 || got.FollowingCount != 34 {
		t.Errorf("counts = %d/%d", got.FollowerCount, got.FollowingCount)
	}
	if !got.FitbitConnected {
		t.Error("fitbitConnected = false, want true")
	}
}

func TestUserHandler_GetProfile_NotFound_Returns404(t *testing.T) {
	svc := &mockUserService{
		getProfileFn: func(ctx context.Context, userID string) (*model.User, error) {
			return nil, model.NewUserNotFoundError()
		},
	}
	h := NewUserHandler(svc)

	req := authedRequest(http.MethodGet, "/api/users/ghost", "user-1", "")
	req = withURLParam(req, "userID", "ghost")
	w := httptest.NewRecorder()
	h.GetProfile(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestUserHandler_UpdateMyProfile_PartialFields(t *testing.T) {
	var gotUpdate model.ProfileUpdate
	svc := &mockUserService{
		updateProfileFn: func(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error) {
			gotUpdate = update
			return &model.User{ID: userID, Name: "Alice", Bio: *update.Bio, JoinedAt: time.Now()}, nil
		},
	}
	h := NewUserHandler(svc)

	body := `{"bio":"眠りを大事にしています"}`
	w := httptest.NewRecorder()
	h.UpdateMyProfile(w, authedRequest(http.MethodPatch, "/api/users/me", "user-1", body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotUpdate.Bio == nil || *gotUpdate.Bio != "眠りを大事にしています" {
		t.Errorf("bio = %v", gotUpdate.Bio)
	}
	if gotUpdate.Name != nil {
		t.Error("name must stay nil when not in request body")
	}
}

func TestUserHandler_Follow(t *testing.T) {
	var gotFollower, gotFollowee string
	svc := &mockUserService{
		followFn: func(ctx context.Context, followerID, followeeID string) error {
			gotFollower, gotFollowee = followerID, followeeID
			return nil
		},
	}
	h := NewUserHandler(svc)

	req := authedRequest(http.MethodPost, "/api/users/user-2/follow", "user-1", "")
	req = withURLParam(req, "userID", "user-2")
	w := httptest.NewRecorder()
	h.Follow(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if gotFollower != "user-1" || gotFollowee != "user-2" {
		t.Errorf("follow called with %q/%q", gotFollower, gotFollowee)
	}
}

func TestUserHandler_Follow_SelfFollow_Returns400(t *testing.T) {
	svc := &mockUserService{
		followFn: func(ctx context.Context, followerID, followeeID string) error {
			return model.NewValidationError("自分自身はフォローできません")
		},
	}
	h := NewUserHandler(svc)

	req := authedRequest(http.MethodPost, "/api/users/user-1/follow", "user-1", "")
	req = withURLParam(req, "userID", "user-1")
	w := httptest.NewRecorder()
	h.Follow(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestUserHandler_Withdraw(t *testing.T) {
	withdrawn := ""
	svc := &mockUserService{
		withdrawFn: func(ctx context.Context, userID string) error {
			withdrawn = userID
			return nil
		},
	}
	h := NewUserHandler(svc)

	w := httptest.NewRecorder()
	h.Withdraw(w, authedRequest(http.MethodDelete, "/api/users/me", "user-1", ""))

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if withdrawn != "user-1" {
		t.Errorf("withdrawn = %q, want user-1", withdrawn)
	}
}
