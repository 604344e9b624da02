package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Michelan98/sleep-society/internal/model"
)

// mockSessionFinder は関数フィールドで挙動を差し替えるモック
type mockSessionFinder struct {
	findByIDFunc func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return m.findByIDFunc(ctx, id)
}

// 有効なセッションCookieでユーザーIDがコンテキストに注入されることを検証
func TestSessionMiddleware_ValidSession(t *testing.T) {
	finder := &mockSessionFinder{
		findByIDFunc: func(ctx context.Context, id string) (*model.Session, error) {
			if id == "valid-session" {
				return &model.Session{ID: id, UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
			}
			return nil, nil
		},
	}

	var gotUserID string
	handler := NewSessionMiddleware(finder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "valid-session"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if gotUserID != "user-1" {
		t.Errorf("userID in context = %q, want user-1", gotUserID)
	}
}

// Cookieなし・無効セッション・ストレージ障害はいずれも401になる
func TestSessionMiddleware_Unauthorized(t *testing.T) {
	tests := []struct {
		name   string
		cookie *http.Cookie
		finder *mockSessionFinder
	}{
		{
			name:   "Cookieなし",
			cookie: nil,
			finder: &mockSessionFinder{},
		},
		{
			name:   "セッション不在",
			cookie: &http.Cookie{Name: sessionCookieName, Value: "unknown"},
			finder: &mockSessionFinder{
				findByIDFunc: func(ctx context.Context, id string) (*model.Session, error) {
					return nil, nil
				},
			},
		},
		{
			name:   "ストレージ障害",
			cookie: &http.Cookie{Name: sessionCookieName, Value: "any"},
			finder: &mockSessionFinder{
				findByIDFunc: func(ctx context.Context, id string) (*model.Session, error) {
					return nil, errors.New("connection refused")
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewSessionMiddleware(tt.finder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler must not be reached")
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

// コンテキストヘルパーの往復を検証
func TestUserIDFromContext(t *testing.T) {
	ctx := ContextWithUserID(context.Background(), "user-1")

	userID, err := UserIDFromContext(ctx)
	if err != nil {
		t.Fatalf("UserIDFromContext() error = %v", err)
	}
	if userID != "user-1" {
		t.Errorf("userID = %q, want user-1", userID)
	}

	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("expected error for context without user ID")
	}
}
