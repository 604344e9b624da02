// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Michelan98/sleep-society/internal/middleware"
	"github.com/Michelan98/sleep-society/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeServiceError はサービス層のエラーを統一フォーマットで書き込む。
// APIError以外（インフラ障害など）は詳細を隠して500を返す。
func writeServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("unexpected service error", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}
	middleware.WriteErrorResponse(w, statusForCode(apiErr.Code), apiErr)
}

// statusForCode はエラーコードをHTTPステータスに対応付ける。
func statusForCode(code string) int {
	switch code {
	case model.ErrCodeValidationFailed, model.ErrCodeMissingCode,
		model.ErrCodeInvalidState, model.ErrCodeAuthorizationDenied:
		return http.StatusBadRequest
	case model.ErrCodeInvalidCredentials, model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeUserNotFound, model.ErrCodeRecordNotFound:
		return http.StatusNotFound
	case model.ErrCodeEmailTaken:
		return http.StatusConflict
	case model.ErrCodeExchangeFailed, model.ErrCodeFetchFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// userResponse はユーザープロフィールのAPI表現。
type userResponse struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	AvatarURL       string `json:"avatarUrl"`
	Bio             string `json:"bio"`
	JoinedAt        string `json:"joinedAt"`
	FollowerCount   int    `json:"followerCount"`
	FollowingCount  int    `json:"followingCount"`
	FitbitConnected bool   `json:"fitbitConnected"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		AvatarURL:       u.AvatarURL,
		Bio:             u.Bio,
		JoinedAt:        u.JoinedAt.Format(time.RFC3339),
		FollowerCount:   u.FollowerCount,
		FollowingCount:  u.FollowingCount,
		FitbitConnected: u.Connection.Connected(),
	}
}

// sleepRecordResponse は睡眠記録のAPI表現。
type sleepRecordResponse struct {
	ID               string `json:"id"`
	UserID           string `json:"userId"`
	Date             string `json:"date"`
	Duration         string `json:"duration"`
	QualityPercent   int    `json:"qualityPercent"`
	EnergyScore      int    `json:"energyScore"`
	DeepPct          int    `json:"deepPct"`
	RemPct           int    `json:"remPct"`
	LightPct         int    `json:"lightPct"`
	AwakeMinutes     int    `json:"awakeMinutes"`
	AverageHeartRate int    `json:"averageHeartRate"`
	Note             string `json:"note"`
	Likes            int    `json:"likes"`
}

func toSleepRecordResponse(rec *model.SleepRecord) sleepRecordResponse {
	return sleepRecordResponse{
		ID:               rec.ID,
		UserID:           rec.UserID,
		Date:             rec.Date.Format("2006-01-02"),
		Duration:         rec.Duration,
		QualityPercent:   rec.QualityPercent,
		EnergyScore:      rec.EnergyScore,
		DeepPct:          rec.DeepPct,
		RemPct:           rec.RemPct,
		LightPct:         rec.LightPct,
		AwakeMinutes:     rec.AwakeMinutes,
		AverageHeartRate: rec.AverageHeartRate,
		Note:             rec.Note,
		Likes:            rec.Likes,
	}
}

// feedItemResponse はフィードエントリのAPI表現。
type feedItemResponse struct {
	RecordID       string `json:"recordId"`
	UserID         string `json:"userId"`
	UserName       string `json:"userName"`
	UserAvatarURL  string `json:"userAvatarUrl"`
	Date           string `json:"date"`
	Duration       string `json:"duration"`
	QualityPercent int    `json:"qualityPercent"`
	Likes          int    `json:"likes"`
	Note           string `json:"note"`
}

func toFeedItemResponse(item model.FeedItem) feedItemResponse {
	return feedItemResponse{
		RecordID:       item.RecordID,
		UserID:         item.UserID,
		UserName:       item.UserName,
		UserAvatarURL:  item.UserAvatarURL,
		Date:           item.Date.Format("2006-01-02"),
		Duration:       item.Duration,
		QualityPercent: item.QualityPercent,
		Likes:          item.Likes,
		Note:           item.Note,
	}
}

// leaderboardEntryResponse はリーダーボード1行のAPI表現。
type leaderboardEntryResponse struct {
	Rank           int    `json:"rank"`
	UserID         string `json:"userId"`
	Name           string `json:"name"`
	AvatarURL      string `json:"avatarUrl"`
	Score          int    `json:"score"`
	Duration       string `json:"duration"`
	QualityPercent int    `json:"qualityPercent"`
}

// notificationResponse は通知のAPI表現。
type notificationResponse struct {
	ID        string `json:"id"`
	Level     string `json:"level"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"createdAt"`
}

func toNotificationResponse(n *model.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		Level:     string(n.Level),
		Title:     n.Title,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
}
