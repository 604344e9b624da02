package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Michelan98/sleep-society/internal/middleware"
	"github.com/Michelan98/sleep-society/internal/model"
	"github.com/Michelan98/sleep-society/internal/sleep"
)

// SleepServiceInterface は睡眠ハンドラーが必要とするサービスインターフェース。
type SleepServiceInterface interface {
	Latest(ctx context.Context, userID string) (*model.SleepRecord, error)
	History(ctx context.Context, userID string, limit int) ([]*model.SleepRecord, error)
	RecordManualEntry(ctx context.Context, userID string, input sleep.ManualEntryInput) (*model.SleepRecord, error)
	Feed(ctx context.Context, userID string, page int) ([]model.FeedItem, error)
	Like(ctx context.Context, recordID string) (int, error)
	Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error)
}

// SleepHandler は睡眠記録関連のHTTPハンドラー。
type SleepHandler struct {
	service SleepServiceInterface
}

// NewSleepHandler はSleepHandlerを生成する。
func NewSleepHandler(service SleepServiceInterface) *SleepHandler {
	return &SleepHandler{service: service}
}

// Latest は最新の睡眠記録を返す。記録がない場合はnullを返す。
// GET /api/sleep/latest
func (h *SleepHandler) Latest(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorizedError(w)
		return
	}

	record, err := h.service.Latest(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if record == nil {
		writeJSON(w, http.StatusOK, map[string]any{"record": nil})
		return
	}
	resp := toSleepRecordResponse(record)
	writeJSON(w, http.StatusOK, map[string]any{"record": resp})
}

// History は睡眠記録の履歴を新しい順に返す。
// GET /api/sleep/history?limit=30
func (h *SleepHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorizedError(w)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.service.History(r.Context(), userID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]sleepRecordResponse, 0, len(records))
	for _, record := range records {
		resp = append(resp, toSleepRecordResponse(record))
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": resp})
}

type manualEntryRequest struct {
	Date         string `json:"date"` // "2006-01-02"
	DeepMinutes  int    `json:"deepMinutes"`
	RemMinutes   int    `json:"remMinutes"`
	LightMinutes int    `json:"lightMinutes"`
	AwakeMinutes int    `json:"awakeMinutes"`
	Note         string `json:"note"`
}

// CreateManualEntry は手入力の睡眠記録を保存する。
// POST /api/sleep/records
func (h *SleepHandler) CreateManualEntry(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorizedError(w)
		return
	}

	var req manualEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeServiceError(w, model.NewValidationError("リクエストボディを解釈できません"))
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeServiceError(w, model.NewValidationError("日付はYYYY-MM-DD形式で指定してください"))
		return
	}

	record, err := h.service.RecordManualEntry(r.Context(), userID, sleep.ManualEntryInput{
		Date:         date,
		DeepMinutes:  req.DeepMinutes,
		RemMinutes:   req.RemMinutes,
		LightMinutes: req.LightMinutes,
		AwakeMinutes: req.AwakeMinutes,
		Note:         req.Note,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSleepRecordResponse(record))
}

// Feed はフォロー中ユーザーと自分の睡眠記録フィードを返す。
// GET /api/feed?page=0
func (h *SleepHandler) Feed(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorizedError(w)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	items, err := h.service.Feed(r.Context(), userID, page)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]feedItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toFeedItemResponse(item))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": resp, "page": page})
}

// Like は睡眠記録にいいねを付ける。
// POST /api/sleep/records/{recordID}/like
func (h *SleepHandler) Like(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		middleware.WriteUnauthorizedError(w)
		return
	}

	recordID := chi.URLParam(r, "recordID")
	likes, err := h.service.Like(r.Context(), recordID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"recordId": recordID, "likes": likes})
}

// Leaderboard はエナジースコアのランキングを返す。
// GET /api/leaderboard
func (h *SleepHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		middleware.WriteUnauthorizedError(w)
		return
	}

	entries, err := h.service.Leaderboard(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]leaderboardEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, leaderboardEntryResponse{
			Rank:           entry.Rank,
			UserID:         entry.UserID,
			Name:           entry.Name,
			AvatarURL:      entry.AvatarURL,
			Score:          entry.Score,
			Duration:       entry.Duration,
			QualityPercent: entry.QualityPercent,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": resp})
}

var _ SleepServiceInterface = (*sleep.Service)(nil)
