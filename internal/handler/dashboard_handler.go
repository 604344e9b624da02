package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Michelan98/sleep-society/internal/dashboard"
	"github.com/Michelan98/sleep-society/internal/middleware"
)

// DashboardServiceInterface はダッシュボードハンドラーが必要とするサービスインターフェース。
type DashboardServiceInterface interface {
	FetchData(ctx context.Context, userID string) (*dashboard.Data, error)
}

// DashboardHandler はダッシュボード画面用のHTTPハンドラー。
type DashboardHandler struct {
	service DashboardServiceInterface
}

// NewDashboardHandler はDashboardHandlerを生成する。
func NewDashboardHandler(service DashboardServiceInterface) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// dashboardResponse はダッシュボード1画面分のAPI表現。
type dashboardResponse struct {
	User         userResponse         `json:"user"`
	Sleep        *sleepRecordResponse `json:"sleep"`
	Source       string               `json:"source"`
	LastSyncTime string               `json:"lastSyncTime,omitempty"`
}

func toDashboardResponse(data *dashboard.Data) dashboardResponse {
	resp := dashboardResponse{
		User:   toUserResponse(data.User),
		Source: string(data.Source),
	}
	if data.Sleep != nil {
		sleep := toSleepRecordResponse(data.Sleep)
		resp.Sleep = &sleep
	}
	if data.LastSyncTime != nil {
		resp.LastSyncTime = data.LastSyncTime.Format(time.RFC3339)
	}
	return resp
}

// Get はダッシュボード1画面分のデータを返す。
// GET /api/dashboard
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorizedError(w)
		return
	}

	data, err := h.service.FetchData(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDashboardResponse(data))
}

var _ DashboardServiceInterface = (*dashboard.Service)(nil)
