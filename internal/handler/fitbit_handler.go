package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/Michelan98/sleep-society/internal/dashboard"
	"github.com/Michelan98/sleep-society/internal/fitbit"
	"github.com/Michelan98/sleep-society/internal/middleware"
	"github.com/Michelan98/sleep-society/internal/model"
)

// FitbitServiceInterface はFitbitハンドラーが必要とするサービスインターフェース。
type FitbitServiceInterface interface {
	GetAuthorizationURL(ctx context.Context, userID string) (string, error)
	ValidateState(ctx context.Context, userID, returnedState string) bool
	ExchangeCode(ctx context.Context, userID, code string) error
	Disconnect(ctx context.Context, userID string) error
	FetchSleepData(ctx context.Context, userID string, date time.Time) *model.SleepRecord
	Connected(ctx context.Context, userID string) (bool, error)
	LastSyncTime(ctx context.Context, userID string) (*time.Time, error)
}

// DashboardRefresher は連携状態変化後のダッシュボード更新インターフェース。
type DashboardRefresher interface {
	HandleConnectionChange(ctx context.Context, userID string, connected bool) (*dashboard.Data, error)
}

// FitbitHandlerConfig はFitbitハンドラーの設定。
type FitbitHandlerConfig struct {
	// DashboardURL はコールバック完了後のリダイレクト先。
	// 成否はクエリパラメータ（fitbit=connected / fitbit=error&code=...）で伝える。
	DashboardURL string
}

// FitbitHandler はFitbit連携関連のHTTPハンドラー。
type FitbitHandler struct {
	service   FitbitServiceInterface
	dashboard DashboardRefresher
	config    FitbitHandlerConfig
}

// NewFitbitHandler はFitbitHandlerを生成する。
func NewFitbitHandler(service FitbitServiceInterface, dashboard DashboardRefresher, config FitbitHandlerConfig) *FitbitHandler {
	return &FitbitHandler{
		service:   service,
		dashboard: dashboard,
		config:    config,
	}
}

// Connect はFitbit認可フローを開始するURLを返す。
// POST /api/fitbit/connect
func (h *FitbitHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorizedError(w)
		return
	}

	authURL, err := h.service.GetAuthorizationURL(r.Context(), userID)
	if err != nil {
		slog.Error("failed to build authorization URL",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"authorizationUrl": authURL})
}

// Callback はFitbitからの認可コールバックを処理する。
// GET /auth/fitbit/callback?code=xxx&state=yyy[&error=zzz]
//
// 結果に関わらずダッシュボードへリダイレクトし、成否はクエリパラメータで
// 伝える。errorパラメータの存在とcodeの欠落は即失敗。stateはコード交換の
// 前に検証し、検証失敗時は交換を試みない（フェイルクローズ）。
func (h *FitbitHandler) Callback(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorizedError(w)
		return
	}

	query := r.URL.Query()

	if providerError := query.Get("error"); providerError != "" {
		slog.Warn("fitbit authorization denied",
			slog.String("user_id", userID),
			slog.String("provider_error", providerError),
		)
		h.redirectWithError(w, r, model.ErrCodeAuthorizationDenied)
		return
	}

	// codeのないリダイレクトは交換不能なので、ワンタイムのstateを消費する前に弾く
	code := query.Get("code")
	if code == "" {
		h.redirectWithError(w, r, model.ErrCodeMissingCode)
		return
	}

	if !h.service.ValidateState(r.Context(), userID, query.Get("state")) {
		h.redirectWithError(w, r, model.ErrCodeInvalidState)
		return
	}

	if err := h.service.ExchangeCode(r.Context(), userID, code); err != nil {
		h.redirectWithError(w, r, model.ErrCodeExchangeFailed)
		return
	}

	http.Redirect(w, r, h.config.DashboardURL+"?fitbit=connected", http.StatusTemporaryRedirect)
}

// Sync は睡眠データの即時同期を実行する。
// POST /api/fitbit/sync
func (h *FitbitHandler) Sync(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorizedError(w)
		return
	}

	record := h.service.FetchSleepData(r.Context(), userID, time.Now())
	if record == nil {
		// 未連携・プロバイダー障害・データなしのいずれか。詳細はログ側。
		writeJSON(w, http.StatusOK, map[string]any{"synced": false})
		return
	}

	resp := toSleepRecordResponse(record)
	writeJSON(w, http.StatusOK, map[string]any{"synced": true, "record": resp})
}

// Disconnect はFitbit連携を解除し、内部データで埋め直したダッシュボードを返す。
// DELETE /api/fitbit/connection
func (h *FitbitHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorizedError(w)
		return
	}

	if err := h.service.Disconnect(r.Context(), userID); err != nil {
		writeServiceError(w, err)
		return
	}

	data, err := h.dashboard.HandleConnectionChange(r.Context(), userID, false)
	if err != nil {
		slog.Error("failed to refresh dashboard after disconnect",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		// 解除自体は成功している
		writeJSON(w, http.StatusOK, map[string]any{"connected": false})
		return
	}

	writeJSON(w, http.StatusOK, toDashboardResponse(data))
}

// Status は連携状態と最終同期時刻を返す。
// GET /api/fitbit/status
func (h *FitbitHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorizedError(w)
		return
	}

	connected, err := h.service.Connected(r.Context(), userID)
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}

	resp := map[string]any{"connected": connected}
	if connected {
		lastSync, err := h.service.LastSyncTime(r.Context(), userID)
		if err == nil && lastSync != nil {
			resp["lastSyncTime"] = lastSync.Format(time.RFC3339)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *FitbitHandler) redirectWithError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.config.DashboardURL+"?fitbit=error&code="+url.QueryEscape(code), http.StatusTemporaryRedirect)
}

var (
	_ FitbitServiceInterface = (fitbit.FitbitService)(nil)
	_ DashboardRefresher     = (*dashboard.Service)(nil)
)
