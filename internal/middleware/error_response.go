package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/Michelan98/sleep-society/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// ダッシュボードのトースト表示がそのまま使えるよう、
// 原因カテゴリとユーザー向けの対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "サーバーで予期しないエラーが発生しました。",
		Category: "system",
		Action:   "時間をおいてダッシュボードを再読み込みしてください。",
	})
}

// WriteUnauthorizedError は未認証リクエストへの統一レスポンスを書き込む。
// セッション切れの可能性が高いため、再ログインを促す。
func WriteUnauthorizedError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     model.ErrCodeUnauthorized,
		Message:  "ログインが必要です。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	})
}
