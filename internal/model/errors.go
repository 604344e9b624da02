// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, fitbit, sleep, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeAuthorizationDenied = "AUTHORIZATION_DENIED"
	ErrCodeMissingCode         = "MISSING_CODE"
	ErrCodeInvalidState        = "INVALID_STATE"
	ErrCodeExchangeFailed      = "EXCHANGE_FAILED"
	ErrCodeFetchFailed         = "FETCH_FAILED"
	ErrCodeDisconnectFailed    = "DISCONNECT_FAILED"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeEmailTaken          = "EMAIL_TAKEN"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeRecordNotFound      = "RECORD_NOT_FOUND"
)

// NewAuthorizationDeniedError はプロバイダーが認可を拒否した場合のエラーを生成する。
func NewAuthorizationDeniedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeAuthorizationDenied,
		Message:  fmt.Sprintf("Fitbitへの接続が許可されませんでした: %s", reason),
		Category: "fitbit",
		Action:   "Fitbit側で連携を許可してから再度お試しください。",
	}
}

// NewMissingCodeError はコールバックに認可コードが含まれない場合のエラーを生成する。
func NewMissingCodeError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingCode,
		Message:  "認可コードが見つかりません。",
		Category: "fitbit",
		Action:   "接続フローを最初からやり直してください。",
	}
}

// NewInvalidStateError はCSRF stateの検証に失敗した場合のエラーを生成する。
func NewInvalidStateError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidState,
		Message:  "リクエストの正当性を確認できませんでした。",
		Category: "fitbit",
		Action:   "接続フローを最初からやり直してください。",
	}
}

// NewExchangeFailedError はトークン交換に失敗した場合のエラーを生成する。
func NewExchangeFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeExchangeFailed,
		Message:  fmt.Sprintf("Fitbitとの認証に失敗しました: %s", reason),
		Category: "fitbit",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewFetchFailedError は睡眠データ取得に失敗した場合のエラーを生成する。
func NewFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  fmt.Sprintf("Fitbitからの睡眠データ取得に失敗しました: %s", reason),
		Category: "fitbit",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewDisconnectFailedError は連携解除に失敗した場合のエラーを生成する。
func NewDisconnectFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeDisconnectFailed,
		Message:  "Fitbit連携の解除に失敗しました。",
		Category: "fitbit",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidCredentialsError はログイン情報が不正な場合のエラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewEmailTakenError はメールアドレスが登録済みの場合のエラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewValidationError は入力検証に失敗した場合のエラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容が正しくありません: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewRecordNotFoundError は睡眠記録が見つからない場合のエラーを生成する。
func NewRecordNotFoundError(recordID string) *APIError {
	return &APIError{
		Code:     ErrCodeRecordNotFound,
		Message:  fmt.Sprintf("指定された睡眠記録が見つかりません: %s", recordID),
		Category: "sleep",
		Action:   "記録IDを確認してください。",
	}
}
