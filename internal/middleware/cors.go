package middleware

import "net/http"

const (
	// corsAllowedMethods はダッシュボードSPAが使用するHTTPメソッド。
	corsAllowedMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	// corsAllowedHeaders にはCSRF二重送信トークン用のヘッダーを含む。
	corsAllowedHeaders = "Content-Type, X-CSRF-Token"
)

// NewCORSMiddleware は指定されたオリジンに対するCORSミドルウェアを返す。
// ダッシュボードSPAはセッションCookie付き（credentials）でAPIを呼び出す
// ため、ワイルドカード(*)は使用できない。OPTIONSプリフライトには204で応答する。
func NewCORSMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", corsAllowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", corsAllowedHeaders)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
