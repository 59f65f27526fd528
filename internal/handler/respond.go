// Package handler はHTTP APIのハンドラー層を提供する。
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/givebox/internal/middleware"
	"github.com/hitoshi/givebox/internal/model"
)

// writeJSON は指定ステータスコードでJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// decodeJSON はリクエストボディをJSONとして解析する。
// 解析に失敗した場合はValidationエラーのレスポンスを書き込みfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("Invalid JSON body"))
		return false
	}
	return true
}

// requireUserID はコンテキストから認証済みユーザーIDを取り出す。
// セッションミドルウェアを通過していないリクエストには401を書き込みfalseを返す。
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewMissingSessionError())
		return "", false
	}
	return userID, true
}
