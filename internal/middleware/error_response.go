package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/givebox/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// クライアントには常に {"error": "<メッセージ>"} を返す。
type ErrorResponseBody struct {
	Error string `json:"error"`
}

// StatusForKind はエラーカテゴリをHTTPステータスコードに変換する。
func StatusForKind(kind model.ErrorKind) int {
	switch kind {
	case model.ErrKindNotFound:
		return http.StatusNotFound
	case model.ErrKindForbidden:
		return http.StatusForbidden
	case model.ErrKindInvalidState:
		return http.StatusBadRequest
	case model.ErrKindConflict:
		return http.StatusConflict
	case model.ErrKindValidation:
		return http.StatusBadRequest
	case model.ErrKindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{Error: message})
}

// WriteAPIError はAPIErrorをカテゴリに応じたステータスコードで書き込む。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	WriteErrorResponse(w, StatusForKind(apiErr.Kind), apiErr.Message)
}

// WriteError は任意のエラーをレスポンスに変換する。
// APIErrorはカテゴリ通りに、それ以外は詳細をログのみに記録して500を返す。
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		WriteAPIError(w, apiErr)
		return
	}

	slog.Error("internal error", slog.String("error", err.Error()))
	WriteInternalServerError(w)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, "Internal server error")
}
