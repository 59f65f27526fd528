// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/givebox/internal/model"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
	// demoSessionHeader はAuthorizationヘッダーを使えないクライアント向けの代替。
	demoSessionHeader = "X-Demo-Session"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// SessionFinder はセッショントークンの解決に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindUserByToken(ctx context.Context, token string) (*model.UserRecord, error)
}

// TokenFromRequest はリクエストヘッダーからセッショントークンを取り出す。
// Authorization: Bearer を優先し、無ければX-Demo-Sessionを見る。
// どちらにも無い場合は空文字列を返す。
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get(authorizationHeader); strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	}
	return r.Header.Get(demoSessionHeader)
}

// NewSessionMiddleware はヘッダーのセッショントークンを検証し、
// 認証済みユーザーIDをリクエストコンテキストに注入するミドルウェアを返す。
// トークンが無い、または無効なリクエストには401 Unauthorizedを返す。
func NewSessionMiddleware(sessionFinder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. ヘッダーからトークンを取得
			token := TokenFromRequest(r)
			if token == "" {
				WriteAPIError(w, model.NewMissingSessionError())
				return
			}

			// 2. トークンの有効性を検証
			user, err := sessionFinder.FindUserByToken(r.Context(), token)
			if err != nil {
				slog.Error("failed to resolve session token",
					slog.String("error", err.Error()),
				)
				WriteAPIError(w, model.NewInvalidSessionError())
				return
			}
			if user == nil {
				WriteAPIError(w, model.NewInvalidSessionError())
				return
			}

			// 3. 認証済みユーザーIDをコンテキストに注入
			ctx := context.WithValue(r.Context(), userIDContextKey, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
