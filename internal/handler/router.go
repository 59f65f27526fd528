package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/givebox/internal/metrics"
	"github.com/hitoshi/givebox/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なストレージインターフェース。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// メトリクス。nilの場合は記録しない。
	Metrics *metrics.Collector
	// MetricsHandler は/metricsのスクレイプ用ハンドラー。nilの場合はルートを公開しない。
	MetricsHandler http.Handler

	// ストレージのヘルスチェック
	HealthChecker HealthChecker

	// ドメインサービス
	AuthService         AuthServiceInterface
	ListingService      ListingServiceInterface
	ConversationService ConversationServiceInterface
	UserService         UserServiceInterface

	// AI説明文生成。APIキー未設定の場合nil。
	Generator DescriptionGenerator

	// アップロード画像の最大バイト数
	UploadMaxSize int64
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → RecoveryMiddleware → LoggingMiddleware → MetricsMiddleware
//
// 認証が必要なルートにはさらにSessionMiddleware → RateLimitMiddleware(General)を
// 重ね、AI説明文生成には専用のレート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効くミドルウェア
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewRecoveryMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}

	var listingMetrics ListingMetrics
	var conversationMetrics ConversationMetrics
	var aiMetrics AIMetrics
	if deps.Metrics != nil {
		listingMetrics = deps.Metrics
		conversationMetrics = deps.Metrics
		aiMetrics = deps.Metrics
	}

	authHandler := NewAuthHandler(deps.AuthService)
	listingHandler := NewListingHandler(deps.ListingService, listingMetrics)
	conversationHandler := NewConversationHandler(deps.ConversationService, deps.AuthService, conversationMetrics)
	userHandler := NewUserHandler(deps.UserService, deps.SessionFinder)
	uploadHandler := NewUploadHandler(deps.UploadMaxSize)
	aiHandler := NewAIHandler(deps.Generator, aiMetrics)

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.HealthChecker))

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Post("/api/auth/signup", authHandler.Signup)
	r.Post("/api/auth/login", authHandler.Login)

	r.Get("/api/listings", listingHandler.ListListings)
	r.Get("/api/listings/{id}", listingHandler.GetListing)

	// プロフィール閲覧は未認証でも可能（トークンがあれば閲覧者として解決）
	r.Get("/api/users/{id}", userHandler.GetProfile)

	r.Post("/api/uploads", uploadHandler.Upload)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/api/auth/me", authHandler.Me)

		r.Post("/api/listings", listingHandler.CreateListing)
		r.Patch("/api/listings/{id}", listingHandler.UpdateListing)
		r.Delete("/api/listings/{id}", listingHandler.DeleteListing)

		r.Route("/api/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.ListConversations)
			r.Post("/", conversationHandler.CreateConversation)
			r.Post("/{id}/messages", conversationHandler.SendMessage)
			r.Patch("/{id}/messages", conversationHandler.MarkConversationRead)
		})

		r.Patch("/api/users/{id}", userHandler.UpdateProfile)

		// POST /api/ai/description - AI説明文生成（専用レート制限を追加）
		r.With(deps.RateLimiter.AIGenerationMiddleware()).Post("/api/ai/description", aiHandler.GenerateDescription)
	})

	return r
}

// NewHealthHandler はストレージへの疎通を確認するヘルスチェックハンドラーを返す。
// GET /health
func NewHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
