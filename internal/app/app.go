// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/givebox/internal/ai"
	"github.com/hitoshi/givebox/internal/auth"
	"github.com/hitoshi/givebox/internal/config"
	"github.com/hitoshi/givebox/internal/conversation"
	"github.com/hitoshi/givebox/internal/database"
	"github.com/hitoshi/givebox/internal/handler"
	"github.com/hitoshi/givebox/internal/listing"
	"github.com/hitoshi/givebox/internal/logger"
	"github.com/hitoshi/givebox/internal/metrics"
	"github.com/hitoshi/givebox/internal/middleware"
	"github.com/hitoshi/givebox/internal/repository"
	"github.com/hitoshi/givebox/internal/security"
	"github.com/hitoshi/givebox/internal/user"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("store_backend", cfg.StoreBackend),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandImport:
		return runImport(cfg)
	default:
		return runServe(cfg)
	}
}

// repos はストレージバックエンドごとのリポジトリ一式。
type repos struct {
	users         repository.UserRepository
	sessions      repository.SessionRepository
	listings      repository.ListingRepository
	conversations repository.ConversationRepository
	health        handler.HealthChecker
	close         func() error
}

// buildRepos は設定に応じたストレージバックエンドのリポジトリを構築する。
func buildRepos(cfg *config.Config) (*repos, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		slog.Info("database connection established")

		return &repos{
			users:         repository.NewPostgresUserRepo(db),
			sessions:      repository.NewPostgresSessionRepo(db),
			listings:      repository.NewPostgresListingRepo(db),
			conversations: repository.NewPostgresConversationRepo(db),
			health:        db,
			close:         db.Close,
		}, nil

	default:
		store := repository.NewFileStore(cfg.DemoDBPath)

		slog.Info("file store opened", slog.String("path", cfg.DemoDBPath))

		return &repos{
			users:         repository.NewFileUserRepo(store),
			sessions:      repository.NewFileSessionRepo(store),
			listings:      repository.NewFileListingRepo(store),
			conversations: repository.NewFileConversationRepo(store),
			health:        store,
			close:         func() error { return nil },
		}, nil
	}
}

// runServe はAPIサーバーモードで起動する。
// ストレージを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. ストレージの初期化
	st, err := buildRepos(cfg)
	if err != nil {
		return err
	}
	defer st.close()

	// 2. サニタイザーの初期化
	sanitizer := security.NewContentSanitizer()

	// 3. ドメインサービスの初期化
	authService := auth.NewService(st.users, st.sessions, sanitizer)
	listingService := listing.NewService(st.listings, st.users, sanitizer)
	conversationService := conversation.NewService(st.conversations, st.listings, st.users, sanitizer)
	userService := user.NewService(st.users, listingService, sanitizer)

	// 4. AI説明文生成の初期化（APIキー未設定の場合は無効）
	var generator handler.DescriptionGenerator
	if cfg.GeminiAPIKey != "" {
		generator = ai.NewGenerator(
			&http.Client{Timeout: 30 * time.Second},
			cfg.GeminiAPIKey, cfg.GeminiModel,
		)
	} else {
		slog.Warn("Gemini API key is not set; AI description generation is disabled")
	}

	// 5. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 6. レート制限の初期化（configはreq/min単位、rate.Limitはreq/sec単位）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.AIGenRate = rate.Limit(float64(cfg.RateLimitAI) / 60.0)
	rateLimiterCfg.AIGenBurst = cfg.RateLimitAI

	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	// 7. ルーターの構築
	deps := &handler.RouterDeps{
		SessionFinder:     st.sessions,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),

		Metrics:        collector,
		MetricsHandler: metrics.Handler(registry),

		HealthChecker: st.health,

		AuthService:         authService,
		ListingService:      listingService,
		ConversationService: conversationService,
		UserService:         userService,

		Generator:     generator,
		UploadMaxSize: cfg.UploadMaxSize,
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for migrate")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runImport はデモデータのJSONドキュメントをPostgresに取り込む。
// 既存データはすべて置き換えられる。
func runImport(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for import")
	}

	doc, err := repository.LoadDocument(cfg.DemoDBPath)
	if err != nil {
		return fmt.Errorf("failed to load demo document: %w", err)
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := repository.ImportDocument(ctx, db, doc); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	slog.Info("demo document imported",
		slog.String("path", cfg.DemoDBPath),
		slog.Int("users", len(doc.Users)),
		slog.Int("listings", len(doc.Listings)),
		slog.Int("conversations", len(doc.Conversations)),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
