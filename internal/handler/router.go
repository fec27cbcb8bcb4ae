package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/episcout/internal/metrics"
	"github.com/hitoshi/episcout/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// インフラ
	HealthChecker HealthChecker
	Gatherer      prometheus.Gatherer

	// スキャンとトリアージ
	ScanService   ScanServiceInterface
	ArticleLister ArticleListerInterface
	TriageService TriageServiceInterface

	// レジストリ
	RegistryService RegistryServiceInterface

	// 集計
	StatsService StatsServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Logging → Recovery → SecurityHeaders → CORS → RateLimit(General)
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	scanHandler := NewScanHandler(deps.ScanService, deps.ArticleLister, deps.TriageService)
	registryHandler := NewRegistryHandler(deps.RegistryService)
	statsHandler := NewStatsHandler(deps.StatsService)

	// --- レート制限外のルート ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- API ---
	r.Route("/api", func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// POST /api/scan - スキャン実行（スキャン専用レート制限を追加）
		r.With(deps.RateLimiter.ScanMiddleware()).Post("/scan", scanHandler.Scan)

		r.Route("/articles", func(r chi.Router) {
			r.Get("/", scanHandler.ListArticles)
			r.Post("/save", scanHandler.SaveArticles)
		})
		r.Post("/triage/whitelist", scanHandler.TrustSource)

		r.Route("/keywords", func(r chi.Router) {
			r.Get("/", registryHandler.ListKeywords)
			r.Post("/", registryHandler.CreateKeyword)
			r.Delete("/{id}", registryHandler.DeleteKeyword)
		})

		r.Route("/whitelist", func(r chi.Router) {
			r.Get("/", registryHandler.ListWhitelist)
			r.Post("/", registryHandler.UpsertWhitelist)
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/overview", statsHandler.Overview)
			r.Get("/trends", statsHandler.Trends)
		})
	})

	return r
}
