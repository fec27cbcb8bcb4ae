package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/episcout/internal/config"
	"github.com/hitoshi/episcout/internal/database"
	"github.com/hitoshi/episcout/internal/feed"
	"github.com/hitoshi/episcout/internal/handler"
	"github.com/hitoshi/episcout/internal/logger"
	"github.com/hitoshi/episcout/internal/metrics"
	"github.com/hitoshi/episcout/internal/middleware"
	"github.com/hitoshi/episcout/internal/model"
	"github.com/hitoshi/episcout/internal/registry"
	"github.com/hitoshi/episcout/internal/repository"
	"github.com/hitoshi/episcout/internal/scan"
	"github.com/hitoshi/episcout/internal/security"
	"github.com/hitoshi/episcout/internal/stats"
	"github.com/hitoshi/episcout/internal/worker/fetch"
	"github.com/hitoshi/episcout/internal/worker/schedule"
)

const dbPingTimeout = 5 * time.Second

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

	// 3. 設定されたログレベルで再設定する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

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
		slog.String("timezone", cfg.Timezone),
		slog.String("match_mode", cfg.MatchMode),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// components はserveとworkerで共有する依存関係一式。
type components struct {
	articles *repository.PostgresArticleRepo
	registry *registry.Service
	scanner  *scan.Orchestrator
	triage   *scan.Triage
	stats    *stats.Service
	gatherer prometheus.Gatherer
}

// buildComponents はDB接続と設定から全サービスをワイヤリングする。
func buildComponents(cfg *config.Config, db *sql.DB, log *slog.Logger) (*components, error) {
	// 1. リポジトリの初期化
	articleRepo := repository.NewPostgresArticleRepo(db)
	keywordRepo := repository.NewPostgresKeywordRepo(db)
	whitelistRepo := repository.NewPostgresWhitelistRepo(db)
	registryRepo := repository.NewPostgresRegistryRepo(db)

	// 2. フィードカタログの読み込み
	catalog := feed.DefaultCatalog()
	if cfg.FeedCatalogFile != "" {
		loaded, err := feed.LoadCatalog(cfg.FeedCatalogFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load feed catalog: %w", err)
		}
		catalog = loaded
	}

	// 3. メトリクスの初期化
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	// 4. フェッチャーと照合器の初期化
	fetcher := fetch.NewFetcher(
		security.NewSSRFGuard(),
		security.NewTextExtractor(),
		collector,
		log,
		fetch.Options{
			UserAgent:     cfg.FetchUserAgent,
			MaxBodySize:   cfg.FetchMaxSize,
			MaxConcurrent: cfg.FetchMaxConcurrent,
		},
	)
	mode, err := scan.ParseMatchMode(cfg.MatchMode)
	if err != nil {
		return nil, err
	}
	matcher := scan.NewMatcher(mode, cfg.MatchExclude)

	// 5. ドメインサービスの初期化
	registryService := registry.NewService(keywordRepo, whitelistRepo, log)
	scanner := scan.NewOrchestrator(registryRepo, articleRepo, fetcher, catalog, matcher, collector, log, cfg.FetchTimeout)
	triage := scan.NewTriage(articleRepo, registryService, collector, log)
	statsService := stats.NewService(articleRepo, cfg.Location(), stats.AlertPolicy{
		WindowDays:   cfg.AlertWindowDays,
		BaselineDays: cfg.AlertBaselineDays,
		Ratio:        cfg.AlertRatio,
		MinCount:     cfg.AlertMinCount,
	})

	log.Info("components initialized",
		slog.Int("catalog_sources", len(catalog.Sources)),
		slog.String("match_mode", string(mode)),
	)

	return &components{
		articles: articleRepo,
		registry: registryService,
		scanner:  scanner,
		triage:   triage,
		stats:    statsService,
		gatherer: reg,
	}, nil
}

// openDB はDB接続を開き、疎通を確認する。
func openDB(databaseURL string) (*sql.DB, error) {
	db, err := database.Open(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Ping(context.Background(), db, dbPingTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	db, err := openDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	log := slog.Default()
	c, err := buildComponents(cfg, db, log)
	if err != nil {
		return err
	}

	rateLimiter := middleware.NewRateLimiter(
		middleware.DefaultRateLimiterConfig().WithScanPerMinute(cfg.ScanRateLimit),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		HealthChecker:     db,
		Gatherer:          c.gatherer,
		ScanService:       c.scanner,
		ArticleLister:     c.articles,
		TriageService:     c.triage,
		RegistryService:   c.registry,
		StatsService:      c.stats,
	})

	// スキャンはフェッチ全体を待つため書き込みタイムアウトを長めに取る
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return serveUntilSignal(server, "API server")
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、定期スキャンのスケジューラを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, err := openDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	log := slog.Default()
	c, err := buildComponents(cfg, db, log)
	if err != nil {
		return err
	}

	scheduler, err := schedule.NewScheduler(c.scanner, log, cfg.ScanSchedule, model.ScanRequest{
		DaysLimit: cfg.ScanDaysLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsPort != "" {
		metricsServer := &http.Server{
			Addr:              ":" + cfg.MetricsPort,
			Handler:           metrics.SetupMetricsRoute(c.gatherer),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server listen error", slog.String("error", err.Error()))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	slog.Info("worker starting",
		slog.String("schedule", cfg.ScanSchedule),
		slog.Int("days_limit", cfg.ScanDaysLimit),
		slog.Int("max_concurrent", cfg.FetchMaxConcurrent),
		slog.String("metrics_port", cfg.MetricsPort),
	)

	// スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx)

	slog.Info("worker stopped gracefully")
	return nil
}

// serveUntilSignal はサーバーを起動し、SIGINTまたはSIGTERMを受信するまで待機する。
func serveUntilSignal(server *http.Server, name string) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info(name+" starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	case <-stop:
	}
	slog.Info("shutting down " + name + "...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info(name + " stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
// 解析できないURLは全体をマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
		}
	}
	return u.String()
}
