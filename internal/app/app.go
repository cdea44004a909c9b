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

	"github.com/hitoshi/mvcwatch/internal/config"
	"github.com/hitoshi/mvcwatch/internal/database"
	"github.com/hitoshi/mvcwatch/internal/extract"
	"github.com/hitoshi/mvcwatch/internal/fetch"
	"github.com/hitoshi/mvcwatch/internal/handler"
	"github.com/hitoshi/mvcwatch/internal/logger"
	"github.com/hitoshi/mvcwatch/internal/metrics"
	"github.com/hitoshi/mvcwatch/internal/middleware"
	"github.com/hitoshi/mvcwatch/internal/model"
	"github.com/hitoshi/mvcwatch/internal/notify"
	"github.com/hitoshi/mvcwatch/internal/pipeline"
	"github.com/hitoshi/mvcwatch/internal/resolve"
	"github.com/hitoshi/mvcwatch/internal/state"
	"github.com/hitoshi/mvcwatch/internal/worker"
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
		slog.Bool("watch_all_locations", cfg.WatchAllLocations),
		slog.Int("active_targets", len(cfg.ActiveTargets())),
		slog.Duration("cooldown", cfg.Cooldown),
		slog.Duration("check_interval", cfg.CheckInterval),
		slog.String("state_backend", string(cfg.StateBackend)),
		slog.Bool("mail_configured", cfg.MailConfigured()),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandCheck:
		return runCheck(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// buildStore は設定に応じた通知状態ストアを構築する。
// 返り値のcleanupは接続リソースを解放する（呼び出し側でdeferすること）。
func buildStore(cfg *config.Config) (state.Store, func(), error) {
	log := slog.Default()

	switch cfg.StateBackend {
	case config.StateBackendRedis:
		client := state.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		slog.Info("redis connection established", slog.String("addr", cfg.RedisAddr))
		return state.NewRedisStore(client, cfg.StateKey, cfg.Cooldown, log),
			func() { client.Close() }, nil

	case config.StateBackendPostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		slog.Info("database connection established")
		return state.NewPostgresStore(db, cfg.Cooldown, log),
			func() { db.Close() }, nil

	default:
		slog.Warn("メモリバッキングで起動します。通知履歴はプロセス再起動で失われます")
		return state.NewMemoryStore(cfg.Cooldown), func() {}, nil
	}
}

// buildPipeline はチェックパイプラインの全依存関係をワイヤリングする。
func buildPipeline(cfg *config.Config, store state.Store, collector metrics.MetricsCollector) *pipeline.Pipeline {
	log := slog.Default()

	fetcher := fetch.NewClient(cfg.TargetURL, cfg.FetchTimeout, log)
	extractor := extract.NewExtractor(log)
	resolver := resolve.NewResolver(log)
	channel := notify.NewChannel(cfg, log)

	return pipeline.New(
		fetcher, extractor, resolver,
		store, channel, collector,
		cfg.ActiveTargets(), log,
	)
}

// runServe はHTTPサーバーモードで起動する。
// 通知状態ストアと全依存関係をワイヤリングし、HTTPサーバーと
// 定期チェックのスケジューラを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	store, cleanup, err := buildStore(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	pipe := buildPipeline(cfg, store, collector)

	rateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig(), slog.Default())
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Runner:      pipe,
		RateLimiter: rateLimiter,
		Gatherer:    registry,
		Logger:      slog.Default(),
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// 定期チェックのスケジューラをバックグラウンドで起動
	if cfg.CheckInterval > 0 {
		scheduler := worker.NewScheduler(pipe, slog.Default())
		go scheduler.Start(ctx, cfg.CheckInterval)
	} else {
		slog.Info("CHECK_INTERVALが0のため定期チェックは無効です（HTTPトリガーのみ）")
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// runCheck はチェックを1回実行して終了するジョブモード。
//
// ジョブ型の実行では毎回プロセスが作り直されるため、メモリバッキングでは
// クールダウンが機能せず毎回再通知してしまう。そのため永続ストアの
// 設定がない場合は起動エラーにする。
func runCheck(cfg *config.Config) error {
	if !cfg.Durable() {
		return model.NewConfigInvalidError(
			"checkモードには永続ストアの設定が必要です（REDIS_ADDRまたはDATABASE_URLを設定してください）")
	}

	store, cleanup, err := buildStore(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	pipe := buildPipeline(cfg, store, collector)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return executeCheck(ctx, pipe)
}

// checkRunner はチェック1回分の実行インターフェース。
type checkRunner interface {
	Run(ctx context.Context) (pipeline.Result, error)
}

// executeCheck はチェックを1回実行し、結果を終了コードに変換可能な
// エラーとして報告する。サーバーモードと異なり、ジョブ型の実行では
// 取得失敗も失敗として返す。「実行できたが新規なし」は成功。
func executeCheck(ctx context.Context, runner checkRunner) error {
	result, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	if result.Summary == pipeline.SummaryFetchFailed {
		return model.NewFetchFailedError(fmt.Sprintf("run_id=%s", result.RunID))
	}

	slog.Info("check completed",
		slog.String("run_id", result.RunID),
		slog.String("summary", result.Summary),
		slog.Int("candidates", result.Candidates),
		slog.Int("new_found", result.NewFound),
	)
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return model.NewConfigInvalidError("migrateにはDATABASE_URLの設定が必要です")
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
