package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/mvcwatch/internal/metrics"
	"github.com/hitoshi/mvcwatch/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Runner      CheckRunner
	RateLimiter *middleware.RateLimiter
	Gatherer    prometheus.Gatherer
	Logger      *slog.Logger
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RecoveryMiddleware → LoggingMiddleware
//
// チェックトリガー（/check）にはレート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	checkHandler := NewCheckHandler(deps.Runner, deps.Logger)

	// チェックトリガー。GETはブラウザや監視ツールからの手動トリガー用。
	r.Route("/check", func(r chi.Router) {
		r.Use(deps.RateLimiter.CheckMiddleware())
		r.Post("/", checkHandler.Check)
		r.Get("/", checkHandler.Check)
	})

	r.Get("/health", Health)

	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	return r
}
