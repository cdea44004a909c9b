// Package handler はHTTPエンドポイントのハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/mvcwatch/internal/pipeline"
)

// CheckRunner はチェックハンドラーが必要とする実行インターフェース。
type CheckRunner interface {
	// Run は空き状況チェックを1回実行する。
	Run(ctx context.Context) (pipeline.Result, error)
}

// CheckHandler は空き状況チェックのHTTPハンドラー。
type CheckHandler struct {
	runner CheckRunner
	logger *slog.Logger
}

// NewCheckHandler はCheckHandlerを生成する。
func NewCheckHandler(runner CheckRunner, logger *slog.Logger) *CheckHandler {
	return &CheckHandler{
		runner: runner,
		logger: logger,
	}
}

// checkResponse はチェック実行結果のAPIレスポンス。
type checkResponse struct {
	RunID      string `json:"run_id"`
	Summary    string `json:"summary"`
	Candidates int    `json:"candidates"`
	NewFound   int    `json:"new_found"`
}

// errorResponse は統一エラーフォーマットのレスポンス。
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Check はチェックの実行を処理する。
// POST /check および GET /check
//
// 取得失敗などの実行内の不調はサマリとして200で返す（呼び出し自体は
// 成功しているため）。想定外のエラーのみ500を返し、詳細はログにのみ残す。
func (h *CheckHandler) Check(w http.ResponseWriter, r *http.Request) {
	result, err := h.runner.Run(r.Context())
	if err != nil {
		h.logger.Error("チェックの実行に失敗しました",
			slog.String("run_id", result.RunID),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "内部エラーが発生しました。",
		})
		return
	}

	writeJSON(w, http.StatusOK, checkResponse{
		RunID:      result.RunID,
		Summary:    result.Summary,
		Candidates: result.Candidates,
		NewFound:   result.NewFound,
	})
}

// healthResponse はヘルスチェックのAPIレスポンス。
type healthResponse struct {
	Status string `json:"status"`
}

// Health はヘルスチェックを処理する。
// GET /health
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
