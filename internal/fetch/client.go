// Package fetch は予約ページの取得クライアントを提供する。
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/doyensec/safeurl"

	"github.com/hitoshi/mvcwatch/internal/model"
)

// userAgent は取得リクエストに付与する固定のUser-Agentヘッダー。
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// maxBodySize はレスポンスボディの読み込み上限（5MB）。
const maxBodySize = 5 * 1024 * 1024

// Client は対象ページを1回のGETで取得するクライアント。
// リダイレクトの扱いはHTTPクライアントのデフォルトに従う。
type Client struct {
	targetURL  string
	timeout    time.Duration
	logger     *slog.Logger
	httpClient *http.Client
}

// NewClient はClientの新しいインスタンスを生成する。
// HTTPクライアントはsafeurlで構築し、プライベートIPやループバックへの
// リクエストをトランスポートレベルでブロックする。
func NewClient(targetURL string, timeout time.Duration, logger *slog.Logger) *Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()

	return &Client{
		targetURL:  targetURL,
		timeout:    timeout,
		logger:     logger,
		httpClient: safeurl.Client(config).Client,
	}
}

// FetchDocument は対象ページのドキュメント本文を取得する。
// タイムアウトを含むトランスポート失敗と2xx以外のステータスは
// FETCH_FAILEDの種別エラーとして返す（ハングはせず、必ず失敗として返る）。
func (c *Client) FetchDocument(ctx context.Context) (string, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.targetURL, nil)
	if err != nil {
		return "", model.NewFetchFailedError("リクエスト作成に失敗: " + err.Error())
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("ページの取得に失敗しました",
			slog.String("url", c.targetURL),
			slog.String("error", err.Error()),
		)
		return "", model.NewFetchFailedError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("ページの取得が2xx以外のステータスで失敗しました",
			slog.String("url", c.targetURL),
			slog.Int("http_status", resp.StatusCode),
		)
		return "", model.NewFetchFailedError(fmt.Sprintf("HTTPステータス %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", model.NewFetchFailedError("レスポンス読み取りに失敗: " + err.Error())
	}

	c.logger.Info("ページの取得に成功しました",
		slog.String("url", c.targetURL),
		slog.Int("bytes", len(body)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return string(body), nil
}
