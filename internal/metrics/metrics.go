// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// パイプラインやワーカーから利用する。
type MetricsCollector interface {
	RecordCheck()
	RecordFetchFailure()
	RecordParseFailure()
	RecordCandidates(count int)
	RecordNotified(count int)
	RecordNotifyFailure()
	RecordCheckLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	checks       prometheus.Counter
	fetchFail    prometheus.Counter
	parseFail    prometheus.Counter
	candidates   prometheus.Counter
	notified     prometheus.Counter
	notifyFail   prometheus.Counter
	checkLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		checks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mvcwatch_checks_total",
			Help: "実行された空き状況チェックの合計数",
		}),
		fetchFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mvcwatch_fetch_fail_total",
			Help: "予約ページ取得失敗の合計数",
		}),
		parseFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mvcwatch_parse_fail_total",
			Help: "ページ構造の解析失敗の合計数",
		}),
		candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mvcwatch_candidates_total",
			Help: "検出された予約候補の合計数",
		}),
		notified: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mvcwatch_notified_total",
			Help: "通知対象となった新規予約候補の合計数",
		}),
		notifyFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mvcwatch_notify_fail_total",
			Help: "通知配信失敗の合計数",
		}),
		checkLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mvcwatch_check_latency_seconds",
			Help:    "チェック1回あたりの所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.checks,
		c.fetchFail,
		c.parseFail,
		c.candidates,
		c.notified,
		c.notifyFail,
		c.checkLatency,
	)

	return c
}

// RecordCheck はチェック実行を記録する。
func (c *Collector) RecordCheck() {
	c.checks.Inc()
}

// RecordFetchFailure はページ取得失敗を記録する。
func (c *Collector) RecordFetchFailure() {
	c.fetchFail.Inc()
}

// RecordParseFailure はページ解析失敗を記録する。
func (c *Collector) RecordParseFailure() {
	c.parseFail.Inc()
}

// RecordCandidates は検出された予約候補数を記録する。
func (c *Collector) RecordCandidates(count int) {
	c.candidates.Add(float64(count))
}

// RecordNotified は通知対象となった新規候補数を記録する。
func (c *Collector) RecordNotified(count int) {
	c.notified.Add(float64(count))
}

// RecordNotifyFailure は通知配信失敗を記録する。
func (c *Collector) RecordNotifyFailure() {
	c.notifyFail.Inc()
}

// RecordCheckLatency はチェック1回の所要時間を記録する。
func (c *Collector) RecordCheckLatency(duration time.Duration) {
	c.checkLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
