// Package worker は空き状況チェックの定期実行を提供する。
// ティッカーによるスケジューラと、取得失敗時の指数バックオフ戦略を含む。
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/mvcwatch/internal/pipeline"
)

// maxBackoff は指数バックオフの最大遅延（12時間）。
const maxBackoff = 12 * time.Hour

// Runner はチェックの実行インターフェース。
type Runner interface {
	Run(ctx context.Context) (pipeline.Result, error)
}

// Scheduler はチェックの定期実行とバックオフ制御を行う。
//
// 取得失敗が続く場合は次回実行を指数的に遅らせる。取得元への負荷を
// 抑えるためで、成功した時点で通常間隔に戻る。
type Scheduler struct {
	runner Runner
	logger *slog.Logger

	consecutiveFailures int
	nextRunAt           time.Time
	now                 func() time.Time
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(runner Runner, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner: runner,
		logger: logger,
		now:    time.Now,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// 起動直後に1回実行し、以降はコンテキストがキャンセルされるまで継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("チェックスケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	s.RunOnce(ctx, interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("チェックスケジューラを停止しました")
			return
		case <-ticker.C:
			if s.now().Before(s.nextRunAt) {
				s.logger.Debug("バックオフ中のためこの周期はスキップします",
					slog.Time("next_run_at", s.nextRunAt),
				)
				continue
			}
			s.RunOnce(ctx, interval)
		}
	}
}

// RunOnce はチェックを1回実行し、結果に応じてバックオフ状態を更新する。
func (s *Scheduler) RunOnce(ctx context.Context, interval time.Duration) {
	result, err := s.runner.Run(ctx)
	if err != nil {
		s.logger.Error("チェックの実行に失敗しました",
			slog.String("run_id", result.RunID),
			slog.String("error", err.Error()),
		)
		s.recordFailure(interval)
		return
	}

	if result.Summary == pipeline.SummaryFetchFailed {
		s.recordFailure(interval)
		return
	}

	s.consecutiveFailures = 0
	s.nextRunAt = time.Time{}
	s.logger.Info("チェックサイクルが完了しました",
		slog.String("run_id", result.RunID),
		slog.Int("candidates", result.Candidates),
		slog.Int("new_found", result.NewFound),
	)
}

// recordFailure は連続失敗を記録し、次回実行時刻を遅らせる。
func (s *Scheduler) recordFailure(interval time.Duration) {
	s.consecutiveFailures++
	delay := CalculateBackoff(s.consecutiveFailures-1, interval)
	s.nextRunAt = s.now().Add(delay)
	s.logger.Warn("取得失敗が続いているためバックオフします",
		slog.Int("consecutive_failures", s.consecutiveFailures),
		slog.Duration("delay", delay),
	)
}

// CalculateBackoff は連続エラー回数に基づいて指数バックオフ遅延を計算する。
// 初回は通常間隔のまま、以降2倍ずつ増加、最大12時間。
func CalculateBackoff(consecutiveErrors int, base time.Duration) time.Duration {
	delay := base
	for i := 0; i < consecutiveErrors; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	if delay > maxBackoff {
		return maxBackoff
	}
	return delay
}
