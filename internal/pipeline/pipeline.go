// Package pipeline は空き状況チェック1回分のオーケストレーションを提供する。
//
// 取得→抽出→解決→デデュープ→通知→記録の順に各コンポーネントを呼び出す。
// パイプライン自体は状態を持たず、1回の実行（Run）はいつ呼んでも安全。
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/mvcwatch/internal/metrics"
	"github.com/hitoshi/mvcwatch/internal/model"
	"github.com/hitoshi/mvcwatch/internal/state"
)

// SummaryFetchFailed は予約ページの取得に失敗した場合の実行サマリ。
const SummaryFetchFailed = "Failed to fetch appointment data."

// SummaryNoNew は新規の通知対象が見つからなかった場合の実行サマリ。
const SummaryNoNew = "No new, valid appointments found."

// Fetcher は予約ページの取得インターフェース。
type Fetcher interface {
	FetchDocument(ctx context.Context) (string, error)
}

// Extractor はページからの拠点・空き枠データの抽出インターフェース。
type Extractor interface {
	Extract(document string) ([]model.LocationRecord, []model.SlotText, error)
}

// Resolver は抽出済みデータから通知候補への解決インターフェース。
type Resolver interface {
	Resolve(locations []model.LocationRecord, slots []model.SlotText, activeTargets []string) []model.AppointmentCandidate
}

// Notifier は通知チャネルのインターフェース。
type Notifier interface {
	Notify(ctx context.Context, candidates []model.AppointmentCandidate) error
}

// Result はチェック1回分の実行結果。
type Result struct {
	RunID      string
	Locations  int
	Candidates int
	NewFound   int
	Summary    string
}

// Pipeline は空き状況チェックのオーケストレータ。
type Pipeline struct {
	fetcher   Fetcher
	extractor Extractor
	resolver  Resolver
	store     state.Store
	notifier  Notifier
	collector metrics.MetricsCollector
	targets   []string
	logger    *slog.Logger
}

// New はPipelineの新しいインスタンスを生成する。
// targetsは監視対象の正規名リスト（起動時に確定済み）。
func New(
	fetcher Fetcher,
	extractor Extractor,
	resolver Resolver,
	store state.Store,
	notifier Notifier,
	collector metrics.MetricsCollector,
	targets []string,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher,
		extractor: extractor,
		resolver:  resolver,
		store:     store,
		notifier:  notifier,
		collector: collector,
		targets:   targets,
		logger:    logger,
	}
}

// Run はチェックを1回実行する。
//
// ページ取得・抽出の失敗はその実行の打ち切りに留め、エラーではなく
// サマリで報告する（次回の実行で回復し得るため）。状態ストアの読み取り
// 失敗のみエラーとして返す。通知の配信に失敗した場合でも通知記録は行う:
// 配信エラー時の再送より、クールダウン中の重複通知の抑制を優先する。
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	runID := uuid.NewString()
	logger := p.logger.With(slog.String("run_id", runID))
	result := Result{RunID: runID}

	p.collector.RecordCheck()
	start := time.Now()
	defer func() {
		p.collector.RecordCheckLatency(time.Since(start))
	}()

	logger.Info("空き状況チェックを開始します", slog.Int("targets", len(p.targets)))

	document, err := p.fetcher.FetchDocument(ctx)
	if err != nil {
		p.collector.RecordFetchFailure()
		logger.Error("予約ページの取得に失敗しました", slog.String("error", err.Error()))
		result.Summary = SummaryFetchFailed
		return result, nil
	}

	locations, slots, err := p.extractor.Extract(document)
	if err != nil {
		p.collector.RecordParseFailure()
		logger.Error("ページからのデータ抽出に失敗しました", slog.String("error", err.Error()))
		result.Summary = SummaryNoNew
		return result, nil
	}
	result.Locations = len(locations)

	candidates := p.resolver.Resolve(locations, slots, p.targets)
	result.Candidates = len(candidates)
	p.collector.RecordCandidates(len(candidates))

	fresh, err := p.filterRecent(ctx, logger, candidates)
	if err != nil {
		return result, err
	}
	result.NewFound = len(fresh)

	if len(fresh) == 0 {
		p.logStateCount(ctx, logger)
		logger.Info("新規の通知対象はありませんでした", slog.Int("candidates", len(candidates)))
		result.Summary = SummaryNoNew
		return result, nil
	}

	if err := p.notifier.Notify(ctx, fresh); err != nil {
		p.collector.RecordNotifyFailure()
		logger.Error("通知の配信に失敗しました",
			slog.Int("candidates", len(fresh)),
			slog.String("error", err.Error()),
		)
	}

	for _, c := range fresh {
		if err := p.store.RecordNotification(ctx, c.Key()); err != nil {
			logger.Warn("通知記録の保存に失敗しました",
				slog.String("target", c.MatchedTarget),
				slog.String("error", err.Error()),
			)
		}
	}

	p.collector.RecordNotified(len(fresh))
	p.logStateCount(ctx, logger)
	logger.Info("新規の予約候補を通知しました", slog.Int("count", len(fresh)))

	result.Summary = fmt.Sprintf("Processed and found %d new appointments.", len(fresh))
	return result, nil
}

// filterRecent はクールダウン期間内に通知済みの候補を除外する。
func (p *Pipeline) filterRecent(
	ctx context.Context,
	logger *slog.Logger,
	candidates []model.AppointmentCandidate,
) ([]model.AppointmentCandidate, error) {
	var fresh []model.AppointmentCandidate
	for _, c := range candidates {
		recent, err := p.store.RecentlyNotified(ctx, c.Key())
		if err != nil {
			logger.Error("通知状態の読み取りに失敗しました",
				slog.String("target", c.MatchedTarget),
				slog.String("error", err.Error()),
			)
			return nil, err
		}
		if recent {
			logger.Debug("クールダウン中のためスキップします",
				slog.String("target", c.MatchedTarget),
				slog.String("date", c.DateText),
				slog.String("time", c.TimeText),
			)
			continue
		}
		fresh = append(fresh, c)
	}
	return fresh, nil
}

func (p *Pipeline) logStateCount(ctx context.Context, logger *slog.Logger) {
	count, err := p.store.Count(ctx)
	if err != nil {
		logger.Warn("通知状態の件数取得に失敗しました", slog.String("error", err.Error()))
		return
	}
	logger.Info("通知状態の保持件数", slog.Int("entries", count))
}
