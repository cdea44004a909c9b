// Package resolve は抽出済みデータから通知候補への解決を提供する。
//
// 拠点レコードを監視リストと突き合わせ、空き枠テキストから日付・時刻を
// 取り出して通知候補を構築する。純粋（I/Oなし・状態なし）で、同一入力には
// 同一の候補列を入力順で返す。
package resolve

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hitoshi/mvcwatch/internal/model"
)

// noAppointmentsPhrase は「空きなし」を意味する固定フレーズ。
// 空き枠テキストにこのフレーズが含まれる拠点は候補にならない。
const noAppointmentsPhrase = "No Appointments Available"

// nextAvailableRe は空き枠テキストから日付（M/D/YYYY）と時刻（H:MM AM/PM）を
// 取り出すパターン。固定のラベルフレーズに続く形式のみを認識する。
var nextAvailableRe = regexp.MustCompile(`Next Available: (\d{1,2}/\d{1,2}/\d{4}) (\d{1,2}:\d{2} [AP]M)`)

// slotTimeLayout は抽出した日付・時刻トークンのパースレイアウト。
const slotTimeLayout = "1/2/2006 3:04 PM"

// textPolicy はログ出力用に空き枠テキストからマークアップを除去するポリシー。
// 空き枠テキストには<br/>などのタグが混ざる。
var textPolicy = bluemonday.StrictPolicy()

// plainText は空き枠テキストをログ向けのプレーンテキストに変換する。
func plainText(text string) string {
	return strings.Join(strings.Fields(textPolicy.Sanitize(text)), " ")
}

// Resolver は拠点と空き枠の解決を行う。
type Resolver struct {
	logger *slog.Logger
}

// NewResolver はResolverの新しいインスタンスを生成する。
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// Resolve は拠点レコード列を監視リストと突き合わせ、通知候補の列を返す。
//
// 拠点ごとの処理は入力順で行い、1件の不備（マッチなし・テキスト形式不明・
// パース失敗）はその拠点のスキップに留め、残りの処理を継続する。
// 重複通知の抑制はここでは行わない（オーケストレータの責務）。
func (r *Resolver) Resolve(
	locations []model.LocationRecord,
	slots []model.SlotText,
	activeTargets []string,
) []model.AppointmentCandidate {
	availability := model.SlotIndex(slots)

	var candidates []model.AppointmentCandidate
	for _, loc := range locations {
		c, ok := r.resolveOne(loc, availability, activeTargets)
		if !ok {
			continue
		}
		candidates = append(candidates, c)
	}

	return candidates
}

// resolveOne は1拠点を候補に解決する。候補にならない場合はok=falseを返す。
func (r *Resolver) resolveOne(
	loc model.LocationRecord,
	availability map[int]string,
	activeTargets []string,
) (model.AppointmentCandidate, bool) {
	// 拠点名の正規化: 内部の連続空白を単一スペースに畳む
	normalized := strings.Join(strings.Fields(loc.Name), " ")

	// 監視リストとの照合: 大文字小文字を無視した部分文字列一致。
	// 監視リスト順で最初にマッチした対象を正規名として採用する
	// （1つの拠点名が複数の対象を含む場合の明示的なタイブレーク）。
	matched := matchTarget(normalized, activeTargets)
	if matched == "" {
		return model.AppointmentCandidate{}, false
	}

	// 空き状況の確認
	text, found := availability[loc.ID]
	if !found || text == "" || strings.Contains(text, noAppointmentsPhrase) {
		return model.AppointmentCandidate{}, false
	}

	// 日付・時刻トークンの抽出
	m := nextAvailableRe.FindStringSubmatch(text)
	if m == nil {
		r.logger.Warn("空き枠テキストから日時を抽出できませんでした",
			slog.String("target", matched),
			slog.Int("location_id", loc.ID),
			slog.String("text", plainText(text)),
		)
		return model.AppointmentCandidate{}, false
	}
	dateText, timeText := m[1], m[2]

	// パースと週末判定。キーと表示には原文トークンをそのまま使う。
	at, err := time.Parse(slotTimeLayout, dateText+" "+timeText)
	if err != nil {
		r.logger.Warn("抽出した日時のパースに失敗しました",
			slog.String("target", matched),
			slog.String("date_text", dateText),
			slog.String("time_text", timeText),
			slog.String("error", err.Error()),
		)
		return model.AppointmentCandidate{}, false
	}

	weekday := at.Weekday()
	isWeekend := weekday == time.Saturday || weekday == time.Sunday

	return model.AppointmentCandidate{
		MatchedTarget: matched,
		DateText:      dateText,
		TimeText:      timeText,
		IsWeekend:     isWeekend,
		At:            at,
	}, true
}

// matchTarget は正規化済みの拠点名に部分文字列として含まれる最初の監視対象を返す。
// マッチしない場合は空文字列を返す。
func matchTarget(normalizedName string, activeTargets []string) string {
	lowerName := strings.ToLower(normalizedName)
	for _, target := range activeTargets {
		if strings.Contains(lowerName, strings.ToLower(target)) {
			return target
		}
	}
	return ""
}
