// Package extract はページに埋め込まれた予約空き状況データの抽出を提供する。
//
// 対象ページはscript要素内のJavaScript変数として拠点データ（locationData）と
// 時刻データ（timeData）の配列リテラルを埋め込んでいる。抽出はこの2つの
// 固定パターンのみを対象とし、それ以外のページ構造変更には追従しない。
package extract

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hitoshi/mvcwatch/internal/model"
)

// locationDataMarker は拠点データ配列の開始を示すマーカートークン。
// このトークンを含むscript要素が存在しないことは、取得元ページの
// レイアウト変更を意味する。
const locationDataMarker = "var locationData = [{"

var (
	// locationDataRe は拠点データ配列リテラルを文末のセミコロンまで
	// 非貪欲に切り出す。
	locationDataRe = regexp.MustCompile(`(?s)var locationData = (\[.*?\]);`)

	// timeDataModelRe は時刻データ配列リテラルを後続のlocationModel宣言の
	// 直前まで切り出す。ページによってはtimeDataの後にセミコロンが無いため、
	// 文末区切りではなく次のマーカーの開始を終端として使用する。
	timeDataModelRe = regexp.MustCompile(`(?s)var timeData = (\[.*?\])\s*var locationModel`)

	// timeDataSemiRe はセミコロンで終端される形式。2つの終端形式は
	// どちらも正として受理する。
	timeDataSemiRe = regexp.MustCompile(`(?s)var timeData = (\[.*?\]);`)
)

// locationPayload は拠点データ配列の1要素。
type locationPayload struct {
	ID   int    `json:"Id"`
	Name string `json:"Name"`
}

// timePayload は時刻データ配列の1要素。
type timePayload struct {
	LocationID    int    `json:"LocationId"`
	FirstOpenSlot string `json:"FirstOpenSlot"`
}

// Extractor はドキュメント本文から拠点・空き枠データを抽出する。
// 純粋（I/Oなし・状態なし）で、同一入力には同一出力を返す。
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor はExtractorの新しいインスタンスを生成する。
func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract はドキュメント本文から拠点レコードと空き枠テキストを抽出する。
//
// 拠点データが見つからない・解析できない場合はエラー
// （STRUCTURE_NOT_FOUND / MALFORMED_DATA）を返し、実行は候補ゼロとなる。
// 時刻データの抽出失敗は致命ではなく、空のスロット列と警告ログに縮退する
// （全拠点が「空きなし」として解決される）。
func (e *Extractor) Extract(document string) ([]model.LocationRecord, []model.SlotText, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return nil, nil, model.NewMalformedDataError("HTMLの解析に失敗: " + err.Error())
	}

	// マーカーを含むscript要素を探す
	var scriptText string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if strings.Contains(text, locationDataMarker) {
			scriptText = text
			return false
		}
		return true
	})

	if scriptText == "" {
		return nil, nil, model.NewStructureNotFoundError(locationDataMarker)
	}

	locations, err := e.extractLocations(scriptText)
	if err != nil {
		return nil, nil, err
	}

	// 時刻データの失敗は縮退扱い
	slots := e.extractSlots(scriptText)

	return locations, slots, nil
}

// extractLocations はscript本文から拠点データを切り出して解析する。
// Id/Nameが欠落したエントリは警告ログを残して捨てる（全体の失敗にはしない）。
func (e *Extractor) extractLocations(scriptText string) ([]model.LocationRecord, error) {
	m := locationDataRe.FindStringSubmatch(scriptText)
	if m == nil {
		return nil, model.NewMalformedDataError("locationData配列リテラルを切り出せません")
	}

	var payload []locationPayload
	if err := json.Unmarshal([]byte(m[1]), &payload); err != nil {
		return nil, model.NewMalformedDataError("locationDataのJSON解析に失敗: " + err.Error())
	}

	records := make([]model.LocationRecord, 0, len(payload))
	for _, p := range payload {
		if p.ID == 0 || p.Name == "" {
			e.logger.Warn("IdまたはNameが欠落した拠点エントリをスキップします",
				slog.Int("id", p.ID),
				slog.String("name", p.Name),
			)
			continue
		}
		records = append(records, model.LocationRecord{ID: p.ID, Name: p.Name})
	}

	e.logger.Info("locationDataの解析に成功しました",
		slog.Int("location_count", len(records)),
	)

	return records, nil
}

// extractSlots はscript本文から時刻データを切り出して解析する。
// 2つの終端形式（locationModel宣言の開始 / セミコロン）を順に試す。
// 切り出しも解析もできない場合は空列を返し、警告ログで縮退を記録する。
func (e *Extractor) extractSlots(scriptText string) []model.SlotText {
	var literal string
	if m := timeDataModelRe.FindStringSubmatch(scriptText); m != nil {
		literal = m[1]
	} else if m := timeDataSemiRe.FindStringSubmatch(scriptText); m != nil {
		literal = m[1]
	} else {
		e.logger.Warn("timeData配列リテラルを切り出せませんでした（空き状況なしとして続行します）")
		return nil
	}

	var payload []timePayload
	if err := json.Unmarshal([]byte(literal), &payload); err != nil {
		e.logger.Warn("timeDataのJSON解析に失敗しました（空き状況なしとして続行します）",
			slog.String("error", err.Error()),
		)
		return nil
	}

	slots := make([]model.SlotText, 0, len(payload))
	for _, p := range payload {
		if p.LocationID == 0 {
			continue
		}
		slots = append(slots, model.SlotText{LocationID: p.LocationID, Text: p.FirstOpenSlot})
	}

	e.logger.Info("timeDataの解析に成功しました",
		slog.Int("slot_count", len(slots)),
	)

	return slots
}
