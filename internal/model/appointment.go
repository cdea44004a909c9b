// Package model はドメインモデルを定義する。
package model

import "time"

// LocationRecord はページの埋め込みデータから抽出した拠点情報を表す。
// 実行ごとに新規に生成され、永続化はされない。
type LocationRecord struct {
	ID   int    // 拠点ID（埋め込みデータのId）
	Name string // 拠点名（埋め込みデータのName）
}

// SlotText は拠点ごとの最短空き枠テキストを表す。
// LocationRecordとはLocationIDの一致で対応付けられ、
// 対応するエントリが存在しない拠点は「空きなし」として扱われる。
type SlotText struct {
	LocationID int    // 対応する拠点のID
	Text       string // 空き枠の自由形式テキスト（例: "1 Appointments Available <br/> Next Available: 07/16/2025 01:55 PM"）
}

// SlotIndex はSlotTextの列からLocationID→テキストの索引を構築する。
// 同一LocationIDが複数回現れた場合は後勝ちとする。
func SlotIndex(slots []SlotText) map[int]string {
	index := make(map[int]string, len(slots))
	for _, s := range slots {
		index[s.LocationID] = s.Text
	}
	return index
}

// AppointmentCandidate は通知候補となる予約枠を表す。
// 1回のパイプライン実行内で生成され、実行終了時に破棄される。
// 生成後に変更されることはない。
type AppointmentCandidate struct {
	// MatchedTarget はマッチした監視対象の正規名。
	// サイト上の生の拠点名ではなく、監視リスト側の名前を保持する。
	MatchedTarget string

	// DateText/TimeText は空き枠テキストから抽出した日付・時刻の原文トークン。
	// 同一性キーおよび通知本文ではこの原文をそのまま使用する。
	DateText string
	TimeText string

	// IsWeekend はパース済み日付の曜日が土曜または日曜の場合にtrue。
	IsWeekend bool

	// At はDateText/TimeTextをパースした日時。表示・キーには使用しない。
	At time.Time
}

// Key はこの候補の同一性キーを返す。
// 2つの候補が同一の予約枠であることはキーの三つ組の一致と同値。
func (c AppointmentCandidate) Key() IdentityKey {
	return IdentityKey{
		Location: c.MatchedTarget,
		DateText: c.DateText,
		TimeText: c.TimeText,
	}
}
