package model

import (
	"encoding/json"
	"fmt"
)

// IdentityKey は予約枠の同一性を表す順序付き三つ組。
// (監視対象の正規名, 日付の原文, 時刻の原文) で1つの予約枠を一意に識別する。
type IdentityKey struct {
	Location string
	DateText string
	TimeText string
}

// String はログ出力用の表現を返す。
func (k IdentityKey) String() string {
	return fmt.Sprintf("(%s, %s, %s)", k.Location, k.DateText, k.TimeText)
}

// Encode はキーをJSON配列リテラル文字列にエンコードする。
// 永続化ドキュメントのマップキーとして使用する。
// 同一の三つ組は常に同一の文字列にエンコードされる（可逆）。
func (k IdentityKey) Encode() string {
	// [3]stringのMarshalは失敗しない
	b, _ := json.Marshal([3]string{k.Location, k.DateText, k.TimeText})
	return string(b)
}

// DecodeIdentityKey はEncodeで生成した文字列からキーを復元する。
// JSON配列でない、または要素数が3でない場合はエラーを返す。
func DecodeIdentityKey(s string) (IdentityKey, error) {
	var parts []string
	if err := json.Unmarshal([]byte(s), &parts); err != nil {
		return IdentityKey{}, fmt.Errorf("キーがJSON配列ではありません: %w", err)
	}
	if len(parts) != 3 {
		return IdentityKey{}, fmt.Errorf("キーの要素数が不正です: %d (want 3)", len(parts))
	}
	return IdentityKey{
		Location: parts[0],
		DateText: parts[1],
		TimeText: parts[2],
	}, nil
}
