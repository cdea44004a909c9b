package state

import (
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/hitoshi/mvcwatch/internal/model"
)

// Document は永続化される通知状態ドキュメントの内容を表す。
// 永続バッキングは必ずドキュメント全体を読み込み、メモリ上で変更し、
// 全体を書き戻す（部分更新は存在しない）。
type Document map[model.IdentityKey]time.Time

// EncodeDocument はドキュメントをJSONにエンコードする。
// 形式はエンコード済みキー文字列→ISO-8601タイムスタンプ文字列のオブジェクト。
// キーはソートして出力順を安定させる。
func EncodeDocument(doc Document) ([]byte, error) {
	encoded := make(map[string]string, len(doc))
	for key, at := range doc {
		encoded[key.Encode()] = at.Format(time.RFC3339)
	}
	// map経由のMarshalでもGoはキーをソートするが、意図を明示しておく
	keys := make([]string, 0, len(encoded))
	for k := range encoded {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return json.Marshal(encoded)
}

// DecodeDocument はJSONバイト列からドキュメントを復元する。
//
// ドキュメント全体が不正な場合は空の状態として扱う（パイプラインを
// 落とさない）。個々のエントリの不備（キーのデコード失敗・タイムスタンプの
// 解析失敗）はそのエントリのスキップに留め、1件ずつ警告ログを残す。
func DecodeDocument(data []byte, logger *slog.Logger) Document {
	doc := make(Document)
	if len(data) == 0 {
		return doc
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Warn("通知状態ドキュメントの解析に失敗しました（空の状態として扱います）",
			slog.String("error", err.Error()),
		)
		return doc
	}

	for rawKey, rawAt := range raw {
		key, err := model.DecodeIdentityKey(rawKey)
		if err != nil {
			logger.Warn("不正なキーのエントリをスキップします",
				slog.String("key", rawKey),
				slog.String("error", err.Error()),
			)
			continue
		}

		at, err := time.Parse(time.RFC3339, rawAt)
		if err != nil {
			logger.Warn("不正なタイムスタンプのエントリをスキップします",
				slog.String("key", rawKey),
				slog.String("timestamp", rawAt),
				slog.String("error", err.Error()),
			)
			continue
		}

		doc[key] = at
	}

	return doc
}
