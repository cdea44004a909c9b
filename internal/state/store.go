// Package state は通知済み予約枠のクールダウン付きデデュープストアを提供する。
//
// ストアは同一性キー→最終通知時刻のマップを保持し、クールダウン期間内に
// 通知済みのキーを問い合わせで弾く。バッキングはエフェメラル（メモリ）と
// 永続（Redis / PostgreSQL上の単一ドキュメント）の実装があり、設定で1つを
// 選択して同一のインターフェースとして注入する。
package state

import (
	"context"

	"github.com/hitoshi/mvcwatch/internal/model"
)

// Store は通知状態ストアのインターフェース。
type Store interface {
	// RecentlyNotified はキーのエントリが存在し、かつ最終通知時刻からの
	// 経過時間がクールダウン未満の場合にtrueを返す。
	RecentlyNotified(ctx context.Context, key model.IdentityKey) (bool, error)

	// RecordNotification はキーの最終通知時刻を現在時刻に設定する。
	// エントリが存在しない場合は新規作成する。
	RecordNotification(ctx context.Context, key model.IdentityKey) error

	// Count は現在保持しているエントリ数を返す。
	Count(ctx context.Context) (int, error)
}
