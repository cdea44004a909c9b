package state

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/hitoshi/mvcwatch/internal/model"
)

// PostgresStore はPostgreSQL上の単一行ドキュメントによる永続Store実装。
//
// notification_stateテーブルの1行（id=1）にJSONドキュメント全体を保持し、
// Redisバッキングと同じ「全体読み込み→変更→全体上書き」のサイクルで更新する。
// RecordNotificationの読み込みと書き戻しの間に重なった実行の更新を上書き
// しうる点（後書き勝ち）もRedisStoreと同じ許容リスクである。
type PostgresStore struct {
	db       *sql.DB
	cooldown time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewPostgresStore はPostgresStoreの新しいインスタンスを生成する。
// テーブルはマイグレーション（migrateサブコマンド）で作成済みであること。
func NewPostgresStore(db *sql.DB, cooldown time.Duration, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		db:       db,
		cooldown: cooldown,
		logger:   logger,
		now:      time.Now,
	}
}

// RecentlyNotified はStoreインターフェースを実装する。
func (s *PostgresStore) RecentlyNotified(ctx context.Context, key model.IdentityKey) (bool, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return false, err
	}

	at, ok := doc[key]
	if !ok {
		return false, nil
	}
	return s.now().Sub(at) < s.cooldown, nil
}

// RecordNotification はStoreインターフェースを実装する。
func (s *PostgresStore) RecordNotification(ctx context.Context, key model.IdentityKey) error {
	doc, err := s.load(ctx)
	if err != nil {
		return err
	}

	doc[key] = s.now()

	data, err := EncodeDocument(doc)
	if err != nil {
		return model.NewStateUnavailableError("ドキュメントのエンコードに失敗: " + err.Error())
	}

	// lib/pqは[]byteをbyteaとして送るため、JSONB列には文字列で渡す
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notification_state (id, document, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET document = $1, updated_at = now()
	`, string(data))
	if err != nil {
		return model.NewStateUnavailableError("PostgreSQLへの書き込みに失敗: " + err.Error())
	}

	return nil
}

// Count はStoreインターフェースを実装する。
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(doc), nil
}

// load はドキュメント全体を読み込む。行が存在しない場合は空の状態を返す。
func (s *PostgresStore) load(ctx context.Context) (Document, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM notification_state WHERE id = 1`,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return make(Document), nil
		}
		return nil, model.NewStateUnavailableError("PostgreSQLからの読み込みに失敗: " + err.Error())
	}

	return DecodeDocument(data, s.logger), nil
}
