package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/episcout/internal/model"
)

// PostgresRegistryRepo はキーワードとホワイトリストのスナップショットを取得する。
type PostgresRegistryRepo struct {
	db TxBeginner
}

// NewPostgresRegistryRepo はPostgresRegistryRepoを生成する。
func NewPostgresRegistryRepo(db TxBeginner) *PostgresRegistryRepo {
	return &PostgresRegistryRepo{db: db}
}

// Snapshot はキーワードと有効なホワイトリストを単一の読み取りトランザクションで取得する。
// REPEATABLE READにより、2つのクエリの間に行われた編集は見えない。
// キーワードは登録順（古い順）に並ぶ。
func (r *PostgresRegistryRepo) Snapshot(ctx context.Context) (*model.RegistrySnapshot, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	})
	if err != nil {
		return nil, storeError("スナップショット用トランザクションの開始に失敗しました", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, text, created_at FROM keywords ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, storeError("キーワードの取得に失敗しました", err)
	}
	keywords, err := scanKeywords(rows)
	rows.Close()
	if err != nil {
		return nil, storeError("キーワードの取得に失敗しました", err)
	}

	wrows, err := tx.QueryContext(ctx,
		`SELECT domain FROM whitelist_domains WHERE is_active = true`,
	)
	if err != nil {
		return nil, storeError("ホワイトリストの取得に失敗しました", err)
	}
	defer wrows.Close()

	active := make(map[string]bool)
	for wrows.Next() {
		var domain string
		if err := wrows.Scan(&domain); err != nil {
			return nil, storeError("ホワイトリストのスキャンに失敗しました", err)
		}
		active[domain] = true
	}
	if err := wrows.Err(); err != nil {
		return nil, storeError("ホワイトリストの走査に失敗しました", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storeError("スナップショット用トランザクションのコミットに失敗しました", err)
	}

	return &model.RegistrySnapshot{
		Keywords:        keywords,
		ActiveWhitelist: active,
		TakenAt:         time.Now(),
	}, nil
}
