package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/hitoshi/episcout/internal/model"
)

// PostgresWhitelistRepo はPostgreSQLを使用したホワイトリストリポジトリ。
type PostgresWhitelistRepo struct {
	db *sql.DB
}

// NewPostgresWhitelistRepo はPostgresWhitelistRepoを生成する。
func NewPostgresWhitelistRepo(db *sql.DB) *PostgresWhitelistRepo {
	return &PostgresWhitelistRepo{db: db}
}

// List は全ドメインを登録順に返す（無効なものも含む）。
func (r *PostgresWhitelistRepo) List(ctx context.Context) ([]model.WhitelistDomain, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, domain, is_active, created_at, updated_at
		 FROM whitelist_domains ORDER BY created_at, domain`,
	)
	if err != nil {
		return nil, storeError("ホワイトリストの取得に失敗しました", err)
	}
	defer rows.Close()

	var domains []model.WhitelistDomain
	for rows.Next() {
		var d model.WhitelistDomain
		if err := rows.Scan(&d.ID, &d.Domain, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, storeError("ホワイトリストのスキャンに失敗しました", err)
		}
		domains = append(domains, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("ホワイトリストの走査に失敗しました", err)
	}
	return domains, nil
}

// Upsert はドメインを冪等に登録し、有効フラグを更新する。
// domainは呼び出し側で正規化済みであること。
func (r *PostgresWhitelistRepo) Upsert(ctx context.Context, domain string, active bool) (*model.WhitelistDomain, error) {
	d := &model.WhitelistDomain{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO whitelist_domains (id, domain, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, now(), now())
		 ON CONFLICT (domain) DO UPDATE
		 SET is_active = EXCLUDED.is_active,
		     updated_at = now()
		 RETURNING id, domain, is_active, created_at, updated_at`,
		uuid.New().String(), domain, active,
	).Scan(&d.ID, &d.Domain, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, storeError("ホワイトリストの登録に失敗しました", err)
	}
	return d, nil
}
