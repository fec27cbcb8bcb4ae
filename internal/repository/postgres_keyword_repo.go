package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hitoshi/episcout/internal/model"
)

// PostgresKeywordRepo はPostgreSQLを使用したキーワードリポジトリ。
type PostgresKeywordRepo struct {
	db *sql.DB
}

// NewPostgresKeywordRepo はPostgresKeywordRepoを生成する。
func NewPostgresKeywordRepo(db *sql.DB) *PostgresKeywordRepo {
	return &PostgresKeywordRepo{db: db}
}

// List は新しい順にキーワード一覧を返す。
func (r *PostgresKeywordRepo) List(ctx context.Context) ([]model.Keyword, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, text, created_at FROM keywords ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, storeError("キーワード一覧の取得に失敗しました", err)
	}
	defer rows.Close()

	keywords, err := scanKeywords(rows)
	if err != nil {
		return nil, storeError("キーワード一覧の取得に失敗しました", err)
	}
	return keywords, nil
}

// FindByText は大文字小文字を区別せずにキーワードを検索する。見つからない場合はnilを返す。
func (r *PostgresKeywordRepo) FindByText(ctx context.Context, text string) (*model.Keyword, error) {
	kw := &model.Keyword{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, text, created_at FROM keywords WHERE lower(text) = lower($1)
		 ORDER BY created_at LIMIT 1`,
		text,
	).Scan(&kw.ID, &kw.Text, &kw.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("キーワードの検索に失敗しました", err)
	}
	return kw, nil
}

// Create はキーワードを作成する。
func (r *PostgresKeywordRepo) Create(ctx context.Context, keyword *model.Keyword) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO keywords (id, text, created_at) VALUES ($1, $2, $3)`,
		keyword.ID, keyword.Text, keyword.CreatedAt,
	)
	if err != nil {
		return storeError("キーワードの作成に失敗しました", err)
	}
	return nil
}

// Delete は指定IDのキーワードを削除する。存在しなかった場合はfalseを返す。
func (r *PostgresKeywordRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM keywords WHERE id = $1`, id)
	if err != nil {
		return false, storeError("キーワードの削除に失敗しました", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeError("キーワードの削除に失敗しました", err)
	}
	return n > 0, nil
}

// rowScanner はsql.Rowsの走査に必要なメソッド。
type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanKeywords(rows rowScanner) ([]model.Keyword, error) {
	var keywords []model.Keyword
	for rows.Next() {
		var kw model.Keyword
		if err := rows.Scan(&kw.ID, &kw.Text, &kw.CreatedAt); err != nil {
			return nil, err
		}
		keywords = append(keywords, kw)
	}
	return keywords, rows.Err()
}
