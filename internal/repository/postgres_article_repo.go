package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/episcout/internal/model"
)

// psql はPostgreSQL用のプレースホルダ（$1, $2...）を使うクエリビルダ。
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var articleColumns = []string{
	"id", "link", "title", "summary", "source", "published_date", "is_date_estimated",
	"matched_keywords", "is_whitelisted", "case_count", "tags", "created_at",
}

// PostgresArticleRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresArticleRepo struct {
	db *sql.DB
}

// NewPostgresArticleRepo はPostgresArticleRepoを生成する。
func NewPostgresArticleRepo(db *sql.DB) *PostgresArticleRepo {
	return &PostgresArticleRepo{db: db}
}

// listArticlesQuery は記事一覧取得のSQLを構築する。
func listArticlesQuery(offset, limit int) (string, []interface{}, error) {
	return psql.Select(articleColumns...).
		From("articles").
		OrderBy("published_date DESC", "created_at DESC", "id").
		Offset(uint64(offset)).
		Limit(uint64(limit)).
		ToSql()
}

// countByDayQuery は日別件数集計のSQLを構築する。
// 日付はDB側でタイムゾーン変換してから切り出す。
func countByDayQuery(since time.Time, loc *time.Location) (string, []interface{}, error) {
	return psql.Select().
		Column(sq.Expr("to_char(published_date AT TIME ZONE ?, 'YYYY-MM-DD') AS day", loc.String())).
		Column("count(*)").
		From("articles").
		Where(sq.GtOrEq{"published_date": since}).
		GroupBy("day").
		OrderBy("day").
		ToSql()
}

// List はpublished_date降順で記事を取得する。公開日時が同じ記事は保存の新しい順に並べる。
func (r *PostgresArticleRepo) List(ctx context.Context, offset, limit int) ([]model.Article, error) {
	query, args, err := listArticlesQuery(offset, limit)
	if err != nil {
		return nil, fmt.Errorf("記事一覧クエリの構築に失敗しました: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError("記事一覧の取得に失敗しました", err)
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		var a model.Article
		var keywords, tags string
		if err := rows.Scan(
			&a.ID, &a.Link, &a.Title, &a.Summary, &a.Source, &a.PublishedDate, &a.IsDateEstimated,
			&keywords, &a.IsWhitelisted, &a.CaseCount, &tags, &a.CreatedAt,
		); err != nil {
			return nil, storeError("記事のスキャンに失敗しました", err)
		}
		a.MatchedKeywords = model.SplitKeywords(keywords)
		a.Tags = model.SplitKeywords(tags)
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("記事一覧の走査に失敗しました", err)
	}

	return articles, nil
}

// InsertIfAbsent は同一linkの記事が存在しない場合のみ挿入する。
// ON CONFLICT DO NOTHINGで競合したスキャン同士の重複挿入を防ぐ。
func (r *PostgresArticleRepo) InsertIfAbsent(ctx context.Context, article *model.Article) (bool, error) {
	if article.ID == "" {
		article.ID = uuid.New().String()
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO articles (id, link, title, summary, source, published_date, is_date_estimated,
		                       matched_keywords, is_whitelisted, case_count, tags)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (link) DO NOTHING
		 RETURNING created_at`,
		article.ID, article.Link, article.Title, article.Summary, article.Source,
		article.PublishedDate, article.IsDateEstimated, article.MatchedKeywordsString(),
		article.IsWhitelisted, article.CaseCount, model.JoinKeywords(article.Tags),
	).Scan(&article.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storeError("記事の保存に失敗しました", err)
	}
	return true, nil
}

// ExistingLinks は指定されたlinkのうち既に保存済みのものを返す。
func (r *PostgresArticleRepo) ExistingLinks(ctx context.Context, links []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(links) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT link FROM articles WHERE link = ANY($1)`,
		pq.StringArray(links),
	)
	if err != nil {
		return nil, storeError("既存リンクの照会に失敗しました", err)
	}
	defer rows.Close()

	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, storeError("既存リンクのスキャンに失敗しました", err)
		}
		result[link] = true
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("既存リンクの走査に失敗しました", err)
	}

	return result, nil
}

// CountByDay はsince以降の記事件数を、locのカレンダー日ごとに集計する。
func (r *PostgresArticleRepo) CountByDay(ctx context.Context, since time.Time, loc *time.Location) ([]model.DailyCount, error) {
	query, args, err := countByDayQuery(since, loc)
	if err != nil {
		return nil, fmt.Errorf("日別集計クエリの構築に失敗しました: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError("日別件数の集計に失敗しました", err)
	}
	defer rows.Close()

	var counts []model.DailyCount
	for rows.Next() {
		var day string
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, storeError("日別件数のスキャンに失敗しました", err)
		}
		date, err := time.ParseInLocation("2006-01-02", day, loc)
		if err != nil {
			return nil, fmt.Errorf("日付の解析に失敗しました: %q: %w", day, err)
		}
		counts = append(counts, model.DailyCount{Date: date, Count: count})
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("日別件数の走査に失敗しました", err)
	}

	return counts, nil
}

// Totals は記事総数とcase_countの合計を返す。
func (r *PostgresArticleRepo) Totals(ctx context.Context) (model.ArticleTotals, error) {
	var totals model.ArticleTotals
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*), COALESCE(SUM(case_count), 0) FROM articles`,
	).Scan(&totals.TotalArticles, &totals.TotalCases)
	if err != nil {
		return model.ArticleTotals{}, storeError("記事集計の取得に失敗しました", err)
	}
	return totals, nil
}
