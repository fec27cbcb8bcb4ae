// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/episcout/internal/model"
)

// ArticleRepository は記事コーパスの永続化インターフェース。
// linkの一意性はストレージ層で原子的に保証される。
type ArticleRepository interface {
	// List はpublished_date降順で記事を取得する。
	List(ctx context.Context, offset, limit int) ([]model.Article, error)

	// InsertIfAbsent は同一linkの記事が存在しない場合のみ挿入する。
	// 実際に挿入された場合はtrueを返す。重複はエラーではない。
	InsertIfAbsent(ctx context.Context, article *model.Article) (bool, error)

	// ExistingLinks は指定されたlinkのうち既に保存済みのものを返す。
	ExistingLinks(ctx context.Context, links []string) (map[string]bool, error)

	// CountByDay はsince以降の記事件数を、locのカレンダー日ごとに集計する。
	// 件数0の日は含まれない。
	CountByDay(ctx context.Context, since time.Time, loc *time.Location) ([]model.DailyCount, error)

	// Totals は記事総数とcase_countの合計を返す。
	Totals(ctx context.Context) (model.ArticleTotals, error)
}

// KeywordRepository は監視キーワードの永続化インターフェース。
type KeywordRepository interface {
	// List は新しい順にキーワード一覧を返す。
	List(ctx context.Context) ([]model.Keyword, error)

	// FindByText は大文字小文字を区別せずにキーワードを検索する。見つからない場合はnilを返す。
	FindByText(ctx context.Context, text string) (*model.Keyword, error)

	// Create はキーワードを作成する。
	Create(ctx context.Context, keyword *model.Keyword) error

	// Delete は指定IDのキーワードを削除する。存在しなかった場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

// WhitelistRepository は信頼済みドメインの永続化インターフェース。
type WhitelistRepository interface {
	// List は全ドメインを登録順に返す（無効なものも含む）。
	List(ctx context.Context) ([]model.WhitelistDomain, error)

	// Upsert はドメインを冪等に登録し、有効フラグを更新する。
	Upsert(ctx context.Context, domain string, active bool) (*model.WhitelistDomain, error)
}

// RegistryReader はスキャン開始時のレジストリスナップショットを提供する。
type RegistryReader interface {
	// Snapshot はキーワードと有効なホワイトリストを単一の読み取りトランザクションで取得する。
	Snapshot(ctx context.Context) (*model.RegistrySnapshot, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
