package scan

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/episcout/internal/feed"
	"github.com/hitoshi/episcout/internal/metrics"
	"github.com/hitoshi/episcout/internal/model"
	"github.com/hitoshi/episcout/internal/repository"
	"github.com/hitoshi/episcout/internal/security"
)

// WhitelistUpserter はホワイトリストの登録・更新を行うインターフェース。
type WhitelistUpserter interface {
	UpsertWhitelist(ctx context.Context, domain string, active bool) (*model.WhitelistDomain, error)
}

// Triage はスキャンが返した未知ソース記事に対する人手の判断を処理する。
type Triage struct {
	articles  repository.ArticleRepository
	whitelist WhitelistUpserter
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	now       func() time.Time
}

// NewTriage はTriageの新しいインスタンスを生成する。
func NewTriage(
	articles repository.ArticleRepository,
	whitelist WhitelistUpserter,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Triage {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Triage{
		articles:  articles,
		whitelist: whitelist,
		metrics:   collector,
		logger:    logger,
		now:       time.Now,
	}
}

// SaveArticles は選択された記事をis_whitelisted=falseで保存する。
// 保存済みのlinkは黙ってスキップする。検証エラーがある場合は1件も保存しない。
func (t *Triage) SaveArticles(ctx context.Context, selected []model.Article) (*model.SaveResult, error) {
	for i := range selected {
		if err := validateArticle(&selected[i]); err != nil {
			return nil, err
		}
	}

	now := t.now()
	result := &model.SaveResult{}
	seen := make(map[string]bool, len(selected))
	for _, in := range selected {
		link := strings.TrimSpace(in.Link)
		if seen[link] {
			result.Skipped++
			continue
		}
		seen[link] = true

		a := prepareTriaged(in, link, now)
		inserted, err := t.articles.InsertIfAbsent(ctx, a)
		if err != nil {
			return nil, fmt.Errorf("記事の保存に失敗しました: %w", err)
		}
		if inserted {
			result.Saved++
		} else {
			result.Skipped++
		}
	}

	t.metrics.RecordTriageSaved(result.Saved)
	t.logger.Info("トリアージした記事を保存しました",
		slog.Int("requested", len(selected)),
		slog.Int("saved", result.Saved),
		slog.Int("skipped", result.Skipped),
	)
	return result, nil
}

// AddWhitelist はドメインを有効なホワイトリストとして登録する。
// 次回以降のスキャンから適用され、保存済み記事の信頼ラベルは変更しない。
func (t *Triage) AddWhitelist(ctx context.Context, domain string) (*model.WhitelistDomain, error) {
	w, err := t.whitelist.UpsertWhitelist(ctx, domain, true)
	if err != nil {
		return nil, err
	}
	t.logger.Info("ホワイトリストにドメインを追加しました",
		slog.String("domain", w.Domain),
	)
	return w, nil
}

func validateArticle(a *model.Article) error {
	link := strings.TrimSpace(a.Link)
	if link == "" {
		return model.NewInvalidArticleError("link が空です")
	}
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return model.NewInvalidArticleError(fmt.Sprintf("link がURLではありません: %q", link))
	}
	if strings.TrimSpace(a.Title) == "" {
		return model.NewInvalidArticleError("title が空です")
	}
	if utf8.RuneCountInString(strings.TrimSpace(a.Source)) > model.MaxSourceRunes {
		return model.NewInvalidArticleError(fmt.Sprintf("source が%d文字を超えています", model.MaxSourceRunes))
	}
	return nil
}

// prepareTriaged はクライアントから受け取った記事を保存用に整える。
// 信頼ラベルと症例数はクライアントの値を使わず再設定する。
func prepareTriaged(in model.Article, link string, now time.Time) *model.Article {
	a := in
	a.ID = ""
	a.Link = link
	a.Title = strings.TrimSpace(in.Title)
	a.Source = strings.TrimSpace(in.Source)
	a.Summary = security.Truncate(strings.TrimSpace(in.Summary), security.SummaryMaxRunes)
	a.IsWhitelisted = false
	if a.Source == "" {
		a.Source = feed.HostOf(link)
	}
	if a.PublishedDate.IsZero() {
		a.PublishedDate = now
		a.IsDateEstimated = true
	}
	a.CaseCount = ExtractCaseCount(a.Title + " " + a.Summary)
	return &a
}
