package scan

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/episcout/internal/model"
)

func newTestTriage() (*Triage, *memArticleRepo, *mockWhitelist) {
	articles := newMemArticleRepo()
	wl := &mockWhitelist{}
	var buf bytes.Buffer
	tr := NewTriage(articles, wl, nil, newTestLogger(&buf))
	tr.now = func() time.Time { return scanNow }
	return tr, articles, wl
}

func TestSaveArticles_PersistsAsUntrusted(t *testing.T) {
	tr, articles, _ := newTestTriage()

	res, err := tr.SaveArticles(context.Background(), []model.Article{{
		Link:            "https://unknown-blog.com/sxh",
		Title:           "Sốt xuất huyết",
		Summary:         "Phát hiện 8 ca mắc",
		MatchedKeywords: []string{"sốt xuất huyết"},
		IsWhitelisted:   true,
		CaseCount:       999,
		PublishedDate:   scanNow.Add(-time.Hour),
	}})
	if err != nil {
		t.Fatalf("SaveArticlesでエラー: %v", err)
	}
	if res.Saved != 1 || res.Skipped != 0 {
		t.Errorf("res = %+v, want saved=1", res)
	}

	saved := articles.get("https://unknown-blog.com/sxh")
	if saved == nil {
		t.Fatal("記事が保存されていない")
	}
	if saved.IsWhitelisted {
		t.Error("トリアージで保存した記事はIsWhitelisted=falseであるべき")
	}
	if saved.CaseCount != 8 {
		t.Errorf("CaseCountは再計算されるべき: %d", saved.CaseCount)
	}
	if saved.Source != "unknown-blog.com" {
		t.Errorf("Sourceがlinkから補完されていない: %q", saved.Source)
	}
	if len(saved.MatchedKeywords) != 1 {
		t.Errorf("MatchedKeywords = %v", saved.MatchedKeywords)
	}
}

func TestSaveArticles_SkipsDuplicates(t *testing.T) {
	tr, articles, _ := newTestTriage()
	if _, err := articles.InsertIfAbsent(context.Background(), &model.Article{Link: "https://a.vn/1"}); err != nil {
		t.Fatal(err)
	}

	res, err := tr.SaveArticles(context.Background(), []model.Article{
		{Link: "https://a.vn/1", Title: "đã lưu"},
		{Link: "https://a.vn/2", Title: "mới"},
		{Link: " https://a.vn/2 ", Title: "trùng trong lô"},
	})
	if err != nil {
		t.Fatalf("SaveArticlesでエラー: %v", err)
	}
	if res.Saved != 1 || res.Skipped != 2 {
		t.Errorf("res = %+v, want saved=1 skipped=2", res)
	}
}

func TestSaveArticles_EstimatesMissingDate(t *testing.T) {
	tr, articles, _ := newTestTriage()

	if _, err := tr.SaveArticles(context.Background(), []model.Article{{Link: "https://a.vn/1", Title: "x"}}); err != nil {
		t.Fatal(err)
	}
	saved := articles.get("https://a.vn/1")
	if !saved.PublishedDate.Equal(scanNow) || !saved.IsDateEstimated {
		t.Errorf("日付が推定されていない: %+v", saved)
	}
}

func TestSaveArticles_TruncatesSummary(t *testing.T) {
	tr, articles, _ := newTestTriage()

	long := strings.Repeat("á", 800)
	if _, err := tr.SaveArticles(context.Background(), []model.Article{{Link: "https://a.vn/1", Title: "x", Summary: long}}); err != nil {
		t.Fatal(err)
	}
	if got := []rune(articles.get("https://a.vn/1").Summary); len(got) != 503 {
		t.Errorf("要約の文字数 = %d, want 503", len(got))
	}
}

func TestSaveArticles_ValidationRejectsWholeBatch(t *testing.T) {
	tests := []struct {
		name    string
		article model.Article
	}{
		{"link空", model.Article{Title: "x"}},
		{"linkがURLでない", model.Article{Link: "not a url", Title: "x"}},
		{"スキーム不正", model.Article{Link: "ftp://a.vn/1", Title: "x"}},
		{"title空", model.Article{Link: "https://a.vn/1", Title: "   "}},
		{"source長すぎ", model.Article{Link: "https://a.vn/1", Title: "x", Source: strings.Repeat("ư", model.MaxSourceRunes+1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, articles, _ := newTestTriage()
			_, err := tr.SaveArticles(context.Background(), []model.Article{
				{Link: "https://a.vn/ok", Title: "ok"},
				tt.article,
			})
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidArticle {
				t.Errorf("err = %v, want INVALID_ARTICLE", err)
			}
			if articles.count() != 0 {
				t.Error("検証エラー時は1件も保存しない")
			}
		})
	}
}

func TestSaveArticles_SourceAtLimitAccepted(t *testing.T) {
	tr, articles, _ := newTestTriage()
	source := strings.Repeat("ư", model.MaxSourceRunes)

	res, err := tr.SaveArticles(context.Background(), []model.Article{
		{Link: "https://a.vn/limit", Title: "x", Source: " " + source + " "},
	})
	if err != nil {
		t.Fatalf("SaveArticlesでエラー: %v", err)
	}
	if res.Saved != 1 {
		t.Errorf("res = %+v, want saved=1", res)
	}
	if got := articles.get("https://a.vn/limit"); got == nil || got.Source != source {
		t.Errorf("Sourceが前後の空白を除いて保存されていない: %+v", got)
	}
}

func TestSaveArticles_StoreUnavailable(t *testing.T) {
	tr, articles, _ := newTestTriage()
	articles.insertErr = model.StoreError("insert", errors.New("down"))

	res, err := tr.SaveArticles(context.Background(), []model.Article{{Link: "https://a.vn/1", Title: "x"}})
	if !errors.Is(err, model.ErrStoreUnavailable) || res != nil {
		t.Errorf("res=%v err=%v, want nil/ErrStoreUnavailable", res, err)
	}
}

func TestSaveArticles_ConcurrentCallersSaveOnce(t *testing.T) {
	tr, articles, _ := newTestTriage()

	var wg sync.WaitGroup
	var mu sync.Mutex
	saved := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := tr.SaveArticles(context.Background(), []model.Article{{Link: "https://a.vn/race", Title: "x"}})
			if err != nil {
				t.Errorf("SaveArticlesでエラー: %v", err)
				return
			}
			mu.Lock()
			saved += res.Saved
			mu.Unlock()
		}()
	}
	wg.Wait()

	if saved != 1 || articles.count() != 1 {
		t.Errorf("saved=%d count=%d, want 1/1", saved, articles.count())
	}
}

func TestAddWhitelist_UpsertsActive(t *testing.T) {
	tr, _, wl := newTestTriage()

	w, err := tr.AddWhitelist(context.Background(), "baomoi.com")
	if err != nil {
		t.Fatalf("AddWhitelistでエラー: %v", err)
	}
	if !w.IsActive || w.Domain != "baomoi.com" {
		t.Errorf("w = %+v", w)
	}
	if len(wl.upserted) != 1 {
		t.Errorf("upserted = %v", wl.upserted)
	}
}

func TestAddWhitelist_PropagatesError(t *testing.T) {
	tr, _, wl := newTestTriage()
	wl.err = model.NewInvalidDomainError("bad")

	if _, err := tr.AddWhitelist(context.Background(), "bad"); err == nil {
		t.Error("エラーが返されるべき")
	}
}

func TestAddWhitelist_AffectsOnlyNextScan(t *testing.T) {
	f := newScanFixture(t, []string{"sởi"}, "vnexpress.net")
	f.serve(vnexpressFeed, article("https://unknown-blog.com/1", "Sởi", time.Hour))

	first, err := f.orch.RunScan(context.Background(), model.ScanRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(first.UnknownArticles) != 1 {
		t.Fatalf("UnknownArticles = %d, want 1", len(first.UnknownArticles))
	}

	// 未知記事を保存した後でドメインを信頼する
	tr := NewTriage(f.articles, registryWhitelist{f.registry}, nil, newTestLogger(&bytes.Buffer{}))
	if _, err := tr.SaveArticles(context.Background(), first.UnknownArticles); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.AddWhitelist(context.Background(), "unknown-blog.com"); err != nil {
		t.Fatal(err)
	}

	if f.articles.get("https://unknown-blog.com/1").IsWhitelisted {
		t.Error("ホワイトリスト追加は保存済み記事の信頼ラベルを変更しない")
	}

	f.serve(vnexpressFeed,
		article("https://unknown-blog.com/1", "Sởi", time.Hour),
		article("https://unknown-blog.com/2", "Sởi", time.Hour),
	)
	next, err := f.orch.RunScan(context.Background(), model.ScanRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if next.SavedTrustedCount != 1 || next.DuplicateCount != 1 {
		t.Errorf("次回スキャン: saved=%d dup=%d, want 1/1", next.SavedTrustedCount, next.DuplicateCount)
	}
}

// registryWhitelist はmockRegistryのホワイトリストを更新するWhitelistUpserter。
type registryWhitelist struct {
	r *mockRegistry
}

func (w registryWhitelist) UpsertWhitelist(_ context.Context, domain string, active bool) (*model.WhitelistDomain, error) {
	w.r.whitelist[domain] = active
	return &model.WhitelistDomain{Domain: domain, IsActive: active}, nil
}
