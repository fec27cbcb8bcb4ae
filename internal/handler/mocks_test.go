package handler

import (
	"context"

	"github.com/hitoshi/episcout/internal/model"
	"github.com/hitoshi/episcout/internal/stats"
)

// --- モック定義 ---

// mockScanService はScanServiceInterfaceのモック実装。
type mockScanService struct {
	runScanFn func(ctx context.Context, req model.ScanRequest) (*model.ScanResult, error)
}

func (m *mockScanService) RunScan(ctx context.Context, req model.ScanRequest) (*model.ScanResult, error) {
	if m.runScanFn != nil {
		return m.runScanFn(ctx, req)
	}
	return &model.ScanResult{}, nil
}

// mockArticleLister はArticleListerInterfaceのモック実装。
type mockArticleLister struct {
	listFn func(ctx context.Context, offset, limit int) ([]model.Article, error)
}

func (m *mockArticleLister) List(ctx context.Context, offset, limit int) ([]model.Article, error) {
	if m.listFn != nil {
		return m.listFn(ctx, offset, limit)
	}
	return []model.Article{}, nil
}

// mockTriageService はTriageServiceInterfaceのモック実装。
type mockTriageService struct {
	saveArticlesFn func(ctx context.Context, selected []model.Article) (*model.SaveResult, error)
	addWhitelistFn func(ctx context.Context, domain string) (*model.WhitelistDomain, error)
}

func (m *mockTriageService) SaveArticles(ctx context.Context, selected []model.Article) (*model.SaveResult, error) {
	if m.saveArticlesFn != nil {
		return m.saveArticlesFn(ctx, selected)
	}
	return &model.SaveResult{Saved: len(selected)}, nil
}

func (m *mockTriageService) AddWhitelist(ctx context.Context, domain string) (*model.WhitelistDomain, error) {
	if m.addWhitelistFn != nil {
		return m.addWhitelistFn(ctx, domain)
	}
	return &model.WhitelistDomain{ID: "wl-1", Domain: domain, IsActive: true}, nil
}

// mockRegistryService はRegistryServiceInterfaceのモック実装。
type mockRegistryService struct {
	listKeywordsFn    func(ctx context.Context) ([]model.Keyword, error)
	createKeywordFn   func(ctx context.Context, text string) (*model.Keyword, error)
	deleteKeywordFn   func(ctx context.Context, id string) error
	listWhitelistFn   func(ctx context.Context) ([]model.WhitelistDomain, error)
	upsertWhitelistFn func(ctx context.Context, domain string, active bool) (*model.WhitelistDomain, error)
}

func (m *mockRegistryService) ListKeywords(ctx context.Context) ([]model.Keyword, error) {
	if m.listKeywordsFn != nil {
		return m.listKeywordsFn(ctx)
	}
	return nil, nil
}

func (m *mockRegistryService) CreateKeyword(ctx context.Context, text string) (*model.Keyword, error) {
	if m.createKeywordFn != nil {
		return m.createKeywordFn(ctx, text)
	}
	return &model.Keyword{ID: "kw-1", Text: text}, nil
}

func (m *mockRegistryService) DeleteKeyword(ctx context.Context, id string) error {
	if m.deleteKeywordFn != nil {
		return m.deleteKeywordFn(ctx, id)
	}
	return nil
}

func (m *mockRegistryService) ListWhitelist(ctx context.Context) ([]model.WhitelistDomain, error) {
	if m.listWhitelistFn != nil {
		return m.listWhitelistFn(ctx)
	}
	return nil, nil
}

func (m *mockRegistryService) UpsertWhitelist(ctx context.Context, domain string, active bool) (*model.WhitelistDomain, error) {
	if m.upsertWhitelistFn != nil {
		return m.upsertWhitelistFn(ctx, domain, active)
	}
	return &model.WhitelistDomain{ID: "wl-1", Domain: domain, IsActive: active}, nil
}

// mockStatsService はStatsServiceInterfaceのモック実装。
type mockStatsService struct {
	overviewFn func(ctx context.Context) (*stats.Overview, error)
	trendsFn   func(ctx context.Context, days int) ([]model.DailyCount, error)
}

func (m *mockStatsService) Overview(ctx context.Context) (*stats.Overview, error) {
	if m.overviewFn != nil {
		return m.overviewFn(ctx)
	}
	return &stats.Overview{}, nil
}

func (m *mockStatsService) Trends(ctx context.Context, days int) ([]model.DailyCount, error) {
	if m.trendsFn != nil {
		return m.trendsFn(ctx, days)
	}
	return nil, nil
}

// mockHealthChecker はHealthCheckerのモック実装。
type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(_ context.Context) error {
	return m.err
}
