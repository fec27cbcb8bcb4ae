package scan

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/episcout/internal/feed"
	"github.com/hitoshi/episcout/internal/model"
	"github.com/hitoshi/episcout/internal/worker/fetch"
)

// memArticleRepo はArticleRepositoryのテスト用インメモリ実装。
// linkの一意性をmutexで保証する。
type memArticleRepo struct {
	mu          sync.Mutex
	byLink      map[string]*model.Article
	order       []string
	existingErr error
	insertErr   error
}

func newMemArticleRepo() *memArticleRepo {
	return &memArticleRepo{byLink: make(map[string]*model.Article)}
}

func (m *memArticleRepo) List(_ context.Context, offset, limit int) ([]model.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Article
	for i := offset; i < len(m.order) && len(out) < limit; i++ {
		out = append(out, *m.byLink[m.order[i]])
	}
	return out, nil
}

func (m *memArticleRepo) InsertIfAbsent(_ context.Context, a *model.Article) (bool, error) {
	if m.insertErr != nil {
		return false, m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byLink[a.Link]; ok {
		return false, nil
	}
	stored := *a
	m.byLink[a.Link] = &stored
	m.order = append(m.order, a.Link)
	return true, nil
}

func (m *memArticleRepo) ExistingLinks(_ context.Context, links []string) (map[string]bool, error) {
	if m.existingErr != nil {
		return nil, m.existingErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool)
	for _, l := range links {
		if _, ok := m.byLink[l]; ok {
			out[l] = true
		}
	}
	return out, nil
}

func (m *memArticleRepo) CountByDay(_ context.Context, _ time.Time, _ *time.Location) ([]model.DailyCount, error) {
	return nil, nil
}

func (m *memArticleRepo) Totals(_ context.Context) (model.ArticleTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return model.ArticleTotals{TotalArticles: len(m.order)}, nil
}

func (m *memArticleRepo) get(link string) *model.Article {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byLink[link]
}

func (m *memArticleRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

// mockRegistry はRegistryReaderのテスト用モック。
type mockRegistry struct {
	keywords  []model.Keyword
	whitelist map[string]bool
	err       error
}

func (m *mockRegistry) Snapshot(_ context.Context) (*model.RegistrySnapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	active := make(map[string]bool, len(m.whitelist))
	for d, ok := range m.whitelist {
		if ok {
			active[d] = true
		}
	}
	return &model.RegistrySnapshot{
		Keywords:        append([]model.Keyword(nil), m.keywords...),
		ActiveWhitelist: active,
		TakenAt:         time.Now(),
	}, nil
}

// mockFetcher はSourceFetcherのテスト用モック。ソースURLごとに固定の結果を返す。
type mockFetcher struct {
	mu           sync.Mutex
	byURL        map[string]fetch.SourceResult
	calledWith   []feed.Source
	lastDeadline time.Time
	lastTimeout  time.Duration
	onFetch      func()
}

func (m *mockFetcher) FetchAll(_ context.Context, sources []feed.Source, perSourceTimeout time.Duration, deadline time.Time) []fetch.SourceResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calledWith = sources
	m.lastDeadline = deadline
	m.lastTimeout = perSourceTimeout
	if m.onFetch != nil {
		m.onFetch()
	}
	out := make([]fetch.SourceResult, 0, len(sources))
	for _, s := range sources {
		r, ok := m.byURL[s.URL]
		if !ok {
			r = fetch.SourceResult{Err: model.ErrSourceFetch}
		}
		r.Source = s
		out = append(out, r)
	}
	return out
}

// mockWhitelist はWhitelistUpserterのテスト用モック。
type mockWhitelist struct {
	upserted []string
	err      error
}

func (m *mockWhitelist) UpsertWhitelist(_ context.Context, domain string, active bool) (*model.WhitelistDomain, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.upserted = append(m.upserted, domain)
	return &model.WhitelistDomain{ID: "w-1", Domain: domain, IsActive: active}, nil
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func kw(texts ...string) []model.Keyword {
	out := make([]model.Keyword, len(texts))
	for i, t := range texts {
		out[i] = model.Keyword{ID: t, Text: t}
	}
	return out
}
