package scan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/episcout/internal/feed"
	"github.com/hitoshi/episcout/internal/metrics"
	"github.com/hitoshi/episcout/internal/model"
	"github.com/hitoshi/episcout/internal/repository"
	"github.com/hitoshi/episcout/internal/worker/fetch"
)

// State はスキャン1サイクル内の状態。
type State string

const (
	StateIdle        State = "idle"
	StateFetching    State = "fetching"
	StateMatching    State = "matching"
	StateClassifying State = "classifying"
	StatePersisting  State = "persisting"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
)

// SourceFetcher はソース群を並列にフェッチするインターフェース。
type SourceFetcher interface {
	FetchAll(ctx context.Context, sources []feed.Source, perSourceTimeout time.Duration, deadline time.Time) []fetch.SourceResult
}

// Orchestrator はスキャンを実行する。
// 同時に複数のスキャンを実行してよい。スキャン間の排他はArticle Storeのlink一意制約のみで行う。
type Orchestrator struct {
	registry     repository.RegistryReader
	articles     repository.ArticleRepository
	fetcher      SourceFetcher
	catalog      *feed.Catalog
	matcher      *Matcher
	classifier   *Classifier
	metrics      metrics.MetricsCollector
	logger       *slog.Logger
	fetchTimeout time.Duration
	now          func() time.Time
}

// NewOrchestrator はOrchestratorの新しいインスタンスを生成する。
// fetchTimeoutはソース単位のフェッチタイムアウト。
func NewOrchestrator(
	registry repository.RegistryReader,
	articles repository.ArticleRepository,
	fetcher SourceFetcher,
	catalog *feed.Catalog,
	matcher *Matcher,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	fetchTimeout time.Duration,
) *Orchestrator {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Orchestrator{
		registry:     registry,
		articles:     articles,
		fetcher:      fetcher,
		catalog:      catalog,
		matcher:      matcher,
		classifier:   NewClassifier(catalog.AliasMap()),
		metrics:      collector,
		logger:       logger,
		fetchTimeout: fetchTimeout,
		now:          time.Now,
	}
}

// ValidateRequest はスキャン要求を検証する。
func ValidateRequest(req model.ScanRequest) error {
	if req.DaysLimit < 0 || req.DaysLimit > model.MaxDaysLimit {
		return model.NewInvalidScanRequestError(fmt.Sprintf("days_limit は0以上%d以下である必要があります", model.MaxDaysLimit))
	}
	if req.MaxExecutionTime < 0 || req.MaxExecutionTime > model.MaxExecutionMinutes {
		return model.NewInvalidScanRequestError(fmt.Sprintf("max_execution_time は0以上%d以下である必要があります", model.MaxExecutionMinutes))
	}
	return nil
}

// scanRun は1回のスキャンの進行状況を保持する。
type scanRun struct {
	logger *slog.Logger
	state  State
}

func (r *scanRun) enter(s State) {
	r.logger.Debug("スキャン状態を遷移します",
		slog.String("from", string(r.state)),
		slog.String("to", string(s)),
	)
	r.state = s
}

func (r *scanRun) fail(err error) error {
	r.logger.Error("スキャンに失敗しました",
		slog.String("state", string(r.state)),
		slog.String("error", err.Error()),
	)
	r.state = StateFailed
	return err
}

// RunScan はスキャンを1サイクル実行する。
// ソース単位のフェッチ失敗は結果の件数減少として現れ、エラーにはならない。
// ストアに到達できない場合のみErrStoreUnavailableをラップしたエラーを返す。
func (o *Orchestrator) RunScan(ctx context.Context, req model.ScanRequest) (*model.ScanResult, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	start := o.now()
	run := &scanRun{logger: o.logger, state: StateIdle}
	result := &model.ScanResult{UnknownArticles: []model.Article{}, Sources: []model.SourceReport{}}

	snap, err := o.registry.Snapshot(ctx)
	if err != nil {
		return nil, run.fail(fmt.Errorf("レジストリのスナップショット取得に失敗しました: %w", err))
	}
	if len(snap.Keywords) == 0 {
		o.logger.Warn("キーワードが登録されていないためスキャンをスキップします")
		run.enter(StateCompleted)
		return result, nil
	}

	sources := o.catalog.Select(req.FetchUnknown, snap.IsWhitelisted)
	if len(sources) == 0 {
		o.logger.Warn("スキャン対象のソースがありません",
			slog.Bool("fetch_unknown", req.FetchUnknown),
		)
		run.enter(StateCompleted)
		return result, nil
	}

	budget := model.ResolveBudget(req, start)
	o.logger.Info("スキャンを開始します",
		slog.Int("source_count", len(sources)),
		slog.Int("keyword_count", len(snap.Keywords)),
		slog.Bool("fetch_unknown", req.FetchUnknown),
		slog.String("budget_mode", string(budget.Mode)),
		slog.Duration("window", budget.Window),
	)

	run.enter(StateFetching)
	fetched := o.fetcher.FetchAll(ctx, sources, o.fetchTimeout, budget.Deadline)
	if err := ctx.Err(); err != nil {
		return nil, run.fail(fmt.Errorf("スキャンが中断されました: %w", err))
	}

	var candidates []model.Candidate
	for _, r := range fetched {
		report := model.SourceReport{
			Name:       r.Source.Name,
			URL:        r.Source.URL,
			Status:     r.Status(),
			Candidates: len(r.Candidates),
		}
		if r.Err != nil {
			report.Error = r.Err.Error()
		} else {
			candidates = append(candidates, r.Candidates...)
		}
		result.Sources = append(result.Sources, report)
	}

	run.enter(StateMatching)
	matches := o.matcher.Match(candidates, snap.Keywords, start, budget.Window)
	result.MatchedCount = len(matches)

	run.enter(StateClassifying)
	links := make([]string, len(matches))
	for i, m := range matches {
		links[i] = m.Candidate.Link
	}
	existing, err := o.articles.ExistingLinks(ctx, links)
	if err != nil {
		return nil, run.fail(fmt.Errorf("既存記事の照会に失敗しました: %w", err))
	}

	var trusted []*model.Article
	for _, m := range matches {
		if existing[m.Candidate.Link] {
			result.DuplicateCount++
			continue
		}
		article := newArticle(m, start)
		if o.classifier.Classify(article.Source, snap) == TrustTrusted {
			article.IsWhitelisted = true
			trusted = append(trusted, article)
			continue
		}
		result.UnknownArticles = append(result.UnknownArticles, *article)
	}

	run.enter(StatePersisting)
	for _, a := range trusted {
		inserted, err := o.articles.InsertIfAbsent(ctx, a)
		if err != nil {
			return nil, run.fail(fmt.Errorf("記事の保存に失敗しました: %w", err))
		}
		if inserted {
			result.SavedTrustedCount++
		} else {
			// 並行するスキャンまたはトリアージが先に保存した
			result.DuplicateCount++
		}
	}

	run.enter(StateCompleted)
	elapsed := o.now().Sub(start)
	o.metrics.RecordScan(elapsed, result.MatchedCount, result.SavedTrustedCount, len(result.UnknownArticles), result.DuplicateCount)
	o.logger.Info("スキャンが完了しました",
		slog.Int("candidates", len(candidates)),
		slog.Int("matched", result.MatchedCount),
		slog.Int("saved_trusted", result.SavedTrustedCount),
		slog.Int("unknown", len(result.UnknownArticles)),
		slog.Int("duplicates", result.DuplicateCount),
		slog.Float64("duration_ms", float64(elapsed.Milliseconds())),
	)
	return result, nil
}

// newArticle は一致した候補から記事を組み立てる。信頼ラベルは呼び出し側で設定する。
func newArticle(m Match, now time.Time) *model.Article {
	c := m.Candidate
	return &model.Article{
		Link:            c.Link,
		Title:           c.Title,
		Summary:         c.Summary,
		Source:          c.Source,
		PublishedDate:   c.PublishedDate,
		IsDateEstimated: c.IsDateEstimated,
		MatchedKeywords: m.Keywords,
		CaseCount:       ExtractCaseCount(c.Title + " " + c.Summary),
		Tags:            DetectTags(c.Title, c.PublishedDate, now),
	}
}
