// Package fetch はフィードソースの並列フェッチと候補記事への変換を提供する。
// ソース単位の失敗はそのソースに閉じ、スキャン全体には波及しない。
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/episcout/internal/feed"
	"github.com/hitoshi/episcout/internal/metrics"
	"github.com/hitoshi/episcout/internal/model"
	"github.com/hitoshi/episcout/internal/security"
)

const acceptHeader = "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html;q=0.8, */*;q=0.5"

// Options はFetcherの動作パラメータ。
type Options struct {
	UserAgent     string
	MaxBodySize   int64
	MaxConcurrent int
	// RetryDelay は429/5xx後の再試行待機時間。0の場合はdefaultRetryDelay。
	RetryDelay time.Duration
}

// SourceResult はソース1件分のフェッチ結果。
type SourceResult struct {
	Source     feed.Source
	Candidates []model.Candidate
	Err        error
	Duration   time.Duration
}

// Status はフェッチ結果をok/failed/timeoutに分類する。
func (r SourceResult) Status() model.SourceStatus {
	return StatusOf(r.Err)
}

// Fetcher はフィードのHTTPフェッチとパースを行う。
// SSRF検証、応答サイズ制限、HTMLページからのフィード検出、
// gofeedによるパースと候補記事への変換を実行する。
type Fetcher struct {
	guard       security.URLGuard
	text        *security.TextExtractor
	metrics     metrics.MetricsCollector
	logger      *slog.Logger
	userAgent   string
	maxBodySize int64
	maxWorkers  int
	retryDelay  time.Duration
	now         func() time.Time
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
// MaxConcurrentが0以下の場合はデフォルト値10を使用する。
func NewFetcher(
	guard security.URLGuard,
	text *security.TextExtractor,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	opts Options,
) *Fetcher {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 10
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = 5 << 20
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "episcout/1.0"
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Fetcher{
		guard:       guard,
		text:        text,
		metrics:     collector,
		logger:      logger,
		userAgent:   opts.UserAgent,
		maxBodySize: opts.MaxBodySize,
		maxWorkers:  opts.MaxConcurrent,
		retryDelay:  RetryDelay(opts.RetryDelay),
		now:         time.Now,
	}
}

type indexedResult struct {
	index  int
	result SourceResult
}

// FetchAll は全ソースを並列にフェッチし、完了順に結果を返す。
// 各ソースにはperSourceTimeoutの個別期限が適用される。
// deadlineが非ゼロの場合、期限到達時点で未完了のソースはErrSourceTimeoutとして返す。
// 戻り値は常にソースと同数の結果を含む。
func (f *Fetcher) FetchAll(ctx context.Context, sources []feed.Source, perSourceTimeout time.Duration, deadline time.Time) []SourceResult {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if deadline.IsZero() {
		runCtx, cancel = context.WithCancel(ctx)
	} else {
		runCtx, cancel = context.WithDeadline(ctx, deadline)
	}
	defer cancel()

	f.logger.Info("フェッチサイクルを開始します",
		slog.Int("source_count", len(sources)),
		slog.Int("max_concurrency", f.maxWorkers),
		slog.Duration("per_source_timeout", perSourceTimeout),
	)

	// バッファ付きチャネルにより、打ち切り後も各goroutineは送信でブロックしない。
	resultCh := make(chan indexedResult, len(sources))
	sem := make(chan struct{}, f.maxWorkers)
	var wg sync.WaitGroup

	for i, src := range sources {
		wg.Add(1)
		go func(i int, src feed.Source) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-runCtx.Done():
				resultCh <- indexedResult{index: i, result: SourceResult{Source: src, Err: abortError(runCtx)}}
				return
			}
			defer func() { <-sem }()

			resultCh <- indexedResult{index: i, result: f.fetchSource(runCtx, src, perSourceTimeout)}
		}(i, src)
	}

	results := make([]SourceResult, 0, len(sources))
	received := make([]bool, len(sources))
	accept := func(r indexedResult) {
		received[r.index] = true
		results = append(results, r.result)
		f.record(r.result)
	}

collect:
	for len(results) < len(sources) {
		select {
		case r := <-resultCh:
			accept(r)
		case <-runCtx.Done():
			break collect
		}
	}

	if len(results) < len(sources) {
		// 期限と同時に届いた結果は取りこぼさない。
		for drained := false; !drained; {
			select {
			case r := <-resultCh:
				accept(r)
			default:
				drained = true
			}
		}
		abort := abortError(runCtx)
		for i, src := range sources {
			if !received[i] {
				r := SourceResult{Source: src, Err: abort}
				results = append(results, r)
				f.record(r)
			}
		}
		f.logger.Warn("全体期限によりフェッチを打ち切りました",
			slog.Int("source_count", len(sources)),
			slog.String("reason", abort.Error()),
		)
	} else {
		wg.Wait()
	}

	f.logger.Info("フェッチサイクルが完了しました",
		slog.Int("source_count", len(sources)),
	)
	return results
}

// abortError はrunCtx終了時に未完了ソースへ設定するエラーを返す。
func abortError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: scan deadline reached", model.ErrSourceTimeout)
	}
	return fmt.Errorf("%w: scan cancelled", model.ErrSourceFetch)
}

func (f *Fetcher) record(r SourceResult) {
	f.metrics.RecordSourceStatus(r.Source.Name, string(r.Status()))
}

// fetchSource はソース1件をフェッチし、panicや期限超過を含めて結果に変換する。
func (f *Fetcher) fetchSource(runCtx context.Context, src feed.Source, timeout time.Duration) (res SourceResult) {
	start := f.now()
	res.Source = src

	ctx := runCtx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}

	defer func() {
		if p := recover(); p != nil {
			res.Candidates = nil
			res.Err = fmt.Errorf("%w: panic: %v", model.ErrSourceFetch, p)
		}
		res.Duration = f.now().Sub(start)
		f.metrics.RecordFetchLatency(res.Duration)
		if res.Err != nil {
			f.logger.Warn("ソースのフェッチに失敗しました",
				slog.String("source", src.Name),
				slog.String("feed_url", src.URL),
				slog.String("status", string(res.Status())),
				slog.String("error", res.Err.Error()),
				slog.Float64("duration_ms", float64(res.Duration.Milliseconds())),
			)
			return
		}
		f.logger.Info("ソースのフェッチが完了しました",
			slog.String("source", src.Name),
			slog.String("feed_url", src.URL),
			slog.Int("candidates", len(res.Candidates)),
			slog.Float64("duration_ms", float64(res.Duration.Milliseconds())),
		)
	}()

	candidates, err := f.FetchOne(ctx, src)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, model.ErrSourceTimeout) {
			err = fmt.Errorf("%w: %v", model.ErrSourceTimeout, err)
		}
		if !errors.Is(err, model.ErrSourceFetch) {
			err = fmt.Errorf("%w: %v", model.ErrSourceFetch, err)
		}
		res.Err = err
		return res
	}
	res.Candidates = candidates
	return res
}

// FetchOne はソース1件をフェッチして候補記事に変換する。
// HTMLページが返された場合は、ページが告知するフィードを1回だけ辿る。
func (f *Fetcher) FetchOne(ctx context.Context, src feed.Source) ([]model.Candidate, error) {
	body, contentType, err := f.get(ctx, src.URL)
	if err != nil {
		return nil, err
	}

	if feed.IsHTML(contentType) && !feed.IsFeedDocument(contentType, body) {
		link := feed.SelectFeedLink(feed.FeedLinksFromHTML(body, src.URL), src.URL)
		if link == nil {
			return nil, fmt.Errorf("%w: html page without feed link", model.ErrMalformedFeed)
		}
		f.logger.Info("HTMLページからフィードを検出しました",
			slog.String("source", src.Name),
			slog.String("page_url", src.URL),
			slog.String("feed_url", link.URL),
		)
		body, _, err = f.get(ctx, link.URL)
		if err != nil {
			return nil, err
		}
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedFeed, err)
	}
	return f.toCandidates(src, parsed.Items), nil
}

// get はURLを取得し、本文とContent-Typeを返す。
// 429/5xxの場合はretryDelay待機後に1回だけ再試行する。
func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	if f.guard != nil {
		if err := f.guard.ValidateURL(rawURL); err != nil {
			return nil, "", fmt.Errorf("%w: %v", model.ErrSourceFetch, err)
		}
	}

	for attempt := 0; ; attempt++ {
		body, contentType, status, err := f.do(ctx, rawURL)
		if err != nil {
			return nil, "", err
		}
		switch ClassifyHTTPStatus(status) {
		case FetchResultOK:
			return body, contentType, nil
		case FetchResultRetry:
			if attempt == 0 {
				f.logger.Warn("一時的なエラーのため再試行します",
					slog.String("feed_url", rawURL),
					slog.Int("http_status", status),
				)
				select {
				case <-time.After(f.retryDelay):
					continue
				case <-ctx.Done():
					return nil, "", fmt.Errorf("%w: HTTP %d", model.ErrSourceFetch, status)
				}
			}
		}
		return nil, "", fmt.Errorf("%w: HTTP %d", model.ErrSourceFetch, status)
	}
}

// do は1回のHTTPリクエストを実行する。
func (f *Fetcher) do(ctx context.Context, rawURL string) ([]byte, string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", 0, fmt.Errorf("%w: %v", model.ErrSourceFetch, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.client().Do(req)
	if err != nil {
		return nil, "", 0, fmt.Errorf("%w: %v", model.ErrSourceFetch, err)
	}
	defer resp.Body.Close()

	f.metrics.RecordHTTPStatus(resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, "", resp.StatusCode, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, "", 0, fmt.Errorf("%w: reading body: %v", model.ErrSourceFetch, err)
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, "", 0, fmt.Errorf("%w: response exceeds %d bytes", model.ErrSourceFetch, f.maxBodySize)
	}
	return body, resp.Header.Get("Content-Type"), resp.StatusCode, nil
}

// client はリクエスト用のHTTPクライアントを返す。
// タイムアウトはcontextで管理するため、クライアント側には設定しない。
func (f *Fetcher) client() *http.Client {
	if f.guard == nil {
		return &http.Client{}
	}
	return f.guard.Client(0)
}

// toCandidates はgofeedの記事を候補記事に変換する。
// リンクを持たない記事は破棄する。
func (f *Fetcher) toCandidates(src feed.Source, items []*gofeed.Item) []model.Candidate {
	candidates := make([]model.Candidate, 0, len(items))
	now := f.now()

	for _, item := range items {
		if item == nil {
			continue
		}

		link := strings.TrimSpace(item.Link)
		// LinkがなくGUIDがURL形式の場合はGUIDをLinkとして使用
		if link == "" && (strings.HasPrefix(item.GUID, "http://") || strings.HasPrefix(item.GUID, "https://")) {
			link = strings.TrimSpace(item.GUID)
		}
		if link == "" {
			continue
		}

		description := item.Description
		if description == "" {
			description = item.Content
		}

		c := model.Candidate{
			Link:     link,
			Title:    f.text.PlainText(item.Title),
			Summary:  f.text.Summary(description),
			Source:   feed.HostOf(link),
			FeedName: src.Name,
		}
		if c.Source == "" {
			c.Source = src.Domain
		}

		switch {
		case item.PublishedParsed != nil:
			c.PublishedDate = *item.PublishedParsed
		case item.UpdatedParsed != nil:
			c.PublishedDate = *item.UpdatedParsed
		default:
			c.PublishedDate = now
			c.IsDateEstimated = true
		}

		candidates = append(candidates, c)
	}

	return candidates
}
