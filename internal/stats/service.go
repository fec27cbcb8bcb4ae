// Package stats は記事コーパスの日別推移と概況の集計を提供する。
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/episcout/internal/model"
	"github.com/hitoshi/episcout/internal/repository"
)

const (
	// DefaultTrendDays はdays未指定時の集計日数。
	DefaultTrendDays = 7
	// MaxTrendDays は集計日数の上限。
	MaxTrendDays = 366
)

// Overview はダッシュボード向けの概況。
type Overview struct {
	TotalArticles int
	TotalCases    int
	AlertCount    int
	LastUpdated   time.Time
}

// Service は推移と概況を集計する。記事コーパスを読み取るのみで副作用はない。
type Service struct {
	articles repository.ArticleRepository
	loc      *time.Location
	policy   AlertPolicy
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// locは日付の区切りに用いるタイムゾーン。
func NewService(articles repository.ArticleRepository, loc *time.Location, policy AlertPolicy) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		articles: articles,
		loc:      loc,
		policy:   policy,
		now:      time.Now,
	}
}

// Trends は今日を末尾とするdays日分の日別記事件数を日付昇順で返す。
// 記事のない日も件数0として含める。
func (s *Service) Trends(ctx context.Context, days int) ([]model.DailyCount, error) {
	if days < 1 || days > MaxTrendDays {
		return nil, model.NewInvalidTrendDaysError(days, MaxTrendDays)
	}
	return s.series(ctx, days)
}

// Overview は記事総数、症例数合計、警戒日数を返す。
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	totals, err := s.articles.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("記事集計の取得に失敗しました: %w", err)
	}

	var counts []int
	if span := s.policy.span(); span > 0 {
		series, err := s.series(ctx, span)
		if err != nil {
			return nil, err
		}
		counts = make([]int, len(series))
		for i, d := range series {
			counts[i] = d.Count
		}
	}

	return &Overview{
		TotalArticles: totals.TotalArticles,
		TotalCases:    totals.TotalCases,
		AlertCount:    s.policy.Count(counts),
		LastUpdated:   s.now(),
	}, nil
}

// series は今日を末尾とするdays日分の連続した日別件数を返す。
func (s *Service) series(ctx context.Context, days int) ([]model.DailyCount, error) {
	today := startOfDay(s.now(), s.loc)
	start := today.AddDate(0, 0, -(days - 1))

	counts, err := s.articles.CountByDay(ctx, start, s.loc)
	if err != nil {
		return nil, fmt.Errorf("日別件数の取得に失敗しました: %w", err)
	}
	byDay := make(map[string]int, len(counts))
	for _, c := range counts {
		byDay[c.Date.In(s.loc).Format(time.DateOnly)] += c.Count
	}

	out := make([]model.DailyCount, days)
	for i := range out {
		d := start.AddDate(0, 0, i)
		out[i] = model.DailyCount{Date: d, Count: byDay[d.Format(time.DateOnly)]}
	}
	return out, nil
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
