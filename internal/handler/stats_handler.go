package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/episcout/internal/model"
	"github.com/hitoshi/episcout/internal/stats"
)

// StatsServiceInterface はダッシュボード集計のインターフェース。
type StatsServiceInterface interface {
	Overview(ctx context.Context) (*stats.Overview, error)
	Trends(ctx context.Context, days int) ([]model.DailyCount, error)
}

// StatsHandler はダッシュボード集計のHTTPハンドラー。
type StatsHandler struct {
	service StatsServiceInterface
}

// NewStatsHandler はStatsHandlerを生成する。
func NewStatsHandler(service StatsServiceInterface) *StatsHandler {
	return &StatsHandler{service: service}
}

// Overview は概況を返す。
// GET /api/stats/overview
func (h *StatsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Overview(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, overviewResponse{
		TotalArticles: o.TotalArticles,
		TotalCases:    o.TotalCases,
		AlertCount:    o.AlertCount,
		LastUpdated:   o.LastUpdated.UTC(),
	})
}

// Trends は日別の記事件数を返す。
// GET /api/stats/trends?days=7
func (h *StatsHandler) Trends(w http.ResponseWriter, r *http.Request) {
	days, ok := queryInt(r, "days", stats.DefaultTrendDays)
	if !ok {
		handleServiceError(w, model.NewInvalidTrendDaysError(0, stats.MaxTrendDays))
		return
	}

	series, err := h.service.Trends(r.Context(), days)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]trendPointResponse, len(series))
	for i, d := range series {
		out[i] = trendPointResponse{Date: d.Date.Format(time.DateOnly), Count: d.Count}
	}
	writeJSON(w, http.StatusOK, out)
}
