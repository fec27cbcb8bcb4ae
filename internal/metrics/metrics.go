// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// フェッチャー、スキャンオーケストレーター、トリアージから利用する。
type MetricsCollector interface {
	RecordSourceStatus(source string, status string)
	RecordHTTPStatus(statusCode int)
	RecordFetchLatency(duration time.Duration)
	RecordScan(duration time.Duration, matched, savedTrusted, unknown, duplicates int)
	RecordTriageSaved(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	sourceStatus *prometheus.CounterVec
	httpStatus   *prometheus.CounterVec
	fetchLatency prometheus.Histogram
	scans        prometheus.Counter
	scanDuration prometheus.Histogram
	matched      prometheus.Counter
	saved        *prometheus.CounterVec
	unknown      prometheus.Counter
	duplicates   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sourceStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "episcout_source_fetch_total",
			Help: "ソース別・結果別のフェッチ回数",
		}, []string{"source", "status"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "episcout_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "episcout_fetch_latency_seconds",
			Help:    "フィードフェッチのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		scans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "episcout_scans_total",
			Help: "完了したスキャンの合計数",
		}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "episcout_scan_duration_seconds",
			Help:    "スキャン1サイクルの所要時間（秒）",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		matched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "episcout_matched_articles_total",
			Help: "キーワードに一致した候補記事の合計数",
		}),
		saved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "episcout_articles_saved_total",
			Help: "保存経路別の新規保存記事数",
		}, []string{"origin"}),
		unknown: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "episcout_unknown_articles_total",
			Help: "レビュー待ちとして返された未知ソース記事の合計数",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "episcout_duplicate_articles_total",
			Help: "既に保存済みだった一致記事の合計数",
		}),
	}

	reg.MustRegister(
		c.sourceStatus,
		c.httpStatus,
		c.fetchLatency,
		c.scans,
		c.scanDuration,
		c.matched,
		c.saved,
		c.unknown,
		c.duplicates,
	)

	return c
}

// RecordSourceStatus はソース単位のフェッチ結果（ok/failed/timeout）を記録する。
func (c *Collector) RecordSourceStatus(source string, status string) {
	c.sourceStatus.WithLabelValues(source, status).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordFetchLatency はフェッチのレイテンシを記録する。
func (c *Collector) RecordFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordScan はスキャン1サイクルの結果を記録する。
func (c *Collector) RecordScan(duration time.Duration, matched, savedTrusted, unknown, duplicates int) {
	c.scans.Inc()
	c.scanDuration.Observe(duration.Seconds())
	c.matched.Add(float64(matched))
	c.saved.WithLabelValues("scan").Add(float64(savedTrusted))
	c.unknown.Add(float64(unknown))
	c.duplicates.Add(float64(duplicates))
}

// RecordTriageSaved は人手のトリアージで保存された記事数を記録する。
func (c *Collector) RecordTriageSaved(count int) {
	c.saved.WithLabelValues("triage").Add(float64(count))
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使用する。
type Nop struct{}

func (Nop) RecordSourceStatus(string, string) {}
func (Nop) RecordHTTPStatus(int) {}
func (Nop) RecordFetchLatency(time.Duration) {}
func (Nop) RecordScan(time.Duration, int, int, int, int) {}
func (Nop) RecordTriageSaved(int) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
