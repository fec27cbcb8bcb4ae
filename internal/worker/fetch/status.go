package fetch

import (
	"errors"
	"time"

	"github.com/hitoshi/episcout/internal/model"
)

// FetchResult はHTTPステータスコードに基づくフェッチ結果の分類。
type FetchResult int

const (
	// FetchResultOK はフェッチ成功（200）。
	FetchResultOK FetchResult = iota
	// FetchResultRetry は一時的な失敗（429/5xx）。同一スキャン内で1回だけ再試行する。
	FetchResultRetry
	// FetchResultFail はそのスキャンでは回復しない失敗（4xx等）。
	FetchResultFail
)

const (
	// defaultRetryDelay は一時的な失敗後の再試行までの待機時間。
	defaultRetryDelay = 2 * time.Second
	// maxRetryDelay は再試行待機時間の上限。
	maxRetryDelay = 10 * time.Second
)

// ClassifyHTTPStatus はHTTPステータスコードをフェッチ結果に分類する。
func ClassifyHTTPStatus(statusCode int) FetchResult {
	switch {
	case statusCode == 200:
		return FetchResultOK
	case statusCode == 429:
		return FetchResultRetry
	case statusCode >= 500:
		return FetchResultRetry
	default:
		return FetchResultFail
	}
}

// RetryDelay は再試行までの待機時間を返す。maxRetryDelayを超えない。
func RetryDelay(base time.Duration) time.Duration {
	if base <= 0 {
		return defaultRetryDelay
	}
	if base > maxRetryDelay {
		return maxRetryDelay
	}
	return base
}

// StatusOf はフェッチエラーをソース単位の結果に分類する。
func StatusOf(err error) model.SourceStatus {
	switch {
	case err == nil:
		return model.SourceStatusOK
	case errors.Is(err, model.ErrSourceTimeout):
		return model.SourceStatusTimeout
	default:
		return model.SourceStatusFailed
	}
}
