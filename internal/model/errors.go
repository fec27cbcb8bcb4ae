package model

import (
	"errors"
	"fmt"
)

// スキャンとストアのエラー分類。
// ソース単位のエラーはスキャン全体の失敗には昇格しない。
var (
	// ErrSourceFetch はソース単位のフェッチ失敗（ネットワーク、HTTPステータス等）。
	ErrSourceFetch = errors.New("source fetch failed")
	// ErrMalformedFeed はフィードの解析失敗。ErrSourceFetchとして扱われる。
	ErrMalformedFeed = fmt.Errorf("malformed feed: %w", ErrSourceFetch)
	// ErrSourceTimeout は個別タイムアウトまたは全体期限によるフェッチ打ち切り。
	ErrSourceTimeout = fmt.Errorf("source fetch timed out: %w", ErrSourceFetch)
	// ErrStoreUnavailable はストアに到達できない致命的エラー。現在の操作は失敗する。
	ErrStoreUnavailable = errors.New("store unavailable")
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, registry, scan, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeInvalidScan       = "INVALID_SCAN_REQUEST"
	ErrCodeInvalidKeyword    = "INVALID_KEYWORD"
	ErrCodeDuplicateKeyword  = "DUPLICATE_KEYWORD"
	ErrCodeKeywordNotFound   = "KEYWORD_NOT_FOUND"
	ErrCodeInvalidDomain     = "INVALID_DOMAIN"
	ErrCodeInvalidArticle    = "INVALID_ARTICLE"
	ErrCodeInvalidPagination = "INVALID_PAGINATION"
	ErrCodeInvalidTrendDays  = "INVALID_TREND_DAYS"
	ErrCodeStoreUnavailable  = "STORE_UNAVAILABLE"
	ErrCodeRateLimited       = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// NewInvalidScanRequestError はスキャン要求の検証エラーを生成する。
func NewInvalidScanRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidScan,
		Message:  fmt.Sprintf("無効なスキャン要求です: %s", reason),
		Category: "validation",
		Action:   fmt.Sprintf("days_limit には0〜%d、max_execution_time には0〜%d の整数を指定してください。", MaxDaysLimit, MaxExecutionMinutes),
	}
}

// NewInvalidKeywordError はキーワード検証エラーを生成する。
// reasonには不正の理由を渡す。
func NewInvalidKeywordError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidKeyword,
		Message:  fmt.Sprintf("無効なキーワードです: %s", reason),
		Category: "validation",
		Action:   fmt.Sprintf("カンマを含まない%d文字以内のキーワードを入力してください。", MaxKeywordRunes),
	}
}

// NewDuplicateKeywordError は既に登録済みのキーワードを再登録しようとした場合のエラーを生成する。
func NewDuplicateKeywordError(text string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateKeyword,
		Message:  fmt.Sprintf("キーワードは既に登録されています: %s", text),
		Category: "registry",
		Action:   "キーワード一覧を確認してください。",
	}
}

// NewKeywordNotFoundError はキーワードが見つからない場合のエラーを生成する。
func NewKeywordNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeKeywordNotFound,
		Message:  fmt.Sprintf("指定されたキーワードが見つかりません: %s", id),
		Category: "registry",
		Action:   "キーワードIDを確認してください。",
	}
}

// NewInvalidDomainError はドメイン検証エラーを生成する。
func NewInvalidDomainError(input string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDomain,
		Message:  fmt.Sprintf("無効なドメインです: %q", input),
		Category: "validation",
		Action:   "vnexpress.net のようなホスト名、または記事のURLを指定してください。",
	}
}

// NewInvalidArticleError は保存対象記事の検証エラーを生成する。
func NewInvalidArticleError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidArticle,
		Message:  fmt.Sprintf("無効な記事です: %s", reason),
		Category: "validation",
		Action:   "スキャン結果の記事をそのまま送信してください。",
	}
}

// NewInvalidPaginationError はページネーションパラメータの検証エラーを生成する。
func NewInvalidPaginationError(param string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPagination,
		Message:  fmt.Sprintf("無効なページネーションパラメータです: %s", param),
		Category: "validation",
		Action:   "skip と limit には0以上の整数を指定してください。",
	}
}

// NewInvalidTrendDaysError は推移集計の日数の検証エラーを生成する。
func NewInvalidTrendDaysError(days, max int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTrendDays,
		Message:  fmt.Sprintf("無効な集計日数です: %d", days),
		Category: "validation",
		Action:   fmt.Sprintf("days には1以上%d以下の整数を指定してください。", max),
	}
}

// NewStoreUnavailableError はストア到達不能時のユーザー向けエラーを生成する。
func NewStoreUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeStoreUnavailable,
		Message:  "データベースに接続できません。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewRateLimitedError はレート制限超過時のエラーを生成する。
func NewRateLimitedError(retryAfterSec int) *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   fmt.Sprintf("%d秒ほど待ってから再度お試しください。", retryAfterSec),
	}
}

// NewInternalError は内部エラーのユーザー向けエラーを生成する。詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// StoreError はストア操作のエラーをErrStoreUnavailableでラップする。
// errがnilの場合はnilを返す。
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
