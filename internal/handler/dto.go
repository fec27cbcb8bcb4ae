package handler

import (
	"strings"
	"time"

	"github.com/hitoshi/episcout/internal/model"
)

// articleResponse は記事のAPIレスポンス。
// keywords_matchedとtagsは表示用にカンマ区切りの文字列で返す。
type articleResponse struct {
	ID              string    `json:"id,omitempty"`
	Title           string    `json:"title"`
	Link            string    `json:"link"`
	Summary         string    `json:"summary"`
	Source          string    `json:"source"`
	PublishedDate   time.Time `json:"published_date"`
	IsDateEstimated bool      `json:"is_date_estimated"`
	KeywordsMatched string    `json:"keywords_matched"`
	Tags            string    `json:"tags"`
	CaseCount       int       `json:"case_count"`
	IsWhitelisted   bool      `json:"is_whitelisted"`
}

func toArticleResponse(a model.Article) articleResponse {
	return articleResponse{
		ID:              a.ID,
		Title:           a.Title,
		Link:            a.Link,
		Summary:         a.Summary,
		Source:          a.Source,
		PublishedDate:   a.PublishedDate,
		IsDateEstimated: a.IsDateEstimated,
		KeywordsMatched: a.MatchedKeywordsString(),
		Tags:            model.JoinKeywords(a.Tags),
		CaseCount:       a.CaseCount,
		IsWhitelisted:   a.IsWhitelisted,
	}
}

func toArticleResponses(articles []model.Article) []articleResponse {
	out := make([]articleResponse, len(articles))
	for i, a := range articles {
		out[i] = toArticleResponse(a)
	}
	return out
}

// articleRequest はトリアージ保存リクエストの記事。スキャン結果の記事をそのまま受け付ける。
// is_whitelistedとcase_countはサーバー側で再設定するため受け取らない。
type articleRequest struct {
	Title           string     `json:"title"`
	Link            string     `json:"link"`
	Summary         string     `json:"summary"`
	Source          string     `json:"source"`
	PublishedDate   *time.Time `json:"published_date"`
	IsDateEstimated bool       `json:"is_date_estimated"`
	KeywordsMatched string     `json:"keywords_matched"`
	Tags            string     `json:"tags"`
}

func (r articleRequest) toModel() model.Article {
	a := model.Article{
		Title:           r.Title,
		Link:            r.Link,
		Summary:         r.Summary,
		Source:          strings.TrimSpace(r.Source),
		IsDateEstimated: r.IsDateEstimated,
		MatchedKeywords: model.SplitKeywords(r.KeywordsMatched),
		Tags:            model.SplitKeywords(r.Tags),
	}
	if r.PublishedDate != nil {
		a.PublishedDate = *r.PublishedDate
	}
	return a
}

// scanRequest はスキャン要求のボディ。すべて省略可能。
type scanRequest struct {
	FetchUnknown     bool `json:"fetch_unknown"`
	DaysLimit        int  `json:"days_limit"`
	MaxExecutionTime int  `json:"max_execution_time"`
}

// sourceReportResponse はソース単位のフェッチ結果。
type sourceReportResponse struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	Status     string `json:"status"`
	Candidates int    `json:"candidates"`
	Error      string `json:"error,omitempty"`
}

// scanResultResponse はスキャン結果のAPIレスポンス。
type scanResultResponse struct {
	SavedTrustedCount int                    `json:"saved_trusted_count"`
	UnknownArticles   []articleResponse      `json:"unknown_articles"`
	MatchedCount      int                    `json:"matched_count"`
	DuplicateCount    int                    `json:"duplicate_count"`
	Sources           []sourceReportResponse `json:"sources"`
}

func toScanResultResponse(r *model.ScanResult) scanResultResponse {
	sources := make([]sourceReportResponse, len(r.Sources))
	for i, s := range r.Sources {
		sources[i] = sourceReportResponse{
			Name:       s.Name,
			URL:        s.URL,
			Status:     string(s.Status),
			Candidates: s.Candidates,
			Error:      s.Error,
		}
	}
	return scanResultResponse{
		SavedTrustedCount: r.SavedTrustedCount,
		UnknownArticles:   toArticleResponses(r.UnknownArticles),
		MatchedCount:      r.MatchedCount,
		DuplicateCount:    r.DuplicateCount,
		Sources:           sources,
	}
}

// saveResultResponse はトリアージ保存結果のAPIレスポンス。
type saveResultResponse struct {
	Saved   int `json:"saved"`
	Skipped int `json:"skipped"`
}

// keywordResponse はキーワードのAPIレスポンス。
type keywordResponse struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

func toKeywordResponse(k model.Keyword) keywordResponse {
	return keywordResponse{ID: k.ID, Text: k.Text, CreatedAt: k.CreatedAt}
}

// whitelistResponse はホワイトリストドメインのAPIレスポンス。
type whitelistResponse struct {
	ID       string `json:"id"`
	Domain   string `json:"domain"`
	IsActive bool   `json:"is_active"`
}

func toWhitelistResponse(w model.WhitelistDomain) whitelistResponse {
	return whitelistResponse{ID: w.ID, Domain: w.Domain, IsActive: w.IsActive}
}

// overviewResponse はダッシュボード概況のAPIレスポンス。
type overviewResponse struct {
	TotalArticles int       `json:"total_articles"`
	TotalCases    int       `json:"total_cases"`
	AlertCount    int       `json:"alert_count"`
	LastUpdated   time.Time `json:"last_updated"`
}

// trendPointResponse は日別推移の1日分。
type trendPointResponse struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}
