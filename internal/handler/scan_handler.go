package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/hitoshi/episcout/internal/model"
)

const (
	// defaultArticlesLimit は記事一覧の1回の取得件数（デフォルト）。
	defaultArticlesLimit = 100
	// maxArticlesLimit は記事一覧の1回の取得件数の上限。
	maxArticlesLimit = 500
)

// ScanServiceInterface はスキャンハンドラーが必要とするサービスインターフェース。
type ScanServiceInterface interface {
	// RunScan はスキャンを1サイクル実行する。
	RunScan(ctx context.Context, req model.ScanRequest) (*model.ScanResult, error)
}

// ArticleListerInterface は記事一覧の取得インターフェース。
type ArticleListerInterface interface {
	// List はpublished_date降順で記事を取得する。
	List(ctx context.Context, offset, limit int) ([]model.Article, error)
}

// TriageServiceInterface は未知ソース記事のトリアージインターフェース。
type TriageServiceInterface interface {
	// SaveArticles は選択された記事を保存する。
	SaveArticles(ctx context.Context, selected []model.Article) (*model.SaveResult, error)
	// AddWhitelist はドメインを信頼済みとして登録する。
	AddWhitelist(ctx context.Context, domain string) (*model.WhitelistDomain, error)
}

// ScanHandler はスキャンと記事のHTTPハンドラー。
type ScanHandler struct {
	scanner  ScanServiceInterface
	articles ArticleListerInterface
	triage   TriageServiceInterface
}

// NewScanHandler はScanHandlerを生成する。
func NewScanHandler(scanner ScanServiceInterface, articles ArticleListerInterface, triage TriageServiceInterface) *ScanHandler {
	return &ScanHandler{
		scanner:  scanner,
		articles: articles,
		triage:   triage,
	}
}

// Scan はスキャンを実行する。
// POST /api/scan
// ボディは省略可能で、省略時は信頼済みソースのみを日付フィルタなしでスキャンする。
func (h *ScanHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if r.ContentLength != 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeInvalidRequest(w, "リクエストボディが不正です。")
			return
		}
		if len(body) > 0 && !unmarshalJSON(body, &req) {
			writeInvalidRequest(w, "リクエストボディが不正です。")
			return
		}
	}

	result, err := h.scanner.RunScan(r.Context(), model.ScanRequest{
		FetchUnknown:     req.FetchUnknown,
		DaysLimit:        req.DaysLimit,
		MaxExecutionTime: req.MaxExecutionTime,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toScanResultResponse(result))
}

// ListArticles は保存済み記事の一覧を取得する。
// GET /api/articles?skip=0&limit=100
func (h *ScanHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	skip, ok := queryInt(r, "skip", 0)
	if !ok || skip < 0 {
		handleServiceError(w, model.NewInvalidPaginationError("skip"))
		return
	}
	limit, ok := queryInt(r, "limit", defaultArticlesLimit)
	if !ok || limit < 0 {
		handleServiceError(w, model.NewInvalidPaginationError("limit"))
		return
	}
	limit = min(limit, maxArticlesLimit)

	articles, err := h.articles.List(r.Context(), skip, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toArticleResponses(articles))
}

// SaveArticles はトリアージで選択された記事を保存する。
// POST /api/articles/save
// ボディは記事の配列、または単一の記事オブジェクト。
func (h *ScanHandler) SaveArticles(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeInvalidRequest(w, "リクエストボディが不正です。")
		return
	}

	reqs, ok := decodeArticleRequests(body)
	if !ok {
		writeInvalidRequest(w, "記事の配列または記事オブジェクトを送信してください。")
		return
	}

	selected := make([]model.Article, len(reqs))
	for i, req := range reqs {
		selected[i] = req.toModel()
	}

	result, err := h.triage.SaveArticles(r.Context(), selected)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, saveResultResponse{Saved: result.Saved, Skipped: result.Skipped})
}

// trustSourceRequest は未知ソースを信頼済みに昇格するリクエストのボディ。
// domainにはホスト名または記事URLを指定できる。
type trustSourceRequest struct {
	Domain string `json:"domain"`
}

// TrustSource は未知ソースのドメインをホワイトリストに追加する。
// 次回以降のスキャンから適用される。
// POST /api/triage/whitelist
func (h *ScanHandler) TrustSource(w http.ResponseWriter, r *http.Request) {
	var req trustSourceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.triage.AddWhitelist(r.Context(), req.Domain)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toWhitelistResponse(*entry))
}

// queryInt はクエリパラメータを整数として読み取る。未指定の場合はdefを返す。
func queryInt(r *http.Request, key string, def int) (int, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
