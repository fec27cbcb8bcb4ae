package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/episcout/internal/model"
)

// RegistryServiceInterface はキーワードとホワイトリストの管理インターフェース。
type RegistryServiceInterface interface {
	ListKeywords(ctx context.Context) ([]model.Keyword, error)
	CreateKeyword(ctx context.Context, text string) (*model.Keyword, error)
	DeleteKeyword(ctx context.Context, id string) error
	ListWhitelist(ctx context.Context) ([]model.WhitelistDomain, error)
	UpsertWhitelist(ctx context.Context, domain string, active bool) (*model.WhitelistDomain, error)
}

// RegistryHandler はキーワードとホワイトリストのHTTPハンドラー。
type RegistryHandler struct {
	service RegistryServiceInterface
}

// NewRegistryHandler はRegistryHandlerを生成する。
func NewRegistryHandler(service RegistryServiceInterface) *RegistryHandler {
	return &RegistryHandler{service: service}
}

type createKeywordRequest struct {
	Text string `json:"text"`
}

// upsertWhitelistRequest はホワイトリスト登録・更新のボディ。is_activeの省略時はtrue。
type upsertWhitelistRequest struct {
	Domain   string `json:"domain"`
	IsActive *bool  `json:"is_active"`
}

// ListKeywords はキーワード一覧を返す。
// GET /api/keywords
func (h *RegistryHandler) ListKeywords(w http.ResponseWriter, r *http.Request) {
	keywords, err := h.service.ListKeywords(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]keywordResponse, len(keywords))
	for i, k := range keywords {
		out[i] = toKeywordResponse(k)
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateKeyword はキーワードを登録する。
// POST /api/keywords
func (h *RegistryHandler) CreateKeyword(w http.ResponseWriter, r *http.Request) {
	var req createKeywordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	k, err := h.service.CreateKeyword(r.Context(), req.Text)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toKeywordResponse(*k))
}

// DeleteKeyword はキーワードを削除する。
// DELETE /api/keywords/{id}
func (h *RegistryHandler) DeleteKeyword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteKeyword(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "id": id})
}

// ListWhitelist はホワイトリストを返す。
// GET /api/whitelist
func (h *RegistryHandler) ListWhitelist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListWhitelist(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]whitelistResponse, len(entries))
	for i, e := range entries {
		out[i] = toWhitelistResponse(e)
	}
	writeJSON(w, http.StatusOK, out)
}

// UpsertWhitelist はドメインを登録し、または有効フラグを更新する。
// POST /api/whitelist
func (h *RegistryHandler) UpsertWhitelist(w http.ResponseWriter, r *http.Request) {
	var req upsertWhitelistRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	entry, err := h.service.UpsertWhitelist(r.Context(), req.Domain, active)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toWhitelistResponse(*entry))
}
