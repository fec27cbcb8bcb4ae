package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/episcout/internal/middleware"
	"github.com/hitoshi/episcout/internal/model"
)

// maxRequestBodySize はJSONリクエストボディの上限（1MB）。
const maxRequestBodySize = 1 << 20

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// writeInvalidRequest はリクエストボディの解析失敗を400で返す。
func writeInvalidRequest(w http.ResponseWriter, message string) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     model.ErrCodeInvalidRequest,
		Message:  message,
		Category: "validation",
		Action:   "リクエストの形式を確認してください。",
	})
}

// decodeJSON はリクエストボディをvにデコードする。
// 解析に失敗した場合は400を書き込み、falseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeInvalidRequest(w, "リクエストボディが不正です。")
		return false
	}
	return true
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// ストア到達不能は503、APIError以外のエラーは500として扱う。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	if errors.Is(err, model.ErrStoreUnavailable) {
		slog.Error("store unavailable", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewStoreUnavailableError())
		return
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidRequest,
		model.ErrCodeInvalidScan,
		model.ErrCodeInvalidKeyword,
		model.ErrCodeInvalidDomain,
		model.ErrCodeInvalidArticle,
		model.ErrCodeInvalidPagination,
		model.ErrCodeInvalidTrendDays:
		return http.StatusBadRequest
	case model.ErrCodeDuplicateKeyword:
		return http.StatusConflict
	case model.ErrCodeKeywordNotFound:
		return http.StatusNotFound
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case model.ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func unmarshalJSON(body []byte, v any) bool {
	return json.Unmarshal(body, v) == nil
}

// decodeArticleRequests は記事の配列または単一の記事オブジェクトをデコードする。
func decodeArticleRequests(body []byte) ([]articleRequest, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, false
	}
	switch trimmed[0] {
	case '[':
		var reqs []articleRequest
		if !unmarshalJSON(trimmed, &reqs) {
			return nil, false
		}
		return reqs, true
	case '{':
		var req articleRequest
		if !unmarshalJSON(trimmed, &req) {
			return nil, false
		}
		return []articleRequest{req}, true
	default:
		return nil, false
	}
}
