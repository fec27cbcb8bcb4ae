// Package registry は監視キーワードと信頼済みドメインの管理を提供する。
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/episcout/internal/feed"
	"github.com/hitoshi/episcout/internal/model"
	"github.com/hitoshi/episcout/internal/repository"
)

// Service はキーワードとホワイトリストの管理を行うサービス層。
// ここでの編集は実行中のスキャンには影響せず、次回以降のスキャンから適用される。
type Service struct {
	keywords  repository.KeywordRepository
	whitelist repository.WhitelistRepository
	logger    *slog.Logger
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	keywords repository.KeywordRepository,
	whitelist repository.WhitelistRepository,
	logger *slog.Logger,
) *Service {
	return &Service{
		keywords:  keywords,
		whitelist: whitelist,
		logger:    logger,
		now:       time.Now,
	}
}

// ListKeywords は新しい順にキーワード一覧を返す。
func (s *Service) ListKeywords(ctx context.Context) ([]model.Keyword, error) {
	keywords, err := s.keywords.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("キーワード一覧の取得に失敗しました: %w", err)
	}
	return keywords, nil
}

// CreateKeyword はキーワードを登録する。
// 前後の空白を除去し、大文字小文字を区別せずに既存のキーワードと重複する場合はエラーを返す。
func (s *Service) CreateKeyword(ctx context.Context, text string) (*model.Keyword, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, model.NewInvalidKeywordError("キーワードが空です")
	}
	if n := utf8.RuneCountInString(text); n > model.MaxKeywordRunes {
		return nil, model.NewInvalidKeywordError(fmt.Sprintf("%d文字を超えています（%d文字）", model.MaxKeywordRunes, n))
	}
	// matched_keywordsはカンマ区切りで保存される
	if strings.Contains(text, ",") {
		return nil, model.NewInvalidKeywordError("カンマを含めることはできません")
	}

	existing, err := s.keywords.FindByText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("キーワードの検索に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateKeywordError(existing.Text)
	}

	kw := &model.Keyword{
		ID:        uuid.New().String(),
		Text:      text,
		CreatedAt: s.now(),
	}
	if err := s.keywords.Create(ctx, kw); err != nil {
		return nil, fmt.Errorf("キーワードの作成に失敗しました: %w", err)
	}

	s.logger.Info("キーワードを登録しました",
		slog.String("keyword_id", kw.ID),
		slog.String("keyword", kw.Text),
	)
	return kw, nil
}

// DeleteKeyword はキーワードを削除する。存在しない場合はエラーを返す。
func (s *Service) DeleteKeyword(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return model.NewKeywordNotFoundError(id)
	}

	deleted, err := s.keywords.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("キーワードの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewKeywordNotFoundError(id)
	}

	s.logger.Info("キーワードを削除しました", slog.String("keyword_id", id))
	return nil
}

// ListWhitelist は無効なものを含む全ドメインを返す。
func (s *Service) ListWhitelist(ctx context.Context) ([]model.WhitelistDomain, error) {
	domains, err := s.whitelist.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ホワイトリストの取得に失敗しました: %w", err)
	}
	return domains, nil
}

// UpsertWhitelist はドメインを正規化して登録し、有効フラグを設定する。
// ホスト名と記事URLのどちらも受け付ける。
func (s *Service) UpsertWhitelist(ctx context.Context, domain string, active bool) (*model.WhitelistDomain, error) {
	normalized, err := feed.NormalizeDomain(domain)
	if err != nil {
		return nil, model.NewInvalidDomainError(domain)
	}

	w, err := s.whitelist.Upsert(ctx, normalized, active)
	if err != nil {
		return nil, fmt.Errorf("ホワイトリストの更新に失敗しました: %w", err)
	}

	s.logger.Info("ホワイトリストを更新しました",
		slog.String("domain", w.Domain),
		slog.Bool("is_active", w.IsActive),
	)
	return w, nil
}
