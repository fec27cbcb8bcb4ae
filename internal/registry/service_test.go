package registry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/hitoshi/episcout/internal/model"
)

// --- モック ---

type mockKeywordRepo struct {
	listFn       func(ctx context.Context) ([]model.Keyword, error)
	findByTextFn func(ctx context.Context, text string) (*model.Keyword, error)
	createFn     func(ctx context.Context, kw *model.Keyword) error
	deleteFn     func(ctx context.Context, id string) (bool, error)
}

func (m *mockKeywordRepo) List(ctx context.Context) ([]model.Keyword, error) {
	return m.listFn(ctx)
}
func (m *mockKeywordRepo) FindByText(ctx context.Context, text string) (*model.Keyword, error) {
	if m.findByTextFn != nil {
		return m.findByTextFn(ctx, text)
	}
	return nil, nil
}
func (m *mockKeywordRepo) Create(ctx context.Context, kw *model.Keyword) error {
	if m.createFn != nil {
		return m.createFn(ctx, kw)
	}
	return nil
}
func (m *mockKeywordRepo) Delete(ctx context.Context, id string) (bool, error) {
	return m.deleteFn(ctx, id)
}

type mockWhitelistRepo struct {
	listFn   func(ctx context.Context) ([]model.WhitelistDomain, error)
	upsertFn func(ctx context.Context, domain string, active bool) (*model.WhitelistDomain, error)
}

func (m *mockWhitelistRepo) List(ctx context.Context) ([]model.WhitelistDomain, error) {
	return m.listFn(ctx)
}
func (m *mockWhitelistRepo) Upsert(ctx context.Context, domain string, active bool) (*model.WhitelistDomain, error) {
	return m.upsertFn(ctx, domain, active)
}

func newTestService(kw *mockKeywordRepo, wl *mockWhitelistRepo) *Service {
	var buf bytes.Buffer
	return NewService(kw, wl, slog.New(slog.NewJSONHandler(&buf, nil)))
}

// --- テスト ---

func TestCreateKeyword_TrimsAndPersists(t *testing.T) {
	var created *model.Keyword
	svc := newTestService(&mockKeywordRepo{
		createFn: func(_ context.Context, kw *model.Keyword) error {
			created = kw
			return nil
		},
	}, &mockWhitelistRepo{})

	kw, err := svc.CreateKeyword(context.Background(), "  Sốt Xuất Huyết  ")
	if err != nil {
		t.Fatalf("CreateKeywordでエラー: %v", err)
	}
	if kw.Text != "Sốt Xuất Huyết" {
		t.Errorf("Text = %q, 前後の空白のみ除去し大文字小文字は保持するべき", kw.Text)
	}
	if _, err := uuid.Parse(kw.ID); err != nil {
		t.Errorf("IDがUUIDではない: %q", kw.ID)
	}
	if created == nil || created.ID != kw.ID {
		t.Error("リポジトリに保存されていない")
	}
	if kw.CreatedAt.IsZero() {
		t.Error("CreatedAtが設定されていない")
	}
}

func TestCreateKeyword_Empty(t *testing.T) {
	svc := newTestService(&mockKeywordRepo{}, &mockWhitelistRepo{})

	for _, in := range []string{"", "   ", "\t\n"} {
		_, err := svc.CreateKeyword(context.Background(), in)
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidKeyword {
			t.Errorf("CreateKeyword(%q): err = %v, want INVALID_KEYWORD", in, err)
		}
	}
}

func TestCreateKeyword_InvalidText(t *testing.T) {
	repo := &mockKeywordRepo{
		findByTextFn: func(_ context.Context, _ string) (*model.Keyword, error) {
			t.Error("検証エラー時はFindByTextを呼ばない")
			return nil, nil
		},
		createFn: func(_ context.Context, _ *model.Keyword) error {
			t.Error("検証エラー時はCreateを呼ばない")
			return nil
		},
	}
	svc := newTestService(repo, &mockWhitelistRepo{})

	tests := []struct {
		name string
		in   string
	}{
		{"256文字", strings.Repeat("a", model.MaxKeywordRunes+1)},
		{"300文字のベトナム語", strings.Repeat("ố", 300)},
		{"カンマを含む", "sốt, xuất huyết"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateKeyword(context.Background(), tt.in)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidKeyword {
				t.Errorf("err = %v, want INVALID_KEYWORD", err)
			}
		})
	}
}

func TestCreateKeyword_MaxLengthAccepted(t *testing.T) {
	svc := newTestService(&mockKeywordRepo{}, &mockWhitelistRepo{})

	text := strings.Repeat("ố", model.MaxKeywordRunes)
	kw, err := svc.CreateKeyword(context.Background(), text)
	if err != nil {
		t.Fatalf("%d文字のキーワードでエラー: %v", model.MaxKeywordRunes, err)
	}
	if kw.Text != text {
		t.Errorf("Text = %q, want %q", kw.Text, text)
	}
}

func TestCreateKeyword_Duplicate(t *testing.T) {
	svc := newTestService(&mockKeywordRepo{
		findByTextFn: func(_ context.Context, text string) (*model.Keyword, error) {
			return &model.Keyword{ID: "k-1", Text: "sởi"}, nil
		},
		createFn: func(_ context.Context, _ *model.Keyword) error {
			t.Error("重複時はCreateを呼ばない")
			return nil
		},
	}, &mockWhitelistRepo{})

	_, err := svc.CreateKeyword(context.Background(), "SỞI")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDuplicateKeyword {
		t.Errorf("err = %v, want DUPLICATE_KEYWORD", err)
	}
}

func TestCreateKeyword_StoreUnavailable(t *testing.T) {
	svc := newTestService(&mockKeywordRepo{
		findByTextFn: func(_ context.Context, _ string) (*model.Keyword, error) {
			return nil, model.StoreError("find", errors.New("down"))
		},
	}, &mockWhitelistRepo{})

	if _, err := svc.CreateKeyword(context.Background(), "sởi"); !errors.Is(err, model.ErrStoreUnavailable) {
		t.Errorf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestDeleteKeyword(t *testing.T) {
	id := uuid.New().String()
	tests := []struct {
		name     string
		id       string
		deleted  bool
		wantCode string
	}{
		{"削除成功", id, true, ""},
		{"存在しない", id, false, model.ErrCodeKeywordNotFound},
		{"UUIDでない", "not-a-uuid", false, model.ErrCodeKeywordNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&mockKeywordRepo{
				deleteFn: func(_ context.Context, _ string) (bool, error) { return tt.deleted, nil },
			}, &mockWhitelistRepo{})

			err := svc.DeleteKeyword(context.Background(), tt.id)
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("エラーは返されないべき: %v", err)
				}
				return
			}
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != tt.wantCode {
				t.Errorf("err = %v, want %s", err, tt.wantCode)
			}
		})
	}
}

func TestListKeywords_WrapsError(t *testing.T) {
	svc := newTestService(&mockKeywordRepo{
		listFn: func(_ context.Context) ([]model.Keyword, error) {
			return nil, model.StoreError("list", errors.New("down"))
		},
	}, &mockWhitelistRepo{})

	if _, err := svc.ListKeywords(context.Background()); !errors.Is(err, model.ErrStoreUnavailable) {
		t.Errorf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestUpsertWhitelist_NormalizesDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"vnexpress.net", "vnexpress.net"},
		{"https://www.VnExpress.net/suc-khoe/abc.html", "vnexpress.net"},
		{"Tuoitre.vn:443", "tuoitre.vn"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var got string
			svc := newTestService(&mockKeywordRepo{}, &mockWhitelistRepo{
				upsertFn: func(_ context.Context, domain string, active bool) (*model.WhitelistDomain, error) {
					got = domain
					return &model.WhitelistDomain{Domain: domain, IsActive: active}, nil
				},
			})

			w, err := svc.UpsertWhitelist(context.Background(), tt.in, true)
			if err != nil {
				t.Fatalf("UpsertWhitelistでエラー: %v", err)
			}
			if got != tt.want || w.Domain != tt.want {
				t.Errorf("domain = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUpsertWhitelist_InvalidDomain(t *testing.T) {
	svc := newTestService(&mockKeywordRepo{}, &mockWhitelistRepo{
		upsertFn: func(_ context.Context, _ string, _ bool) (*model.WhitelistDomain, error) {
			t.Error("不正なドメインでUpsertを呼ばない")
			return nil, nil
		},
	})

	for _, in := range []string{"", "localhost", "not a domain"} {
		_, err := svc.UpsertWhitelist(context.Background(), in, true)
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidDomain {
			t.Errorf("UpsertWhitelist(%q): err = %v, want INVALID_DOMAIN", in, err)
		}
	}
}

func TestUpsertWhitelist_Deactivate(t *testing.T) {
	svc := newTestService(&mockKeywordRepo{}, &mockWhitelistRepo{
		upsertFn: func(_ context.Context, domain string, active bool) (*model.WhitelistDomain, error) {
			return &model.WhitelistDomain{Domain: domain, IsActive: active}, nil
		},
	})

	w, err := svc.UpsertWhitelist(context.Background(), "vov.vn", false)
	if err != nil {
		t.Fatalf("UpsertWhitelistでエラー: %v", err)
	}
	if w.IsActive {
		t.Error("IsActive=falseで更新されるべき")
	}
}
