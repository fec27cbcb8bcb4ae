// Package feed は監視対象フィードのカタログとドメイン正規化、フィード検出を提供する。
package feed

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source は監視対象のフィードを表す。
// Domainは信頼判定の基準となるドメイン。省略時はURLのホストから導出する。
// Aliasesは記事リンクのホストがDomainと異なる場合（CDNやサブドメイン）の対応付け。
type Source struct {
	Name    string   `yaml:"name"`
	URL     string   `yaml:"url"`
	Domain  string   `yaml:"domain"`
	Aliases []string `yaml:"aliases"`
}

// Catalog はフィードソースの一覧。
type Catalog struct {
	Sources []Source `yaml:"sources"`
}

// defaultFeedURLs は既定で監視するベトナムの保健ニュースフィード。
var defaultFeedURLs = []string{
	"https://vnexpress.net/rss/suc-khoe.rss",
	"https://dantri.com.vn/rss/suc-khoe.rss",
	"https://tuoitre.vn/rss/suc-khoe.rss",
	"https://thanhnien.vn/rss/suc-khoe.rss",
	"https://suckhoedoisong.vn/rss/suc-khoe.rss",
	"https://vov.vn/rss/suc-khoe.rss",
	"https://tienphong.vn/rss/suc-khoe-210.rss",
	"https://laodong.vn/rss/suc-khoe.rss",
	"https://vietnamnet.vn/rss/suc-khoe.rss",
	"https://nhandan.vn/rss/y-te.rss",
	"http://cand.com.vn/rss/suc-khoe-c-5",
}

// DefaultCatalog は既定のフィードカタログを返す。
func DefaultCatalog() *Catalog {
	c := &Catalog{}
	for _, u := range defaultFeedURLs {
		c.Sources = append(c.Sources, Source{URL: u})
	}
	if err := c.normalize(); err != nil {
		panic(fmt.Sprintf("既定カタログが不正です: %v", err))
	}
	return c
}

// LoadCatalog はYAMLファイルからカタログを読み込む。
// pathが空の場合は既定カタログを返す。
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog はYAMLバイト列からカタログを解析する。
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse feed catalog yaml: %w", err)
	}
	if len(c.Sources) == 0 {
		return nil, fmt.Errorf("feed catalog has no sources")
	}
	if err := c.normalize(); err != nil {
		return nil, err
	}
	return &c, nil
}

// normalize は各ソースのドメイン・名前を補完し、URLの重複を検出する。
func (c *Catalog) normalize() error {
	seen := make(map[string]bool, len(c.Sources))
	for i := range c.Sources {
		s := &c.Sources[i]
		s.URL = strings.TrimSpace(s.URL)
		u, err := url.Parse(s.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid feed url in catalog: %q", s.URL)
		}
		if seen[s.URL] {
			return fmt.Errorf("duplicate feed url in catalog: %q", s.URL)
		}
		seen[s.URL] = true

		if s.Domain == "" {
			s.Domain = HostOf(s.URL)
		} else if s.Domain, err = NormalizeDomain(s.Domain); err != nil {
			return fmt.Errorf("invalid domain for %q: %w", s.URL, err)
		}
		if s.Name == "" {
			s.Name = s.Domain
		}

		aliases := make([]string, 0, len(s.Aliases))
		for _, a := range s.Aliases {
			na, err := NormalizeDomain(a)
			if err != nil {
				return fmt.Errorf("invalid alias for %q: %w", s.URL, err)
			}
			aliases = append(aliases, na)
		}
		s.Aliases = aliases
	}
	return nil
}

// AliasMap は別名ホストから正規ドメインへの対応表を返す。
func (c *Catalog) AliasMap() map[string]string {
	m := make(map[string]string)
	for _, s := range c.Sources {
		for _, a := range s.Aliases {
			m[a] = s.Domain
		}
	}
	return m
}

// Select はスキャン対象のソースを選択する。
// includeUnknownがfalseの場合は、ドメインまたは別名が信頼済みのソースのみを返す。
func (c *Catalog) Select(includeUnknown bool, trusted func(domain string) bool) []Source {
	var out []Source
	for _, s := range c.Sources {
		if includeUnknown || s.isTrusted(trusted) {
			out = append(out, s)
		}
	}
	return out
}

func (s Source) isTrusted(trusted func(domain string) bool) bool {
	if trusted(s.Domain) {
		return true
	}
	for _, a := range s.Aliases {
		if trusted(a) {
			return true
		}
	}
	return false
}
