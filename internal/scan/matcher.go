// Package scan はキーワード照合、信頼判定、スキャンの実行とトリアージを提供する。
package scan

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/hitoshi/episcout/internal/model"
)

// MatchMode はキーワード照合の正規化方式。
type MatchMode string

const (
	// MatchExact は大文字小文字のみを区別しない照合。声調記号は区別する。
	MatchExact MatchMode = "exact"
	// MatchFold はベトナム語の声調記号・ダイアクリティカルマークも区別しない照合。
	MatchFold MatchMode = "fold"
)

// ParseMatchMode は文字列をMatchModeに変換する。
func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchExact:
		return MatchExact, nil
	case MatchFold:
		return MatchFold, nil
	default:
		return "", fmt.Errorf("unknown match mode: %q", s)
	}
}

// Match はキーワードに一致した候補記事と、一致したキーワードの集合。
type Match struct {
	Candidate model.Candidate
	// Keywords はスナップショット順に並んだ一致キーワード（登録時の表記）。
	Keywords []string
}

// Matcher は候補記事をキーワードと照合する。状態を持たず、並行に使用できる。
type Matcher struct {
	mode    MatchMode
	exclude []string
}

// NewMatcher はMatcherを生成する。excludeはタイトルに含まれる場合に候補を除外するフレーズ。
func NewMatcher(mode MatchMode, exclude []string) *Matcher {
	m := &Matcher{mode: mode}
	for _, phrase := range exclude {
		if p := m.normalize(phrase); p != "" {
			m.exclude = append(m.exclude, p)
		}
	}
	return m
}

type normalizedKeyword struct {
	needle string
	text   string
}

// Match は候補記事をキーワードと照合し、1つ以上一致したものを入力順に返す。
// windowが正の場合、公開日時がnow-windowより前の候補は照合前に除外する。
// 同一呼び出し内でlinkが重複する候補は最初の1件のみを対象とする。
func (m *Matcher) Match(candidates []model.Candidate, keywords []model.Keyword, now time.Time, window time.Duration) []Match {
	needles := m.keywordNeedles(keywords)
	if len(needles) == 0 {
		return nil
	}

	var cutoff time.Time
	if window > 0 {
		cutoff = now.Add(-window)
	}

	seen := make(map[string]bool, len(candidates))
	var out []Match
	for _, c := range candidates {
		if seen[c.Link] {
			continue
		}
		seen[c.Link] = true

		if !cutoff.IsZero() && c.PublishedDate.Before(cutoff) {
			continue
		}

		title := m.normalize(c.Title)
		if m.excluded(title) {
			continue
		}

		haystack := title + " " + m.normalize(c.Summary)
		var matched []string
		for _, k := range needles {
			if strings.Contains(haystack, k.needle) {
				matched = append(matched, k.text)
			}
		}
		if len(matched) > 0 {
			out = append(out, Match{Candidate: c, Keywords: matched})
		}
	}
	return out
}

// keywordNeedles はキーワードを正規化し、正規化後に重複するものを除いた一覧を返す。
// 重複時は先に現れたキーワードの表記を採用する。
func (m *Matcher) keywordNeedles(keywords []model.Keyword) []normalizedKeyword {
	seen := make(map[string]bool, len(keywords))
	out := make([]normalizedKeyword, 0, len(keywords))
	for _, k := range keywords {
		n := m.normalize(k.Text)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, normalizedKeyword{needle: n, text: strings.TrimSpace(k.Text)})
	}
	return out
}

func (m *Matcher) excluded(title string) bool {
	for _, p := range m.exclude {
		if strings.Contains(title, p) {
			return true
		}
	}
	return false
}

// normalize は照合用に文字列を正規化する。
// NFCへの統一、小文字化、空白の圧縮を行い、foldモードではさらに結合文字を除去する。
func (m *Matcher) normalize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	if m.mode == MatchFold {
		return Fold(s)
	}
	return strings.ToLower(norm.NFC.String(s))
}

// Fold は声調記号とダイアクリティカルマークを除去した小文字の文字列を返す。
// 分解できない "đ" は "d" に置き換える。
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	return strings.ReplaceAll(folded, "đ", "d")
}
