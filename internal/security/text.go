package security

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// SummaryMaxRunes は保存・表示する要約の最大文字数。
const SummaryMaxRunes = 500

// TextExtractor はフィード本文のHTMLからプレーンテキストを取り出す。
// 要約はUIにそのまま表示されるため、タグはすべて除去する。
type TextExtractor struct {
	policy *bluemonday.Policy
}

// NewTextExtractor はタグをすべて除去するポリシーでTextExtractorを生成する。
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{policy: bluemonday.StrictPolicy()}
}

// PlainText はHTMLからタグを除去し、実体参照を復元して空白を1つにまとめる。
func (e *TextExtractor) PlainText(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	stripped := html.UnescapeString(e.policy.Sanitize(rawHTML))
	return strings.Join(strings.Fields(stripped), " ")
}

// Summary はプレーンテキスト化した上でSummaryMaxRunesに切り詰める。
func (e *TextExtractor) Summary(rawHTML string) string {
	return Truncate(e.PlainText(rawHTML), SummaryMaxRunes)
}

// Truncate はsがmaxRunes文字を超える場合に切り詰めて "..." を付与する。
// マルチバイト文字の途中では切らない。
func Truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes]) + "..."
}
