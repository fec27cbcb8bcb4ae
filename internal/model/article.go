// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// MaxSourceRunes は記事のsourceとして保存できる最大文字数。
const MaxSourceRunes = 255

// keywordSeparator はmatched_keywordsを表示用文字列に結合する際の区切り文字。
const keywordSeparator = ", "

// Article はコーパスに保存される（または保存候補となる）記事を表す。
// linkが同一性を表し、保存後は変更されない。
type Article struct {
	ID              string
	Link            string
	Title           string
	Summary         string // HTML除去・切り詰め済み
	Source          string // 正規化済みドメイン
	PublishedDate   time.Time
	IsDateEstimated bool
	MatchedKeywords []string // 論理的には集合。キーワードスナップショットの順序を保持する
	IsWhitelisted   bool     // 取得時点の信頼ラベル
	CaseCount       int
	Tags            []string // 表示用タグ（"Mới", "Cảnh báo"）
	CreatedAt       time.Time
}

// MatchedKeywordsString はmatched_keywordsを表示・保存用の文字列に結合する。
func (a *Article) MatchedKeywordsString() string {
	return JoinKeywords(a.MatchedKeywords)
}

// JoinKeywords はキーワード集合を保存用の文字列に結合する。
func JoinKeywords(keywords []string) string {
	return strings.Join(keywords, keywordSeparator)
}

// SplitKeywords は保存用文字列からキーワード集合を復元する。
// 空要素と重複は除外する。
func SplitKeywords(joined string) []string {
	if strings.TrimSpace(joined) == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	seen := make(map[string]bool, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// Candidate はフェッチ直後の、キーワード照合前の記事を表す。
type Candidate struct {
	Link            string
	Title           string
	Summary         string
	Source          string // リンクのホストから導出したドメイン（なければフィードのドメイン）
	FeedName        string
	PublishedDate   time.Time
	IsDateEstimated bool
}

// DailyCount は1日あたりの記事件数を表す。
type DailyCount struct {
	Date  time.Time
	Count int
}

// ArticleTotals は記事コーパス全体の集計値を表す。
type ArticleTotals struct {
	TotalArticles int
	TotalCases    int
}
