package model

import "time"

// MaxKeywordRunes はキーワードの最大文字数。
const MaxKeywordRunes = 255

// Keyword は監視対象のキーワードを表す。
// textは前後の空白を除去した元の大文字小文字のまま保持する。
type Keyword struct {
	ID        string
	Text      string
	CreatedAt time.Time
}

// WhitelistDomain は信頼済みソースのドメインを表す。
// 分類ではIsActive=trueのエントリのみが参照される。
type WhitelistDomain struct {
	ID        string
	Domain    string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RegistrySnapshot はスキャン開始時に取得するレジストリの不変スナップショット。
// スキャン中に他の呼び出し元がキーワードやホワイトリストを編集しても影響を受けない。
type RegistrySnapshot struct {
	Keywords        []Keyword
	ActiveWhitelist map[string]bool
	TakenAt         time.Time
}

// IsWhitelisted は正規化済みドメインが有効なホワイトリストに含まれるかを返す。
func (s *RegistrySnapshot) IsWhitelisted(domain string) bool {
	return s.ActiveWhitelist[domain]
}
