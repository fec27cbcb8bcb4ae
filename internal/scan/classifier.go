package scan

import "github.com/hitoshi/episcout/internal/model"

// Trust は記事ソースの信頼判定結果。
type Trust int

const (
	TrustUnknown Trust = iota
	TrustTrusted
)

func (t Trust) String() string {
	if t == TrustTrusted {
		return "trusted"
	}
	return "unknown"
}

// Classifier は記事ソースのドメインをホワイトリストと照合する。
// 部分一致は行わず、完全一致またはカタログの別名対応のみを信頼する。
type Classifier struct {
	aliases map[string]string
}

// NewClassifier はClassifierを生成する。aliasesは別名ホストから正規ドメインへの対応表。
func NewClassifier(aliases map[string]string) *Classifier {
	if aliases == nil {
		aliases = map[string]string{}
	}
	return &Classifier{aliases: aliases}
}

// Classify はソースドメインが有効なホワイトリストに含まれるかを判定する。
// sourceは正規化済みドメインであること。
func (c *Classifier) Classify(source string, snap *model.RegistrySnapshot) Trust {
	if source == "" || snap == nil {
		return TrustUnknown
	}
	if snap.IsWhitelisted(source) {
		return TrustTrusted
	}
	if canonical, ok := c.aliases[source]; ok && snap.IsWhitelisted(canonical) {
		return TrustTrusted
	}
	return TrustUnknown
}
