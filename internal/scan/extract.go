package scan

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// 記事タグ
const (
	TagNew   = "Mới"
	TagAlert = "Cảnh báo"
)

// newArticleAge はTagNewを付与する公開日時からの経過時間の上限。
const newArticleAge = 5 * time.Hour

// caseCountPatterns は報告症例数を抽出するパターン。先に一致したものを採用する。
// 各パターンは数値のサブマッチを1つだけ持つ。
var caseCountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)\s+(?:ca\s+mắc|trường\s+hợp|người\s+nhiễm|ca\s+dương\s+tính)`),
	regexp.MustCompile(`(?:phát\s+hiện|ghi\s+nhận)\s+(\d+)\s+(?:ca|trường\s+hợp)`),
}

var alertPhrases = []string{"bùng phát", "ổ dịch", "khẩn cấp", "tử vong", "nguy kịch", "lây lan nhanh"}

// ExtractCaseCount はテキストから報告症例数を抽出する。見つからない場合は0を返す。
func ExtractCaseCount(text string) int {
	lower := strings.ToLower(text)
	for _, re := range caseCountPatterns {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			// 桁あふれ
			continue
		}
		return n
	}
	return 0
}

// DetectTags は記事のタイトルと公開日時からタグを付与する。
func DetectTags(title string, published, now time.Time) []string {
	var tags []string
	if now.Sub(published) < newArticleAge {
		tags = append(tags, TagNew)
	}
	lower := strings.ToLower(title)
	for _, p := range alertPhrases {
		if strings.Contains(lower, p) {
			tags = append(tags, TagAlert)
			break
		}
	}
	return tags
}
