package scan

import (
	"reflect"
	"testing"
	"time"
)

func TestExtractCaseCount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"ca mắc", "Hà Nội ghi nhận thêm 15 ca mắc sốt xuất huyết", 15},
		{"trường hợp", "Có 20 trường hợp nhập viện", 20},
		{"người nhiễm", "gần 100 người nhiễm cúm A", 100},
		{"ca dương tính", "Phát hiện 7 ca dương tính", 7},
		{"ghi nhận N ca", "TP.HCM ghi nhận 42 ca trong tuần", 42},
		{"phát hiện N trường hợp", "Phát hiện 3 trường hợp nghi nhiễm", 3},
		{"大文字を含む", "GHI NHẬN 9 CA MẮC", 9},
		{"複数の空白", "12   ca   mắc", 12},
		{"最初のパターンを優先", "ghi nhận 5 ca, tổng cộng 30 ca mắc", 30},
		{"一致なし", "Khuyến cáo phòng bệnh mùa mưa", 0},
		{"空文字列", "", 0},
		{"桁あふれ", "99999999999999999999999 ca mắc", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractCaseCount(tt.text); got != tt.want {
				t.Errorf("ExtractCaseCount(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestDetectTags(t *testing.T) {
	now := time.Date(2024, 6, 7, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		title     string
		published time.Time
		want      []string
	}{
		{"新しい警告記事", "Bùng phát dịch sởi", now.Add(-time.Hour), []string{TagNew, TagAlert}},
		{"古い警告記事", "Ổ dịch mới tại Đồng Nai", now.Add(-10 * time.Hour), []string{TagAlert}},
		{"新しい通常記事", "Tiêm chủng mở rộng", now.Add(-4 * time.Hour), []string{TagNew}},
		{"境界ちょうど5時間", "Tiêm chủng", now.Add(-5 * time.Hour), nil},
		{"タグなし", "Tiêm chủng", now.Add(-48 * time.Hour), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectTags(tt.title, tt.published, now)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DetectTags() = %v, want %v", got, tt.want)
			}
		})
	}
}
