package security

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPlainText(t *testing.T) {
	e := NewTextExtractor()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"空文字列", "", ""},
		{"タグ除去", `<p>Ghi nhận <strong>15 ca mắc</strong></p>`, "Ghi nhận 15 ca mắc"},
		{"画像とリンク", `<a href="https://vnexpress.net/x"><img src="https://i.vnecdn.net/a.jpg"></a>Sốt xuất huyết tăng`, "Sốt xuất huyết tăng"},
		{"script除去", `<script>alert(1)</script>Tin tức`, "Tin tức"},
		{"実体参照", `Bộ Y tế &amp; Sở Y tế &quot;cảnh báo&quot;`, `Bộ Y tế & Sở Y tế "cảnh báo"`},
		{"空白の正規化", "  dòng 1\n\n\tdòng 2  ", "dòng 1 dòng 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.PlainText(tt.in); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	short := "Sốt xuất huyết"
	if got := Truncate(short, 500); got != short {
		t.Errorf("短い文字列は変更されないべき: %q", got)
	}

	long := strings.Repeat("ệ", 501)
	got := Truncate(long, 500)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("切り詰め時は ... が付与されるべき")
	}
	if n := utf8.RuneCountInString(strings.TrimSuffix(got, "...")); n != 500 {
		t.Errorf("切り詰め後の文字数 = %d, want 500", n)
	}
	if !utf8.ValidString(got) {
		t.Error("マルチバイト文字の途中で切られている")
	}
}

func TestSummary(t *testing.T) {
	e := NewTextExtractor()
	in := "<p>" + strings.Repeat("a", 600) + "</p>"
	got := e.Summary(in)
	if utf8.RuneCountInString(got) != SummaryMaxRunes+3 {
		t.Errorf("要約の長さ = %d, want %d", utf8.RuneCountInString(got), SummaryMaxRunes+3)
	}
}
