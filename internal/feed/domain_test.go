package feed

import (
	"errors"
	"testing"
)

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"vnexpress.net", "vnexpress.net"},
		{"  WWW.VnExpress.NET ", "vnexpress.net"},
		{"https://www.dantri.com.vn/suc-khoe/abc.htm", "dantri.com.vn"},
		{"tuoitre.vn/path?q=1", "tuoitre.vn"},
		{"laodong.vn:8443", "laodong.vn"},
		{"suckhoedoisong.vn.", "suckhoedoisong.vn"},
		{"sub.nhandan.vn", "sub.nhandan.vn"},
	}
	for _, tt := range tests {
		got, err := NormalizeDomain(tt.in)
		if err != nil {
			t.Errorf("NormalizeDomain(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeDomain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeDomain_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "localhost", "not a domain", "https://", "user@mail"} {
		if _, err := NormalizeDomain(in); !errors.Is(err, ErrInvalidDomain) {
			t.Errorf("NormalizeDomain(%q) err = %v, want ErrInvalidDomain", in, err)
		}
	}
}

func TestHostOf(t *testing.T) {
	if got := HostOf("https://www.thanhnien.vn/a.html"); got != "thanhnien.vn" {
		t.Errorf("HostOf = %q", got)
	}
	if got := HostOf("/relative/path"); got != "" {
		t.Errorf("相対URLは空文字列: %q", got)
	}
}
