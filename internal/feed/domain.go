package feed

import (
	"errors"
	"net"
	"net/url"
	"strings"
)

// ErrInvalidDomain はドメインとして解釈できない入力を表す。
var ErrInvalidDomain = errors.New("invalid domain")

// NormalizeDomain はホスト名またはURLを正規化済みドメインに変換する。
// 小文字化し、ポートと先頭の "www." を除去する。
func NormalizeDomain(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", ErrInvalidDomain
	}

	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil || u.Host == "" {
			return "", ErrInvalidDomain
		}
		s = u.Host
	} else if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}

	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	s = strings.TrimSuffix(strings.ToLower(s), ".")
	s = strings.TrimPrefix(s, "www.")

	if s == "" || strings.ContainsAny(s, " \t@") || !strings.Contains(s, ".") {
		return "", ErrInvalidDomain
	}
	return s, nil
}

// HostOf はURLから正規化済みドメインを抽出する。解釈できない場合は空文字列を返す。
func HostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return ""
	}
	d, err := NormalizeDomain(u.Host)
	if err != nil {
		return ""
	}
	return d
}
