package feed

import (
	"bytes"
	"mime"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// LinkType はHTMLで告知されたフィードの種類（RSS/Atom）を表す。
type LinkType string

const (
	LinkTypeRSS  LinkType = "rss"
	LinkTypeAtom LinkType = "atom"
)

// FeedLink はHTMLのheadで告知されたフィードリンクを表す。
type FeedLink struct {
	URL   string
	Type  LinkType
	Title string
}

var feedContentTypes = []string{
	"application/rss+xml",
	"application/atom+xml",
}

var xmlContentTypes = []string{
	"text/xml",
	"application/xml",
}

// mediaTypeOf はContent-Typeからパラメータを除いたメディアタイプを返す。
func mediaTypeOf(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	return strings.ToLower(mediaType)
}

// IsHTML はContent-TypeがHTMLを示すかを返す。
func IsHTML(contentType string) bool {
	return strings.Contains(mediaTypeOf(contentType), "html")
}

// IsFeedDocument はContent-Typeとボディの先頭からRSS/Atom文書かを判定する。
// Content-Typeが不明な場合もボディがRSS/Atomであればtrueを返す。
func IsFeedDocument(contentType string, body []byte) bool {
	mediaType := mediaTypeOf(contentType)
	for _, ct := range feedContentTypes {
		if mediaType == ct {
			return true
		}
	}

	generic := mediaType == "" || mediaType == "application/octet-stream" || mediaType == "text/plain"
	for _, ct := range xmlContentTypes {
		if mediaType == ct {
			generic = true
			break
		}
	}
	if !generic || len(body) == 0 {
		return false
	}
	return looksLikeFeed(body)
}

// looksLikeFeed はボディ先頭4KBにRSS/Atomのルート要素があるかを調べる。
func looksLikeFeed(body []byte) bool {
	n := len(body)
	if n > 4096 {
		n = 4096
	}
	prefix := strings.ToLower(string(body[:n]))

	if strings.Contains(prefix, "<rss") || strings.Contains(prefix, "<rdf:rdf") {
		return true
	}
	return strings.Contains(prefix, "<feed") && strings.Contains(prefix, "http://www.w3.org/2005/atom")
}

// FeedLinksFromHTML はHTMLのheadから rel="alternate" のRSS/Atomリンクを抽出する。
// 相対URLはbaseURLを基準に解決する。
func FeedLinksFromHTML(body []byte, baseURL string) []FeedLink {
	var links []FeedLink

	base, err := url.Parse(baseURL)
	if err != nil {
		return links
	}

	z := html.NewTokenizer(bytes.NewReader(body))
	inHead := false

	for {
		switch z.Next() {
		case html.ErrorToken:
			return links

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := z.TagName()
			switch string(tn) {
			case "head":
				inHead = true
				continue
			case "body":
				return links
			case "link":
			default:
				continue
			}
			if !inHead || !hasAttr {
				continue
			}

			var rel, typ, href, title string
			for {
				key, val, more := z.TagAttr()
				switch strings.ToLower(string(key)) {
				case "rel":
					rel = strings.ToLower(string(val))
				case "type":
					typ = strings.ToLower(string(val))
				case "href":
					href = string(val)
				case "title":
					title = string(val)
				}
				if !more {
					break
				}
			}
			if rel != "alternate" || href == "" {
				continue
			}

			var lt LinkType
			switch typ {
			case "application/rss+xml":
				lt = LinkTypeRSS
			case "application/atom+xml":
				lt = LinkTypeAtom
			default:
				continue
			}

			ref, err := url.Parse(href)
			if err != nil {
				continue
			}
			links = append(links, FeedLink{URL: base.ResolveReference(ref).String(), Type: lt, Title: title})

		case html.EndTagToken:
			if tn, _ := z.TagName(); string(tn) == "head" {
				return links
			}
		}
	}
}

// SelectFeedLink は候補から最適なフィードリンクを選ぶ。
// 優先順位: 同一ドメイン > RSS > 先頭。候補がなければnilを返す。
func SelectFeedLink(links []FeedLink, pageURL string) *FeedLink {
	if len(links) == 0 {
		return nil
	}

	pageDomain := HostOf(pageURL)
	best, bestScore := 0, -1
	for i, l := range links {
		score := 0
		if pageDomain != "" && HostOf(l.URL) == pageDomain {
			score += 100
		}
		if l.Type == LinkTypeRSS {
			score += 10
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return &links[best]
}
