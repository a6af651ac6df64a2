// Package extractor turns a fetched body into title, meta description,
// normalised visible text and outgoing links. Extraction never fails: broken
// markup yields whatever fields could be recovered.
package extractor

import (
	"bytes"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"
)

// Content is the extraction result. Title and MetaDescription are nil when
// the document does not provide them.
type Content struct {
	Title           *string
	MetaDescription *string
	Text            string
	Keywords        []string
	Links           []string
}

// hiddenElements never contribute visible text.
var hiddenElements = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"template": {},
	"head":     {},
	"svg":      {},
	"iframe":   {},
}

// skippedLinkPrefixes are hrefs that never lead to another page.
var skippedLinkPrefixes = []string{"#", "javascript:", "mailto:", "tel:", "data:"}

// Kind describes how a body should be interpreted.
type Kind int

const (
	KindHTML Kind = iota
	KindText
	KindOther
)

// KindOf classifies a Content-Type header value.
func KindOf(contentType string) Kind {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case "", "text/html", "application/xhtml+xml":
		return KindHTML
	case "text/plain":
		return KindText
	default:
		return KindOther
	}
}

// Extract parses body according to its content type. The body is decoded
// to UTF-8 using the header charset, a BOM or a <meta charset> declaration.
// base resolves relative links and may be nil.
func Extract(body []byte, contentType string, base *url.URL) Content {
	kind := KindOf(contentType)
	if kind == KindOther {
		return Content{}
	}
	body = decode(body, contentType)
	if kind == KindText {
		return Content{Text: normalizeText(string(body))}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Content{Text: normalizeText(stripTags(string(body)))}
	}

	return Content{
		Title:           title(doc),
		MetaDescription: metaDescription(doc),
		Text:            visibleText(doc),
		Keywords:        keywords(doc),
		Links:           links(doc, base),
	}
}

// decode converts body to UTF-8. When nothing declares a charset, valid
// UTF-8 is kept as is rather than read as windows-1252. Undecodable input
// is returned unchanged.
func decode(body []byte, contentType string) []byte {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || (!certain && name == "windows-1252" && utf8.Valid(body)) {
		return body
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return body
	}
	return out
}

func title(doc *goquery.Document) *string {
	if t := normalizeText(doc.Find("title").First().Text()); t != "" {
		return &t
	}
	if og, ok := doc.Find("meta[property='og:title']").Attr("content"); ok {
		if t := normalizeText(og); t != "" {
			return &t
		}
	}
	return nil
}

func metaDescription(doc *goquery.Document) *string {
	for _, sel := range []string{"meta[name='description']", "meta[name='Description']", "meta[property='og:description']"} {
		if d, ok := doc.Find(sel).First().Attr("content"); ok {
			if d = normalizeText(d); d != "" {
				return &d
			}
		}
	}
	return nil
}

func keywords(doc *goquery.Document) []string {
	raw, ok := doc.Find("meta[name='keywords']").First().Attr("content")
	if !ok {
		return nil
	}
	var out []string
	for _, kw := range strings.Split(raw, ",") {
		if kw = normalizeText(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// visibleText joins every text node outside hidden elements with single spaces.
func visibleText(doc *goquery.Document) string {
	var b strings.Builder
	for _, n := range doc.Nodes {
		collectText(n, &b)
	}
	return normalizeText(b.String())
}

func collectText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		b.WriteByte(' ')
		return
	case html.ElementNode:
		if _, hidden := hiddenElements[strings.ToLower(n.Data)]; hidden {
			return
		}
	case html.CommentNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// links returns absolute http(s) URLs referenced by anchors, in document
// order and without duplicates. A <base href> overrides base.
func links(doc *goquery.Document, base *url.URL) []string {
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok && base != nil {
		if b, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = b
		}
	}

	seen := make(map[string]struct{})
	var out []string
	doc.Find("a[href], area[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || hasSkippedPrefix(href) {
			return
		}

		var u *url.URL
		var err error
		if base != nil {
			u, err = base.Parse(href)
		} else {
			u, err = url.Parse(href)
		}
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return
		}
		u.Fragment = ""
		abs := u.String()
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	})
	return out
}

func hasSkippedPrefix(href string) bool {
	lower := strings.ToLower(href)
	for _, p := range skippedLinkPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// normalizeText composes Unicode to NFC and collapses whitespace runs.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// stripTags is the last-resort fallback when the parser gives up.
func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			b.WriteByte(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
