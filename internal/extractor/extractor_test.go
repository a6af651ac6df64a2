package extractor_test

import (
	"net/url"
	"strings"
	"testing"

	"github.com/jonesrussell/north-cloud/huginn/internal/extractor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

const fullPageHTML = `<!DOCTYPE html>
<html>
<head>
  <title>  Акции   и скидки </title>
  <meta name="description" content="Лучшие предложения">
  <meta name="keywords" content="shop, retail , ,food">
  <style>.x { color: red }</style>
  <script>var secret = "casino";</script>
</head>
<body>
  <nav><a href="/about">About</a></nav>
  <h1>Добро пожаловать</h1>
  <p>Первый абзац.</p><p>Второй
     абзац.</p>
  <script>document.write("hidden")</script>
  <noscript>enable js</noscript>
  <a href="https://shop.test/catalog#top">Catalog</a>
  <a href="#anchor">skip</a>
  <a href="mailto:a@b.c">mail</a>
  <a href="javascript:void(0)">js</a>
  <a href="tel:+100">tel</a>
  <a href="/about">About again</a>
  <a href="ftp://files.test/x">ftp</a>
</body>
</html>`

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestExtract_FullPage(t *testing.T) {
	t.Parallel()

	got := extractor.Extract([]byte(fullPageHTML), "text/html; charset=utf-8", mustURL(t, "https://shop.test/index"))

	require.NotNil(t, got.Title)
	assert.Equal(t, "Акции и скидки", *got.Title)
	require.NotNil(t, got.MetaDescription)
	assert.Equal(t, "Лучшие предложения", *got.MetaDescription)
	assert.Equal(t, []string{"shop", "retail", "food"}, got.Keywords)

	assert.Contains(t, got.Text, "Добро пожаловать Первый абзац. Второй абзац.")
	assert.NotContains(t, got.Text, "casino")
	assert.NotContains(t, got.Text, "hidden")
	assert.NotContains(t, got.Text, "enable js")
	assert.NotContains(t, got.Text, "color")
	assert.NotContains(t, got.Text, "  ")

	assert.Equal(t, []string{"https://shop.test/about", "https://shop.test/catalog"}, got.Links)
}

func TestExtract_MissingTitleIsNil(t *testing.T) {
	t.Parallel()

	got := extractor.Extract([]byte(`<html><body><p>text only</p></body></html>`), "text/html", nil)
	assert.Nil(t, got.Title)
	assert.Nil(t, got.MetaDescription)
	assert.Equal(t, "text only", got.Text)
}

func TestExtract_OGFallbacks(t *testing.T) {
	t.Parallel()

	page := `<html><head>
<meta property="og:title" content="OG Title">
<meta property="og:description" content="OG description">
</head><body>x</body></html>`

	got := extractor.Extract([]byte(page), "text/html", nil)
	require.NotNil(t, got.Title)
	assert.Equal(t, "OG Title", *got.Title)
	require.NotNil(t, got.MetaDescription)
	assert.Equal(t, "OG description", *got.MetaDescription)
}

func TestExtract_MalformedMarkupDegrades(t *testing.T) {
	t.Parallel()

	got := extractor.Extract([]byte(`<html><head><title>Broken</title><body><p>unclosed <b>bold <div>text`), "text/html", nil)
	assert.Contains(t, got.Text, "unclosed bold text")
}

func TestExtract_PlainTextAndOtherTypes(t *testing.T) {
	t.Parallel()

	got := extractor.Extract([]byte("line one\n\n  line two"), "text/plain", nil)
	assert.Equal(t, "line one line two", got.Text)
	assert.Empty(t, got.Links)

	got = extractor.Extract([]byte{0x89, 0x50, 0x4e, 0x47}, "image/png", nil)
	assert.Equal(t, extractor.Content{}, got)
}

func TestExtract_NFCNormalization(t *testing.T) {
	t.Parallel()

	// и followed by a combining breve composes to й
	got := extractor.Extract([]byte("<p>\u0438\u0306</p>"), "text/html", nil)
	assert.Equal(t, "\u0439", got.Text)
}

func encode(t *testing.T, cm *charmap.Charmap, s string) []byte {
	t.Helper()
	b, err := cm.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return b
}

func TestExtract_DecodesLegacyCharsets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        []byte
		contentType string
		wantTitle   string
		wantText    string
	}{
		{
			name:        "windows-1251 from header",
			body:        encode(t, charmap.Windows1251, "<p>онлайн казино</p>"),
			contentType: "text/html; charset=windows-1251",
			wantText:    "онлайн казино",
		},
		{
			name: "koi8-r from meta",
			body: encode(t, charmap.KOI8R,
				`<html><head><meta charset="koi8-r"><title>Казино</title></head><body>ставки</body></html>`),
			contentType: "text/html",
			wantTitle:   "Казино",
			wantText:    "Казино ставки",
		},
		{
			name:        "plain text windows-1251",
			body:        encode(t, charmap.Windows1251, "платеж принят"),
			contentType: "text/plain; charset=windows-1251",
			wantText:    "платеж принят",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := extractor.Extract(tt.body, tt.contentType, nil)
			assert.Equal(t, tt.wantText, got.Text)
			if tt.wantTitle != "" {
				require.NotNil(t, got.Title)
				assert.Equal(t, tt.wantTitle, *got.Title)
			}
		})
	}
}

func TestExtract_UndeclaredUTF8KeptAfterASCIIPrefix(t *testing.T) {
	t.Parallel()

	page := "<html><body><p>" + strings.Repeat("a ", 1024) + "</p><p>казино</p></body></html>"
	got := extractor.Extract([]byte(page), "text/html", nil)
	assert.True(t, strings.HasSuffix(got.Text, "казино"), got.Text[len(got.Text)-20:])
}

func TestExtract_BaseHref(t *testing.T) {
	t.Parallel()

	page := `<html><head><base href="https://shop.test/sub/"></head><body><a href="page">p</a></body></html>`
	got := extractor.Extract([]byte(page), "text/html", mustURL(t, "https://shop.test/"))
	assert.Equal(t, []string{"https://shop.test/sub/page"}, got.Links)
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, extractor.KindHTML, extractor.KindOf("TEXT/HTML; charset=windows-1251"))
	assert.Equal(t, extractor.KindHTML, extractor.KindOf("application/xhtml+xml"))
	assert.Equal(t, extractor.KindHTML, extractor.KindOf(""))
	assert.Equal(t, extractor.KindText, extractor.KindOf("text/plain"))
	assert.Equal(t, extractor.KindOther, extractor.KindOf("application/pdf"))
}
