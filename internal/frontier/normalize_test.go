package frontier_test

import (
	"testing"

	"github.com/jonesrussell/north-cloud/huginn/internal/frontier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"lowercase scheme and host", "HTTP://Example.COM/Path", "http://example.com/Path", false},
		{"keeps http scheme", "http://example.com/a", "http://example.com/a", false},
		{"remove default http port", "http://example.com:80/a", "http://example.com/a", false},
		{"remove default https port", "https://example.com:443/a", "https://example.com/a", false},
		{"keep other port", "http://127.0.0.1:8080/a", "http://127.0.0.1:8080/a", false},
		{"empty path becomes root", "https://example.com", "https://example.com/", false},
		{"keeps trailing slash", "https://example.com/dir/", "https://example.com/dir/", false},
		{"resolve dot segments", "https://example.com/a/b/../c", "https://example.com/a/c", false},
		{"remove fragment", "https://example.com/a#top", "https://example.com/a", false},
		{"sort query", "https://example.com/a?z=1&a=2", "https://example.com/a?a=2&z=1", false},
		{"strip tracking", "https://example.com/a?utm_source=x&yclid=1&id=5", "https://example.com/a?id=5", false},
		{"drop userinfo", "https://user:pw@example.com/a", "https://example.com/a", false},
		{"empty input", "", "", true},
		{"relative url", "/about", "", true},
		{"mailto", "mailto:a@b.c", "", true},
		{"ftp", "ftp://example.com/file", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := frontier.NormalizeURL(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSameSite(t *testing.T) {
	t.Parallel()

	assert.True(t, frontier.SameSite("https://example.com/a", "example.com"))
	assert.True(t, frontier.SameSite("https://www.example.com/a", "example.com"))
	assert.True(t, frontier.SameSite("http://example.com:80/a", "www.example.com"))
	assert.True(t, frontier.SameSite("http://127.0.0.1:9000/x", "127.0.0.1:9000"))
	assert.False(t, frontier.SameSite("http://127.0.0.1:9001/x", "127.0.0.1:9000"))
	assert.False(t, frontier.SameSite("https://shop.example.com/a", "example.com"))
	assert.False(t, frontier.SameSite("https://example.com.evil.test/a", "example.com"))
	assert.False(t, frontier.SameSite("not a url", "example.com"))
}
