package rss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>경제 뉴스</title>
  <item>
    <title>원달러 환율 1400원 돌파</title>
    <link>https://example.com/news/1</link>
    <description><![CDATA[<p>환율이 <b>급등</b>했다.</p>]]></description>
  </item>
  <item>
    <title>제목 없는 링크 없음</title>
    <description>링크가 없다</description>
  </item>
  <item>
    <title>수출 3개월 연속 증가</title>
    <link>https://example.com/news/2</link>
    <description>반도체가 견인했다.</description>
  </item>
  <item>
    <title>원달러 환율 1400원 돌파</title>
    <link>https://example.com/news/1</link>
  </item>
</channel>
</rss>`

func TestLoadFeeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feeds:\n  - https://a.example/rss\n  - \"  \"\n  - https://b.example/rss\n"), 0o644))

	feeds, err := LoadFeeds(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example/rss", "https://b.example/rss"}, feeds)
}

func TestLoadFeedsMissingFile(t *testing.T) {
	_, err := LoadFeeds(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestFetchMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feedXML))
	}))
	defer srv.Close()

	got := FetchMetadata(context.Background(), []string{srv.URL + "/broken", srv.URL + "/feed"}, 0)

	require.Len(t, got, 2)
	assert.Equal(t, "https://example.com/news/1", got[0].URL)
	assert.Equal(t, "원달러 환율 1400원 돌파", got[0].Title)
	assert.Equal(t, "환율이 급등했다.", got[0].Summary)
	assert.Equal(t, "반도체가 견인했다.", got[1].Summary)
}

func TestFetchMetadataLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feedXML))
	}))
	defer srv.Close()

	got := FetchMetadata(context.Background(), []string{srv.URL}, 1)

	assert.Len(t, got, 1)
}
