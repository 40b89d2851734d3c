package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spreadinsight/newsbot/internal/cache"
	"github.com/spreadinsight/newsbot/internal/retry"
)

const sectionHTML = `<html><body>
<ul>
  <li class="sa_item"><div class="sa_item_inner">
    <a class="sa_text_title" href="https://n.news.naver.com/mnews/article/015/0001"><strong class="sa_text_strong">기준금리 동결</strong></a>
    <div class="sa_text_lede">한국은행이 기준금리를 동결했다.</div>
  </div></li>
  <li class="sa_item"><div class="sa_item_inner">
    <a class="sa_text_title" href="https://n.news.naver.com/mnews/article/009/0002">환율 1400원 돌파</a>
  </div></li>
  <li class="sa_item"><div class="sa_item_inner">
    <a class="sa_text_title" href="https://ads.example.com/promo">광고</a>
  </div></li>
  <li class="sa_item"><div class="sa_item_inner">
    <a class="sa_text_title" href="https://n.news.naver.com/mnews/article/011/0003">수출 증가</a>
  </div></li>
</ul>
<a class="news_tit" href="https://n.news.naver.com/mnews/article/015/0001">dup</a>
<a class="news_tit" href="https://n.news.naver.com/mnews/article/020/0004">다른 기사</a>
</body></html>`

const articleHTML = `<html><body>
<h2 class="media_end_head_headline">한국은행, 기준금리 연 3.50% 동결</h2>
<span class="media_end_head_info_datestamp_time" data-date-time="2025-03-04 10:15:00">2025.03.04. 오전 10:15</span>
<article id="dic_area">
  한국은행 금융통화위원회가 4일 기준금리를 연 3.50%로 동결했다.<br>
  <script>var tracking = 1;</script>
  <style>.x{}</style>
  물가 상승률이 2%대로 내려왔지만 가계부채 증가세가 여전하다는 판단이다.
  <iframe src="ad"></iframe>
</article>
</body></html>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/section", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla/5.0")
		_, _ = w.Write([]byte(sectionHTML))
	})
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(articleHTML))
	})
	mux.HandleFunc("/short", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<h2 class="media_end_head_headline">제목</h2><div id="dic_area">짧다</div>`))
	})
	mux.HandleFunc("/notitle", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<div id="dic_area">본문만 있음</div>`))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	return httptest.NewServer(mux)
}

func newTestNaver(opts ...Option) *Naver {
	base := []Option{
		WithRetry(retry.Config{MaxAttempts: 1}),
		WithDelay(0),
		WithLocation(time.FixedZone("KST", 9*60*60)),
	}
	return NewNaver(append(base, opts...)...)
}

func TestFetchMetadata(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	got, err := newTestNaver().FetchMetadata(context.Background(), srv.URL+"/section", 30)

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "https://n.news.naver.com/mnews/article/015/0001", got[0].URL)
	assert.Equal(t, "기준금리 동결", got[0].Title)
	assert.Equal(t, "한국은행이 기준금리를 동결했다.", got[0].Summary)
	assert.Equal(t, "환율 1400원 돌파", got[1].Title)
	assert.Empty(t, got[1].Summary)
}

func TestFetchMetadataLimit(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	got, err := newTestNaver().FetchMetadata(context.Background(), srv.URL+"/section", 2)

	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestListArticles(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	got, err := newTestNaver().ListArticles(context.Background(), srv.URL+"/section", 10)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://n.news.naver.com/mnews/article/015/0001",
		"https://n.news.naver.com/mnews/article/009/0002",
		"https://n.news.naver.com/mnews/article/011/0003",
		"https://n.news.naver.com/mnews/article/020/0004",
	}, got)
}

func TestScrapeArticle(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	a, err := newTestNaver().ScrapeArticle(context.Background(), srv.URL+"/article")

	require.NoError(t, err)
	assert.Equal(t, "한국은행, 기준금리 연 3.50% 동결", a.Title)
	assert.Equal(t, SourceName, a.Source)
	assert.Contains(t, a.Content, "기준금리를 연 3.50%로 동결했다.\n물가 상승률이")
	assert.NotContains(t, a.Content, "tracking")
	assert.NotContains(t, a.Content, ".x{}")
	assert.Equal(t, time.Date(2025, 3, 4, 1, 15, 0, 0, time.UTC), a.PublishedAt.UTC())
	assert.NoError(t, a.Validate())
}

func TestScrapeArticleErrors(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	n := newTestNaver()

	_, err := n.ScrapeArticle(context.Background(), srv.URL+"/short")
	assert.ErrorIs(t, err, ErrNoContent)

	_, err = n.ScrapeArticle(context.Background(), srv.URL+"/notitle")
	assert.ErrorIs(t, err, ErrNoContent)

	_, err = n.ScrapeArticle(context.Background(), srv.URL+"/gone")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoContent))
}

func TestScrapeArticleUsesCache(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	c := cache.New(0)
	n := newTestNaver(WithCache(c, time.Hour))

	_, err := n.ScrapeArticle(context.Background(), srv.URL)
	require.NoError(t, err)
	_, err = n.ScrapeArticle(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestScrapeArticlesSkipsFailures(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	got := newTestNaver().ScrapeArticles(context.Background(), []string{
		srv.URL + "/gone", srv.URL + "/article", srv.URL + "/short",
	})

	require.Len(t, got, 1)
	assert.True(t, strings.HasSuffix(got[0].URL, "/article"))
}

func TestRetryOnServerError(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	n := newTestNaver(WithRetry(retry.Config{MaxAttempts: 2, Delay: time.Millisecond}))
	_, err := n.ScrapeArticle(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestParseDate(t *testing.T) {
	kst := time.FixedZone("KST", 9*60*60)
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2025-03-04 10:15:00", time.Date(2025, 3, 4, 10, 15, 0, 0, kst)},
		{"2025.03.04. 오전 9:05", time.Date(2025, 3, 4, 9, 5, 0, 0, kst)},
		{"2025.03.04. 오후 3:05", time.Date(2025, 3, 4, 15, 5, 0, 0, kst)},
		{"2025.03.04 15:05", time.Date(2025, 3, 4, 15, 5, 0, 0, kst)},
		{"2025-03-04T10:15:00+09:00", time.Date(2025, 3, 4, 10, 15, 0, 0, kst)},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.raw, kst)
		require.True(t, ok, tt.raw)
		assert.True(t, tt.want.Equal(got), "%s: got %v", tt.raw, got)
	}

	_, ok := ParseDate("어제", kst)
	assert.False(t, ok)
}

func TestUnparseableDateFallsBackToNow(t *testing.T) {
	now := time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Replace(articleHTML,
			`data-date-time="2025-03-04 10:15:00">2025.03.04. 오전 10:15`, `>방금 전`, 1)))
	}))
	defer srv.Close()

	a, err := newTestNaver(WithClock(func() time.Time { return now })).ScrapeArticle(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, now, a.PublishedAt)
}
