package news

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validArticle() Article {
	return Article{
		URL:         "https://n.news.naver.com/article/015/0005000001",
		Title:       "기준금리 동결",
		Content:     "한국은행이 기준금리를 동결했다.",
		PublishedAt: time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC),
		Source:      "한국경제",
	}
}

func TestValidate(t *testing.T) {
	a := validArticle()
	require.NoError(t, a.Validate())

	tests := map[string]func(*Article){
		"empty url":   func(a *Article) { a.URL = " " },
		"empty title": func(a *Article) { a.Title = "" },
		"zero time":   func(a *Article) { a.PublishedAt = time.Time{} },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			bad := validArticle()
			mutate(&bad)
			assert.ErrorIs(t, bad.Validate(), ErrInvalidArticle)
		})
	}
}

func TestEmptyContentIsValid(t *testing.T) {
	a := validArticle()
	a.Content = ""
	assert.NoError(t, a.Validate())
}

func TestValidateAllReportsIndex(t *testing.T) {
	bad := validArticle()
	bad.Title = ""
	err := ValidateAll([]Article{validArticle(), bad})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidArticle)
	assert.Contains(t, err.Error(), "article 1")
}

func TestMetadataValidate(t *testing.T) {
	assert.NoError(t, Metadata{URL: "u", Title: "t"}.Validate())
	assert.ErrorIs(t, Metadata{Title: "t"}.Validate(), ErrInvalidArticle)
}

func TestTruncateCountsRunes(t *testing.T) {
	assert.Equal(t, "기준", Truncate("기준금리", 2))
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "", Truncate("abc", 0))
}

func TestFallbackSummary(t *testing.T) {
	assert.Equal(t, "(내용 없음)", FallbackSummary("   "))

	content := "짧다. 한국은행이 오늘 오전 기준금리를 동결한다고 공식 발표했습니다. 시장은 이번 결정이 충분히 예상된 것이라고 평가했습니다. 세 번째 문장도 충분히 길게 작성되어 있는 상태입니다."
	got := FallbackSummary(content)
	assert.True(t, strings.HasPrefix(got, "한국은행이"))
	assert.Contains(t, got, "시장은")
	assert.NotContains(t, got, "세 번째")
}

func TestContentKeyStable(t *testing.T) {
	a := validArticle()
	b := validArticle()
	b.Source = "다른 언론"
	assert.Equal(t, a.ContentKey(), b.ContentKey())

	b.Content += "추가"
	assert.NotEqual(t, a.ContentKey(), b.ContentKey())
}

func TestSaveAndLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "article.json")
	a := validArticle()
	a.Keywords = []string{"금리"}

	require.NoError(t, a.SaveJSON(path))
	got, err := LoadJSON(path)
	require.NoError(t, err)

	assert.Equal(t, a.URL, got.URL)
	assert.True(t, a.PublishedAt.Equal(got.PublishedAt))
	assert.Equal(t, []string{"금리"}, got.Keywords)
}
