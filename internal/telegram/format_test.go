package telegram

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spreadinsight/newsbot/internal/metrics"
	"github.com/spreadinsight/newsbot/internal/recommend"
)

func samplePost() Post {
	return Post{
		Title:       "기준금리 0.25%p 인상",
		Date:        "2025년 03월 04일",
		Summary:     "한국은행이 기준금리를 올렸다.",
		Keywords:    []string{"기준금리", "한국은행"},
		Explanation: "## 요약\nQ. 무슨 일이야?\nA. **금리**가 올랐어요.",
		Products:    []recommend.Product{{Category: "경제 도서", HookTitle: "금리 공부", AffiliateLink: recommend.DefaultPartnerLink}, {Category: "무시"}},
		Books:       []recommend.Book{{Title: "금리의 역습", Author: "김경제"}},
		Disclosure:  recommend.DefaultDisclosure,
	}
}

func TestNewFormatter(t *testing.T) {
	assert.Equal(t, []string{"v1", "v2"}, Versions())

	f, err := NewFormatter("v2")
	require.NoError(t, err)
	assert.Equal(t, "v2", f.Version())

	_, err = NewFormatter("v9")
	assert.Error(t, err)
}

func TestTitleMessage(t *testing.T) {
	assert.Equal(t, "금일의 뉴스! (2025년 03월 04일)", TitleMessage("2025년 03월 04일"))
	assert.Equal(t, "금일의 뉴스!", TitleMessage(""))
}

func TestV1Format(t *testing.T) {
	msgs := V1{}.Format(samplePost())

	require.Len(t, msgs, 1)
	m := msgs[0]
	assert.True(t, strings.HasPrefix(m, "기준금리 0.25%p 인상"))
	assert.Contains(t, m, "📌 요약\n한국은행이 기준금리를 올렸다.")
	assert.Contains(t, m, "🏷️ 키워드\n#기준금리, #한국은행")
	assert.Contains(t, m, "💡 쉬운 설명\n")
	assert.Contains(t, m, "1. 금리의 역습\n   저자: 김경제")
	assert.Contains(t, m, "🛒 쿠팡 파트너스 추천\n경제 도서: 금리 공부\n"+recommend.DefaultPartnerLink)
	assert.NotContains(t, m, "무시")
	assert.True(t, strings.HasSuffix(m, "💳 "+recommend.DefaultDisclosure))
}

func TestV2FormatStripsMarkdown(t *testing.T) {
	msgs := V2{}.Format(samplePost())

	require.Len(t, msgs, 1)
	m := msgs[0]
	assert.Contains(t, m, "[핵심 3줄]\n\n요약\nQ. 무슨 일이야?\nA. 금리가 올랐어요.")
	assert.Contains(t, m, "[쿠팡 파트너스 추천]\n경제 도서: 금리 공부")
	assert.NotContains(t, m, "📌")
	assert.NotContains(t, m, "금리의 역습")
}

func TestV2FormatFallsBackToSummary(t *testing.T) {
	p := samplePost()
	p.Explanation = ""

	m := V2{}.Format(p)[0]

	assert.Contains(t, m, "Q. 무슨 일이야?\nA. 한국은행이 기준금리를 올렸다.\n\nQ. 내 투자엔 어떤 영향?\nA. 추가 분석 필요")
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"짧은 글"}, SplitMessage("짧은 글", 4000))

	line := strings.Repeat("가", 30)
	text := strings.Repeat(line+"\n", 10)
	chunks := SplitMessage(text, 100)

	require.Len(t, chunks, 4)
	var joined []string
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 100)
		joined = append(joined, c)
	}
	assert.Equal(t, strings.TrimSpace(text), strings.Join(joined, "\n"))
}

func TestSplitMessageCutsOversizedLine(t *testing.T) {
	chunks := SplitMessage(strings.Repeat("나", 250), 100)

	require.Len(t, chunks, 3)
	assert.Equal(t, 100, utf8.RuneCountInString(chunks[0]))
	assert.Equal(t, 50, utf8.RuneCountInString(chunks[2]))
}

func TestPublishArticle(t *testing.T) {
	s := &recordingSender{}
	m := metrics.New()
	p := NewPublisher(s, V2{}, 0, m)

	require.NoError(t, p.PublishArticle(context.Background(), samplePost()))

	require.Len(t, s.sent, 2)
	assert.Equal(t, "금일의 뉴스! (2025년 03월 04일)", s.sent[0])
	assert.Equal(t, int64(2), m.TelegramMessagesSent)
}

func TestPublishArticleStopsOnError(t *testing.T) {
	s := &recordingSender{failAt: 2}
	m := metrics.New()
	p := NewPublisher(s, V1{}, 0, m)

	err := p.PublishArticle(context.Background(), samplePost())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "message 2/2")
	assert.Len(t, s.sent, 1)
	assert.Equal(t, int64(1), m.TelegramMessagesSent)
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Printer{W: &buf}.SendMessage(context.Background(), "hello"))
	assert.True(t, strings.HasPrefix(buf.String(), "hello\n---"))
}
