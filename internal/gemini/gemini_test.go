package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spreadinsight/newsbot/internal/news"
)

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("선정 번호: 2\n"), genai.Text("선정 이유: 환율")}},
		}},
	}

	text, err := responseText(resp)
	require.NoError(t, err)
	assert.Equal(t, "선정 번호: 2\n선정 이유: 환율", text)
}

func TestResponseTextEmpty(t *testing.T) {
	_, err := responseText(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, errEmptyResponse)

	_, err = responseText(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{genai.Text("  ")}}}},
	})
	assert.ErrorIs(t, err, errEmptyResponse)

	_, err = responseText(nil)
	assert.ErrorIs(t, err, errEmptyResponse)
}

type stubGenerator struct {
	answer string
	err    error
	prompt string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.answer, s.err
}

func sampleArticle() news.Article {
	return news.Article{
		URL:         "https://n.news.naver.com/article/1",
		Title:       "환율 1400원 돌파",
		Content:     strings.Repeat("원·달러 환율이 급등했다. ", 200),
		PublishedAt: time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC),
		Source:      "네이버",
	}
}

func TestSummarize(t *testing.T) {
	gen := &stubGenerator{answer: "  환율이 급등했다.  "}
	a := NewAnalyzer(gen)

	got, err := a.Summarize(context.Background(), sampleArticle(), 0)

	require.NoError(t, err)
	assert.Equal(t, "환율이 급등했다.", got)
	assert.Contains(t, gen.prompt, "정확히 3문장으로")
	assert.Contains(t, gen.prompt, "제목: 환율 1400원 돌파")
}

func TestExplainSimpleCapsContent(t *testing.T) {
	gen := &stubGenerator{answer: "Q. 무슨 일이야?\nA. 환율 급등"}
	a := NewAnalyzer(gen)

	_, err := a.ExplainSimple(context.Background(), sampleArticle())

	require.NoError(t, err)
	assert.Contains(t, gen.prompt, "Q. 내 투자엔 어떤 영향?")
	assert.Contains(t, gen.prompt, "구체적 숫자 필수 (%, 금액")
	assert.Less(t, len([]rune(gen.prompt)), 1500+1200)
}

func TestExtractKeywords(t *testing.T) {
	gen := &stubGenerator{answer: "금리, 환율, , 통화정책 ,미국경제, 수출, 무역"}
	a := NewAnalyzer(gen)

	got, err := a.ExtractKeywords(context.Background(), sampleArticle(), 5)

	require.NoError(t, err)
	assert.Equal(t, []string{"금리", "환율", "통화정책", "미국경제", "수출"}, got)
}

func TestAnalyzerWrapsErrors(t *testing.T) {
	boom := errors.New("quota exceeded")
	a := NewAnalyzer(&stubGenerator{err: boom})

	_, err := a.Summarize(context.Background(), sampleArticle(), 3)
	assert.ErrorIs(t, err, boom)

	_, err = a.ExtractKeywords(context.Background(), sampleArticle(), 3)
	assert.ErrorIs(t, err, boom)
}
