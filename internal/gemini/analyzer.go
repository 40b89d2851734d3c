package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/spreadinsight/newsbot/internal/news"
)

// Generator is the text-generation dependency of Analyzer.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Analyzer turns an article into a summary, a Q&A explanation and tag keywords.
type Analyzer struct {
	gen Generator
}

func NewAnalyzer(gen Generator) *Analyzer {
	return &Analyzer{gen: gen}
}

func (a *Analyzer) Summarize(ctx context.Context, article news.Article, sentences int) (string, error) {
	if sentences <= 0 {
		sentences = 3
	}
	prompt := fmt.Sprintf(`다음 뉴스 기사를 정확히 %d문장으로 요약해주세요.
핵심 내용만 간결하게 담아주세요.

제목: %s

본문:
%s

요약 (%d문장):`, sentences, article.Title, article.Content, sentences)

	text, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("summary generation failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// ExplainSimple asks for the three-question insight block used by the v2 format.
func (a *Analyzer) ExplainSimple(ctx context.Context, article news.Article) (string, error) {
	prompt := fmt.Sprintf(explainPrompt, article.Title, article.Snippet(1500))

	text, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("explanation generation failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (a *Analyzer) ExtractKeywords(ctx context.Context, article news.Article, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}
	prompt := fmt.Sprintf(keywordsPrompt, limit, article.Title, article.Snippet(1000))

	text, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("keyword extraction failed: %w", err)
	}
	return SplitKeywords(text, limit), nil
}

// SplitKeywords splits a comma separated answer, dropping blanks.
func SplitKeywords(text string, limit int) []string {
	var out []string
	for _, kw := range strings.Split(strings.TrimSpace(text), ",") {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		out = append(out, kw)
		if len(out) == limit {
			break
		}
	}
	return out
}

const explainPrompt = `당신은 경제 뉴스를 투자 인사이트로 변환하는 전문 애널리스트입니다.
독자가 10초 안에 핵심을 이해하고, "아 그래서 이게 중요하구나", "내 투자에 이렇게 적용하면 되겠네"를 느끼도록 작성하세요.

**출력 형식**: 정확히 아래 3개 질문에 대한 답변만 작성하세요.

Q. 무슨 일이야?
A. [2-3문장으로 핵심 요약 + 왜 중요한지]

Q. 내 투자엔 어떤 영향?
A. [3-4문장으로 실전 투자 전략 + 과거 사례 비교]

Q. 뭘 주목해야 해?
A. [2-3문장으로 앞으로의 경제 흐름 + 관련주 등락 포인트]

**작성 원칙:**
1. 구체적 숫자 필수 (%%, 금액, 비율 등)
2. 고유명사 명확히 (기업명, 지수명, 지표명)
3. 과거 사례는 연도 + 구체적 수치와 함께
4. "예상", "전망" 등 추측 표현은 근거와 함께
5. 문장 끝은 명사형 종결어미 ("~한 상황", "~인 셈", "~로 분석", "~될 전망")
6. 전문 용어는 괄호로 쉽게 풀어쓰기 (예: "KOSPI(한국종합주가지수)")
7. 각 답변은 간결하지만 인사이트 풍부하게

제목: %s

본문:
%s

핵심 3줄:`

const keywordsPrompt = `다음 뉴스 기사에서 핵심 키워드를 %d개 추출해주세요.

**중요**: 키워드는 보편적인 카테고리로 작성하세요. 고유명사보다는 일반 명사를 사용하세요.

예시:
- ❌ "연준 의장", "제롬 파월" (너무 specific)
- ✅ "금리", "통화정책", "미국경제" (보편적 카테고리)

뉴스를 모아볼 수 있는 태그로 사용될 키워드를 추출하세요.

제목: %s

본문:
%s

답변 형식 (쉼표로 구분):
키워드1, 키워드2, 키워드3, ...`
