package selector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/spreadinsight/newsbot/internal/logger"
	"github.com/spreadinsight/newsbot/internal/metrics"
	"github.com/spreadinsight/newsbot/internal/news"
)

// Generator produces free text for a prompt. Gemini and OpenAI clients implement it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

var errNoGenerator = errors.New("no generator configured")

// AISelector asks a language model to make the same pick the Scorer makes.
// Every failure degrades to the first candidate; nothing is returned as an error.
type AISelector struct {
	gen     Generator
	metrics *metrics.Metrics
	log     *logrus.Entry
}

type AIOption func(*AISelector)

func WithMetrics(m *metrics.Metrics) AIOption {
	return func(s *AISelector) {
		s.metrics = m
	}
}

func NewAISelector(gen Generator, opts ...AIOption) *AISelector {
	s := &AISelector{
		gen:     gen,
		metrics: metrics.Global,
		log:     logger.With("component", "ai_selector"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectBestByMetadata picks one URL from title/summary records.
func (s *AISelector) SelectBestByMetadata(ctx context.Context, candidates []news.Metadata) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	if len(candidates) == 1 {
		return candidates[0].URL, true
	}

	idx := s.choose(ctx, metadataPrompt(candidates), len(candidates))
	s.log.WithFields(logrus.Fields{"index": idx + 1, "title": candidates[idx].Title}).Info("selected article from metadata")
	return candidates[idx].URL, true
}

// SelectBest picks one article using title, source, date and a body preview.
func (s *AISelector) SelectBest(ctx context.Context, articles []news.Article) (news.Article, bool) {
	if len(articles) == 0 {
		return news.Article{}, false
	}
	if len(articles) == 1 {
		return articles[0], true
	}

	idx := s.choose(ctx, articlesPrompt(articles), len(articles))
	s.log.WithFields(logrus.Fields{"index": idx + 1, "title": articles[idx].Title}).Info("selected article")
	return articles[idx], true
}

// Rank orders articles by model judgement and returns at most topN of them.
// Candidates the model leaves out follow the ranked ones in input order.
func (s *AISelector) Rank(ctx context.Context, articles []news.Article, topN int) []news.Article {
	if len(articles) == 0 || topN <= 0 {
		return []news.Article{}
	}
	if len(articles) <= topN {
		return append([]news.Article(nil), articles...)
	}

	text, err := s.generate(ctx, rankingPrompt(articles))
	if err != nil {
		s.fallback("ranking failed", err, "")
		return append([]news.Article(nil), articles[:topN]...)
	}

	order := ParseRanking(text, len(articles))
	ranked := make([]news.Article, 0, len(articles))
	used := make([]bool, len(articles))
	for _, i := range order {
		ranked = append(ranked, articles[i])
		used[i] = true
	}
	for i, a := range articles {
		if !used[i] {
			ranked = append(ranked, a)
		}
	}
	s.metrics.IncrementAISelections()
	return ranked[:topN]
}

// choose runs a single-pick prompt and returns a valid 0-based index.
func (s *AISelector) choose(ctx context.Context, prompt string, n int) int {
	text, err := s.generate(ctx, prompt)
	if err != nil {
		s.fallback("selection failed", err, "")
		return 0
	}

	sel := ParseSelection(text)
	idx, ok := Resolve(sel, n)
	if !ok {
		s.fallback("no valid selection number in answer", nil, text)
		return 0
	}
	s.metrics.IncrementAISelections()
	return idx
}

func (s *AISelector) generate(ctx context.Context, prompt string) (string, error) {
	if s.gen == nil {
		return "", errNoGenerator
	}
	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (s *AISelector) fallback(reason string, err error, raw string) {
	s.metrics.IncrementAIFallbacks()
	entry := s.log
	if err != nil {
		entry = entry.WithError(err)
	}
	if raw != "" {
		entry = entry.WithField("answer", news.Truncate(raw, 200))
	}
	entry.Warn(reason + ", using first candidate")
}

const selectionCriteria = `**선정 기준**:
1. **경제적 영향력**: 금리, 환율, 관세, 무역, 증시 등 실질적 경제 이슈
2. **시의성**: 최근 발생한 중요한 경제 이벤트
3. **실용성**: 독자의 재테크/투자/소비에 도움이 되는 정보
4. **학습 가치**: 경제 현상을 이해하는 데 도움

**제외 기준**:
- 부고, 인사 이동, 수상 등 경제와 무관한 뉴스
- 지엽적이고 특정 기업/인물에만 관련된 뉴스
- 광고성 또는 홍보성 기사`

const selectionAnswerFormat = `**답변 형식**:
선정 번호: [번호]
선정 이유: [50자 이내로 간단히]

예시:
선정 번호: 3
선정 이유: 달러 환율 급등은 수출입 기업과 개인 투자자 모두에게 직접적 영향을 미치는 중요한 경제 지표입니다.`

func selectionPrompt(count int, list string) string {
	return fmt.Sprintf(`당신은 경제 뉴스 편집장입니다.

다음 %d개 뉴스 중에서 **경제적으로 가장 중요하고 독자에게 유용한 뉴스 1개**를 선정해주세요.

%s

뉴스 목록:
%s

%s`, count, selectionCriteria, list, selectionAnswerFormat)
}

func metadataPrompt(candidates []news.Metadata) string {
	var b strings.Builder
	for i, m := range candidates {
		fmt.Fprintf(&b, "%d. 제목: %s\n", i+1, m.Title)
		if m.Summary != "" {
			fmt.Fprintf(&b, "   요약: %s\n", m.Summary)
		}
		b.WriteString("\n")
	}
	return selectionPrompt(len(candidates), b.String())
}

func articlesPrompt(articles []news.Article) string {
	var b strings.Builder
	for i, a := range articles {
		fmt.Fprintf(&b, "\n%d. 제목: %s\n", i+1, a.Title)
		fmt.Fprintf(&b, "   출처: %s\n", a.Source)
		fmt.Fprintf(&b, "   날짜: %s\n", a.PublishedAt.Format("2006-01-02 15:04"))
		fmt.Fprintf(&b, "   본문 미리보기: %s...\n", a.Snippet(300))
	}
	return selectionPrompt(len(articles), b.String())
}

func rankingPrompt(articles []news.Article) string {
	var b strings.Builder
	for i, a := range articles {
		fmt.Fprintf(&b, "\n%d. 제목: %s\n", i+1, a.Title)
		fmt.Fprintf(&b, "   본문: %s...\n", a.Snippet(200))
	}
	return fmt.Sprintf(`다음 %d개 경제 뉴스를 중요도 순으로 랭킹해주세요.

뉴스 목록:
%s

**랭킹 기준**: 경제적 영향력, 시의성, 독자 유용성

**답변 형식** (번호만 쉼표로 구분):
3, 1, 5, 2, 4

(예: 3번 뉴스가 가장 중요, 1번이 두 번째, ...)`, len(articles), b.String())
}
