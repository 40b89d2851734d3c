package selector

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spreadinsight/newsbot/internal/news"
)

// ExcludedScore is returned for any article containing an exclusion term.
const ExcludedScore = -50.0

const maxKeywordPoints = 40

var (
	percentPattern  = regexp.MustCompile(`\d+\.?\d*%`)
	currencyPattern = regexp.MustCompile(`\d+조|\d+억`)
	statPattern     = regexp.MustCompile(`\d+\.?\d*%|\d+조|\d+억`)
)

// Scorer assigns editorial importance scores. It holds only the term lists
// and a clock, so one value can be shared freely between goroutines.
type Scorer struct {
	terms Terms
	now   func() time.Time
}

type Option func(*Scorer)

// WithClock overrides time.Now for recency scoring.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		s.now = now
	}
}

func NewScorer(terms Terms, opts ...Option) *Scorer {
	s := &Scorer{
		terms: terms.normalized(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scorer) Terms() Terms {
	return s.terms
}

// Breakdown is the per-bucket account of a score.
type Breakdown struct {
	Excluded   bool
	ExcludedBy string

	Keywords       []string
	TitleMatches   int
	ContentMatches int
	HoursOld       float64
	Trusted        bool
	Runes          int
	Statistics     int

	KeywordPoints    float64
	RecencyPoints    float64
	SourcePoints     float64
	LengthPoints     float64
	StatisticsPoints float64

	Total float64
}

// Score returns the importance of a: -50 when excluded, otherwise 0..100.
func (s *Scorer) Score(a news.Article) float64 {
	return s.Breakdown(a).Total
}

func (s *Scorer) Breakdown(a news.Article) Breakdown {
	var b Breakdown

	for _, kw := range s.terms.ExcludeKeywords {
		if strings.Contains(a.Title, kw) || strings.Contains(a.Content, kw) {
			b.Excluded = true
			b.ExcludedBy = kw
			b.Total = ExcludedScore
			return b
		}
	}

	for _, kw := range s.terms.PriorityKeywords {
		inTitle := strings.Contains(a.Title, kw)
		inContent := strings.Contains(a.Content, kw)
		if inTitle {
			b.TitleMatches++
		}
		if inContent {
			b.ContentMatches++
		}
		if inTitle || inContent {
			b.Keywords = append(b.Keywords, kw)
		}
	}
	b.KeywordPoints = math.Min(maxKeywordPoints, float64(10*b.TitleMatches+2*b.ContentMatches))

	b.HoursOld = s.now().Sub(a.PublishedAt).Hours()
	b.RecencyPoints = recencyPoints(b.HoursOld)

	b.Trusted = s.trusted(a.Source)
	if b.Trusted {
		b.SourcePoints = 20
	}

	b.Runes = utf8.RuneCountInString(a.Content)
	b.LengthPoints = lengthPoints(b.Runes)

	b.Statistics = countStatistics(a.Content)
	b.StatisticsPoints = statisticsPoints(b.Statistics)

	total := b.KeywordPoints + b.RecencyPoints + b.SourcePoints + b.LengthPoints + b.StatisticsPoints
	b.Total = math.Round(total*100) / 100
	return b
}

func (s *Scorer) trusted(source string) bool {
	for _, src := range s.terms.TrustedSources {
		if strings.Contains(source, src) {
			return true
		}
	}
	return false
}

func recencyPoints(hours float64) float64 {
	switch {
	case hours < 6:
		return 20
	case hours < 24:
		return 15
	case hours < 48:
		return 10
	case hours < 72:
		return 5
	default:
		return 0
	}
}

func lengthPoints(n int) float64 {
	switch {
	case n >= 500 && n <= 3000:
		return 10
	case (n >= 300 && n < 500) || (n > 3000 && n <= 4000):
		return 7
	case (n >= 200 && n < 300) || (n > 4000 && n <= 5000):
		return 5
	default:
		return 0
	}
}

func countStatistics(content string) int {
	return len(percentPattern.FindAllStringIndex(content, -1)) +
		len(currencyPattern.FindAllStringIndex(content, -1))
}

func statisticsPoints(n int) float64 {
	switch {
	case n >= 5:
		return 10
	case n >= 3:
		return 7
	case n >= 1:
		return 5
	default:
		return 0
	}
}

// Reasons renders the breakdown as short Korean lines for logs and debug output.
func (b Breakdown) Reasons() []string {
	if b.Excluded {
		return []string{fmt.Sprintf("[-] 제외 키워드 포함: %s", b.ExcludedBy)}
	}

	var out []string
	if len(b.Keywords) > 0 {
		kws := b.Keywords
		if len(kws) > 5 {
			kws = kws[:5]
		}
		out = append(out, fmt.Sprintf("[+] 우선순위 키워드 포함: %s", strings.Join(kws, ", ")))
	}
	if b.HoursOld < 24 {
		out = append(out, fmt.Sprintf("[+] 최근 뉴스 (%d시간 전)", int(b.HoursOld)))
	}
	if b.Trusted {
		out = append(out, "[+] 신뢰할 수 있는 언론사")
	}
	out = append(out, fmt.Sprintf("[+] 적절한 본문 길이 (%d자)", b.Runes))
	if b.Statistics > 0 {
		out = append(out, fmt.Sprintf("[+] 데이터 기반 (%d개 통계/수치 포함)", b.Statistics))
	}
	return out
}
