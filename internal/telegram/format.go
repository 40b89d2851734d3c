package telegram

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/spreadinsight/newsbot/internal/recommend"
)

// MaxMessageRunes keeps each chunk under the Bot API limit of 4096.
const MaxMessageRunes = 4000

// Post is everything published for one selected article.
type Post struct {
	Title       string
	Date        string
	URL         string
	Summary     string
	Keywords    []string
	Explanation string
	Term        string // preformatted terminology block
	Products    []recommend.Product
	Books       []recommend.Book
	Disclosure  string
}

// Formatter renders a Post into Telegram messages.
type Formatter interface {
	Version() string
	Format(p Post) []string
}

var formatters = map[string]func() Formatter{
	"v1": func() Formatter { return V1{} },
	"v2": func() Formatter { return V2{} },
}

// NewFormatter returns the formatter registered under version.
func NewFormatter(version string) (Formatter, error) {
	f, ok := formatters[version]
	if !ok {
		return nil, fmt.Errorf("unknown telegram format %q (available: %s)", version, strings.Join(Versions(), ", "))
	}
	return f(), nil
}

// Versions lists the registered format versions.
func Versions() []string {
	out := make([]string, 0, len(formatters))
	for v := range formatters {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// TitleMessage is the opener sent before the article body.
func TitleMessage(date string) string {
	if date == "" {
		return "금일의 뉴스!"
	}
	return fmt.Sprintf("금일의 뉴스! (%s)", date)
}

// V1 is the full format: summary, hashtags, explanation, recommendations.
type V1 struct{}

func (V1) Version() string { return "v1" }

func (V1) Format(p Post) []string {
	var sections []string
	if p.Title != "" {
		sections = append(sections, p.Title)
	}
	if p.Summary != "" {
		sections = append(sections, "\n📌 요약\n"+p.Summary)
	}
	if len(p.Keywords) > 0 {
		tags := make([]string, len(p.Keywords))
		for i, kw := range p.Keywords {
			tags[i] = "#" + kw
		}
		sections = append(sections, "\n🏷️ 키워드\n"+strings.Join(tags, ", "))
	}
	if p.Explanation != "" {
		sections = append(sections, "\n💡 쉬운 설명\n"+p.Explanation)
	}
	if p.Term != "" {
		sections = append(sections, "\n"+p.Term)
	}
	if len(p.Books) > 0 {
		sections = append(sections, formatBooks(p.Books))
	}
	if len(p.Products) > 0 {
		sections = append(sections, formatProduct("🛒 쿠팡 파트너스 추천", p.Products[0]))
	}
	if p.Disclosure != "" {
		sections = append(sections, "\n💳 "+p.Disclosure)
	}
	return SplitMessage(strings.Join(sections, "\n\n"), MaxMessageRunes)
}

// V2 is the short "핵심 3줄" format.
type V2 struct{}

func (V2) Version() string { return "v2" }

func (V2) Format(p Post) []string {
	var sections []string
	if p.Title != "" {
		sections = append(sections, p.Title)
	}
	if lines := keyLines(p); lines != "" {
		sections = append(sections, "\n[핵심 3줄]\n\n"+lines)
	}
	if p.Term != "" {
		sections = append(sections, "\n"+p.Term)
	}
	if len(p.Products) > 0 {
		sections = append(sections, formatProduct("[쿠팡 파트너스 추천]", p.Products[0]))
	}
	if p.Disclosure != "" {
		sections = append(sections, "\n"+p.Disclosure)
	}
	return SplitMessage(strings.Join(sections, "\n\n"), MaxMessageRunes)
}

var (
	boldPattern    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	headingPattern = regexp.MustCompile(`#{1,6}\s+`)
)

func keyLines(p Post) string {
	explanation := strings.TrimSpace(p.Explanation)
	if explanation == "" {
		return fmt.Sprintf("Q. 무슨 일이야?\nA. %s\n\nQ. 내 투자엔 어떤 영향?\nA. 추가 분석 필요\n\nQ. 뭘 주목해야 해?\nA. 관련 뉴스 지속 모니터링", p.Summary)
	}
	explanation = boldPattern.ReplaceAllString(explanation, "$1")
	return headingPattern.ReplaceAllString(explanation, "")
}

func formatProduct(header string, p recommend.Product) string {
	category := p.Category
	if category == "" {
		category = "상품"
	}
	hook := p.HookTitle
	if hook == "" {
		hook = "확인하기"
	}
	msg := fmt.Sprintf("\n%s\n%s: %s\n", header, category, hook)
	if p.AffiliateLink != "" {
		msg += p.AffiliateLink
	}
	return msg
}

func formatBooks(books []recommend.Book) string {
	var b strings.Builder
	b.WriteString("📚 추천 도서\n")
	for i, book := range books {
		fmt.Fprintf(&b, "\n%d. %s", i+1, book.Title)
		if book.Author != "" {
			fmt.Fprintf(&b, "\n   저자: %s", book.Author)
		}
		if book.AffiliateLink != "" {
			fmt.Fprintf(&b, "\n   🔗 %s", book.AffiliateLink)
		}
	}
	return b.String()
}

// SplitMessage breaks text on line boundaries into chunks of at most
// maxRunes runes. A single line longer than maxRunes is cut.
func SplitMessage(text string, maxRunes int) []string {
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return []string{text}
	}

	var (
		chunks []string
		cur    strings.Builder
		curLen int
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
		curLen = 0
	}

	for _, line := range strings.Split(text, "\n") {
		for utf8.RuneCountInString(line) > maxRunes {
			flush()
			r := []rune(line)
			chunks = append(chunks, string(r[:maxRunes]))
			line = string(r[maxRunes:])
		}
		n := utf8.RuneCountInString(line)
		if curLen+n+1 > maxRunes {
			flush()
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
		curLen += n + 1
	}
	flush()
	return chunks
}
