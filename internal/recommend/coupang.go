package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/spreadinsight/newsbot/internal/logger"
	"github.com/spreadinsight/newsbot/internal/news"
)

const (
	// DefaultPartnerLink is the single partner link used until per-product
	// links can be generated through the partner API.
	DefaultPartnerLink = "https://link.coupang.com/a/cVz6PI"
	// DefaultDisclosure is the Fair Trade Commission disclosure for affiliate posts.
	DefaultDisclosure = "이 포스팅은 쿠팡 파트너스 활동의 일환으로, 이에 따른 일정액의 수수료를 제공받습니다."
)

var partnerLinkPattern = regexp.MustCompile(`^https://link\.coupang\.com/(a|re)/[a-zA-Z0-9]+.*$`)

// ValidPartnerLink reports whether url looks like a Coupang partner link.
func ValidPartnerLink(url string) bool {
	return url != "" && partnerLinkPattern.MatchString(url)
}

// Generator is the text-generation dependency of the recommenders.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Product is one affiliate suggestion shown under an article.
type Product struct {
	Category      string `json:"category"`
	HookTitle     string `json:"hook_title"`
	AffiliateLink string `json:"affiliate_link"`
}

// Coupang asks a model for products related to an article and attaches the
// partner link to each of them.
type Coupang struct {
	gen        Generator
	link       string
	disclosure string
}

// NewCoupang falls back to the default link and disclosure when empty.
func NewCoupang(gen Generator, partnerLink, disclosure string) *Coupang {
	if partnerLink == "" {
		partnerLink = DefaultPartnerLink
	}
	if disclosure == "" {
		disclosure = DefaultDisclosure
	}
	if !ValidPartnerLink(partnerLink) {
		logger.Warn("Partner link does not look like a Coupang partner link", "link", partnerLink)
	}
	return &Coupang{gen: gen, link: partnerLink, disclosure: disclosure}
}

func (c *Coupang) Disclosure() string { return c.disclosure }

func (c *Coupang) PartnerLink() string { return c.link }

// Recommend returns at most maxItems products. Any model or parse failure
// yields an empty list.
func (c *Coupang) Recommend(ctx context.Context, a news.Article, maxItems int) []Product {
	if c.gen == nil || maxItems <= 0 {
		return nil
	}

	text, err := c.gen.Generate(ctx, coupangPrompt(a, maxItems))
	if err != nil {
		logger.Error("Failed to generate recommendations", "error", err)
		return nil
	}

	var products []Product
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &products); err != nil {
		logger.Error("Failed to parse recommendations", "error", err)
		return nil
	}

	out := products[:0]
	for _, p := range products {
		if strings.TrimSpace(p.Category) == "" && strings.TrimSpace(p.HookTitle) == "" {
			continue
		}
		p.AffiliateLink = c.link
		out = append(out, p)
		if len(out) == maxItems {
			break
		}
	}
	return out
}

// stripCodeFence extracts the body of a ```json (or bare ```) block.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	for _, fence := range []string{"```json", "```"} {
		if _, rest, ok := strings.Cut(text, fence); ok {
			body, _, _ := strings.Cut(rest, "```")
			return strings.TrimSpace(body)
		}
	}
	return text
}

func coupangPrompt(a news.Article, maxItems int) string {
	keywords := "없음"
	if len(a.Keywords) > 0 {
		keywords = strings.Join(a.Keywords, ", ")
	}
	return fmt.Sprintf(`당신은 쿠팡 파트너스 마케팅 전문가입니다.
다음 뉴스 기사를 읽은 독자가 관심 가질 만한 쿠팡 상품을 %d개 추천하고, 각각에 대해 클릭을 유도하는 강렬한 한 줄 타이틀을 작성해주세요.

**뉴스 제목**: %s
**키워드**: %s
**본문 일부**: %s...

**요구사항**:
1. 뉴스 내용과 직접 관련된 상품/카테고리 선정
   - 예: 베이글 가격 뉴스 → 베이글, 빵, 식품 관련
   - 예: 경제 정책 뉴스 → 경제 서적, 재테크 책
2. 각 상품에 대해 클릭을 유도하는 강렬하고 짧은 한 줄 타이틀 (15자 이내)
3. 실용적이고 구매 가능성이 높은 상품

**출력 형식** (JSON):
[
  {"category": "베이글", "hook_title": "지금 베이글 특가!"},
  {"category": "경제 도서", "hook_title": "경제 공부 필독서"}
]

JSON만 출력하세요. 다른 설명은 넣지 마세요.`, maxItems, a.Title, keywords, a.Snippet(500))
}
