package selector

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Terms holds the editorial term lists the scorer matches against.
// Matching is case-sensitive substring containment.
type Terms struct {
	PriorityKeywords []string `yaml:"priorityKeywords"`
	ExcludeKeywords  []string `yaml:"excludeKeywords"`
	TrustedSources   []string `yaml:"trustedSources"`
}

// DefaultTerms returns the built-in lists used when no terms file is configured.
func DefaultTerms() Terms {
	return Terms{
		PriorityKeywords: []string{
			// monetary
			"금리", "환율", "달러", "원화", "연준", "Fed", "한국은행", "기준금리",
			"통화정책", "양적완화", "긴축",
			// trade
			"관세", "무역", "수출", "수입", "무역수지", "통상",
			// real estate
			"부동산", "아파트", "전세", "집값", "대출", "주택담보대출", "LTV", "DTI",
			// prices and tax
			"물가", "인플레이션", "CPI", "소비자물가", "생산자물가", "세금", "세제", "감세", "증세",
			// markets
			"주식", "코스피", "다우", "나스닥", "S&P", "채권", "국채", "회사채",
			// fiscal policy
			"경기부양", "재정", "예산", "경제정책", "법안", "규제완화", "개정",
			// macro indicators
			"GDP", "경제성장률", "실업률", "고용", "경기", "경기침체", "불황",
			// global economy
			"중국", "일본", "미국 경제", "유럽", "OPEC", "유가",
		},
		ExcludeKeywords: []string{
			"별세", "타계", "사망", "부고", "영면", "별세",
			"인사", "임명", "취임", "퇴임", "영전",
			"수상", "시상", "포상", "훈장",
			"결혼", "이혼", "열애",
			"사고", "사건", "범죄", "구속",
		},
		TrustedSources: []string{
			"한국경제", "매일경제", "조선일보", "중앙일보",
			"한겨레", "경향신문", "서울경제", "뉴시스",
		},
	}
}

// LoadTerms reads a YAML terms file. Keys absent from the file keep their defaults.
func LoadTerms(path string) (Terms, error) {
	terms := DefaultTerms()

	data, err := os.ReadFile(path)
	if err != nil {
		return Terms{}, fmt.Errorf("failed to read terms file: %w", err)
	}
	if err := yaml.Unmarshal(data, &terms); err != nil {
		return Terms{}, fmt.Errorf("failed to parse terms file: %w", err)
	}
	return terms, nil
}

// normalized drops empty entries and repeated terms so each term counts once.
func (t Terms) normalized() Terms {
	return Terms{
		PriorityKeywords: uniq(t.PriorityKeywords),
		ExcludeKeywords:  uniq(t.ExcludeKeywords),
		TrustedSources:   uniq(t.TrustedSources),
	}
}

func uniq(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
