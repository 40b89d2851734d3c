package terminology

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spreadinsight/newsbot/internal/news"
)

// Entry is one term in the curated database.
type Entry struct {
	Tier         int    `json:"tier"`
	Category     string `json:"category"`
	SimpleDef    string `json:"simple_def"`
	Example      string `json:"example"`
	WhyImportant string `json:"why_important"`
}

// Match is a database term found in an article.
type Match struct {
	Term     string
	Tier     int
	Category string
	Count    int
	InTitle  bool
}

// Explanation is what gets shown to readers.
type Explanation struct {
	Term         string
	Tier         int
	Category     string
	Definition   string
	Example      string
	WhyImportant string
}

// Generator is the text-generation dependency used for unknown terms.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Extractor struct {
	db  map[string]Entry
	gen Generator
}

func New(db map[string]Entry, gen Generator) *Extractor {
	return &Extractor{db: db, gen: gen}
}

// Load reads the term database JSON.
func Load(path string, gen Generator) (*Extractor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("terminology database: %w", err)
	}
	var db map[string]Entry
	if err := json.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return New(db, gen), nil
}

func (e *Extractor) Len() int { return len(e.db) }

// Extract finds database terms in the article, lower tier first, then terms
// that appear in the title, then by frequency.
func (e *Extractor) Extract(a news.Article, limit int) []Match {
	terms := make([]string, 0, len(e.db))
	for term := range e.db {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	var found []Match
	for _, term := range terms {
		if term == "" {
			continue
		}
		inTitle := strings.Count(a.Title, term)
		total := inTitle + strings.Count(a.Content, term)
		if total == 0 {
			continue
		}
		entry := e.db[term]
		found = append(found, Match{
			Term:     term,
			Tier:     entry.Tier,
			Category: entry.Category,
			Count:    total,
			InTitle:  inTitle > 0,
		})
	}

	sort.SliceStable(found, func(i, j int) bool {
		x, y := found[i], found[j]
		if x.Tier != y.Tier {
			return x.Tier < y.Tier
		}
		if x.InTitle != y.InTitle {
			return x.InTitle
		}
		return x.Count > y.Count
	})

	if limit >= 0 && len(found) > limit {
		found = found[:limit]
	}
	return found
}

// Explain uses the database entry when there is one and asks the model otherwise.
func (e *Extractor) Explain(ctx context.Context, term string) (Explanation, error) {
	if entry, ok := e.db[term]; ok {
		return Explanation{
			Term:         term,
			Tier:         entry.Tier,
			Category:     entry.Category,
			Definition:   entry.SimpleDef,
			Example:      entry.Example,
			WhyImportant: entry.WhyImportant,
		}, nil
	}
	if e.gen == nil {
		return Explanation{}, fmt.Errorf("no explanation for %q", term)
	}

	text, err := e.gen.Generate(ctx, fmt.Sprintf(explainTermPrompt, term))
	if err != nil {
		return Explanation{}, fmt.Errorf("term explanation failed: %w", err)
	}

	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	line := func(i int, fallback string) string {
		if i < len(lines) {
			return lines[i]
		}
		return fallback
	}

	return Explanation{
		Term:         term,
		Tier:         3,
		Category:     "기타",
		Definition:   line(0, "정의 없음"),
		Example:      line(1, "예시 없음"),
		WhyImportant: line(2, "중요도 설명 없음"),
	}, nil
}

// Format renders an explanation as the "term of the day" block.
func Format(x Explanation) string {
	return fmt.Sprintf(`[용어] 알아두면 좋은 용어

**"%s"**
%s

[쉽게] 쉽게 말하면?
%s

[중요] 왜 중요할까요?
%s`, x.Term, x.Definition, x.Example, x.WhyImportant)
}

const explainTermPrompt = `다음 경제 용어를 초등학생도 이해할 수 있게 설명해주세요:

용어: %s

답변 형식 (각 항목을 구분하여 작성):

1. 한 줄 정의 (20자 이내):
[여기에 작성]

2. 구체적 예시 (일상생활 비유):
[여기에 작성]

3. 왜 중요한가? (1문장):
[여기에 작성]`
