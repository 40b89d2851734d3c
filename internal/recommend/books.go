package recommend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/spreadinsight/newsbot/internal/logger"
	"github.com/spreadinsight/newsbot/internal/news"
)

type Book struct {
	Title         string   `json:"title"`
	Author        string   `json:"author,omitempty"`
	Description   string   `json:"description,omitempty"`
	Keywords      []string `json:"keywords"`
	AffiliateLink string   `json:"affiliate_link,omitempty"`

	Category string `json:"category,omitempty"`
	Score    int    `json:"score,omitempty"`
}

// Books matches articles against a category → books catalogue.
type Books struct {
	db map[string][]Book
}

func NewBooks(db map[string][]Book) *Books {
	return &Books{db: db}
}

// LoadBooks reads the catalogue JSON. A missing file gives an empty catalogue.
func LoadBooks(path string) (*Books, error) {
	if path == "" {
		return NewBooks(nil), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Books DB not found", "path", path)
		return NewBooks(nil), nil
	}
	if err != nil {
		return nil, err
	}

	var db map[string][]Book
	if err := json.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return NewBooks(db), nil
}

// Recommend scores every book against the article and returns the best
// maxBooks with a positive score, highest first.
func (b *Books) Recommend(a news.Article, keywords []string, maxBooks int) []Book {
	if maxBooks <= 0 {
		return nil
	}
	text := strings.ToLower(a.Title + " " + strings.Join(keywords, " ") + " " + a.Content)

	categories := make([]string, 0, len(b.db))
	for c := range b.db {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var scored []Book
	for _, category := range categories {
		for _, book := range b.db[category] {
			score := bookScore(book, text, keywords)
			if score <= 0 {
				continue
			}
			book.Category = category
			book.Score = score
			scored = append(scored, book)
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > maxBooks {
		scored = scored[:maxBooks]
	}
	return scored
}

func bookScore(book Book, text string, keywords []string) int {
	score := 0
	for _, kw := range book.Keywords {
		kw = strings.ToLower(kw)
		if strings.Contains(text, kw) {
			score += 10
		}
		for _, ak := range keywords {
			ak = strings.ToLower(ak)
			if strings.Contains(ak, kw) || strings.Contains(kw, ak) {
				score += 20
			}
		}
	}
	return score
}
