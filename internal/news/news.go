package news

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrInvalidArticle is returned when a record misses a field the selectors rely on.
var ErrInvalidArticle = errors.New("invalid article")

// Article is a single scraped news item. The scoring core only reads the
// first five fields; the rest are filled in by the analysis stage.
type Article struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	PublishedAt time.Time `json:"published_at"`
	Source      string    `json:"source"`

	Summary     string   `json:"summary,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// Metadata is the cheap projection of an article used before its body is fetched.
type Metadata struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
}

// Scored pairs an article with its score for the duration of a ranking pass.
type Scored struct {
	Article Article
	Score   float64
}

func (a Article) Validate() error {
	switch {
	case strings.TrimSpace(a.URL) == "":
		return fmt.Errorf("%w: empty url", ErrInvalidArticle)
	case strings.TrimSpace(a.Title) == "":
		return fmt.Errorf("%w: empty title (%s)", ErrInvalidArticle, a.URL)
	case a.PublishedAt.IsZero():
		return fmt.Errorf("%w: missing publish time (%s)", ErrInvalidArticle, a.URL)
	}
	return nil
}

func (m Metadata) Validate() error {
	switch {
	case strings.TrimSpace(m.URL) == "":
		return fmt.Errorf("%w: empty url", ErrInvalidArticle)
	case strings.TrimSpace(m.Title) == "":
		return fmt.Errorf("%w: empty title (%s)", ErrInvalidArticle, m.URL)
	}
	return nil
}

// ValidateAll reports the first invalid article together with its index.
func ValidateAll(articles []Article) error {
	for i, a := range articles {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("article %d: %w", i, err)
		}
	}
	return nil
}

// Metadata projects the article down to the fields used by metadata selection.
func (a Article) Metadata() Metadata {
	return Metadata{URL: a.URL, Title: a.Title, Summary: a.Summary}
}

// ContentKey hashes title and body, used to key cached analysis results.
func (a Article) ContentKey() string {
	h := sha1.New()
	h.Write([]byte(strings.ToLower(a.Title + a.Content)))
	return hex.EncodeToString(h.Sum(nil))
}

// Snippet returns at most n runes of the body.
func (a Article) Snippet(n int) string {
	return Truncate(a.Content, n)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// FallbackSummary picks the first two reasonably long sentences of the body.
func FallbackSummary(content string) string {
	c := strings.TrimSpace(content)
	if c == "" {
		return "(내용 없음)"
	}
	var picked []string
	for _, s := range strings.Split(c, ".") {
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) < 25 {
			continue
		}
		picked = append(picked, s)
		if len(picked) >= 2 {
			break
		}
	}
	if len(picked) == 0 {
		if utf8.RuneCountInString(c) > 160 {
			return Truncate(c, 160) + "..."
		}
		return c
	}
	return strings.Join(picked, ". ") + "."
}

// SaveJSON writes the article as indented JSON, creating parent directories.
func (a Article) SaveJSON(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal article: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write article: %w", err)
	}
	return nil
}

// LoadJSON reads an article written by SaveJSON.
func LoadJSON(path string) (Article, error) {
	var a Article
	data, err := os.ReadFile(path)
	if err != nil {
		return a, fmt.Errorf("failed to read article: %w", err)
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return a, fmt.Errorf("failed to parse article: %w", err)
	}
	return a, nil
}
