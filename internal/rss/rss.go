package rss

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"

	"github.com/spreadinsight/newsbot/internal/logger"
	"github.com/spreadinsight/newsbot/internal/news"
)

// FeedsConfig is YAML config structure
// feeds:
//   - https://...
type FeedsConfig struct {
	Feeds []string `yaml:"feeds"`
}

// LoadFeeds reads the RSS feed list from a YAML file.
func LoadFeeds(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg FeedsConfig
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	feeds := cfg.Feeds[:0]
	for _, u := range cfg.Feeds {
		if u = strings.TrimSpace(u); u != "" {
			feeds = append(feeds, u)
		}
	}
	return feeds, nil
}

// FetchMetadata downloads every feed and turns its items into candidate
// metadata. A broken feed is logged and skipped. limit <= 0 means no limit.
func FetchMetadata(ctx context.Context, urls []string, limit int) []news.Metadata {
	parser := gofeed.NewParser()
	seen := map[string]struct{}{}
	var out []news.Metadata
	successCount := 0

	for _, url := range urls {
		feed, err := parser.ParseURLWithContext(url, ctx)
		if err != nil {
			logger.Warn("Error parsing RSS", "url", url, "error", err)
			continue
		}
		successCount++
		logger.Debug("Loaded feed", "url", url, "items", len(feed.Items))

		for _, item := range feed.Items {
			md := itemMetadata(item)
			if md.Validate() != nil {
				continue
			}
			if _, dup := seen[md.URL]; dup {
				continue
			}
			seen[md.URL] = struct{}{}
			out = append(out, md)
			if limit > 0 && len(out) >= limit {
				logger.Info("Processed RSS feeds", "ok", successCount, "total", len(urls))
				return out
			}
		}
	}

	logger.Info("Processed RSS feeds", "ok", successCount, "total", len(urls))
	return out
}

func itemMetadata(item *gofeed.Item) news.Metadata {
	desc := item.Description
	if desc == "" {
		desc = item.Content
	}
	return news.Metadata{
		URL:     strings.TrimSpace(item.Link),
		Title:   strings.TrimSpace(stripTags(item.Title)),
		Summary: stripTags(desc),
	}
}

// stripTags returns the visible text of an HTML fragment.
func stripTags(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
