package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/spreadinsight/newsbot/internal/cache"
	"github.com/spreadinsight/newsbot/internal/logger"
	"github.com/spreadinsight/newsbot/internal/news"
	"github.com/spreadinsight/newsbot/internal/retry"
)

const (
	DefaultSectionURL = "https://news.naver.com/section/101"
	SourceName        = "네이버"

	userAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	minContentRunes = 50
)

// ErrNoContent is returned when a page has no usable title or body.
var ErrNoContent = errors.New("no article content")

// Naver scrapes the Naver News economy section and article pages.
type Naver struct {
	client   *http.Client
	retry    retry.Config
	loc      *time.Location
	now      func() time.Time
	delay    time.Duration
	cache    *cache.Cache
	cacheTTL time.Duration
}

type Option func(*Naver)

func WithHTTPClient(c *http.Client) Option {
	return func(n *Naver) { n.client = c }
}

func WithRetry(cfg retry.Config) Option {
	return func(n *Naver) { n.retry = cfg }
}

// WithClock sets the time used when a page has no parseable date.
func WithClock(now func() time.Time) Option {
	return func(n *Naver) { n.now = now }
}

// WithLocation sets the zone page timestamps are written in.
func WithLocation(loc *time.Location) Option {
	return func(n *Naver) { n.loc = loc }
}

// WithDelay sets the pause between consecutive article requests.
func WithDelay(d time.Duration) Option {
	return func(n *Naver) { n.delay = d }
}

// WithCache memoises scraped articles by URL.
func WithCache(c *cache.Cache, ttl time.Duration) Option {
	return func(n *Naver) {
		n.cache = c
		n.cacheTTL = ttl
	}
}

func NewNaver(opts ...Option) *Naver {
	n := &Naver{
		client: &http.Client{Timeout: 10 * time.Second},
		retry:  retry.Config{MaxAttempts: 2, Delay: time.Second},
		loc:    seoul(),
		now:    time.Now,
		delay:  300 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func seoul() *time.Location {
	if loc, err := time.LoadLocation("Asia/Seoul"); err == nil {
		return loc
	}
	return time.FixedZone("KST", 9*60*60)
}

// FetchMetadata collects title, lede and URL of section headlines without
// opening the articles themselves.
func (n *Naver) FetchMetadata(ctx context.Context, sectionURL string, limit int) ([]news.Metadata, error) {
	doc, err := n.fetch(ctx, sectionURL)
	if err != nil {
		return nil, fmt.Errorf("metadata collection failed: %w", err)
	}

	seen := map[string]struct{}{}
	var out []news.Metadata
	doc.Find(".sa_item, .sa_item_inner").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		titleEl := item.Find(".sa_text_title, .sa_text_strong").First()
		if titleEl.Length() == 0 {
			return true
		}

		href, _ := titleEl.Attr("href")
		if href == "" || !strings.Contains(href, "news.naver.com") {
			return true
		}
		if _, dup := seen[href]; dup {
			return true
		}
		seen[href] = struct{}{}

		out = append(out, news.Metadata{
			URL:     href,
			Title:   strings.TrimSpace(titleEl.Text()),
			Summary: strings.TrimSpace(item.Find(".sa_text_lede").First().Text()),
		})
		return limit <= 0 || len(out) < limit
	})

	return out, nil
}

// ListArticles returns article URLs from the section page in page order.
func (n *Naver) ListArticles(ctx context.Context, sectionURL string, limit int) ([]string, error) {
	doc, err := n.fetch(ctx, sectionURL)
	if err != nil {
		return nil, fmt.Errorf("article list collection failed: %w", err)
	}

	seen := map[string]struct{}{}
	var links []string
	add := func(href string) {
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}
		links = append(links, href)
	}

	doc.Find(".sa_text_title").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if strings.HasPrefix(href, "http") && strings.Contains(href, "news.naver.com") {
			add(href)
		}
	})
	doc.Find("a.news_tit").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if strings.HasPrefix(href, "http") {
			add(href)
		}
	})

	if limit > 0 && len(links) > limit {
		links = links[:limit]
	}
	return links, nil
}

// ScrapeArticle downloads and parses one article page.
func (n *Naver) ScrapeArticle(ctx context.Context, url string) (news.Article, error) {
	if n.cache != nil {
		if v, ok := n.cache.Get(url); ok {
			if a, ok := v.(news.Article); ok {
				return a, nil
			}
		}
	}

	doc, err := n.fetch(ctx, url)
	if err != nil {
		return news.Article{}, err
	}

	a, err := n.parseArticle(doc, url)
	if err != nil {
		return news.Article{}, err
	}

	if n.cache != nil {
		n.cache.Set(url, a, n.cacheTTL)
	}
	return a, nil
}

// ScrapeArticles scrapes urls one by one, pausing between requests.
// Failures are logged and skipped.
func (n *Naver) ScrapeArticles(ctx context.Context, urls []string) []news.Article {
	var out []news.Article
	for i, url := range urls {
		if i > 0 && n.delay > 0 {
			select {
			case <-ctx.Done():
				return out
			case <-time.After(n.delay):
			}
		}

		a, err := n.ScrapeArticle(ctx, url)
		if err != nil {
			logger.Warn("Can't scrape article", "url", url, "error", err)
			continue
		}
		out = append(out, a)
	}
	return out
}

func (n *Naver) parseArticle(doc *goquery.Document, url string) (news.Article, error) {
	title := strings.TrimSpace(doc.Find("#title_area span, #articleTitle, h2.media_end_head_headline").First().Text())
	if title == "" {
		return news.Article{}, fmt.Errorf("%w: title not found (%s)", ErrNoContent, url)
	}

	body := doc.Find("#dic_area, #articeBody, #newsct_article")
	if body.Length() == 0 {
		return news.Article{}, fmt.Errorf("%w: body not found (%s)", ErrNoContent, url)
	}
	body.Find("script, style, iframe").Remove()

	var paragraphs []string
	body.Each(func(_ int, s *goquery.Selection) {
		if text := textLines(s); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	content := strings.Join(paragraphs, "\n\n")
	if utf8.RuneCountInString(content) < minContentRunes {
		return news.Article{}, fmt.Errorf("%w: body too short (%s)", ErrNoContent, url)
	}

	return news.Article{
		URL:         url,
		Title:       title,
		Content:     content,
		PublishedAt: n.publishedAt(doc),
		Source:      SourceName,
	}, nil
}

func (n *Naver) publishedAt(doc *goquery.Document) time.Time {
	el := doc.Find(".media_end_head_info_datestamp_time, .author_info em, span.t11").First()
	if el.Length() == 0 {
		return n.now()
	}

	raw, ok := el.Attr("data-date-time")
	if !ok || strings.TrimSpace(raw) == "" {
		raw = el.Text()
	}
	if t, ok := ParseDate(raw, n.loc); ok {
		return t
	}
	logger.Debug("Unparseable article date", "raw", raw)
	return n.now()
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006.01.02. 15:04",
	"2006.01.02 15:04",
	"2006-01-02T15:04:05",
}

// ParseDate reads the timestamp formats used on Naver article pages.
// A 오후 marker moves morning-clock hours into the afternoon.
func ParseDate(raw string, loc *time.Location) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}

	pm := strings.Contains(s, "오후")
	s = strings.ReplaceAll(s, "오전", "")
	s = strings.ReplaceAll(s, "오후", "")
	s = strings.Join(strings.Fields(s), " ")

	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			continue
		}
		if pm && t.Hour() < 12 {
			t = t.Add(12 * time.Hour)
		}
		return t, true
	}
	return time.Time{}, false
}

// textLines mimics a text dump with one line per text node, blank nodes dropped.
func textLines(s *goquery.Selection) string {
	var lines []string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			if t := strings.TrimSpace(node.Data); t != "" {
				lines = append(lines, t)
			}
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, node := range s.Nodes {
		walk(node)
	}
	return strings.Join(lines, "\n")
}

func (n *Naver) fetch(ctx context.Context, url string) (*goquery.Document, error) {
	var doc *goquery.Document
	err := retry.Do(ctx, n.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return retry.Permanent(fmt.Errorf("bad request: %w", err))
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := n.client.Do(req)
		if err != nil {
			return fmt.Errorf("error loading page: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("HTTP error: %d", resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return retry.Permanent(err)
			}
			return err
		}

		doc, err = goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return fmt.Errorf("error parsing HTML: %w", err)
		}
		return nil
	})
	return doc, err
}
