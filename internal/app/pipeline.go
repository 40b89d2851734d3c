package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/spreadinsight/newsbot/internal/config"
	"github.com/spreadinsight/newsbot/internal/logger"
	"github.com/spreadinsight/newsbot/internal/metrics"
	"github.com/spreadinsight/newsbot/internal/news"
	"github.com/spreadinsight/newsbot/internal/recommend"
	"github.com/spreadinsight/newsbot/internal/selector"
	"github.com/spreadinsight/newsbot/internal/storage"
	"github.com/spreadinsight/newsbot/internal/telegram"
	"github.com/spreadinsight/newsbot/internal/terminology"
)

var (
	// ErrNoNews means every candidate was already sent or nothing was found.
	ErrNoNews = errors.New("no new news")
	// ErrNoArticle means candidates existed but none could be scraped.
	ErrNoArticle = errors.New("no usable article")
)

// maxScrapeAttempts bounds how many AI-ordered candidates are tried when the
// chosen page can't be scraped.
const maxScrapeAttempts = 3

// Scraper is the news site the pipeline reads from.
type Scraper interface {
	FetchMetadata(ctx context.Context, sectionURL string, limit int) ([]news.Metadata, error)
	ScrapeArticle(ctx context.Context, url string) (news.Article, error)
	ScrapeArticles(ctx context.Context, urls []string) []news.Article
}

// Analyzer produces the reader-facing text for an article.
type Analyzer interface {
	Summarize(ctx context.Context, a news.Article, sentences int) (string, error)
	ExplainSimple(ctx context.Context, a news.Article) (string, error)
	ExtractKeywords(ctx context.Context, a news.Article, limit int) ([]string, error)
}

// FeedFetcher returns extra candidates from RSS feeds.
type FeedFetcher func(ctx context.Context, urls []string, limit int) []news.Metadata

// Deps are the collaborators of a Pipeline. Optional ones may be nil.
type Deps struct {
	Scraper       Scraper
	Feeds         []string
	FetchFeeds    FeedFetcher
	Scorer        *selector.Scorer
	AI            *selector.AISelector
	Analyzer      Analyzer
	AnalysisCache storage.AnalysisCache
	Coupang       *recommend.Coupang
	Books         *recommend.Books
	Terms         *terminology.Extractor
	Publisher     *telegram.Publisher
	Sent          storage.SentStore
	Metrics       *metrics.Metrics
	Now           func() time.Time
	Location      *time.Location
}

// Pipeline selects one economic article per run and publishes it.
type Pipeline struct {
	cfg *config.Config
	Deps
	log *logrus.Entry
}

func NewPipeline(cfg *config.Config, deps Deps) *Pipeline {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Global
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Scorer == nil {
		deps.Scorer = selector.NewScorer(selector.DefaultTerms(), selector.WithClock(deps.Now))
	}
	if deps.AI == nil {
		deps.AI = selector.NewAISelector(nil, selector.WithMetrics(deps.Metrics))
	}
	return &Pipeline{cfg: cfg, Deps: deps, log: logger.With("component", "pipeline")}
}

// Result describes what a run published.
type Result struct {
	Strategy string
	Article  news.Article
	Post     telegram.Post
}

// Run performs one collect → select → analyze → publish cycle.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := p.Now()
	p.Metrics.IncrementRuns()

	res, err := p.run(ctx)
	p.Metrics.RecordProcessingTime(p.Now().Sub(start))

	switch {
	case errors.Is(err, ErrNoNews):
		p.log.Info("No new news to send")
		p.Metrics.SetLastRun()
	case err != nil:
		p.log.WithError(err).Error("Run failed")
		p.Metrics.SetError(err.Error())
	default:
		p.Metrics.SetLastRun()
	}
	return res, err
}

func (p *Pipeline) run(ctx context.Context) (*Result, error) {
	candidates, err := p.collect(ctx)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoNews
	}

	strategy := p.cfg.EffectiveStrategy()
	p.log.WithFields(logrus.Fields{"candidates": len(candidates), "strategy": strategy}).Info("Selecting article")

	var article news.Article
	if strategy == config.StrategyAI {
		article, err = p.selectAI(ctx, candidates)
	} else {
		article, err = p.selectRule(ctx, candidates)
	}
	if err != nil {
		return nil, err
	}
	p.log.WithFields(logrus.Fields{"title": article.Title, "url": article.URL}).Info("Selected article")

	p.analyze(ctx, &article)
	post := p.compose(ctx, article)

	if dir := p.cfg.OutputDir; dir != "" {
		name := fmt.Sprintf("%s_%s.json", p.Now().In(p.Location).Format("20060102_150405"), article.ContentKey()[:8])
		if err := article.SaveJSON(filepath.Join(dir, name)); err != nil {
			p.log.WithError(err).Warn("Can't save article JSON")
		}
	}

	if p.Publisher == nil {
		return nil, errors.New("no publisher configured")
	}
	if err := p.Publisher.PublishArticle(ctx, post); err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	p.Metrics.IncrementArticlesPublished()

	if p.Sent != nil && !p.cfg.DryRun {
		err := p.Sent.MarkSent(ctx, storage.SentItem{Title: article.Title, Link: article.URL, Source: article.Source})
		if err != nil {
			p.log.WithError(err).Warn("Can't mark article as sent")
		}
	}

	return &Result{Strategy: strategy, Article: article, Post: post}, nil
}

// collect gathers section headlines plus feed items and drops the ones
// already sent.
func (p *Pipeline) collect(ctx context.Context) ([]news.Metadata, error) {
	var all []news.Metadata

	naver, err := p.Scraper.FetchMetadata(ctx, p.cfg.NaverSectionURL, p.cfg.MaxMetadata)
	if err != nil {
		if len(p.Feeds) == 0 {
			return nil, err
		}
		p.log.WithError(err).Warn("Section scrape failed, using feeds only")
	}
	all = append(all, naver...)

	if len(p.Feeds) > 0 && p.FetchFeeds != nil {
		all = append(all, p.FetchFeeds(ctx, p.Feeds, p.cfg.MaxMetadata)...)
	}

	seen := map[string]struct{}{}
	fresh := make([]news.Metadata, 0, len(all))
	for _, md := range all {
		if _, dup := seen[md.URL]; dup {
			continue
		}
		seen[md.URL] = struct{}{}

		if p.Sent != nil {
			sent, err := p.Sent.IsSent(ctx, md.URL)
			if err != nil {
				p.log.WithError(err).Warn("Sent history lookup failed")
			}
			if sent {
				p.Metrics.IncrementAlreadySent()
				continue
			}
		}
		fresh = append(fresh, md)
	}

	p.Metrics.AddCandidates(len(fresh))
	p.log.WithFields(logrus.Fields{"collected": len(all), "new": len(fresh)}).Info("Collected candidates")
	return fresh, nil
}

// selectAI lets the model pick from headlines, then scrapes the winner. If
// that page fails the following candidates are tried in order.
func (p *Pipeline) selectAI(ctx context.Context, candidates []news.Metadata) (news.Article, error) {
	url, ok := p.AI.SelectBestByMetadata(ctx, candidates)
	if !ok {
		return news.Article{}, ErrNoArticle
	}

	order := []string{url}
	for _, c := range candidates {
		if c.URL != url {
			order = append(order, c.URL)
		}
	}

	for i, u := range order {
		if i >= maxScrapeAttempts {
			break
		}
		a, err := p.Scraper.ScrapeArticle(ctx, u)
		if err == nil {
			if err = a.Validate(); err == nil {
				return a, nil
			}
		}
		p.log.WithError(err).WithField("url", u).Warn("Can't use selected article")
	}
	return news.Article{}, ErrNoArticle
}

// selectRule scrapes the first candidates and keeps the best-scoring one.
func (p *Pipeline) selectRule(ctx context.Context, candidates []news.Metadata) (news.Article, error) {
	limit := p.cfg.ScrapeMaxArticles
	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}
	urls := make([]string, 0, limit)
	for _, c := range candidates[:limit] {
		urls = append(urls, c.URL)
	}

	var valid []news.Article
	for _, a := range p.Scraper.ScrapeArticles(ctx, urls) {
		if err := a.Validate(); err != nil {
			p.log.WithError(err).Debug("Dropping invalid article")
			continue
		}
		valid = append(valid, a)
	}

	pool := p.Scorer.FilterByCriteria(valid)
	if len(pool) == 0 {
		pool = valid
	}

	top := p.Scorer.SelectTop(pool, 1)
	if len(top) == 0 {
		return news.Article{}, ErrNoArticle
	}

	b := p.Scorer.Breakdown(top[0].Article)
	p.log.WithFields(logrus.Fields{"score": top[0].Score, "pool": len(pool)}).Info("Rule selection")
	for _, r := range b.Reasons() {
		p.log.Debug(r)
	}
	return top[0].Article, nil
}

// analyze fills Summary, Explanation and Keywords. Each step falls back
// independently; a complete result is cached by content hash.
func (p *Pipeline) analyze(ctx context.Context, a *news.Article) {
	key := a.ContentKey()
	if p.AnalysisCache != nil {
		cached, ok, err := p.AnalysisCache.GetAnalysis(ctx, key)
		if err != nil {
			p.log.WithError(err).Warn("Analysis cache lookup failed")
		}
		if ok {
			a.Summary, a.Explanation, a.Keywords = cached.Summary, cached.Explanation, cached.Keywords
			p.log.Debug("Analysis cache hit")
			return
		}
	}

	if p.Analyzer == nil {
		a.Summary = news.FallbackSummary(a.Content)
		return
	}

	complete := true
	fail := func(step string, err error) {
		complete = false
		p.Metrics.IncrementAnalysisFailures()
		p.log.WithError(err).WithField("step", step).Warn("Analysis step failed")
	}

	if s, err := p.Analyzer.Summarize(ctx, *a, p.cfg.SummarySentences); err != nil || s == "" {
		fail("summary", err)
		a.Summary = news.FallbackSummary(a.Content)
	} else {
		a.Summary = s
	}

	if e, err := p.Analyzer.ExplainSimple(ctx, *a); err != nil {
		fail("explanation", err)
	} else {
		a.Explanation = e
	}

	if kws, err := p.Analyzer.ExtractKeywords(ctx, *a, p.cfg.MaxKeywords); err != nil {
		fail("keywords", err)
	} else {
		a.Keywords = kws
	}

	if complete && p.AnalysisCache != nil {
		err := p.AnalysisCache.PutAnalysis(ctx, storage.Analysis{
			ContentHash: key,
			Summary:     a.Summary,
			Explanation: a.Explanation,
			Keywords:    a.Keywords,
			Provider:    p.cfg.LLMProvider,
		})
		if err != nil {
			p.log.WithError(err).Warn("Can't store analysis")
		}
	}
}

// compose attaches recommendations and the term of the day.
func (p *Pipeline) compose(ctx context.Context, a news.Article) telegram.Post {
	post := telegram.Post{
		Title:       a.Title,
		Date:        p.Now().In(p.Location).Format("2006년 01월 02일"),
		URL:         a.URL,
		Summary:     a.Summary,
		Keywords:    a.Keywords,
		Explanation: a.Explanation,
	}

	if p.Coupang != nil {
		post.Products = p.Coupang.Recommend(ctx, a, 1)
		if len(post.Products) > 0 {
			post.Disclosure = p.Coupang.Disclosure()
		}
	}
	if p.Books != nil {
		post.Books = p.Books.Recommend(a, a.Keywords, 2)
	}

	if p.Terms != nil && p.cfg.MaxTerms > 0 {
		var blocks []string
		for _, m := range p.Terms.Extract(a, p.cfg.MaxTerms) {
			x, err := p.Terms.Explain(ctx, m.Term)
			if err != nil {
				p.log.WithError(err).WithField("term", m.Term).Warn("Can't explain term")
				continue
			}
			blocks = append(blocks, terminology.Format(x))
		}
		post.Term = strings.Join(blocks, "\n\n")
	}
	return post
}
