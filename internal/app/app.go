package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spreadinsight/newsbot/internal/cache"
	"github.com/spreadinsight/newsbot/internal/config"
	"github.com/spreadinsight/newsbot/internal/gemini"
	"github.com/spreadinsight/newsbot/internal/logger"
	"github.com/spreadinsight/newsbot/internal/metrics"
	"github.com/spreadinsight/newsbot/internal/monitor"
	"github.com/spreadinsight/newsbot/internal/openai"
	"github.com/spreadinsight/newsbot/internal/ratelimit"
	"github.com/spreadinsight/newsbot/internal/recommend"
	"github.com/spreadinsight/newsbot/internal/retry"
	"github.com/spreadinsight/newsbot/internal/rss"
	"github.com/spreadinsight/newsbot/internal/scheduler"
	"github.com/spreadinsight/newsbot/internal/scraper"
	"github.com/spreadinsight/newsbot/internal/selector"
	"github.com/spreadinsight/newsbot/internal/storage"
	"github.com/spreadinsight/newsbot/internal/telegram"
	"github.com/spreadinsight/newsbot/internal/terminology"
)

// Options select how Run drives the pipeline.
type Options struct {
	Once bool // run immediately and exit instead of scheduling
}

// Run builds the pipeline from cfg and either runs it once or on schedule
// until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, opts Options) error {
	p, closeFn, err := Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	if cfg.EnableHTTPMonitoring {
		go func() {
			if err := monitor.Serve(ctx, cfg.MonitoringPort, metrics.Global); err != nil {
				logger.Error("Monitoring server error", "error", err)
			}
		}()
	}

	job := func(ctx context.Context) error {
		_, err := p.Run(ctx)
		if errors.Is(err, ErrNoNews) {
			return nil
		}
		return err
	}

	if opts.Once {
		return job(ctx)
	}

	s, err := scheduler.New(cfg.ScheduleCron, cfg.ScheduleTimezone)
	if err != nil {
		return err
	}
	return s.Start(ctx, job)
}

// Build wires every component named by cfg. The returned func releases
// clients and stores.
func Build(ctx context.Context, cfg *config.Config) (*Pipeline, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Pipeline, func(), error) {
		closeAll()
		return nil, func() {}, err
	}

	loc, err := time.LoadLocation(cfg.ScheduleTimezone)
	if err != nil {
		return fail(err)
	}
	retryCfg := retry.Config{MaxAttempts: cfg.RetryAttempts, Delay: cfg.RetryDelay, Backoff: true}

	limiter := ratelimit.New(map[string]int{
		gemini.Provider: cfg.MaxGeminiRequests,
	}, 0, 24*time.Hour)

	gen, closeGen, err := newGenerator(ctx, cfg, limiter)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closeGen)

	terms := selector.DefaultTerms()
	if cfg.TermsConfigPath != "" {
		if terms, err = selector.LoadTerms(cfg.TermsConfigPath); err != nil {
			return fail(err)
		}
	}

	pageCache := cache.New(10 * time.Minute)
	closers = append(closers, pageCache.Stop)
	naver := scraper.NewNaver(
		scraper.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		scraper.WithRetry(retryCfg),
		scraper.WithDelay(cfg.ScrapingDelay),
		scraper.WithLocation(loc),
		scraper.WithCache(pageCache, time.Duration(cfg.CacheTTLHours)*time.Hour),
	)

	var feeds []string
	if cfg.FeedsConfigPath != "" {
		if feeds, err = rss.LoadFeeds(cfg.FeedsConfigPath); err != nil {
			return fail(err)
		}
	}

	var (
		sent          storage.SentStore
		analysisCache storage.AnalysisCache
	)
	if cfg.DatabaseURL != "" {
		pg, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL, cfg.CacheTTLHours)
		if err != nil {
			return fail(err)
		}
		sent, analysisCache = pg, pg
	} else {
		fs, err := storage.OpenFileStore(cfg.CacheFilePath, cfg.CacheTTLHours)
		if err != nil {
			return fail(err)
		}
		sent = fs
	}
	closers = append(closers, func() {
		if err := sent.Close(); err != nil {
			logger.Warn("Can't close sent store", "error", err)
		}
	})

	books, err := recommend.LoadBooks(cfg.BooksDBPath)
	if err != nil {
		return fail(err)
	}

	var extractor *terminology.Extractor
	if cfg.TerminologyDBPath != "" {
		if extractor, err = terminology.Load(cfg.TerminologyDBPath, gen); err != nil {
			logger.Warn("Terminology disabled", "error", err)
			extractor = nil
		}
	}

	formatter, err := telegram.NewFormatter(cfg.TelegramFormatVersion)
	if err != nil {
		return fail(err)
	}
	var sender telegram.Sender = telegram.Printer{W: os.Stdout}
	if !cfg.DryRun {
		sender = telegram.NewClient(cfg.TelegramToken, cfg.TelegramChatID, telegram.WithRetry(retryCfg))
	}

	deps := Deps{
		Scraper:       naver,
		Feeds:         feeds,
		FetchFeeds:    rss.FetchMetadata,
		Scorer:        selector.NewScorer(terms),
		AI:            selector.NewAISelector(gen),
		AnalysisCache: analysisCache,
		Coupang:       recommend.NewCoupang(gen, cfg.CoupangPartnerLink, cfg.CoupangDisclosure),
		Books:         books,
		Terms:         extractor,
		Publisher:     telegram.NewPublisher(sender, formatter, cfg.MessageDelay, metrics.Global),
		Sent:          sent,
		Metrics:       metrics.Global,
		Location:      loc,
	}
	if gen != nil {
		deps.Analyzer = gemini.NewAnalyzer(gen)
	}

	logger.Info("Pipeline ready",
		"strategy", cfg.EffectiveStrategy(),
		"provider", cfg.LLMProvider,
		"format", formatter.Version(),
		"feeds", len(feeds),
		"postgres", cfg.DatabaseURL != "",
		"dry_run", cfg.DryRun,
	)
	return NewPipeline(cfg, deps), closeAll, nil
}

// newGenerator returns nil when the configured provider has no API key.
func newGenerator(ctx context.Context, cfg *config.Config, limiter *ratelimit.Limiter) (selector.Generator, func(), error) {
	if !cfg.HasLLM() {
		logger.Warn("No LLM API key, AI features disabled", "provider", cfg.LLMProvider)
		return nil, func() {}, nil
	}

	var (
		gen     selector.Generator
		closeFn = func() {}
	)
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		gen = openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, openai.WithLimiter(limiter))
	default:
		c, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, limiter)
		if err != nil {
			return nil, nil, err
		}
		gen, closeFn = c, c.Close
	}
	return withTimeout(gen, cfg.LLMTimeout), closeFn, nil
}

// withTimeout bounds every model call by d.
func withTimeout(gen selector.Generator, d time.Duration) selector.Generator {
	if d <= 0 {
		return gen
	}
	return selector.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return gen.Generate(ctx, prompt)
	})
}
