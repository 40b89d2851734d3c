package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

const (
	StrategyAI   = "ai"
	StrategyRule = "rule"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	// LLM settings
	LLMProvider       string // gemini | openai
	GeminiAPIKey      string
	GeminiModel       string
	OpenAIAPIKey      string
	OpenAIModel       string
	MaxGeminiRequests int // per rate-limit window, 0 = unlimited
	LLMTimeout        time.Duration

	// Telegram settings
	TelegramToken         string
	TelegramChatID        string
	TelegramFormatVersion string // v1 | v2
	MessageDelay          time.Duration

	// Selection
	SelectionStrategy string // ai | rule
	TermsConfigPath   string

	// Sources
	NaverSectionURL   string
	FeedsConfigPath   string
	MaxMetadata       int
	ScrapeMaxArticles int
	ScrapingDelay     time.Duration
	RequestTimeout    time.Duration

	// Analysis
	SummarySentences int
	MaxKeywords      int
	MaxTerms         int

	// Recommendations
	CoupangPartnerLink string
	CoupangDisclosure  string
	BooksDBPath        string
	TerminologyDBPath  string

	// Storage
	CacheFilePath string
	CacheTTLHours int
	DatabaseURL   string
	OutputDir     string

	// Scheduling
	ScheduleCron     string
	ScheduleTimezone string

	// App settings
	DryRun               bool
	Debug                bool
	EnableHTTPMonitoring bool
	MonitoringPort       string
	RetryAttempts        int
	RetryDelay           time.Duration
}

// Load reads .env (if present) and the process environment. Overrides run
// before validation.
func Load(overrides ...func(*Config)) (*Config, error) {
	_ = godotenv.Load()

	cfg := FromEnv()
	for _, o := range overrides {
		o(cfg)
	}
	return cfg, cfg.Validate()
}

// FromEnv builds a Config from the environment without validating it.
func FromEnv() *Config {
	cfg := &Config{
		// Default values
		LLMProvider:           ProviderGemini,
		GeminiModel:           "gemini-2.0-flash-lite",
		OpenAIModel:           "gpt-4o-mini",
		MaxGeminiRequests:     20,
		LLMTimeout:            60 * time.Second,
		TelegramFormatVersion: "v2",
		MessageDelay:          3 * time.Second,
		SelectionStrategy:     StrategyAI,
		NaverSectionURL:       "https://news.naver.com/section/101",
		MaxMetadata:           30,
		ScrapeMaxArticles:     10,
		ScrapingDelay:         300 * time.Millisecond,
		RequestTimeout:        10 * time.Second,
		SummarySentences:      3,
		MaxKeywords:           5,
		MaxTerms:              1,
		CacheFilePath:         "sent_news.json",
		CacheTTLHours:         72,
		ScheduleCron:          "0 9,12,18 * * *",
		ScheduleTimezone:      "Asia/Seoul",
		MonitoringPort:        "8080",
		RetryAttempts:         3,
		RetryDelay:            2 * time.Second,
	}

	cfg.LLMProvider = strings.ToLower(getEnvOrDefault("LLM_PROVIDER", cfg.LLMProvider))
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.GeminiModel = getEnvOrDefault("GEMINI_MODEL", cfg.GeminiModel)
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIModel = getEnvOrDefault("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.MaxGeminiRequests = getEnvIntOrDefault("MAX_GEMINI_REQUESTS", cfg.MaxGeminiRequests)

	cfg.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")
	cfg.TelegramFormatVersion = strings.ToLower(getEnvOrDefault("TELEGRAM_FORMAT_VERSION", cfg.TelegramFormatVersion))
	if ms := getEnvIntOrDefault("MESSAGE_DELAY_MS", -1); ms >= 0 {
		cfg.MessageDelay = time.Duration(ms) * time.Millisecond
	}

	cfg.SelectionStrategy = strings.ToLower(getEnvOrDefault("SELECTION_STRATEGY", cfg.SelectionStrategy))
	cfg.TermsConfigPath = os.Getenv("TERMS_CONFIG_PATH")

	cfg.NaverSectionURL = getEnvOrDefault("NAVER_SECTION_URL", cfg.NaverSectionURL)
	cfg.FeedsConfigPath = os.Getenv("FEEDS_CONFIG_PATH")
	if v := getEnvIntOrDefault("MAX_METADATA", 0); v > 0 {
		cfg.MaxMetadata = v
	}
	if v := getEnvIntOrDefault("SCRAPE_MAX_ARTICLES", 0); v > 0 {
		cfg.ScrapeMaxArticles = v
	}
	if ms := getEnvIntOrDefault("SCRAPING_DELAY_MS", -1); ms >= 0 {
		cfg.ScrapingDelay = time.Duration(ms) * time.Millisecond
	}

	if v := getEnvIntOrDefault("SUMMARY_SENTENCES", 0); v > 0 {
		cfg.SummarySentences = v
	}
	if v := getEnvIntOrDefault("MAX_TERMS_TO_EXPLAIN", -1); v >= 0 {
		cfg.MaxTerms = v
	}

	cfg.CoupangPartnerLink = os.Getenv("COUPANG_PARTNER_LINK")
	cfg.CoupangDisclosure = os.Getenv("COUPANG_DISCLOSURE")
	cfg.BooksDBPath = os.Getenv("BOOKS_DB_PATH")
	cfg.TerminologyDBPath = os.Getenv("TERMINOLOGY_DB_PATH")

	cfg.CacheFilePath = getEnvOrDefault("CACHE_FILE_PATH", cfg.CacheFilePath)
	cfg.CacheTTLHours = getEnvIntOrDefault("CACHE_TTL_HOURS", cfg.CacheTTLHours)
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.OutputDir = os.Getenv("OUTPUT_DIR")

	cfg.ScheduleCron = getEnvOrDefault("SCHEDULE_CRON", cfg.ScheduleCron)
	cfg.ScheduleTimezone = getEnvOrDefault("SCHEDULE_TIMEZONE", cfg.ScheduleTimezone)

	cfg.Debug = os.Getenv("DEBUG") == "true"
	cfg.DryRun = os.Getenv("DRY_RUN") == "true"
	cfg.EnableHTTPMonitoring = os.Getenv("ENABLE_HTTP_MONITORING") == "true"
	cfg.MonitoringPort = getEnvOrDefault("MONITORING_PORT", cfg.MonitoringPort)

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// HasLLM reports whether the configured provider has credentials.
func (c *Config) HasLLM() bool {
	switch c.LLMProvider {
	case ProviderOpenAI:
		return c.OpenAIAPIKey != ""
	default:
		return c.GeminiAPIKey != ""
	}
}

// EffectiveStrategy downgrades "ai" to "rule" when no model is reachable.
func (c *Config) EffectiveStrategy() string {
	if c.SelectionStrategy == StrategyAI && !c.HasLLM() {
		return StrategyRule
	}
	return c.SelectionStrategy
}

func (c *Config) Validate() error {
	if !c.DryRun {
		if c.TelegramToken == "" {
			return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
		}
		if c.TelegramChatID == "" {
			return fmt.Errorf("TELEGRAM_CHAT_ID is required")
		}
	}
	if c.SelectionStrategy != StrategyAI && c.SelectionStrategy != StrategyRule {
		return fmt.Errorf("SELECTION_STRATEGY must be 'ai' or 'rule'")
	}
	if c.LLMProvider != ProviderGemini && c.LLMProvider != ProviderOpenAI {
		return fmt.Errorf("LLM_PROVIDER must be 'gemini' or 'openai'")
	}
	if c.TelegramFormatVersion != "v1" && c.TelegramFormatVersion != "v2" {
		return fmt.Errorf("TELEGRAM_FORMAT_VERSION must be 'v1' or 'v2'")
	}
	if c.MaxGeminiRequests < 0 {
		return fmt.Errorf("MAX_GEMINI_REQUESTS must not be negative")
	}
	if _, err := time.LoadLocation(c.ScheduleTimezone); err != nil {
		return fmt.Errorf("SCHEDULE_TIMEZONE: %w", err)
	}
	return nil
}
