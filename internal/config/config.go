package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gorhill/cronexpr"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "TRENDRADAR_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	llmAPIKeyEnv      = "TRENDRADAR_LLM_API_KEY"
	llmModelEnv       = "TRENDRADAR_LLM_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	redisAddrEnv      = "REDIS_ADDR"
)

// Source types understood by the scanner registry.
const (
	SourceAPI  = "api"
	SourceRSS  = "rss"
	SourceHTML = "html"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging        LoggingConfig      `yaml:"logging"`
	Archive        ArchiveConfig      `yaml:"archive"`
	Crawler        CrawlerConfig      `yaml:"crawler"`
	HotlistSources []SourceConfig     `yaml:"hotlistSources"`
	StreamSources  []SourceConfig     `yaml:"streamSources"`
	Analysis       AnalysisConfig     `yaml:"analysis"`
	Scheduler      SchedulerConfig    `yaml:"scheduler"`
	Server         ServerConfig       `yaml:"server"`
	LLM            LLMConfig          `yaml:"llm"`
	Notifications  NotificationConfig `yaml:"notifications"`
	Database       DatabaseConfig     `yaml:"database"`
	Lock           LockConfig         `yaml:"lock"`

	// Sources is the legacy list of feed URLs, migrated into HotlistSources.
	Sources []string `yaml:"sources"`
}

// LoggingConfig selects verbosity and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ArchiveConfig locates the date-partitioned store.
type ArchiveConfig struct {
	Dir string `yaml:"dir"`
}

// CrawlerConfig tunes source fetching.
type CrawlerConfig struct {
	BaseURL           string  `yaml:"baseUrl"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Retries           int     `yaml:"retries"`
}

// SourceConfig describes a single hotlist or stream source.
type SourceConfig struct {
	ID       string            `yaml:"id"`
	Name     string            `yaml:"name"`
	Type     string            `yaml:"type"`
	URL      string            `yaml:"url"`
	Selector string            `yaml:"selector"`
	Headers  map[string]string `yaml:"headers"`
}

// AnalysisConfig drives gating and correlation windows.
type AnalysisConfig struct {
	WindowDays             int  `yaml:"windowDays"`
	EnableStream           bool `yaml:"enableStream"`
	HotlistIntervalMinutes int  `yaml:"hotlistIntervalMinutes"`
	SentinelMinOccurrences int  `yaml:"sentinelMinOccurrences"`
}

// SchedulerConfig defines when the daemon triggers tasks.
type SchedulerConfig struct {
	MonitorCron     string         `yaml:"monitorCron"`
	DailyReportCron string         `yaml:"dailyReportCron"`
	Timezone        string         `yaml:"timezone"`
	location        *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// ServerConfig holds the status server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LLMConfig defines how to contact the OpenAI-compatible analysis provider.
type LLMConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// DatabaseConfig describes the run ledger connection.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// LockConfig selects the overlap guard backend. An empty RedisAddr keeps locks in-process.
type LockConfig struct {
	RedisAddr string        `yaml:"redisAddr"`
	TTL       time.Duration `yaml:"ttl"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
// An empty path falls back to the TRENDRADAR_CONFIG environment variable.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				fileCfg.migrateLegacySources()
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// Validate reports every problem that would make the pipeline misbehave.
func (c Config) Validate() error {
	var errs []error

	if len(c.HotlistSources) == 0 {
		errs = append(errs, errors.New("hotlistSources: at least one source is required"))
	}

	seen := map[string]struct{}{}
	for _, group := range [][]SourceConfig{c.HotlistSources, c.StreamSources} {
		for _, src := range group {
			if strings.TrimSpace(src.ID) == "" {
				errs = append(errs, errors.New("source id must not be empty"))
				continue
			}
			if _, dup := seen[src.ID]; dup {
				errs = append(errs, fmt.Errorf("source %s: duplicate id", src.ID))
			}
			seen[src.ID] = struct{}{}
			switch src.Type {
			case SourceAPI, SourceRSS, SourceHTML:
			default:
				errs = append(errs, fmt.Errorf("source %s: unknown type %q", src.ID, src.Type))
			}
			if src.Type == SourceHTML && strings.TrimSpace(src.Selector) == "" {
				errs = append(errs, fmt.Errorf("source %s: html sources need a selector", src.ID))
			}
		}
	}

	if c.Analysis.WindowDays < 1 {
		errs = append(errs, errors.New("analysis.windowDays must be at least 1"))
	}

	for name, expr := range map[string]string{
		"scheduler.monitorCron":     c.Scheduler.MonitorCron,
		"scheduler.dailyReportCron": c.Scheduler.DailyReportCron,
	} {
		if _, err := cronexpr.Parse(expr); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	switch c.Database.Driver {
	case "", "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver: unsupported %q", c.Database.Driver))
	}

	return errors.Join(errs...)
}

func (c *Config) migrateLegacySources() {
	if len(c.Sources) == 0 || len(c.HotlistSources) > 0 {
		return
	}
	for i, url := range c.Sources {
		c.HotlistSources = append(c.HotlistSources, SourceConfig{
			ID:   fmt.Sprintf("legacy-source-%d", i),
			Name: fmt.Sprintf("legacy-source-%d", i),
			Type: SourceRSS,
			URL:  url,
		})
	}
	c.Sources = nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(llmAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}

	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}

	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Lock.RedisAddr = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Archive.Dir != "" {
		base.Archive.Dir = override.Archive.Dir
	}

	if override.Crawler.BaseURL != "" {
		base.Crawler.BaseURL = override.Crawler.BaseURL
	}
	if override.Crawler.RequestsPerSecond > 0 {
		base.Crawler.RequestsPerSecond = override.Crawler.RequestsPerSecond
	}
	if override.Crawler.Retries > 0 {
		base.Crawler.Retries = override.Crawler.Retries
	}

	if len(override.HotlistSources) > 0 {
		base.HotlistSources = override.HotlistSources
	}
	if len(override.StreamSources) > 0 {
		base.StreamSources = override.StreamSources
	}

	if override.Analysis.WindowDays != 0 {
		base.Analysis.WindowDays = override.Analysis.WindowDays
	}
	if override.Analysis.EnableStream {
		base.Analysis.EnableStream = true
	}
	if override.Analysis.HotlistIntervalMinutes > 0 {
		base.Analysis.HotlistIntervalMinutes = override.Analysis.HotlistIntervalMinutes
	}
	if override.Analysis.SentinelMinOccurrences > 0 {
		base.Analysis.SentinelMinOccurrences = override.Analysis.SentinelMinOccurrences
	}

	if override.Scheduler.MonitorCron != "" {
		base.Scheduler.MonitorCron = override.Scheduler.MonitorCron
	}
	if override.Scheduler.DailyReportCron != "" {
		base.Scheduler.DailyReportCron = override.Scheduler.DailyReportCron
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Server.Port > 0 {
		base.Server.Port = override.Server.Port
	}

	if override.LLM.Endpoint != "" {
		base.LLM.Endpoint = override.LLM.Endpoint
	}
	if override.LLM.Model != "" {
		base.LLM.Model = override.LLM.Model
	}
	if override.LLM.APIKey != "" {
		base.LLM.APIKey = override.LLM.APIKey
	}
	if override.LLM.SystemPrompt != "" {
		base.LLM.SystemPrompt = override.LLM.SystemPrompt
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Lock.RedisAddr != "" {
		base.Lock.RedisAddr = override.Lock.RedisAddr
	}
	if override.Lock.TTL > 0 {
		base.Lock.TTL = override.Lock.TTL
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Archive: ArchiveConfig{Dir: "./archive"},
		Crawler: CrawlerConfig{
			BaseURL:           "https://newsnow.busiyi.world",
			RequestsPerSecond: 2,
			Retries:           1,
		},
		HotlistSources: []SourceConfig{
			{ID: "weibo", Name: "Weibo", Type: SourceAPI},
			{ID: "zhihu", Name: "Zhihu", Type: SourceAPI},
		},
		Analysis: AnalysisConfig{
			WindowDays:             3,
			HotlistIntervalMinutes: 120,
			SentinelMinOccurrences: 3,
		},
		Scheduler: SchedulerConfig{
			MonitorCron:     "*/30 * * * *",
			DailyReportCron: "0 23 * * *",
			Timezone:        defaultTimezone,
			location:        tz,
		},
		Server: ServerConfig{Port: 12440},
		LLM: LLMConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You extract trending topics from ranked news headlines.",
		},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "./archive/runs.db"},
		Lock:     LockConfig{TTL: 30 * time.Minute},
	}
}
