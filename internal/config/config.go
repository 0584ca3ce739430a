package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "DDW_TRENDS_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	trendModelKeyEnv  = "TRENDMODEL_API_KEY"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"

	defaultCovidStart = "2020-03-01"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Data          DataConfig         `yaml:"data"`
	Years         YearsConfig        `yaml:"years"`
	Fetch         FetchConfig        `yaml:"fetch"`
	Analysis      AnalysisConfig     `yaml:"analysis"`
	TrendModel    TrendModelConfig   `yaml:"trendModel"`
	Notifications NotificationConfig `yaml:"notifications"`
	Sites         []SiteConfig       `yaml:"sites"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN
// disables the repository adapter.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// DataConfig holds the directories the pipeline reads and writes.
type DataConfig struct {
	RawDir       string `yaml:"rawDir"`
	ProcessedDir string `yaml:"processedDir"`
	FiguresDir   string `yaml:"figuresDir"`
}

// YearsConfig bounds the conference years to analyze, inclusive.
type YearsConfig struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

// List expands the range into individual years.
func (y YearsConfig) List() []int {
	if y.To < y.From {
		return nil
	}
	years := make([]int, 0, y.To-y.From+1)
	for year := y.From; year <= y.To; year++ {
		years = append(years, year)
	}
	return years
}

// FetchConfig tunes the scraper.
type FetchConfig struct {
	PageSize    int `yaml:"pageSize"`
	Concurrency int `yaml:"concurrency"`
	MaxRetries  int `yaml:"maxRetries"`
}

// AnalysisConfig carries the statistical parameters.
type AnalysisConfig struct {
	CovidStartDate    string  `yaml:"covidStartDate"`
	SignificanceLevel float64 `yaml:"significanceLevel"`
}

// CovidStart parses the configured cutoff date.
func (a AnalysisConfig) CovidStart() time.Time {
	t, err := time.Parse("2006-01-02", a.CovidStartDate)
	if err != nil {
		t, _ = time.Parse("2006-01-02", defaultCovidStart)
	}
	return t
}

// TrendModelConfig describes the trend-encoding service integration. An
// empty endpoint disables the encoder adapter.
type TrendModelConfig struct {
	Endpoint  string `yaml:"endpoint"`
	APIKey    string `yaml:"apiKey"`
	BatchSize int    `yaml:"batchSize"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SiteConfig describes a single conference site with its scanner strategy.
type SiteConfig struct {
	Name       string            `yaml:"name"`
	Scanner    string            `yaml:"scanner"`
	Categories []CategoryConfig  `yaml:"categories"`
	Options    map[string]string `yaml:"options"`
}

// CategoryConfig holds the concrete endpoints to crawl.
type CategoryConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides. An explicit path wins over the DDW_TRENDS_CONFIG variable.
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
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Sites) == 0 {
		cfg.Sites = defaultConfig().Sites
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(trendModelKeyEnv); v != "" {
		c.TrendModel.APIKey = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Data.RawDir != "" {
		base.Data.RawDir = override.Data.RawDir
	}
	if override.Data.ProcessedDir != "" {
		base.Data.ProcessedDir = override.Data.ProcessedDir
	}
	if override.Data.FiguresDir != "" {
		base.Data.FiguresDir = override.Data.FiguresDir
	}

	if override.Years.From != 0 {
		base.Years.From = override.Years.From
	}
	if override.Years.To != 0 {
		base.Years.To = override.Years.To
	}

	if override.Fetch.PageSize != 0 {
		base.Fetch.PageSize = override.Fetch.PageSize
	}
	if override.Fetch.Concurrency != 0 {
		base.Fetch.Concurrency = override.Fetch.Concurrency
	}
	if override.Fetch.MaxRetries != 0 {
		base.Fetch.MaxRetries = override.Fetch.MaxRetries
	}

	if override.Analysis.CovidStartDate != "" {
		base.Analysis.CovidStartDate = override.Analysis.CovidStartDate
	}
	if override.Analysis.SignificanceLevel != 0 {
		base.Analysis.SignificanceLevel = override.Analysis.SignificanceLevel
	}

	if override.TrendModel.Endpoint != "" {
		base.TrendModel.Endpoint = override.TrendModel.Endpoint
	}
	if override.TrendModel.APIKey != "" {
		base.TrendModel.APIKey = override.TrendModel.APIKey
	}
	if override.TrendModel.BatchSize != 0 {
		base.TrendModel.BatchSize = override.TrendModel.BatchSize
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if len(override.Sites) > 0 {
		base.Sites = override.Sites
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{DSN: ""},
		Data: DataConfig{
			RawDir:       "data/raw",
			ProcessedDir: "data/processed",
			FiguresDir:   "docs/figures",
		},
		Years: YearsConfig{From: 2018, To: 2023},
		Fetch: FetchConfig{
			PageSize:    100,
			Concurrency: 1,
			MaxRetries:  3,
		},
		Analysis: AnalysisConfig{
			CovidStartDate:    defaultCovidStart,
			SignificanceLevel: 0.05,
		},
		TrendModel: TrendModelConfig{
			Endpoint:  "",
			APIKey:    "",
			BatchSize: 32,
		},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BotToken: "", ChatID: ""},
		},
		Sites: []SiteConfig{
			{
				Name:    "ddw",
				Scanner: "ddw",
				Categories: []CategoryConfig{
					{Name: "abstracts", URL: "https://ddw.org/abstracts"},
				},
			},
		},
	}
}
