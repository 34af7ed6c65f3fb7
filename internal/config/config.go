package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/newthinker/scorecard/internal/core"
	"github.com/newthinker/scorecard/internal/rules"
	"github.com/newthinker/scorecard/internal/split"
)

type Config struct {
	Server    ServerConfig          `mapstructure:"server"`
	Log       LogConfig             `mapstructure:"log"`
	Scoring   ScoringConfig         `mapstructure:"scoring"`
	Rules     map[string]RuleConfig `mapstructure:"rules"`
	Edgar     EdgarConfig           `mapstructure:"edgar"`
	Quotes    QuotesConfig          `mapstructure:"quotes"`
	Storage   StorageConfig         `mapstructure:"storage"`
	Schedule  ScheduleConfig        `mapstructure:"schedule"`
	Watchlist []WatchlistItem       `mapstructure:"watchlist"`
	Metrics   MetricsConfig         `mapstructure:"metrics"`
	Notify    NotifyConfig          `mapstructure:"notify"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	APIKey      string `mapstructure:"api_key"`
	JobTTLHours int    `mapstructure:"job_ttl_hours"`
	MaxJobs     int    `mapstructure:"max_jobs"`
}

type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// ScoringConfig holds the tunable scoring policy.
type ScoringConfig struct {
	SplitTolerance float64            `mapstructure:"split_tolerance"`
	NetIncomeBand  float64            `mapstructure:"net_income_band"`
	StaleAfterDays int                `mapstructure:"stale_after_days"`
	Normalization  []BreakpointConfig `mapstructure:"normalization"`
}

type BreakpointConfig struct {
	Ratio float64 `mapstructure:"ratio"`
	Score float64 `mapstructure:"score"`
}

// RuleConfig overrides one rule. Enabled defaults to true when omitted.
type RuleConfig struct {
	Enabled *bool          `mapstructure:"enabled"`
	Weight  int            `mapstructure:"weight"`
	Params  map[string]any `mapstructure:"params"`
}

// EdgarConfig configures the SEC EDGAR client. SEC requires a descriptive
// User-Agent with contact details and allows at most 10 requests/second.
type EdgarConfig struct {
	UserAgent         string        `mapstructure:"user_agent"`
	BaseURL           string        `mapstructure:"base_url"`
	TickersURL        string        `mapstructure:"tickers_url"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

type QuotesConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	Scores  ScoresConfig  `mapstructure:"scores"`
	Archive ArchiveConfig `mapstructure:"archive"`
}

type ScoresConfig struct {
	MaxRecords int `mapstructure:"max_records"`
}

type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "", "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// ScheduleConfig drives periodic rescoring of the watchlist.
type ScheduleConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Cron        string `mapstructure:"cron"`
	Concurrency int    `mapstructure:"concurrency"`
}

type WatchlistItem struct {
	Ticker string `mapstructure:"ticker"`
	Name   string `mapstructure:"name"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// NotifyConfig configures tier-change notifications.
type NotifyConfig struct {
	MinSteps   int           `mapstructure:"min_steps"`
	Cooldown   time.Duration `mapstructure:"cooldown"`
	Directions []string      `mapstructure:"directions"`
	Webhook    WebhookConfig `mapstructure:"webhook"`
}

// WebhookConfig posts tier changes as JSON. An empty URL disables it.
type WebhookConfig struct {
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

// Load reads configuration from file on top of Defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			JobTTLHours: 1,
			MaxJobs:     100,
		},
		Log: LogConfig{
			Level: "info",
		},
		Scoring: ScoringConfig{
			SplitTolerance: split.DefaultTolerance,
			NetIncomeBand:  split.DefaultNetIncomeBand,
			StaleAfterDays: 180,
		},
		Edgar: EdgarConfig{
			UserAgent:         "scorecard admin@example.com",
			BaseURL:           "https://data.sec.gov",
			TickersURL:        "https://www.sec.gov/files/company_tickers.json",
			RequestsPerSecond: 8,
			Timeout:           30 * time.Second,
		},
		Quotes: QuotesConfig{
			Enabled: true,
			BaseURL: "https://query1.finance.yahoo.com",
			Timeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Scores: ScoresConfig{
				MaxRecords: 10000,
			},
			Archive: ArchiveConfig{
				Type: "localfs",
				Path: "data/archive",
			},
		},
		Schedule: ScheduleConfig{
			Cron:        "0 6 * * 1-5",
			Concurrency: 4,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Notify: NotifyConfig{
			MinSteps: 1,
			Cooldown: 24 * time.Hour,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.Log.Level != "" {
		if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("log level: %w", err))
		}
	}

	// Scoring policy
	if c.Scoring.SplitTolerance <= 0 || c.Scoring.SplitTolerance >= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("split_tolerance must be in (0, 1), got %g", c.Scoring.SplitTolerance))
	}
	if c.Scoring.NetIncomeBand <= 0 || c.Scoring.NetIncomeBand > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("net_income_band must be in (0, 1], got %g", c.Scoring.NetIncomeBand))
	}
	if c.Scoring.StaleAfterDays < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("stale_after_days cannot be negative, got %d", c.Scoring.StaleAfterDays))
	}
	if len(c.Scoring.Normalization) > 0 {
		if err := c.Scoring.Policy().Validate(); err != nil {
			return err
		}
	}
	for name, rc := range c.Rules {
		if rc.Weight != 0 {
			if err := rules.ValidateWeight(rc.Weight); err != nil {
				return fmt.Errorf("rule %s: %w", name, err)
			}
		}
	}

	// EDGAR
	if strings.TrimSpace(c.Edgar.UserAgent) == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("edgar user_agent is required by SEC fair access rules"))
	}
	if c.Edgar.RequestsPerSecond <= 0 || c.Edgar.RequestsPerSecond > 10 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("edgar requests_per_second must be in (0, 10], got %g", c.Edgar.RequestsPerSecond))
	}

	// Archive
	switch c.Storage.Archive.Type {
	case "":
	case "localfs":
		if c.Storage.Archive.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("archive path required when type is localfs"))
		}
	case "s3":
		if c.Storage.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when archive type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type %q", c.Storage.Archive.Type))
	}

	// Schedule
	if c.Schedule.Concurrency < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("schedule concurrency must be at least 1, got %d", c.Schedule.Concurrency))
	}
	if c.Schedule.Enabled {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("schedule cron: %w", err))
		}
	}

	for i, item := range c.Watchlist {
		if strings.TrimSpace(item.Ticker) == "" {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("watchlist entry %d has no ticker", i))
		}
	}

	// Notify
	if c.Notify.MinSteps < 0 || c.Notify.Cooldown < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("notify min_steps and cooldown cannot be negative"))
	}
	for _, d := range c.Notify.Directions {
		if d != "upgrade" && d != "downgrade" && d != "unrated" {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown notify direction %q", d))
		}
	}
	if u := c.Notify.Webhook.URL; u != "" &&
		!strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("notify webhook url must be http(s), got %q", u))
	}

	return nil
}

// Policy converts the normalization breakpoints, falling back to the
// default policy when none are configured.
func (s ScoringConfig) Policy() rules.Policy {
	if len(s.Normalization) == 0 {
		return rules.DefaultPolicy()
	}
	bps := make([]rules.Breakpoint, len(s.Normalization))
	for i, bp := range s.Normalization {
		bps[i] = rules.Breakpoint{Ratio: bp.Ratio, Score: bp.Score}
	}
	return rules.Policy{Breakpoints: bps}
}

// SplitOptions converts the split detector policy.
func (s ScoringConfig) SplitOptions() split.Options {
	return split.Options{Tolerance: s.SplitTolerance, NetIncomeBand: s.NetIncomeBand}
}

// FreshnessWindow is StaleAfterDays as a duration; zero means the default.
func (s ScoringConfig) FreshnessWindow() time.Duration {
	return time.Duration(s.StaleAfterDays) * 24 * time.Hour
}

// RuleConfigs converts the rule overrides for the rules registry.
func (c *Config) RuleConfigs() map[string]rules.Config {
	out := make(map[string]rules.Config, len(c.Rules))
	for name, rc := range c.Rules {
		enabled := true
		if rc.Enabled != nil {
			enabled = *rc.Enabled
		}
		out[strings.ToLower(name)] = rules.Config{
			Enabled: enabled,
			Weight:  rc.Weight,
			Params:  rc.Params,
		}
	}
	return out
}

// Tickers returns the watchlist tickers, upper-cased.
func (c *Config) Tickers() []string {
	out := make([]string, 0, len(c.Watchlist))
	for _, item := range c.Watchlist {
		out = append(out, strings.ToUpper(strings.TrimSpace(item.Ticker)))
	}
	return out
}
