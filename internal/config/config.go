// Package config loads and validates feed generator configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/JakeFAU/passrate-feed/internal/feed"
)

// EnvPrefix namespaces environment overrides, e.g. PERFFEED_SOURCE_URL.
const EnvPrefix = "PERFFEED"

// Flag names bound onto configuration keys when present in the flag set.
const (
	FlagURL       = "url"
	FlagOutputDir = "output-dir"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Source  SourceConfig  `mapstructure:"source"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Output  OutputConfig  `mapstructure:"output"`
	Feed    FeedConfig    `mapstructure:"feed"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SourceConfig identifies the tracker page.
type SourceConfig struct {
	URL       string `mapstructure:"url"`
	UserAgent string `mapstructure:"user_agent"`
}

// HTTPConfig configures the page fetch.
type HTTPConfig struct {
	TimeoutSeconds int  `mapstructure:"timeout_seconds"`
	MaxRedirects   int  `mapstructure:"max_redirects"`
	MaxBodyBytes   int  `mapstructure:"max_body_bytes"`
	RespectRobots  bool `mapstructure:"respect_robots"`
}

// OutputConfig sets artifact names and the optional GCS mirror.
type OutputConfig struct {
	Dir          string `mapstructure:"dir"`
	FeedFile     string `mapstructure:"feed_file"`
	DataFile     string `mapstructure:"data_file"`
	GCSBucket    string `mapstructure:"gcs_bucket"`
	GCSPrefix    string `mapstructure:"gcs_prefix"`
	CacheControl string `mapstructure:"cache_control"`
}

// FeedConfig holds channel metadata.
type FeedConfig struct {
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	Language    string `mapstructure:"language"`
	Generator   string `mapstructure:"generator"`
	Subject     string `mapstructure:"subject"`
	GUIDPrefix  string `mapstructure:"guid_prefix"`
	SelfURL     string `mapstructure:"self_url"`
}

// MetricsConfig points at a node-exporter textfile; empty disables it.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from defaults, an optional file, the environment and
// any bound flags, in increasing order of precedence.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if err := bindFlags(v, flags); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	bindings := map[string]string{
		FlagURL:       "source.url",
		FlagOutputDir: "output.dir",
	}
	for name, key := range bindings {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.url", "https://marginlab.ai/trackers/claude-code/")
	v.SetDefault("source.user_agent", "claude-perf-tracker/1.0")
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_redirects", 5)
	v.SetDefault("http.max_body_bytes", 10*1024*1024)
	v.SetDefault("http.respect_robots", false)
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.feed_file", "feed.xml")
	v.SetDefault("output.data_file", "data.json")
	v.SetDefault("output.cache_control", "public, max-age=300")
	v.SetDefault("feed.title", "Claude Code Performance Tracker")
	v.SetDefault("feed.description", "Daily and weekly Claude Code benchmark pass rates")
	v.SetDefault("feed.language", "en-us")
	v.SetDefault("feed.generator", "claude-perf-tracker")
	v.SetDefault("feed.subject", "Claude Code")
	v.SetDefault("feed.guid_prefix", "claude-code")
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	u, err := url.Parse(c.Source.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("source.url must be an absolute http(s) URL, got %q", c.Source.URL)
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRedirects <= 0 {
		return fmt.Errorf("http.max_redirects must be > 0")
	}
	if c.HTTP.MaxBodyBytes < 0 {
		return fmt.Errorf("http.max_body_bytes must be >= 0")
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return fmt.Errorf("output.dir is required")
	}
	if strings.TrimSpace(c.Output.FeedFile) == "" || strings.TrimSpace(c.Output.DataFile) == "" {
		return fmt.Errorf("output.feed_file and output.data_file are required")
	}
	if c.Output.FeedFile == c.Output.DataFile {
		return fmt.Errorf("output.feed_file and output.data_file must differ")
	}
	if err := c.FeedOptions().Validate(); err != nil {
		return fmt.Errorf("feed: %w", err)
	}
	return nil
}

// FeedOptions maps the feed section onto channel options. The source URL is
// the channel and item link.
func (c Config) FeedOptions() feed.Options {
	return feed.Options{
		Title:       c.Feed.Title,
		Link:        c.Source.URL,
		Description: c.Feed.Description,
		Language:    c.Feed.Language,
		Generator:   c.Feed.Generator,
		Subject:     c.Feed.Subject,
		GUIDPrefix:  c.Feed.GUIDPrefix,
		SelfURL:     c.Feed.SelfURL,
	}
}

// FetchTimeout converts the HTTP timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
