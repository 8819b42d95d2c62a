// Package config loads and validates harvester configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	goqueryextractor "github.com/JakeFAU/paste-harvester/internal/extractor/goquery"
)

// EnvPrefix is prepended to environment overrides, e.g. HARVESTER_TOR_HOST.
const EnvPrefix = "HARVESTER"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Tor       TorConfig               `mapstructure:"tor"`
	HTTP      HTTPConfig              `mapstructure:"http"`
	Website   WebsiteConfig           `mapstructure:"website"`
	Extractor goqueryextractor.Config `mapstructure:"extractor"`
	Database  DatabaseConfig          `mapstructure:"database"`
	Normalize NormalizeConfig         `mapstructure:"normalize"`
	Runtime   RuntimeConfig           `mapstructure:"runtime"`
	Logging   LoggingConfig           `mapstructure:"logging"`
	Server    ServerConfig            `mapstructure:"server"`
}

// TorConfig locates the SOCKS5 proxy. An empty host disables proxying.
type TorConfig struct {
	Host      string `mapstructure:"host"`
	HTTPPort  int    `mapstructure:"http_port"`
	HTTPSPort int    `mapstructure:"https_port"`
}

// HTTPConfig configures request timeout and retry behavior.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries"`
	RetryDelayMs   int    `mapstructure:"retry_delay_ms"`
	UserAgent      string `mapstructure:"user_agent"`
}

// WebsiteConfig names the listing to harvest.
type WebsiteConfig struct {
	MainURL       string `mapstructure:"main_url"`
	PageURLPrefix string `mapstructure:"page_url_prefix"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Filepath string `mapstructure:"filepath"`
	IDField  string `mapstructure:"id_field"`
}

// NormalizeConfig drives the paste normalization pipeline.
type NormalizeConfig struct {
	DateInputFormat string `mapstructure:"date_input_format"`
	DateDBFormat    string `mapstructure:"date_db_format"`
	// UnknownAuthorVariations is a comma separated alias list.
	UnknownAuthorVariations string `mapstructure:"unknown_author_variations"`
	UnknownAuthorName       string `mapstructure:"unknown_author_name"`
}

// RuntimeConfig controls the crawl schedule.
type RuntimeConfig struct {
	WindowHours float64 `mapstructure:"window_hours"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// ServerConfig controls the optional ops HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load builds a Config from disk/environment. An empty path searches
// ./harvester.*, /etc/harvester/ and $HOME/.harvester/ and tolerates no file.
func Load(path string) (Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith is Load on a caller-supplied Viper instance, letting commands bind
// flags before values are read.
func LoadWith(v *viper.Viper, path string) (Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("harvester")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/harvester/")
		v.AddConfigPath("$HOME/.harvester")
		if err := v.ReadInConfig(); err != nil {
			// Defaults and environment variables suffice without a file.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
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

func setDefaults(v *viper.Viper) {
	def := goqueryextractor.DefaultConfig()

	v.SetDefault("tor.host", "127.0.0.1")
	v.SetDefault("tor.http_port", 9050)
	v.SetDefault("tor.https_port", 9050)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.retry_delay_ms", 5000)
	v.SetDefault("http.user_agent", "Mozilla/5.0 (Windows NT 10.0; rv:128.0) Gecko/20100101 Firefox/128.0")
	v.SetDefault("website.main_url", "http://strongerw2ise74v3duebgsvug4mehyhlpa7f6kfwnas7zofs3kov7yd.onion/all")
	v.SetDefault("website.page_url_prefix", "http://strongerw2ise74v3duebgsvug4mehyhlpa7f6kfwnas7zofs3kov7yd.onion/all?page=")
	v.SetDefault("extractor.pagination_selector", def.PaginationSelector)
	v.SetDefault("extractor.item_selector", def.ItemSelector)
	v.SetDefault("extractor.header_selector", def.HeaderSelector)
	v.SetDefault("extractor.title_selector", def.TitleSelector)
	v.SetDefault("extractor.content_selector", def.ContentSelector)
	v.SetDefault("extractor.footer_selector", def.FooterSelector)
	v.SetDefault("extractor.footer_prefix", def.FooterPrefix)
	v.SetDefault("extractor.footer_separator", def.FooterSeparator)
	v.SetDefault("database.filepath", "harvester.db")
	v.SetDefault("database.id_field", "id")
	v.SetDefault("normalize.date_input_format", "%d %b %Y, %H:%M:%S %Z")
	v.SetDefault("normalize.date_db_format", "%Y-%m-%d %H:%M:%S")
	v.SetDefault("normalize.unknown_author_variations", "anonymous,anon,unknown,guest")
	v.SetDefault("normalize.unknown_author_name", "Unknown")
	v.SetDefault("runtime.window_hours", 1)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Tor.Host != "" {
		if c.Tor.HTTPPort <= 0 || c.Tor.HTTPPort > 65535 {
			return fmt.Errorf("tor.http_port must be between 1 and 65535")
		}
		if c.Tor.HTTPSPort <= 0 || c.Tor.HTTPSPort > 65535 {
			return fmt.Errorf("tor.https_port must be between 1 and 65535")
		}
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.HTTP.RetryDelayMs < 0 {
		return fmt.Errorf("http.retry_delay_ms must be >= 0")
	}
	if c.Website.MainURL == "" {
		return fmt.Errorf("website.main_url must be set")
	}
	if c.Website.PageURLPrefix == "" {
		return fmt.Errorf("website.page_url_prefix must be set")
	}
	if c.Database.Filepath == "" {
		return fmt.Errorf("database.filepath must be set")
	}
	if c.Database.IDField == "" {
		return fmt.Errorf("database.id_field must be set")
	}
	if c.Normalize.DateInputFormat == "" || c.Normalize.DateDBFormat == "" {
		return fmt.Errorf("normalize.date_input_format and normalize.date_db_format must be set")
	}
	if c.Runtime.WindowHours <= 0 {
		return fmt.Errorf("runtime.window_hours must be > 0")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the server is enabled")
	}
	return nil
}

// RequestTimeout returns the per-request fetch timeout.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// RetryDelay returns the pause between fetch attempts.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.HTTP.RetryDelayMs) * time.Millisecond
}

// Interval returns the sleep between crawl cycles.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Runtime.WindowHours * float64(time.Hour))
}

// AuthorAliases splits the comma separated alias list, dropping blanks.
func (c Config) AuthorAliases() []string {
	var out []string
	for _, a := range strings.Split(c.Normalize.UnknownAuthorVariations, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
