// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default run settings. These mirror the values a typical session uses and
// can be overridden via config file or CLI flags.
const (
	DefaultBaseURL        = "https://www.marktplaats.nl"
	DefaultPages          = 500
	DefaultMaxLinks       = 1000
	DefaultWorkers        = 10
	DefaultRequestDelay   = 200 * time.Millisecond
	DefaultRequestTimeout = 15 * time.Second
	DefaultProxyTimeout   = 20 * time.Second
	DefaultRetryAttempts  = 3
	DefaultRetryDelay     = 1 * time.Second

	// DefaultRateLimit caps aggregate request throughput. The ceiling
	// equals workers divided by the request delay at defaults (10 / 200ms).
	DefaultRateLimit = 50.0
	DefaultRateBurst = 10
)

// DefaultUserAgent is sent with every request when none is configured.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/140.0.0.0 Safari/537.36"

// Config holds all settings for a scraping session.
type Config struct {
	BaseURL  string   `yaml:"base_url" json:"base_url"`
	Keywords []string `yaml:"keywords" json:"keywords"`

	// PagesPerKeyword overrides the page count for individual keywords.
	// Keywords without an entry use DefaultPagesPerRun.
	PagesPerKeyword    map[string]int `yaml:"pages_per_keyword,omitempty" json:"pages_per_keyword,omitempty"`
	DefaultPagesPerRun int            `yaml:"default_pages" json:"default_pages"`

	MaxLinksPerKeyword int           `yaml:"max_links_per_keyword" json:"max_links_per_keyword"`
	Workers            int           `yaml:"workers" json:"workers"`
	RequestDelay       time.Duration `yaml:"request_delay" json:"request_delay"`
	RequestTimeout     time.Duration `yaml:"request_timeout" json:"request_timeout"`
	RetryAttempts      int           `yaml:"retry_attempts" json:"retry_attempts"`
	RetryDelay         time.Duration `yaml:"retry_delay" json:"retry_delay"`
	UserAgent          string        `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`

	// RateLimit is the aggregate requests-per-second ceiling shared by all
	// workers of a run. RateBurst is the limiter's burst size.
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`
	RateBurst int     `yaml:"rate_burst" json:"rate_burst"`

	ProxyFile string `yaml:"proxy_file,omitempty" json:"proxy_file,omitempty"`

	OutputDir    string `yaml:"output_dir" json:"output_dir"`
	OutputFormat string `yaml:"output_format" json:"output_format"`

	// MetricsAddr enables the Prometheus listener when non-empty, e.g. ":9090".
	MetricsAddr string `yaml:"metrics_addr,omitempty" json:"metrics_addr,omitempty"`

	Verbose bool `yaml:"verbose,omitempty" json:"verbose,omitempty"`
}

// yamlConfig mirrors Config with durations held as strings, because YAML
// has no native duration scalar. Values use Go duration syntax ("500ms").
type yamlConfig struct {
	BaseURL            string         `yaml:"base_url"`
	Keywords           []string       `yaml:"keywords"`
	PagesPerKeyword    map[string]int `yaml:"pages_per_keyword"`
	DefaultPagesPerRun int            `yaml:"default_pages"`
	MaxLinksPerKeyword int            `yaml:"max_links_per_keyword"`
	Workers            int            `yaml:"workers"`
	RequestDelay       string         `yaml:"request_delay"`
	RequestTimeout     string         `yaml:"request_timeout"`
	RetryAttempts      int            `yaml:"retry_attempts"`
	RetryDelay         string         `yaml:"retry_delay"`
	UserAgent          string         `yaml:"user_agent"`
	RateLimit          float64        `yaml:"rate_limit"`
	RateBurst          int            `yaml:"rate_burst"`
	ProxyFile          string         `yaml:"proxy_file"`
	OutputDir          string         `yaml:"output_dir"`
	OutputFormat       string         `yaml:"output_format"`
	MetricsAddr        string         `yaml:"metrics_addr"`
	Verbose            bool           `yaml:"verbose"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw yamlConfig
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.BaseURL = raw.BaseURL
	c.Keywords = raw.Keywords
	c.PagesPerKeyword = raw.PagesPerKeyword
	c.DefaultPagesPerRun = raw.DefaultPagesPerRun
	c.MaxLinksPerKeyword = raw.MaxLinksPerKeyword
	c.Workers = raw.Workers
	c.RetryAttempts = raw.RetryAttempts
	c.UserAgent = raw.UserAgent
	c.RateLimit = raw.RateLimit
	c.RateBurst = raw.RateBurst
	c.ProxyFile = raw.ProxyFile
	c.OutputDir = raw.OutputDir
	c.OutputFormat = raw.OutputFormat
	c.MetricsAddr = raw.MetricsAddr
	c.Verbose = raw.Verbose

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"request_delay", raw.RequestDelay, &c.RequestDelay},
		{"request_timeout", raw.RequestTimeout, &c.RequestTimeout},
		{"retry_delay", raw.RetryDelay, &c.RetryDelay},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %v", d.name, d.value, err)
		}
		*d.dst = parsed
	}
	return nil
}

// New returns a Config populated with defaults.
func New() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %v", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes.
func LoadFromBytes(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %v", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}

	return &cfg, nil
}

// ApplyDefaults fills unset fields with default values.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.DefaultPagesPerRun == 0 {
		c.DefaultPagesPerRun = DefaultPages
	}
	if c.MaxLinksPerKeyword == 0 {
		c.MaxLinksPerKeyword = DefaultMaxLinks
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.RequestDelay == 0 {
		c.RequestDelay = DefaultRequestDelay
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = DefaultRetryAttempts
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.RateBurst == 0 {
		c.RateBurst = DefaultRateBurst
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.OutputFormat == "" {
		c.OutputFormat = "csv"
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("base_url must start with http:// or https://: %s", c.BaseURL)
	}
	if c.DefaultPagesPerRun < 1 {
		return fmt.Errorf("default_pages must be at least 1, got %d", c.DefaultPagesPerRun)
	}
	for kw, pages := range c.PagesPerKeyword {
		if pages < 1 {
			return fmt.Errorf("pages for keyword %q must be at least 1, got %d", kw, pages)
		}
	}
	if c.MaxLinksPerKeyword < 1 {
		return fmt.Errorf("max_links_per_keyword must be at least 1, got %d", c.MaxLinksPerKeyword)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.RequestDelay < 0 {
		return fmt.Errorf("request_delay cannot be negative")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("retry_attempts must be at least 1, got %d", c.RetryAttempts)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit cannot be negative, got %g", c.RateLimit)
	}
	if c.RateBurst < 1 {
		return fmt.Errorf("rate_burst must be at least 1, got %d", c.RateBurst)
	}
	switch c.OutputFormat {
	case "csv", "excel":
	default:
		return fmt.Errorf("unsupported output format: %s (expected csv or excel)", c.OutputFormat)
	}
	return nil
}

// PagesFor returns the configured page count for a keyword.
func (c *Config) PagesFor(keyword string) int {
	if pages, ok := c.PagesPerKeyword[keyword]; ok {
		return pages
	}
	return c.DefaultPagesPerRun
}

// ParseKeywords splits raw keyword input on commas and newlines, trims
// whitespace, and drops empty entries. Order is preserved.
func ParseKeywords(text string) []string {
	var keywords []string
	for _, line := range strings.Split(text, "\n") {
		for _, kw := range strings.Split(line, ",") {
			kw = strings.TrimSpace(kw)
			if kw != "" {
				keywords = append(keywords, kw)
			}
		}
	}
	return keywords
}
