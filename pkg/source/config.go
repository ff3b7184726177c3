package source

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"stockpipe/pkg/confkit"
)

// Provider names understood by the ingestion jobs.
const (
	ProviderTCBS       = "tcbs"
	ProviderDNSEMarket = "dnse_market"
	ProviderDNSEChart  = "dnse_chart"
	ProviderDividend   = "dividend"
)

// Config lists the upstream market-data providers.
type Config struct {
	Providers map[string]*ProviderConfig `yaml:"providers"`
}

// ProviderConfig configures a single provider endpoint.
type ProviderConfig struct {
	BaseURL string `yaml:"base_url"`

	TimeoutRaw string        `yaml:"timeout"`
	Timeout    time.Duration `yaml:"-"`
	DelayRaw   string        `yaml:"delay"`
	Delay      time.Duration `yaml:"-"`
	PageSize   int           `yaml:"page_size"`
}

// LoadConfig reads a provider config file from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// MustLoad reads etc/source.yaml from the project root and panics on error.
func MustLoad() *Config {
	cfg, err := LoadConfig(confkit.MustProjectPath("etc/source.yaml"))
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfigFromReader parses, normalises and validates a provider config.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read source config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal source config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	if c.Providers == nil {
		c.Providers = make(map[string]*ProviderConfig)
	}
	for name, p := range c.Providers {
		if p == nil {
			p = &ProviderConfig{}
			c.Providers[name] = p
		}
		p.BaseURL = strings.TrimSpace(os.ExpandEnv(p.BaseURL))
		p.TimeoutRaw = strings.TrimSpace(os.ExpandEnv(p.TimeoutRaw))
		p.DelayRaw = strings.TrimSpace(os.ExpandEnv(p.DelayRaw))

		p.Timeout = defaultHTTPTimeout
		if p.TimeoutRaw != "" {
			d, err := time.ParseDuration(p.TimeoutRaw)
			if err != nil {
				return fmt.Errorf("source provider %s: invalid timeout %q: %w", name, p.TimeoutRaw, err)
			}
			if d <= 0 {
				return fmt.Errorf("source provider %s: timeout must be positive, got %s", name, d)
			}
			p.Timeout = d
		}
		p.Delay = DefaultDelay
		if p.DelayRaw != "" {
			d, err := time.ParseDuration(p.DelayRaw)
			if err != nil {
				return fmt.Errorf("source provider %s: invalid delay %q: %w", name, p.DelayRaw, err)
			}
			if d < 0 {
				return fmt.Errorf("source provider %s: delay cannot be negative, got %s", name, d)
			}
			p.Delay = d
		}
	}
	return nil
}

// Validate ensures every provider has a base URL.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("source config: providers cannot be empty")
	}
	for name, p := range c.Providers {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("source config: provider name cannot be empty")
		}
		if p.BaseURL == "" {
			return fmt.Errorf("source config: provider %s must specify base_url", name)
		}
		if p.PageSize < 0 {
			return fmt.Errorf("source config: provider %s page_size cannot be negative", name)
		}
	}
	return nil
}

// Names returns the configured provider names in sorted order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Client builds a fresh Client for the named provider.
func (c *Config) Client(name string, extra ...Option) (*Client, error) {
	p, ok := c.Providers[name]
	if !ok || p == nil {
		return nil, fmt.Errorf("source config: provider %q not defined", name)
	}
	opts := []Option{
		WithName(name),
		WithBaseURL(p.BaseURL),
		WithDelay(p.Delay),
		WithHTTPClient(&http.Client{Timeout: p.Timeout}),
	}
	return NewClient(append(opts, extra...)...), nil
}
