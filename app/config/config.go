// Package config loads the site configuration from an optional YAML file and
// the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when the loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	DefaultAddr       = ":8080"
	DefaultStoreDir   = "data/badger"
	DefaultPageSize   = 1
	DefaultCacheSize  = 128
	DefaultCMSTimeout = 10 * time.Second
	DefaultSiteTitle  = "spacetraveling"
)

// CMS holds the content service endpoint and credentials.
type CMS struct {
	Endpoint    string        `yaml:"endpoint" validate:"required,url"`
	AccessToken string        `yaml:"access_token"`
	Timeout     time.Duration `yaml:"timeout" validate:"gte=0"`
}

type Site struct {
	Title    string `yaml:"title"`
	PageSize int    `yaml:"page_size" validate:"gte=1,lte=100"`
	Timezone string `yaml:"timezone"`
}

type Server struct {
	Addr          string `yaml:"addr"`
	SessionSecret string `yaml:"session_secret" validate:"omitempty,min=32"`
}

type Store struct {
	Dir       string `yaml:"dir"`
	CacheSize int    `yaml:"cache_size" validate:"gte=1"`
}

// Comments configures the utterances widget on post pages. Empty Repo disables it.
type Comments struct {
	Repo  string `yaml:"repo"`
	Theme string `yaml:"theme"`
}

// Config is passed explicitly to every component that needs it; nothing reads
// the environment after Load returns.
type Config struct {
	CMS      CMS      `yaml:"cms"`
	Site     Site     `yaml:"site"`
	Server   Server   `yaml:"server"`
	Store    Store    `yaml:"store"`
	Comments Comments `yaml:"comments"`
}

var validate = validator.New()

// Load reads path (when it exists), applies environment overrides and defaults,
// and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile is Load without validation, for commands that only touch the
// local page store.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg.expand()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Validate checks struct constraints and the timezone name.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := time.LoadLocation(c.Site.Timezone); err != nil {
		return fmt.Errorf("%w: unknown timezone %q", ErrInvalidConfig, c.Site.Timezone)
	}
	return nil
}

// Location returns the display timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Site.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) expand() {
	c.CMS.Endpoint = expandEnv(c.CMS.Endpoint)
	c.CMS.AccessToken = expandEnv(c.CMS.AccessToken)
	c.Server.Addr = expandEnv(c.Server.Addr)
	c.Server.SessionSecret = expandEnv(c.Server.SessionSecret)
	c.Store.Dir = expandEnv(c.Store.Dir)
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PRISMIC_API_ENDPOINT"); v != "" {
		c.CMS.Endpoint = v
	}
	if v := os.Getenv("PRISMIC_ACCESS_TOKEN"); v != "" {
		c.CMS.AccessToken = v
	}
	if v := os.Getenv("SPACETRAVELING_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("SPACETRAVELING_DATA_DIR"); v != "" {
		c.Store.Dir = v
	}
	if v := os.Getenv("SPACETRAVELING_SESSION_SECRET"); v != "" {
		c.Server.SessionSecret = v
	}
	if v := os.Getenv("SPACETRAVELING_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: SPACETRAVELING_PAGE_SIZE: %v", ErrInvalidConfig, err)
		}
		c.Site.PageSize = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.CMS.Endpoint = strings.TrimRight(c.CMS.Endpoint, "/")
	if c.CMS.Timeout == 0 {
		c.CMS.Timeout = DefaultCMSTimeout
	}
	if c.Site.Title == "" {
		c.Site.Title = DefaultSiteTitle
	}
	if c.Site.PageSize == 0 {
		c.Site.PageSize = DefaultPageSize
	}
	if c.Site.Timezone == "" {
		c.Site.Timezone = "UTC"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Store.Dir == "" {
		c.Store.Dir = DefaultStoreDir
	}
	if c.Store.CacheSize == 0 {
		c.Store.CacheSize = DefaultCacheSize
	}
	if c.Comments.Theme == "" {
		c.Comments.Theme = "github-dark"
	}
}

// expandEnv expands ${VAR} and $VAR references.
func expandEnv(s string) string {
	if s == "" {
		return s
	}
	return os.ExpandEnv(s)
}
