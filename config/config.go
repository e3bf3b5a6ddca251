package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the search orchestrator
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	BrightData BrightDataConfig `mapstructure:"brightdata"`
	Browser    BrowserConfig    `mapstructure:"browser"`
	Registry   RegistryConfig   `mapstructure:"registry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LLMConfig configures the provider backing the extraction agent
type LLMConfig struct {
	Type        string        `mapstructure:"type"` // openai only for now
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func (c LLMConfig) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("llm.api_key is required (or set VOYAGER_LLM_API_KEY)")
	}
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("llm.model is required")
	}
	return nil
}

// BrightDataConfig configures the SERP job API used for hotel searches
type BrightDataConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Customer        string        `mapstructure:"customer"`
	Zone            string        `mapstructure:"zone"`
	APIKey          string        `mapstructure:"api_key"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	MaxPollAttempts int           `mapstructure:"max_poll_attempts"`
}

func (c BrightDataConfig) Validate() error {
	if strings.TrimSpace(c.Customer) == "" || strings.TrimSpace(c.Zone) == "" {
		return errors.New("brightdata.customer and brightdata.zone are required")
	}
	if c.MaxPollAttempts <= 0 {
		return fmt.Errorf("brightdata.max_poll_attempts must be > 0, got %d", c.MaxPollAttempts)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("brightdata.poll_interval must be > 0, got %s", c.PollInterval)
	}
	return nil
}

// BrowserConfig configures the chromedp session used by the flight scraper.
// RemoteURL selects a managed scraping browser (Bright Data WSS endpoint);
// when empty a local headless instance is launched.
type BrowserConfig struct {
	RemoteURL     string        `mapstructure:"remote_url"`
	Headless      bool          `mapstructure:"headless"`
	ElementWait   time.Duration `mapstructure:"element_wait"`
	SettleWait    time.Duration `mapstructure:"settle_wait"`
	PageTimeout   time.Duration `mapstructure:"page_timeout"`
	ScreenshotDir string        `mapstructure:"screenshot_dir"`
	MaxPageChars  int           `mapstructure:"max_page_chars"`
}

// RegistryConfig selects the job registry backend and its eviction policy
type RegistryConfig struct {
	Backend      string        `mapstructure:"backend"` // memory or redis
	TTL          time.Duration `mapstructure:"ttl"`
	EvictionCron string        `mapstructure:"eviction_cron"`
	Redis        RedisConfig   `mapstructure:"redis"`
}

// RedisConfig configures the optional redis registry backend
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RegistryConfig) Validate() error {
	switch c.Backend {
	case "memory", "":
	case "redis":
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return errors.New("registry.redis.addr is required when registry.backend is redis")
		}
	default:
		return fmt.Errorf("registry.backend must be memory or redis, got %q", c.Backend)
	}
	return nil
}

// LoadConfig reads config.json (or the file at path) plus VOYAGER_* env
// overrides and returns the validated configuration.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("server.address", ":8000")
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("llm.type", "openai")
	viper.SetDefault("llm.model", "gpt-4o")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.max_tokens", 4096)
	viper.SetDefault("llm.timeout", 120*time.Second)
	viper.SetDefault("brightdata.base_url", "https://api.brightdata.com/serp")
	viper.SetDefault("brightdata.poll_interval", 10*time.Second)
	viper.SetDefault("brightdata.max_poll_attempts", 10)
	viper.SetDefault("browser.headless", true)
	viper.SetDefault("browser.element_wait", 5*time.Second)
	viper.SetDefault("browser.settle_wait", time.Second)
	viper.SetDefault("browser.page_timeout", 90*time.Second)
	viper.SetDefault("browser.screenshot_dir", ".")
	viper.SetDefault("browser.max_page_chars", 20000)
	viper.SetDefault("registry.backend", "memory")
	viper.SetDefault("registry.ttl", 24*time.Hour)
	viper.SetDefault("registry.eviction_cron", "@hourly")

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("VOYAGER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
		// defaults + env only
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	if err := config.BrightData.Validate(); err != nil {
		panic(err)
	}
	if err := config.Registry.Validate(); err != nil {
		panic(err)
	}
	return &config
}
