package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	apperrors "github.com/ZanzyTHEbar/introscore/internal/errors"
	"github.com/ZanzyTHEbar/introscore/internal/monitoring"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "INTROSCORE"
	EnvConfig  = "INTROSCORE_CONFIG"
	configName = "introscore"
)

type LanguageTool struct {
	URL      string `mapstructure:"url"`
	Language string `mapstructure:"language"`
}

type Embeddings struct {
	URL    string `mapstructure:"url"`
	Model  string `mapstructure:"model"`
	APIKey string `mapstructure:"api_key"`
}

type Semantic struct {
	Enabled bool `mapstructure:"enabled"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimit struct {
	PerMinute  int    `mapstructure:"per_minute"`
	AdminToken string `mapstructure:"admin_token"`
}

type Cache struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type Breaker struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	RecoveryTimeout  time.Duration `mapstructure:"recovery_timeout"`
}

type CORS struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type Security struct {
	HSTS bool `mapstructure:"hsts"`
}

// Config is the resolved service configuration
type Config struct {
	Port                int           `mapstructure:"port"`
	LogLevel            string        `mapstructure:"log_level"`
	RubricFile          string        `mapstructure:"rubric_file"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"`

	LanguageTool LanguageTool `mapstructure:"languagetool"`
	Embeddings   Embeddings   `mapstructure:"embeddings"`
	Semantic     Semantic     `mapstructure:"semantic"`
	Redis        Redis        `mapstructure:"redis"`
	RateLimit    RateLimit    `mapstructure:"ratelimit"`
	Cache        Cache        `mapstructure:"cache"`
	Breaker      Breaker      `mapstructure:"breaker"`
	CORS         CORS         `mapstructure:"cors"`
	Security     Security     `mapstructure:"security"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("rubric_file", "")
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("health_check_interval", 30*time.Second)

	v.SetDefault("languagetool.url", "")
	v.SetDefault("languagetool.language", "en-US")

	v.SetDefault("embeddings.url", "")
	v.SetDefault("embeddings.model", "all-MiniLM-L6-v2")
	v.SetDefault("embeddings.api_key", "")

	v.SetDefault("semantic.enabled", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("ratelimit.per_minute", 30)
	v.SetDefault("ratelimit.admin_token", "")

	v.SetDefault("cache.ttl", 15*time.Minute)

	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.recovery_timeout", 30*time.Second)

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("security.hsts", false)
}

// Load resolves configuration from defaults, then the YAML file at path
// (or $INTROSCORE_CONFIG, or ./introscore.yaml when present), then
// INTROSCORE_* environment variables
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, apperrors.NewConfigurationError(fmt.Sprintf("read config file %s", path), err)
		}
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, apperrors.NewConfigurationError("read config file", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.NewConfigurationError("decode config", err)
	}

	// env lists arrive comma separated, possibly with padding
	cfg.CORS.AllowedOrigins = splitList(strings.Join(cfg.CORS.AllowedOrigins, ","))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration Load produces with no file or env
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func (c *Config) Validate() error {
	var problems []string

	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d out of range", c.Port))
	}
	if _, err := monitoring.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if c.RequestTimeout <= 0 {
		problems = append(problems, "request_timeout must be positive")
	}
	if c.RateLimit.PerMinute <= 0 {
		problems = append(problems, "ratelimit.per_minute must be positive")
	}
	if c.Cache.TTL < 0 {
		problems = append(problems, "cache.ttl must not be negative")
	}
	if c.Breaker.FailureThreshold <= 0 {
		problems = append(problems, "breaker.failure_threshold must be positive")
	}

	if len(problems) > 0 {
		return apperrors.NewConfigurationError("invalid configuration: "+strings.Join(problems, "; "), nil)
	}
	return nil
}

// Addr is the listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
