package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type OpenWeatherConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	GeoBaseURL     string        `mapstructure:"geo_base_url"`
	WeatherBaseURL string        `mapstructure:"weather_base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RPS            float64       `mapstructure:"rps"`
	Burst          int           `mapstructure:"burst"`
}

type SearchConfig struct {
	Limit    int           `mapstructure:"limit"`
	Debounce time.Duration `mapstructure:"debounce"`
}

type KeyConfig struct {
	Previous []string `mapstructure:"previous"`
	Next     []string `mapstructure:"next"`
	Commit   []string `mapstructure:"commit"`
}

type Config struct {
	Port        string            `mapstructure:"port"`
	OpenWeather OpenWeatherConfig `mapstructure:"openweather"`
	Search      SearchConfig      `mapstructure:"search"`
	Cache       struct {
		TTL time.Duration `mapstructure:"ttl"`
	} `mapstructure:"cache"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
	} `mapstructure:"redis"`
	RateLimit struct {
		RPS   int `mapstructure:"rps"`
		Burst int `mapstructure:"burst"`
	} `mapstructure:"ratelimit"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	ServerURL string    `mapstructure:"server_url"`
	Keys      KeyConfig `mapstructure:"keys"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8095")
	v.SetDefault("openweather.api_key", "")
	v.SetDefault("openweather.geo_base_url", "https://api.openweathermap.org")
	v.SetDefault("openweather.weather_base_url", "https://api.openweathermap.org")
	v.SetDefault("openweather.timeout", 10*time.Second)
	v.SetDefault("openweather.rps", 0)
	v.SetDefault("openweather.burst", 1)
	v.SetDefault("search.limit", 5)
	v.SetDefault("search.debounce", 300*time.Millisecond)
	v.SetDefault("cache.ttl", 15*time.Minute)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("ratelimit.rps", 5)
	v.SetDefault("ratelimit.burst", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("server_url", "")
	v.SetDefault("keys.previous", []string{"up", "ArrowUp", "ctrl+p"})
	v.SetDefault("keys.next", []string{"down", "ArrowDown", "ctrl+n"})
	v.SetDefault("keys.commit", []string{"enter", "Enter"})
}

// Load reads defaults, then the optional YAML file at path, then the
// environment. Nested keys map to env names with dots replaced by
// underscores, so openweather.api_key is OPENWEATHER_API_KEY.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Search.Limit <= 0 {
		return fmt.Errorf("search.limit must be positive, got %d", c.Search.Limit)
	}
	if c.Search.Debounce < 0 {
		return fmt.Errorf("search.debounce must not be negative, got %s", c.Search.Debounce)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	return nil
}
