package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode      string `mapstructure:"mode"`
	Port      int    `mapstructure:"port"`
	ReadLimit int64  `mapstructure:"read_limit"`
	Secret    string `mapstructure:"secret"`

	// SettleDelay is how long a fresh joiner gets to finish local setup
	// before active producers are replayed to it.
	SettleDelay time.Duration `mapstructure:"settle_delay"`

	// RequestTTL bounds how long a pending join request may wait for the
	// host; SweepInterval is how often expired requests are collected.
	RequestTTL    time.Duration `mapstructure:"request_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`

	// JoinRateLimit caps room joins and admission requests per connection
	// within JoinRateInterval.
	JoinRateLimit    int           `mapstructure:"join_rate_limit"`
	JoinRateInterval time.Duration `mapstructure:"join_rate_interval"`

	// BroadcastURL is the room-registry process endpoint the media-engine
	// process posts new-media notices to. Empty means both roles are
	// co-located and notices are delivered in-process.
	BroadcastURL     string        `mapstructure:"broadcast_url"`
	BroadcastTimeout time.Duration `mapstructure:"broadcast_timeout"`
	BroadcastRetries int           `mapstructure:"broadcast_retries"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("settle_delay", "1s")
	v.SetDefault("request_ttl", "2m")
	v.SetDefault("sweep_interval", "15s")
	v.SetDefault("join_rate_limit", 10)
	v.SetDefault("join_rate_interval", "10s")
	v.SetDefault("broadcast_timeout", "3s")
	v.SetDefault("broadcast_retries", 3)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d\n", cfg.Mode, cfg.Port)
	return &cfg, nil
}
