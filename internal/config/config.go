package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const EnvPrefix = "CHATTER"

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	LogLevel   string        `mapstructure:"log_level"`

	ChatCooldown  time.Duration `mapstructure:"chat_cooldown"`
	CooldownSweep time.Duration `mapstructure:"cooldown_sweep"`
	SendBuffer    int           `mapstructure:"send_buffer"`
	SlowPolicy    string        `mapstructure:"slow_policy"`
	SlowStrikes   int           `mapstructure:"slow_strikes"`

	DBPath      string        `mapstructure:"db_path"`
	RedisAddr   string        `mapstructure:"redis_addr"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	SinkWorkers int           `mapstructure:"sink_workers"`
	SinkQueue   int           `mapstructure:"sink_queue"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "change-me")
	v.SetDefault("token_ttl", "24h")
	v.SetDefault("log_level", "info")

	v.SetDefault("chat_cooldown", "5s")
	v.SetDefault("cooldown_sweep", "1m")
	v.SetDefault("send_buffer", 32)
	v.SetDefault("slow_policy", "kick")
	v.SetDefault("slow_strikes", 3)

	v.SetDefault("db_path", "chatter.db")
	v.SetDefault("redis_addr", "")
	v.SetDefault("cache_ttl", "10m")
	v.SetDefault("sink_workers", 2)
	v.SetDefault("sink_queue", 1024)
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default); any key can be
// overridden from the environment, e.g. CHATTER_PORT.
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
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Dur("cooldown", cfg.ChatCooldown).Msg("config ready")
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.ChatCooldown <= 0 {
		return fmt.Errorf("chat_cooldown must be positive, got %s", c.ChatCooldown)
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("send_buffer must be positive, got %d", c.SendBuffer)
	}
	if c.Secret == "" {
		return fmt.Errorf("secret must not be empty")
	}
	return nil
}
