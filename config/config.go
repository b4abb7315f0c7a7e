package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const minSecretLength = 32

// Config holds all configuration for the auth core and the daemon.
// Tags use mapstructure for Viper unmarshalling; every key is also readable
// from the environment.
type Config struct {
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	// RedisAddr, when set, selects the redis-backed refresh store instead
	// of the durable mongo one.
	RedisAddr string `mapstructure:"REDIS_ADDR"`

	AccessTokenSecret  string `mapstructure:"ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret string `mapstructure:"REFRESH_TOKEN_SECRET"`
	AccessTokenTTL     string `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL    string `mapstructure:"REFRESH_TOKEN_TTL"`
	DefaultRole        string `mapstructure:"DEFAULT_ROLE"`

	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogPretty   bool   `mapstructure:"LOG_PRETTY"`
	MetricsAddr string `mapstructure:"METRICS_ADDR"`

	accessTTL  time.Duration
	refreshTTL time.Duration
}

// Load reads configuration from file, environment variables, and defaults,
// then validates it. A malformed TTL or an unsafe secret is a hard error;
// the daemon refuses to start rather than run misconfigured.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("keyward")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/keyward/")
	v.AddConfigPath("$HOME/.keyward")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB_NAME", "keyward")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "7d")
	v.SetDefault("DEFAULT_ROLE", "USER")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("METRICS_ADDR", ":9464")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, env vars and defaults carry the
		// load. Anything else (permissions, malformed yaml) is fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.AccessTokenSecret) < minSecretLength {
		return fmt.Errorf("ACCESS_TOKEN_SECRET must be at least %d characters", minSecretLength)
	}
	if len(c.RefreshTokenSecret) < minSecretLength {
		return fmt.Errorf("REFRESH_TOKEN_SECRET must be at least %d characters", minSecretLength)
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	if c.DefaultRole == "" {
		return fmt.Errorf("DEFAULT_ROLE must not be empty")
	}

	var err error
	if c.accessTTL, err = ParseTTL(c.AccessTokenTTL); err != nil {
		return fmt.Errorf("ACCESS_TOKEN_TTL: %w", err)
	}
	if c.refreshTTL, err = ParseTTL(c.RefreshTokenTTL); err != nil {
		return fmt.Errorf("REFRESH_TOKEN_TTL: %w", err)
	}
	if c.accessTTL >= c.refreshTTL {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be shorter than REFRESH_TOKEN_TTL")
	}
	return nil
}

// AccessTTL returns the parsed access-token lifetime.
func (c *Config) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the parsed refresh-token lifetime.
func (c *Config) RefreshTTL() time.Duration { return c.refreshTTL }
