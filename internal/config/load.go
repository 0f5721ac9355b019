package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Environment variable prefixes.
const (
	EnvPrefix       = "LINGUA"
	ClientEnvPrefix = "LINGUA_CLIENT"
)

// Load reads the server configuration from an optional config.yaml in the
// working directory and from LINGUA_* environment variables. Environment
// variables take precedence over values from the file.
func Load() (*Config, error) {
	v := newViper(EnvPrefix, "config")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("ledger.max_conflict_retries", 3)
	v.SetDefault("ledger.retry_backoff_ms", 25)
	v.SetDefault("ledger.premium_months", 1)
	v.SetDefault("ledger.self_service_grants", true)
	v.SetDefault("cache.ttl_seconds", 300)

	// Keys without defaults must be bound explicitly to be seen by Unmarshal.
	for _, key := range []string{"database.url", "auth.jwt_secret", "cache.redis_url"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadClient reads the terminal client's configuration from an optional
// client.yaml and LINGUA_CLIENT_* environment variables.
func LoadClient() (*ClientConfig, error) {
	v := newViper(ClientEnvPrefix, "client")

	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("cache_path", "lingua-client.db")
	v.SetDefault("log_level", "warn")
	v.SetDefault("request_timeout_seconds", 10)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal client config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid client configuration: %w", err)
	}

	return &cfg, nil
}

func newViper(prefix, name string) *viper.Viper {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// readConfigFile loads the config file if one exists. A missing file is not
// an error; the environment and defaults are enough.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}
