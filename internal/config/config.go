package config

// Config holds all server configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Ledger   LedgerConfig   `mapstructure:"ledger" validate:"required"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gt=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
	BcryptCost           int    `mapstructure:"bcrypt_cost" validate:"gte=4,lte=31"`
}

// LedgerConfig tunes the progression and commerce ledger.
type LedgerConfig struct {
	// MaxConflictRetries bounds automatic retries of a purchase that lost a
	// balance race. Zero disables retries.
	MaxConflictRetries int `mapstructure:"max_conflict_retries" validate:"gte=0,lte=10"`
	RetryBackoffMillis int `mapstructure:"retry_backoff_ms" validate:"gte=0"`
	// PremiumMonths is the length of one premium grant.
	PremiumMonths int `mapstructure:"premium_months" validate:"gt=0"`
	// SelfServiceGrants exposes POST /api/me/coins and /api/me/premium to any
	// logged-in user. Disable it when coins and premium are granted by a
	// separate exercise or billing service.
	SelfServiceGrants bool `mapstructure:"self_service_grants"`
}

// CacheConfig configures the optional Redis read-through cache for the
// voucher catalog and the exam bundle. An empty RedisURL disables caching.
type CacheConfig struct {
	RedisURL   string `mapstructure:"redis_url" validate:"omitempty,url"`
	TTLSeconds int    `mapstructure:"ttl_seconds" validate:"gt=0"`
}

// Enabled reports whether a Redis URL was configured.
func (c CacheConfig) Enabled() bool {
	return c.RedisURL != ""
}

// ClientConfig holds the terminal client's settings.
type ClientConfig struct {
	ServerURL             string `mapstructure:"server_url" validate:"required,url"`
	CachePath             string `mapstructure:"cache_path" validate:"required"`
	LogLevel              string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds" validate:"gt=0"`
}
