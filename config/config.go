// Package config loads moodkit's runtime settings from defaults, MOODKIT_*
// environment variables and command-line flags.
package config

import (
	"errors"
	"time"

	"github.com/cristalhq/aconfig"

	"github.com/PaulFidika/moodkit/core"
	oidckit "github.com/PaulFidika/moodkit/oidc"
)

type Config struct {
	Address         string        `flag:"address" env:"ADDRESS" default:":8000" usage:"address the HTTP server listens on"`
	DatabaseURL     string        `flag:"database-url" env:"DATABASE_URL" usage:"Postgres connection string"`
	DatabaseSchema  string        `flag:"database-schema" env:"DATABASE_SCHEMA" default:"public" usage:"Postgres schema holding moodkit tables"`
	RedisURL        string        `flag:"redis-url" env:"REDIS_URL" usage:"optional Redis URL for shared key documents and rate limits"`
	Production      bool          `flag:"production" env:"PRODUCTION" default:"false" usage:"JSON logs, release mode and no generated signing keys"`
	LogLevel        string        `flag:"log-level" env:"LOG_LEVEL" default:"info" usage:"logrus level"`
	ShutdownTimeout time.Duration `flag:"shutdown-timeout" env:"SHUTDOWN_TIMEOUT" default:"15s" usage:"grace period for in-flight requests"`

	GoogleClientID     string        `flag:"google-client-id" env:"GOOGLE_CLIENT_ID" usage:"OAuth client ID that Google ID tokens must be addressed to"`
	GoogleJWKSURL      string        `flag:"google-jwks-url" env:"GOOGLE_JWKS_URL" default:"https://www.googleapis.com/oauth2/v3/certs" usage:"Google signing key endpoint"`
	KeyCacheTTL        time.Duration `flag:"key-cache-ttl" env:"KEY_CACHE_TTL" default:"12h" usage:"how long fetched signing keys are trusted"`
	KeyMaxStale        time.Duration `flag:"key-max-stale" env:"KEY_MAX_STALE" default:"1h" usage:"how long expired keys are served while refetches fail (negative disables)"`
	KeyFetchTimeout    time.Duration `flag:"key-fetch-timeout" env:"KEY_FETCH_TIMEOUT" default:"5s" usage:"timeout for a signing key fetch"`
	KeyPrewarmSchedule string        `flag:"key-prewarm-schedule" env:"KEY_PREWARM_SCHEDULE" default:"@every 6h" usage:"cron schedule for refreshing signing keys ahead of use"`

	TokenIssuer   string        `flag:"token-issuer" env:"TOKEN_ISSUER" default:"moodkit" usage:"iss of issued access tokens"`
	TokenAudience string        `flag:"token-audience" env:"TOKEN_AUDIENCE" default:"moodkit-api" usage:"aud of issued access tokens"`
	TokenTTL      time.Duration `flag:"token-ttl" env:"TOKEN_TTL" default:"24h" usage:"access token lifetime"`
	KeysDir       string        `flag:"keys-dir" env:"KEYS_DIR" default:"/var/run/moodkit" usage:"directory holding a mounted keys.json"`
	DevKeysDir    string        `flag:"dev-keys-dir" env:"DEV_KEYS_DIR" default:".runtime/moodkit" usage:"where generated development keys are kept"`

	RateLimitPerMinute int `flag:"rate-limit-per-minute" env:"RATE_LIMIT_PER_MINUTE" default:"10" usage:"auth requests per client IP and minute"`
}

// Load reads the configuration. args are the command-line arguments
// without the program name.
func Load(args []string) (Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipDefaults: false,
		SkipFiles:    true,
		SkipEnv:      false,
		SkipFlags:    false,
		EnvPrefix:    "MOODKIT",
		FlagPrefix:   "",
		Args:         args,
		Files:        []string{},
		FileDecoders: map[string]aconfig.FileDecoder{},
	})
	if err := loader.Load(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("config: database url is required")
	}
	if c.Production && c.GoogleClientID == "" {
		return errors.New("config: google client id is required in production")
	}
	return nil
}

// Accept returns the Google ID-token settings.
func (c Config) Accept() core.AcceptConfig {
	return core.AcceptConfig{
		ClientID:     c.GoogleClientID,
		Issuers:      oidckit.GoogleIssuers,
		JWKSURL:      c.GoogleJWKSURL,
		CacheTTL:     c.KeyCacheTTL,
		MaxStale:     c.KeyMaxStale,
		FetchTimeout: c.KeyFetchTimeout,
	}
}
