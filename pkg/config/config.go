package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	Service ServiceConfig
	DB      DBConfig
	Feed    FeedConfig
	Polling PollingConfig
	Push    PushConfig
	Cleanup CleanupConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Feed.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Polling.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BLOGWATCH_APP_ENV" required:"true"`
	Port         string `envconfig:"BLOGWATCH_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"BLOGWATCH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BLOGWATCH_LOG_WARN_STACK" default:"false"`

	// ExtraCORSOrigins are appended to the built-in allowed origin list.
	ExtraCORSOrigins []string `envconfig:"BLOGWATCH_CORS_EXTRA_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BLOGWATCH_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BLOGWATCH_DB_DSN"`
	Driver string `envconfig:"BLOGWATCH_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BLOGWATCH_DB_HOST"`
	LegacyPort     int    `envconfig:"BLOGWATCH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BLOGWATCH_DB_USER"`
	LegacyPassword string `envconfig:"BLOGWATCH_DB_PASSWORD"`
	LegacyName     string `envconfig:"BLOGWATCH_DB_NAME"`
	LegacySSLMode  string `envconfig:"BLOGWATCH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BLOGWATCH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BLOGWATCH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BLOGWATCH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BLOGWATCH_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"BLOGWATCH_AUTO_MIGRATE" default:"false"`
}

// FeedConfig points at the external blog content source.
type FeedConfig struct {
	URL          string        `envconfig:"BLOGWATCH_FEED_URL" required:"true"`
	Timeout      time.Duration `envconfig:"BLOGWATCH_FEED_TIMEOUT" default:"30s"`
	MaxRetries   int           `envconfig:"BLOGWATCH_FEED_MAX_RETRIES" default:"3"`
	RetryBackoff time.Duration `envconfig:"BLOGWATCH_FEED_RETRY_BACKOFF" default:"1s"`
}

func (f FeedConfig) validate() error {
	if !strings.HasPrefix(f.URL, "http://") && !strings.HasPrefix(f.URL, "https://") {
		return fmt.Errorf("%s must start with http:// or https://", EnvFeedURL)
	}
	parsed, err := url.Parse(f.URL)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("invalid %s: %q", EnvFeedURL, f.URL)
	}
	if f.Timeout < time.Second {
		return fmt.Errorf("%s must be at least 1s", EnvFeedTimeout)
	}
	if f.MaxRetries < 1 {
		return fmt.Errorf("%s must be at least 1", EnvFeedMaxRetries)
	}
	if f.RetryBackoff <= 0 {
		return fmt.Errorf("%s must be positive", EnvFeedRetryBackoff)
	}
	return nil
}

type PollingConfig struct {
	IntervalMinutes int           `envconfig:"BLOGWATCH_POLLING_INTERVAL_MINUTES" default:"15"`
	RateLimitCalls  int           `envconfig:"BLOGWATCH_POLLING_RATE_LIMIT_CALLS" default:"10"`
	RateLimitPeriod time.Duration `envconfig:"BLOGWATCH_POLLING_RATE_LIMIT_PERIOD" default:"1m"`
}

func (p PollingConfig) validate() error {
	if p.IntervalMinutes < 1 {
		return fmt.Errorf("%s must be at least 1 minute", EnvPollingInterval)
	}
	if p.RateLimitCalls < 1 {
		return fmt.Errorf("%s must be at least 1", EnvPollingRateCalls)
	}
	if p.RateLimitPeriod <= 0 {
		return fmt.Errorf("%s must be positive", EnvPollingRatePeriod)
	}
	return nil
}

// Interval returns the poll cadence as a duration.
func (p PollingConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMinutes) * time.Minute
}

type PushConfig struct {
	VAPIDPublicKey  string `envconfig:"BLOGWATCH_PUSH_VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"BLOGWATCH_PUSH_VAPID_PRIVATE_KEY"`
	ContactEmail    string `envconfig:"BLOGWATCH_PUSH_CONTACT_EMAIL"`
	TTLSeconds      int    `envconfig:"BLOGWATCH_PUSH_TTL_SECONDS" default:"86400"`
	WorkerCap       int    `envconfig:"BLOGWATCH_PUSH_WORKER_CAP" default:"10"`
	MaxMessageLen   int    `envconfig:"BLOGWATCH_PUSH_MAX_MESSAGE_LEN" default:"75"`
}

type CleanupConfig struct {
	AuthTokenTTLDays int `envconfig:"BLOGWATCH_AUTH_TOKEN_TTL_DAYS" default:"30"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
