package config

const EnvPrefix = "BLOGWATCH"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "BLOGWATCH_APP_ENV"

	EnvDBDSN  = "BLOGWATCH_DB_DSN"
	EnvDBHost = "BLOGWATCH_DB_HOST"
	EnvDBUser = "BLOGWATCH_DB_USER"
	EnvDBName = "BLOGWATCH_DB_NAME"

	EnvFeedURL          = "BLOGWATCH_FEED_URL"
	EnvFeedTimeout      = "BLOGWATCH_FEED_TIMEOUT"
	EnvFeedMaxRetries   = "BLOGWATCH_FEED_MAX_RETRIES"
	EnvFeedRetryBackoff = "BLOGWATCH_FEED_RETRY_BACKOFF"

	EnvPollingInterval   = "BLOGWATCH_POLLING_INTERVAL_MINUTES"
	EnvPollingRateCalls  = "BLOGWATCH_POLLING_RATE_LIMIT_CALLS"
	EnvPollingRatePeriod = "BLOGWATCH_POLLING_RATE_LIMIT_PERIOD"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
