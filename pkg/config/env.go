package config

// EnvPrefix scopes all envconfig lookups.
const EnvPrefix = "REELKEEP"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags (tests, docs).
const (
	EnvAppEnv      = "REELKEEP_APP_ENV"
	EnvPort        = "REELKEEP_APP_PORT"
	EnvDBDSN       = "REELKEEP_DB_DSN"
	EnvRedisURL    = "REELKEEP_REDIS_URL"
	EnvIdentityURL = "REELKEEP_IDENTITY_URL"
	EnvRecordsURL  = "REELKEEP_RECORDS_URL"
	EnvTMDBKey     = "REELKEEP_TMDB_API_KEY"
)
