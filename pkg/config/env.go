package config

// EnvPrefix is passed to envconfig; every field tag also carries the full
// variable name so lookups fall back to it directly.
const EnvPrefix = "DEALERCRM"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv        = "DEALERCRM_APP_ENV"
	EnvPort          = "DEALERCRM_APP_PORT"
	EnvDBDSN         = "DEALERCRM_DB_DSN"
	EnvDBHost        = "DEALERCRM_DB_HOST"
	EnvDBUser        = "DEALERCRM_DB_USER"
	EnvDBName        = "DEALERCRM_DB_NAME"
	EnvDBPassword    = "DEALERCRM_DB_PASSWORD"
	EnvRedisURL      = "DEALERCRM_REDIS_URL"
	EnvJWTSecret     = "DEALERCRM_JWT_SECRET"
	EnvJWTIssuer     = "DEALERCRM_JWT_ISSUER"
	EnvJWTExpMins    = "DEALERCRM_JWT_EXPIRATION_MINUTES"
	EnvGCPProjectID  = "DEALERCRM_GCP_PROJECT_ID"
	EnvLeadTopic     = "DEALERCRM_PUBSUB_LEAD_EVENTS_TOPIC"
	EnvCORSOrigins   = "DEALERCRM_CORS_ALLOWED_ORIGINS"
	EnvIncompleteTTL = "DEALERCRM_INCOMPLETE_RETENTION"
	EnvCronLockTTL   = "DEALERCRM_CRON_LOCK_TTL"
	EnvCronTimeout   = "DEALERCRM_CRON_JOB_TIMEOUT"
)
