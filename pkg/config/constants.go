package config

const (
	EnvPrefix = "CAFE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "CAFE_APP_ENV"
	EnvPort                   = "CAFE_APP_PORT"
	EnvLogLevel               = "CAFE_LOG_LEVEL"
	EnvAppTimezone            = "CAFE_APP_TIMEZONE"
	EnvCORSOrigins            = "CAFE_CORS_ALLOWED_ORIGINS"
	EnvDBDSN                  = "CAFE_DB_DSN"
	EnvDBHost                 = "CAFE_DB_HOST"
	EnvDBPort                 = "CAFE_DB_PORT"
	EnvDBUser                 = "CAFE_DB_USER"
	EnvDBPassword             = "CAFE_DB_PASSWORD"
	EnvDBName                 = "CAFE_DB_NAME"
	EnvRedisURL               = "CAFE_REDIS_URL"
	EnvJWTSecret              = "CAFE_JWT_SECRET"
	EnvJWTIssuer              = "CAFE_JWT_ISSUER"
	EnvJWTExpMins             = "CAFE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "CAFE_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "CAFE_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic      = "CAFE_PUBSUB_ORDERS_TOPIC"
	EnvCronInterval           = "CAFE_CRON_INTERVAL"
	EnvCronOutboxRetention    = "CAFE_CRON_OUTBOX_RETENTION_DAYS"
	EnvCronCartRetention      = "CAFE_CRON_CART_RETENTION_DAYS"
	EnvAdminEmail             = "CAFE_ADMIN_EMAIL"
	EnvAdminPassword          = "CAFE_ADMIN_PASSWORD"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
