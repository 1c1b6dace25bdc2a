package config

// EnvPrefix is passed to envconfig; individual fields carry fully qualified
// envconfig tags so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv  = "ZEDEXPRESS_APP_ENV"
	EnvAppPort = "ZEDEXPRESS_APP_PORT"

	EnvDBDSN  = "ZEDEXPRESS_DB_DSN"
	EnvDBHost = "ZEDEXPRESS_DB_HOST"
	EnvDBUser = "ZEDEXPRESS_DB_USER"
	EnvDBName = "ZEDEXPRESS_DB_NAME"

	EnvRedisURL = "ZEDEXPRESS_REDIS_URL"

	EnvJWTSecret = "ZEDEXPRESS_JWT_SECRET"
	EnvJWTIssuer = "ZEDEXPRESS_JWT_ISSUER"

	EnvPricingSecret = "ZEDEXPRESS_PRICING_HMAC_SECRET"
	EnvPricingKeyID  = "ZEDEXPRESS_PRICING_KEY_ID"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
