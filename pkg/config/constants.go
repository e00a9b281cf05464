package config

const EnvPrefix = "TRADEHUB"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	BrokerPubSub = "pubsub"
	BrokerKafka  = "kafka"
)

const (
	EnvAppEnv      = "TRADEHUB_APP_ENV"
	EnvPort        = "TRADEHUB_APP_PORT"
	EnvLogLevel    = "TRADEHUB_LOG_LEVEL"
	EnvDBDSN       = "TRADEHUB_DB_DSN"
	EnvDBHost      = "TRADEHUB_DB_HOST"
	EnvDBUser      = "TRADEHUB_DB_USER"
	EnvDBPassword  = "TRADEHUB_DB_PASSWORD"
	EnvDBName      = "TRADEHUB_DB_NAME"
	EnvRedisURL    = "TRADEHUB_REDIS_URL"
	EnvJWTSecret   = "TRADEHUB_JWT_SECRET"
	EnvJWTIssuer   = "TRADEHUB_JWT_ISSUER"
	EnvJWTExpMins  = "TRADEHUB_JWT_EXPIRATION_MINUTES"
	EnvEventBroker = "TRADEHUB_EVENT_BROKER"
	EnvKafkaBroker = "TRADEHUB_KAFKA_BROKERS"
	EnvStripeKey   = "TRADEHUB_STRIPE_API_KEY"
	EnvOTPTTL      = "TRADEHUB_OTP_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
