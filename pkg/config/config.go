package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Kafka        KafkaConfig
	Stripe       StripeConfig
	Payments     PaymentsConfig
	OTP          OTPConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Eventing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"TRADEHUB_APP_ENV" required:"true"`
	Port         string   `envconfig:"TRADEHUB_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"TRADEHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"TRADEHUB_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"TRADEHUB_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TRADEHUB_DB_DSN"`
	Driver string `envconfig:"TRADEHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TRADEHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"TRADEHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TRADEHUB_DB_USER"`
	LegacyPassword string `envconfig:"TRADEHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"TRADEHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"TRADEHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TRADEHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TRADEHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TRADEHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TRADEHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"TRADEHUB_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TRADEHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TRADEHUB_REDIS_ADDR"`
	Password     string        `envconfig:"TRADEHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"TRADEHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TRADEHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TRADEHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TRADEHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TRADEHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TRADEHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TRADEHUB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TRADEHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TRADEHUB_JWT_EXPIRATION_MINUTES" default:"60"`
	AccessCookieName  string `envconfig:"TRADEHUB_JWT_ACCESS_COOKIE" default:"accessToken"`
}

// TokenTTL returns the access token lifetime.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TRADEHUB_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	Broker         string        `envconfig:"TRADEHUB_EVENT_BROKER" default:"pubsub"`
	IdempotencyTTL time.Duration `envconfig:"TRADEHUB_EVENTING_IDEMPOTENCY_TTL" default:"24h"`
}

func (e EventingConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(e.Broker)) {
	case BrokerPubSub, BrokerKafka:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvEventBroker, BrokerPubSub, BrokerKafka)
	}
}

// UsesKafka reports whether outbox events are published to Kafka.
func (e EventingConfig) UsesKafka() bool {
	return strings.EqualFold(strings.TrimSpace(e.Broker), BrokerKafka)
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TRADEHUB_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"TRADEHUB_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TRADEHUB_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"TRADEHUB_PUBSUB_ORDERS_TOPIC" default:"th-order-events"`
	// Ordered publishes every event for one aggregate on the same ordering
	// key. The subscription must have message ordering enabled to benefit.
	Ordered bool `envconfig:"TRADEHUB_PUBSUB_ORDERED" default:"true"`
}

type KafkaConfig struct {
	Brokers string `envconfig:"TRADEHUB_KAFKA_BROKERS" default:"localhost:9092"`
	Topic   string `envconfig:"TRADEHUB_KAFKA_TOPIC" default:"th-order-events"`
}

// BrokerList splits the comma separated broker string.
func (k KafkaConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TRADEHUB_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TRADEHUB_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TRADEHUB_OUTBOX_MAX_ATTEMPTS" default:"10"`

	ClaimLease time.Duration `envconfig:"TRADEHUB_OUTBOX_CLAIM_LEASE" default:"30s"`
}

type StripeConfig struct {
	APIKey   string `envconfig:"TRADEHUB_STRIPE_API_KEY"`
	Env      string `envconfig:"TRADEHUB_STRIPE_ENV" default:"test"`
	Currency string `envconfig:"TRADEHUB_STRIPE_CURRENCY" default:"inr"`
	// MaxRetries covers connection failures and 409/429 answers; Stripe
	// dedupes retried creates through its own idempotency keys.
	MaxRetries int `envconfig:"TRADEHUB_STRIPE_MAX_RETRIES" default:"2"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type PaymentsConfig struct {
	VerifyTimeout  time.Duration `envconfig:"TRADEHUB_PAYMENTS_VERIFY_TIMEOUT" default:"10s"`
	CustomerName   string        `envconfig:"TRADEHUB_PAYMENTS_CUSTOMER_NAME" default:"TradeHub Customer"`
	BillingLine1   string        `envconfig:"TRADEHUB_PAYMENTS_BILLING_LINE1" default:"510 Townsend St"`
	BillingCity    string        `envconfig:"TRADEHUB_PAYMENTS_BILLING_CITY" default:"San Francisco"`
	BillingState   string        `envconfig:"TRADEHUB_PAYMENTS_BILLING_STATE" default:"CA"`
	BillingZip     string        `envconfig:"TRADEHUB_PAYMENTS_BILLING_POSTAL_CODE" default:"98140"`
	BillingCountry string        `envconfig:"TRADEHUB_PAYMENTS_BILLING_COUNTRY" default:"US"`
}

type OTPConfig struct {
	TTL              time.Duration `envconfig:"TRADEHUB_OTP_TTL" default:"5m"`
	CodeLength       int           `envconfig:"TRADEHUB_OTP_CODE_LENGTH" default:"6"`
	MaxAttempts      int           `envconfig:"TRADEHUB_OTP_MAX_ATTEMPTS" default:"5"`
	RevealCodes      bool          `envconfig:"TRADEHUB_OTP_REVEAL_CODES" default:"false"`
	HashMemoryKB     uint32        `envconfig:"TRADEHUB_OTP_HASH_MEMORY_KB" default:"19456"`
	HashTime         uint32        `envconfig:"TRADEHUB_OTP_HASH_TIME" default:"2"`
	RateWindow       time.Duration `envconfig:"TRADEHUB_OTP_RATE_WINDOW" default:"15m"`
	IssueIPLimit     int           `envconfig:"TRADEHUB_OTP_ISSUE_IP_LIMIT" default:"20"`
	IssueEmailLimit  int           `envconfig:"TRADEHUB_OTP_ISSUE_EMAIL_LIMIT" default:"5"`
	VerifyIPLimit    int           `envconfig:"TRADEHUB_OTP_VERIFY_IP_LIMIT" default:"50"`
	VerifyEmailLimit int           `envconfig:"TRADEHUB_OTP_VERIFY_EMAIL_LIMIT" default:"10"`
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
