package stripe

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/tradehub/tradehub-backend/pkg/config"
	"github.com/tradehub/tradehub-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
	currencyRe          = regexp.MustCompile(`^[a-z]{3}$`)
)

// Client carries the configured Stripe key plus deployment-wide payment settings.
type Client struct {
	environment string
	currency    string
}

// NewClient installs the key and a retrying, logged API backend into the
// stripe-go globals. Call it once per process.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "inr"
	}
	if !currencyRe.MatchString(currency) {
		return nil, fmt.Errorf("stripe currency %q is not an ISO 4217 code", cfg.Currency)
	}

	retries := int64(cfg.MaxRetries)
	if retries < 0 {
		retries = 0
	}
	if logg == nil {
		logg = logger.Nop()
	}

	stripe.Key = apiKey
	stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(retries),
		LeveledLogger:     &leveledLogger{ctx: ctx, logg: logg},
	}))

	logg.Info(logg.WithFields(ctx, map[string]any{
		"stripe_env":  env,
		"currency":    currency,
		"max_retries": retries,
	}), "stripe client initialized")

	return &Client{environment: env, currency: currency}, nil
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// Currency is the fixed ISO currency all intents are created in.
func (c *Client) Currency() string {
	if c == nil {
		return ""
	}
	return c.currency
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	prefixes := map[string][]string{
		testEnv: {"sk_test", "rk_test"},
		liveEnv: {"sk_live", "rk_live"},
	}[env]
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return nil
		}
	}
	if prefixes == nil {
		return errInvalidStripeEnv
	}
	return fmt.Errorf("stripe environment %q requires a %s secret key (%s)", env, env, strings.Join(prefixes, "/"))
}

// leveledLogger routes stripe-go's request logging into the service logger.
// Debug output is dropped; retries surface at info.
type leveledLogger struct {
	ctx  context.Context
	logg *logger.Logger
}

func (l *leveledLogger) Debugf(string, ...interface{}) {}

func (l *leveledLogger) Infof(format string, v ...interface{}) {
	l.logg.Info(l.ctx, "stripe: "+fmt.Sprintf(format, v...))
}

func (l *leveledLogger) Warnf(format string, v ...interface{}) {
	l.logg.Warn(l.ctx, "stripe: "+fmt.Sprintf(format, v...))
}

func (l *leveledLogger) Errorf(format string, v ...interface{}) {
	l.logg.Error(l.ctx, "stripe request failed", fmt.Errorf(format, v...))
}
