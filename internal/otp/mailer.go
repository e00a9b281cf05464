package otp

import (
	"context"
	"time"

	"github.com/tradehub/tradehub-backend/pkg/logger"
)

// LogMailer writes codes to the log instead of sending mail. Codes are only
// included when reveal is set, which is meant for local development.
type LogMailer struct {
	logg   *logger.Logger
	reveal bool
}

func NewLogMailer(logg *logger.Logger, reveal bool) *LogMailer {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LogMailer{logg: logg, reveal: reveal}
}

func (m *LogMailer) SendCode(ctx context.Context, email, code string, ttl time.Duration) error {
	fields := map[string]any{
		"email":       email,
		"ttl_seconds": int(ttl.Seconds()),
	}
	if m.reveal {
		fields["code"] = code
	}
	m.logg.Info(m.logg.WithFields(ctx, fields), "otp.issued")
	return nil
}
