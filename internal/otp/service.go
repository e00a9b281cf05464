// Package otp issues and verifies short-lived one-time codes. Codes live in
// Redis so every API instance sees the same state and restarts lose nothing.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/tradehub/tradehub-backend/pkg/errors"
	"github.com/tradehub/tradehub-backend/pkg/logger"
	"github.com/tradehub/tradehub-backend/pkg/security"
)

// Store is the slice of pkg/redis.Client the service uses.
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	Consume(ctx context.Context, key string) (bool, error)
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	OTPKey(subject string) string
	OTPAttemptsKey(subject string) string
}

// Mailer delivers a code to its owner.
type Mailer interface {
	SendCode(ctx context.Context, email, code string, ttl time.Duration) error
}

type Config struct {
	TTL         time.Duration
	CodeLength  int
	MaxAttempts int
	// Hash tunes the argon2id hash stored in place of the code.
	Hash security.ArgonParams
}

type Issued struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Service struct {
	store  Store
	mailer Mailer
	cfg    Config
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(store Store, mailer Mailer, cfg Config, logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("otp store required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.CodeLength < 4 || cfg.CodeLength > 10 {
		cfg.CodeLength = 6
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	cfg.Hash = cfg.Hash.Normalize()
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{store: store, mailer: mailer, cfg: cfg, logg: logg, now: time.Now}, nil
}

// Issue replaces any pending code for email with a fresh one and sends it.
func (s *Service) Issue(ctx context.Context, email string) (*Issued, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	code, err := generateCode(s.cfg.CodeLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate code")
	}
	hashed, err := security.Hash(code, s.cfg.Hash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash code")
	}
	if err := s.store.Set(ctx, s.store.OTPKey(email), hashed, s.cfg.TTL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store code")
	}
	if err := s.store.Del(ctx, s.store.OTPAttemptsKey(email)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset attempts")
	}
	if err := s.mailer.SendCode(ctx, email, code, s.cfg.TTL); err != nil {
		_ = s.store.Del(ctx, s.store.OTPKey(email))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send code")
	}
	return &Issued{Email: email, ExpiresAt: s.now().Add(s.cfg.TTL).UTC()}, nil
}

// Verify consumes the pending code when it matches. Running out of attempts
// discards the code so a new one must be issued.
func (s *Service) Verify(ctx context.Context, email, code string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}

	key := s.store.OTPKey(email)
	attemptsKey := s.store.OTPAttemptsKey(email)
	stored, err := s.store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "code expired or not issued")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load code")
	}

	match, err := security.Verify(code, stored)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read stored code")
	}
	if match {
		won, err := s.store.Consume(ctx, key)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume code")
		}
		if !won {
			// A concurrent verify already spent this code.
			return pkgerrors.New(pkgerrors.CodeValidation, "code expired or not issued")
		}
		if err := s.store.Del(ctx, attemptsKey); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "otp attempts reset failed")
		}
		return nil
	}

	attempts, err := s.store.IncrWithTTL(ctx, attemptsKey, s.cfg.TTL)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count attempts")
	}
	remaining := int64(s.cfg.MaxAttempts) - attempts
	if remaining <= 0 {
		if err := s.store.Del(ctx, key, attemptsKey); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "discard code")
		}
		s.logg.Warn(s.logg.WithField(ctx, "email", email), "otp attempts exhausted")
		return pkgerrors.New(pkgerrors.CodeValidation, "too many attempts, request a new code")
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "incorrect code").
		WithDetails(map[string]int64{"attemptsRemaining": remaining})
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	return strings.ToLower(addr.Address), nil
}

func generateCode(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	ten := big.NewInt(10)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
