package otp

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/tradehub/tradehub-backend/pkg/errors"
	"github.com/tradehub/tradehub-backend/pkg/security"
)

var fastHash = security.ArgonParams{MemoryKB: 64, Time: 1, Parallelism: 1}

type memoryStore struct {
	mu     sync.Mutex
	values map[string]string
	counts map[string]int64
	ttls   map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
		delete(m.counts, key)
	}
	return nil
}

func (m *memoryStore) Consume(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[key]
	delete(m.values, key)
	return ok, nil
}

func (m *memoryStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memoryStore) OTPKey(subject string) string         { return "th:otp:" + subject }
func (m *memoryStore) OTPAttemptsKey(subject string) string { return "th:otp:attempts:" + subject }

type captureMailer struct {
	codes map[string]string
	err   error
}

func (c *captureMailer) SendCode(_ context.Context, email, code string, _ time.Duration) error {
	if c.err != nil {
		return c.err
	}
	c.codes[email] = code
	return nil
}

func newTestService(t *testing.T) (*Service, *memoryStore, *captureMailer) {
	t.Helper()
	store := newMemoryStore()
	mailer := &captureMailer{codes: map[string]string{}}
	svc, err := NewService(store, mailer, Config{TTL: time.Minute, CodeLength: 6, MaxAttempts: 3, Hash: fastHash}, nil)
	require.NoError(t, err)
	return svc, store, mailer
}

func TestIssueAndVerify(t *testing.T) {
	svc, store, mailer := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, "  Buyer@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", issued.Email)
	code := mailer.codes["buyer@example.com"]
	assert.Regexp(t, `^[0-9]{6}$`, code)
	assert.Equal(t, time.Minute, store.ttls["th:otp:buyer@example.com"])
	stored := store.values["th:otp:buyer@example.com"]
	assert.NotContains(t, stored, code, "code must not be stored in clear text")
	assert.True(t, strings.HasPrefix(stored, "$argon2id$"))

	require.NoError(t, svc.Verify(ctx, "buyer@example.com", code))
	err = svc.Verify(ctx, "buyer@example.com", code)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "code must be single use")
}

func TestVerifyExhaustsAttempts(t *testing.T) {
	svc, _, mailer := newTestService(t)
	ctx := context.Background()
	_, err := svc.Issue(ctx, "a@b.io")
	require.NoError(t, err)
	code := mailer.codes["a@b.io"]
	wrong := "x" + code[1:]

	err = svc.Verify(ctx, "a@b.io", wrong)
	require.Error(t, err)
	assert.Equal(t, map[string]int64{"attemptsRemaining": 2}, pkgerrors.As(err).Details())
	require.Error(t, svc.Verify(ctx, "a@b.io", wrong))
	err = svc.Verify(ctx, "a@b.io", wrong)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many attempts")

	// the code is gone even though it was never guessed
	err = svc.Verify(ctx, "a@b.io", code)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired or not issued")
}

func TestReissueResetsAttempts(t *testing.T) {
	svc, _, mailer := newTestService(t)
	ctx := context.Background()
	_, err := svc.Issue(ctx, "a@b.io")
	require.NoError(t, err)
	require.Error(t, svc.Verify(ctx, "a@b.io", "nope"))
	require.Error(t, svc.Verify(ctx, "a@b.io", "nope"))

	_, err = svc.Issue(ctx, "a@b.io")
	require.NoError(t, err)
	err = svc.Verify(ctx, "a@b.io", "nope")
	assert.Equal(t, map[string]int64{"attemptsRemaining": 2}, pkgerrors.As(err).Details())
	require.NoError(t, svc.Verify(ctx, "a@b.io", mailer.codes["a@b.io"]))
}

func TestIssueValidationAndDeliveryFailure(t *testing.T) {
	svc, store, mailer := newTestService(t)
	ctx := context.Background()

	_, err := svc.Issue(ctx, "not-an-email")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	mailer.err = errors.New("smtp down")
	_, err = svc.Issue(ctx, "a@b.io")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	_, getErr := store.Get(ctx, store.OTPKey("a@b.io"))
	assert.ErrorIs(t, getErr, redis.Nil)
}

func TestGenerateCode(t *testing.T) {
	code, err := generateCode(8)
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9]{8}$`, code)
}

type racedStore struct{ *memoryStore }

func (racedStore) Consume(context.Context, string) (bool, error) { return false, nil }

func TestVerifyLosesRaceToConcurrentConsume(t *testing.T) {
	store := racedStore{newMemoryStore()}
	mailer := &captureMailer{codes: map[string]string{}}
	svc, err := NewService(store, mailer, Config{TTL: time.Minute, Hash: fastHash}, nil)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = svc.Issue(ctx, "race@example.com")
	require.NoError(t, err)

	err = svc.Verify(ctx, "race@example.com", mailer.codes["race@example.com"])
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
