package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tradehub/tradehub-backend/internal/otp"
	"github.com/tradehub/tradehub-backend/pkg/config"
	pkgerrors "github.com/tradehub/tradehub-backend/pkg/errors"
)

type stubOTPService struct {
	issued    *otp.Issued
	err       error
	lastEmail string
	lastCode  string
}

func (s *stubOTPService) Issue(ctx context.Context, email string) (*otp.Issued, error) {
	s.lastEmail = email
	return s.issued, s.err
}

func (s *stubOTPService) Verify(ctx context.Context, email, code string) error {
	s.lastEmail = email
	s.lastCode = code
	return s.err
}

func TestOTPIssue(t *testing.T) {
	svc := &stubOTPService{issued: &otp.Issued{Email: "a@b.co", ExpiresAt: time.Now().Add(5 * time.Minute)}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/otp", strings.NewReader(`{"email":"a@b.co"}`))
	resp := httptest.NewRecorder()

	OTPIssue(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	require.Equal(t, "a@b.co", svc.lastEmail)
	require.Contains(t, resp.Body.String(), "expiresAt")
	require.NotContains(t, resp.Body.String(), "code")
}

func TestOTPIssueRejectsBadEmail(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/otp", strings.NewReader(`{"email":"nope"}`))
	resp := httptest.NewRecorder()

	OTPIssue(&stubOTPService{}, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestOTPVerify(t *testing.T) {
	svc := &stubOTPService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/otp/verify", strings.NewReader(`{"email":"a@b.co","code":"123456"}`))
	resp := httptest.NewRecorder()

	OTPVerify(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "123456", svc.lastCode)
}

func TestOTPVerifyWrongCode(t *testing.T) {
	svc := &stubOTPService{err: pkgerrors.New(pkgerrors.CodeValidation, "incorrect code")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/otp/verify", strings.NewReader(`{"email":"a@b.co","code":"000000"}`))
	resp := httptest.NewRecorder()

	OTPVerify(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "incorrect code")
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthReady(t *testing.T) {
	cfg := testConfig()
	resp := httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"db": stubPinger{}, "redis": stubPinger{}}).
		ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"redis":"ok"`)
}

func TestHealthReadyReportsDependencyFailure(t *testing.T) {
	cfg := testConfig()
	resp := httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"redis": stubPinger{err: errors.New("dial tcp: refused")}}).
		ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	require.Contains(t, resp.Body.String(), "DEPENDENCY_ERROR")
}

func TestHealthLive(t *testing.T) {
	resp := httptest.NewRecorder()
	HealthLive(testConfig()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "test", resp.Header().Get("X-TradeHub-Env"))
}

func testConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "test"}}
}
