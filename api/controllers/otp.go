package controllers

import (
	"context"
	"net/http"

	"github.com/tradehub/tradehub-backend/api/responses"
	"github.com/tradehub/tradehub-backend/api/validators"
	"github.com/tradehub/tradehub-backend/internal/otp"
	pkgerrors "github.com/tradehub/tradehub-backend/pkg/errors"
	"github.com/tradehub/tradehub-backend/pkg/logger"
)

// OTPService is the slice of otp.Service the handlers call.
type OTPService interface {
	Issue(ctx context.Context, email string) (*otp.Issued, error)
	Verify(ctx context.Context, email, code string) error
}

type otpIssueRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type otpVerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,numeric,min=4,max=10"`
}

// OTPIssue sends a fresh code to the email on file.
func OTPIssue(svc OTPService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "otp service unavailable"))
			return
		}

		var payload otpIssueRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		issued, err := svc.Issue(r.Context(), validators.SanitizeString(payload.Email, 320))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, issued)
	}
}

func OTPVerify(svc OTPService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "otp service unavailable"))
			return
		}

		var payload otpVerifyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Verify(r.Context(), validators.SanitizeString(payload.Email, 320), payload.Code); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"verified": true})
	}
}
